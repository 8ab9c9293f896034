package main

import (
	"fmt"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trufnetwork/artifacts-cdn/infra/lib/assembly"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/constructs/artifacts"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/edgefn"
)

type planOptions struct {
	bucketArn     string
	manage        bool
	indexDocument string
	verbose       bool
}

func (o *planOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.bucketArn, "bucket-arn", "", "ARN of the build artifacts bucket")
	cmd.Flags().BoolVar(&o.manage, "manage-bucket-policy", false, "Declare a bucket policy for the read grant")
	cmd.Flags().StringVar(&o.indexDocument, "index-document", edgefn.DefaultIndexDocument, "Document served for directory URIs")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "Log assembly steps to stderr")
	_ = cmd.MarkFlagRequired("bucket-arn")
}

// assemble runs the composer against a throwaway app pinned to us-east-1.
func (o *planOptions) assemble() (*artifacts.ArtifactsPublicAccess, error) {
	logger := zap.NewNop()
	if o.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		logger = l
	}
	defer logger.Sync() //nolint:errcheck

	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("CI-CDN-Plan"), &awscdk.StackProps{
		Env: &awscdk.Environment{Region: jsii.String(edgefn.EdgeRegion)},
	})
	return artifacts.NewArtifactsPublicAccess(stack, &artifacts.ArtifactsPublicAccessProps{
		BuildBucketArn:     o.bucketArn,
		ManageBucketPolicy: o.manage,
		Rewriter:           edgefn.RewriterOptions{IndexDocument: o.indexDocument},
		Logger:             logger,
	})
}

func newOrderCmd() *cobra.Command {
	var opts planOptions

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Print the order in which resources are declared",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			access, err := opts.assemble()
			if err != nil {
				return err
			}
			for i, step := range access.Order {
				deps := access.Plan.Dependencies(step)
				if len(deps) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, step)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s (after %s)\n", i+1, step, strings.Join(deps, ", "))
			}
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newGraphCmd() *cobra.Command {
	var (
		opts         planOptions
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the step dependency graph",
		Long: `Print the assembly steps as a DOT or Mermaid graph.

Examples:
    cdn-plan graph --bucket-arn arn:aws:s3:::my-builds | dot -Tpng -o plan.png
    cdn-plan graph --bucket-arn arn:aws:s3:::my-builds -f mermaid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := assembly.ParseFormat(outputFormat)
			if err != nil {
				return err
			}
			access, err := opts.assemble()
			if err != nil {
				return err
			}
			return access.Plan.WriteGraph(cmd.OutOrStdout(), format)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	return cmd
}
