// Package edgefn declares the Lambda@Edge function that rewrites viewer request URIs
// before CloudFront computes the cache key or contacts the origin.
package edgefn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/trufnetwork/artifacts-cdn/infra/lib/cdklogger"
)

const (
	Handler      = "index.handler"
	MemorySizeMB = 128
	// Lambda@Edge replicates functions from this region only.
	EdgeRegion = "us-east-1"
)

var ErrArtifactMissing = errors.New("edge function artifact not found")

// Runtime is the Lambda@Edge execution runtime.
func Runtime() awslambda.Runtime {
	return awslambda.Runtime_NODEJS_20_X()
}

// Architecture is the instruction set the function runs on. Lambda@Edge supports x86_64 only.
func Architecture() awslambda.Architecture {
	return awslambda.Architecture_X86_64()
}

// UrlRewriterProps configures NewUrlRewriter.
type UrlRewriterProps struct {
	Options RewriterOptions
	// CodeDir replaces the rendered source with a prebuilt directory holding index.js.
	CodeDir string
	Logger  *zap.Logger
}

// NewUrlRewriter declares the rewriter function. Edge triggers must reference a published
// version, so callers associate CurrentVersion() rather than the function itself.
func NewUrlRewriter(scope constructs.Construct, id string, props *UrlRewriterProps) (awslambda.Function, error) {
	if props == nil {
		props = &UrlRewriterProps{}
	}
	logger := props.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("edgefn").With(zap.String("functionID", id))

	codeDir := props.CodeDir
	if codeDir == "" {
		staged, err := Stage(props.Options)
		if err != nil {
			return nil, err
		}
		codeDir = staged
	}
	if err := checkArtifact(codeDir); err != nil {
		logger.Error("Edge function artifact unusable", zap.String("codeDir", codeDir), zap.Error(err))
		return nil, err
	}

	warnIfNotEdgeRegion(scope, id)

	fn := awslambda.NewFunction(scope, jsii.String(id), &awslambda.FunctionProps{
		Runtime:      Runtime(),
		Handler:      jsii.String(Handler),
		Code:         awslambda.Code_FromAsset(jsii.String(codeDir), nil),
		MemorySize:   jsii.Number(MemorySizeMB),
		Architecture: Architecture(),
		Description:  jsii.String("Rewrites viewer request URIs for the build artifacts distribution"),
	})

	logger.Info("Declared edge rewrite function", zap.String("codeDir", codeDir))
	return fn, nil
}

func checkArtifact(dir string) error {
	info, err := os.Stat(filepath.Join(dir, EntryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Join(dir, EntryFile))
		}
		return fmt.Errorf("stat edge function artifact: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrArtifactMissing, filepath.Join(dir, EntryFile))
	}
	return nil
}

func warnIfNotEdgeRegion(scope constructs.Construct, id string) {
	region := awscdk.Stack_Of(scope).Region()
	if region == nil || *awscdk.Token_IsUnresolved(region) {
		return
	}
	if *region != EdgeRegion {
		cdklogger.LogWarning(scope, id, "Lambda@Edge functions must be deployed in %s, stack region is %s", EdgeRegion, *region)
	}
}
