package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/trufnetwork/artifacts-cdn/infra/config"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/cdklogger"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/constructs/artifacts"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/edgefn"
)

type CiCdnStackProps struct {
	awscdk.StackProps
	// Config skips environment/context loading when set.
	Config *config.ArtifactsConfig
	Logger *zap.Logger
}

type CiCdnStackExports struct {
	Stack     awscdk.Stack
	Artifacts *artifacts.ArtifactsPublicAccess
}

// CiCdnStack serves the CI build bucket through CloudFront.
// Configuration or assembly errors annotate the stack and abort synthesis.
func CiCdnStack(scope constructs.Construct, id string, props *CiCdnStackProps) CiCdnStackExports {
	var sprops awscdk.StackProps
	var logger *zap.Logger
	if props != nil {
		sprops = props.StackProps
		logger = props.Logger
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("stacks").With(zap.String("stack", id))

	stack := awscdk.NewStack(scope, jsii.String(id), &sprops)
	exports := CiCdnStackExports{Stack: stack}
	if !config.IsStackInSynthesis(stack) {
		return exports
	}

	var cfg config.ArtifactsConfig
	if props != nil && props.Config != nil {
		cfg = *props.Config
	} else {
		loaded, err := config.LoadArtifactsConfig(stack)
		if err != nil {
			fail(stack, logger, "Loading artifacts configuration failed", err)
		}
		cfg = loaded
	}
	if cfg.Description != "" {
		stack.TemplateOptions().SetDescription(jsii.String(cfg.Description))
	}

	access, err := artifacts.NewArtifactsPublicAccess(stack, &artifacts.ArtifactsPublicAccessProps{
		BuildBucketArn:     cfg.BuildBucketArn,
		ManageBucketPolicy: cfg.ManageBucketPolicy,
		Rewriter:           edgefn.RewriterOptions{IndexDocument: cfg.IndexDocument},
		Logger:             logger,
	})
	if err != nil {
		fail(stack, logger, "Assembling build artifacts distribution failed", err)
	}
	exports.Artifacts = access
	return exports
}

func fail(stack awscdk.Stack, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	cdklogger.LogError(stack, "", "%s: %s", msg, err.Error())
	panic(err)
}
