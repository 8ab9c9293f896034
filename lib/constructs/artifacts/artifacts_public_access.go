package artifacts

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudfront"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/jsii-runtime-go"
	"go.uber.org/zap"

	"github.com/trufnetwork/artifacts-cdn/infra/lib/assembly"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/bucketref"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/cdklogger"
	"github.com/trufnetwork/artifacts-cdn/infra/lib/edgefn"
)

// Construct and output IDs declared in the enclosing stack.
const (
	BucketID          = "artifactBuildBucket"
	IdentityID        = "cloudfront-OAI"
	ReadPolicyID      = "BuildBucketReadPolicy"
	RewriterID        = "CfUrlRewriter"
	DistributionID    = "CloudFrontBuildBucket"
	DomainOutputID    = "BuildDistributionDomainName"
	StatementOutputID = "BuildBucketPolicyStatement"
)

// Plan step names.
const (
	StepBucket       = "bucket"
	StepIdentity     = "identity"
	StepPolicy       = "policy"
	StepFunction     = "function"
	StepDistribution = "distribution"
	StepOutput       = "output"
)

const (
	// ReadAction is the only action granted to the access identity.
	ReadAction = "s3:GetObject"
	DefaultTTL = 300 // seconds
)

// ArtifactsPublicAccessProps configures NewArtifactsPublicAccess.
type ArtifactsPublicAccessProps struct {
	// BuildBucketArn identifies the existing bucket, e.g. "arn:aws:s3:::ci-build-artifacts".
	BuildBucketArn string
	// ManageBucketPolicy lets this stack declare a bucket policy for an imported bucket
	// when the grant cannot be appended to a policy the stack already owns.
	ManageBucketPolicy bool
	Rewriter           edgefn.RewriterOptions
	// RewriterCodeDir replaces the rendered rewriter source.
	RewriterCodeDir string
	Logger          *zap.Logger
}

// ArtifactsPublicAccess exposes a private build bucket through CloudFront. Only the
// distribution's origin access identity may read objects, and a Lambda@Edge function
// rewrites each viewer request before the cache lookup.
type ArtifactsPublicAccess struct {
	Ref             bucketref.Ref
	Bucket          awss3.IBucket
	Identity        awscloudfront.OriginAccessIdentity
	ReadStatement   awsiam.PolicyStatement
	PolicyAttached  bool
	Rewriter        awslambda.Function
	RewriterVersion awslambda.IVersion
	Distribution    awscloudfront.CloudFrontWebDistribution
	DomainName      awscdk.CfnOutput

	Plan  *assembly.Plan
	Order []string
}

// NewArtifactsPublicAccess declares the bucket grant, edge function and distribution in stack.
// The bucket identifier is validated before anything is declared, and the declarations run
// through a dependency-ordered plan so a failing step leaves no dependent resource behind.
func NewArtifactsPublicAccess(stack awscdk.Stack, props *ArtifactsPublicAccessProps) (*ArtifactsPublicAccess, error) {
	if props == nil {
		return nil, fmt.Errorf("artifacts public access: props are required")
	}
	logger := props.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("artifacts").With(zap.String("bucketArn", props.BuildBucketArn))

	ref, err := bucketref.Parse(props.BuildBucketArn)
	if err != nil {
		logger.Error("Build bucket identifier rejected", zap.Error(err))
		return nil, fmt.Errorf("resolving build bucket: %w", err)
	}

	a := &ArtifactsPublicAccess{Ref: ref, Plan: assembly.NewPlan(logger)}
	p := a.Plan

	p.MustAdd(assembly.Step{Name: StepBucket, Run: func() error {
		a.Bucket = awss3.Bucket_FromBucketArn(stack, jsii.String(BucketID), jsii.String(ref.ARN()))
		return nil
	}})

	p.MustAdd(assembly.Step{Name: StepIdentity, DependsOn: []string{StepBucket}, Run: func() error {
		a.Identity = awscloudfront.NewOriginAccessIdentity(stack, jsii.String(IdentityID), &awscloudfront.OriginAccessIdentityProps{
			Comment: jsii.String(fmt.Sprintf("OAI for %s", *a.Bucket.BucketName())),
		})
		return nil
	}})

	p.MustAdd(assembly.Step{Name: StepPolicy, DependsOn: []string{StepBucket, StepIdentity}, Run: func() error {
		a.attachReadPolicy(stack, props.ManageBucketPolicy, logger)
		return nil
	}})

	p.MustAdd(assembly.Step{Name: StepFunction, Run: func() error {
		fn, err := edgefn.NewUrlRewriter(stack, RewriterID, &edgefn.UrlRewriterProps{
			Options: props.Rewriter,
			CodeDir: props.RewriterCodeDir,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		a.Rewriter = fn
		a.RewriterVersion = fn.CurrentVersion()
		return nil
	}})

	p.MustAdd(assembly.Step{Name: StepDistribution, DependsOn: []string{StepBucket, StepIdentity, StepPolicy, StepFunction}, Run: func() error {
		a.Distribution = newDistribution(stack, a.Bucket, a.Identity, a.RewriterVersion)
		return nil
	}})

	p.MustAdd(assembly.Step{Name: StepOutput, DependsOn: []string{StepDistribution}, Run: func() error {
		a.DomainName = awscdk.NewCfnOutput(stack, jsii.String(DomainOutputID), &awscdk.CfnOutputProps{
			Value:       a.Distribution.DistributionDomainName(),
			Description: jsii.String("The domain name where the build artifacts will be available"),
		})
		return nil
	}})

	order, err := p.Execute()
	a.Order = order
	if err != nil {
		return nil, fmt.Errorf("assembling artifacts distribution: %w", err)
	}

	cdklogger.LogInfo(stack, "", "Build artifacts for %s served through %s", ref.Bucket, DistributionID)
	logger.Info("Artifacts distribution assembled", zap.Strings("order", order))
	return a, nil
}

// attachReadPolicy appends the read grant to the bucket's resource policy. Imported buckets
// have no policy owned by this stack, so the statement is either placed in a dedicated
// bucket policy (when managing it is allowed) or published as an output for manual append.
func (a *ArtifactsPublicAccess) attachReadPolicy(stack awscdk.Stack, manage bool, logger *zap.Logger) {
	a.ReadStatement = NewReadStatement(a.Bucket, a.Identity)

	result := a.Bucket.AddToResourcePolicy(a.ReadStatement)
	if result.StatementAdded != nil && *result.StatementAdded {
		a.PolicyAttached = true
		return
	}

	if manage {
		policy := awss3.NewBucketPolicy(stack, jsii.String(ReadPolicyID), &awss3.BucketPolicyProps{
			Bucket: a.Bucket,
		})
		policy.Document().AddStatements(a.ReadStatement)
		a.PolicyAttached = true
		logger.Info("Declared bucket policy for imported build bucket")
		cdklogger.LogWarning(stack, ReadPolicyID, "Bucket policy of %s is now managed by this stack", a.Ref.Bucket)
		return
	}

	// tokens inside the statement resolve at deploy time
	awscdk.NewCfnOutput(stack, jsii.String(StatementOutputID), &awscdk.CfnOutputProps{
		Value:       stack.ToJsonString(a.ReadStatement.ToStatementJson(), nil),
		Description: jsii.String("Statement to append to the build bucket policy so CloudFront can read objects"),
	})
	logger.Warn("Imported build bucket policy left untouched; statement published as output")
	cdklogger.LogWarning(stack, "", "Cannot append to the policy of imported bucket %s; append output %s manually", a.Ref.Bucket, StatementOutputID)
}

// NewReadStatement grants object reads on the whole bucket to the identity's canonical user only.
func NewReadStatement(bucket awss3.IBucket, identity awscloudfront.OriginAccessIdentity) awsiam.PolicyStatement {
	return awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings(ReadAction),
		Resources: &[]*string{bucket.ArnForObjects(jsii.String("*"))},
		Principals: &[]awsiam.IPrincipal{
			awsiam.NewCanonicalUserPrincipal(identity.CloudFrontOriginAccessIdentityS3CanonicalUserId()),
		},
	})
}

func newDistribution(stack awscdk.Stack, bucket awss3.IBucket, identity awscloudfront.IOriginAccessIdentity, rewriter awslambda.IVersion) awscloudfront.CloudFrontWebDistribution {
	return awscloudfront.NewCloudFrontWebDistribution(stack, jsii.String(DistributionID), &awscloudfront.CloudFrontWebDistributionProps{
		Comment: jsii.String(fmt.Sprintf("Build artifacts from %s", *bucket.BucketName())),
		OriginConfigs: &[]*awscloudfront.SourceConfiguration{
			{
				S3OriginSource: &awscloudfront.S3OriginConfig{
					S3BucketSource:       bucket,
					OriginAccessIdentity: identity,
				},
				Behaviors: &[]*awscloudfront.Behavior{
					{
						IsDefaultBehavior: jsii.Bool(true),
						Compress:          jsii.Bool(true),
						AllowedMethods:    awscloudfront.CloudFrontAllowedMethods_GET_HEAD,
						LambdaFunctionAssociations: &[]*awscloudfront.LambdaFunctionAssociation{
							{
								EventType:      awscloudfront.LambdaEdgeEventType_VIEWER_REQUEST,
								LambdaFunction: rewriter,
							},
						},
						DefaultTtl: awscdk.Duration_Seconds(jsii.Number(DefaultTTL)),
					},
				},
			},
		},
	})
}
