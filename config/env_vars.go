package config

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
)

type ArtifactsEnvironmentVariables struct {
	// ProfilePath points at an optional TOML profile
	ProfilePath        string `env:"CDN_PROFILE"`
	BuildBucketArn     string `env:"BUILD_BUCKET_ARN"`
	ManageBucketPolicy *bool  `env:"MANAGE_BUCKET_POLICY"`
	IndexDocument      string `env:"EDGE_INDEX_DOCUMENT"`
}

type LoggingEnvironmentVariables struct {
	Debug bool `env:"CDN_DEBUG" envDefault:"false"`
}

type deployEnvironmentVariables struct {
	DeployAccount  string `env:"CDK_DEPLOY_ACCOUNT"`
	DeployRegion   string `env:"CDK_DEPLOY_REGION"`
	DefaultAccount string `env:"CDK_DEFAULT_ACCOUNT"`
	DefaultRegion  string `env:"CDK_DEFAULT_REGION"`
}

// ParseEnvironmentVariables parses T from the process environment. Outside synthesis
// (e.g. `cdk ls`) it returns the zero value.
func ParseEnvironmentVariables[T any](scope constructs.Construct) (T, error) {
	var envObj T

	// only run if we are synthesizing the stack
	if !IsStackInSynthesis(scope) {
		return envObj, nil
	}

	err := env.Parse(&envObj)
	return envObj, err
}

// GetEnvironmentVariables is ParseEnvironmentVariables that panics on malformed values.
func GetEnvironmentVariables[T any](scope constructs.Construct) T {
	envObj, err := ParseEnvironmentVariables[T](scope)
	if err != nil {
		panic(err)
	}
	return envObj
}

// CdkEnv determines the AWS environment (account+region) in which our stack is to
// be deployed. For more information see: https://docs.aws.amazon.com/cdk/latest/guide/environments.html
func CdkEnv() *awscdk.Environment {
	var vars deployEnvironmentVariables
	if err := env.Parse(&vars); err != nil {
		return nil
	}

	account, region := vars.DeployAccount, vars.DeployRegion
	if len(account) == 0 || len(region) == 0 {
		account, region = vars.DefaultAccount, vars.DefaultRegion
	}

	result := &awscdk.Environment{}
	if account != "" {
		result.Account = jsii.String(account)
	}
	if region != "" {
		result.Region = jsii.String(region)
	}
	return result
}

// IsStackInSynthesis reports whether the stack owning scope is selected for synthesis,
// i.e. whether the CDK CLI will bundle its assets. Stacks excluded through
// the bundlingStacks context report false.
func IsStackInSynthesis(scope constructs.Construct) bool {
	stack := awscdk.Stack_Of(scope)
	return stack != nil && *stack.BundlingRequired()
}
