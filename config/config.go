package config

import (
	"fmt"
	"strconv"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/caarlos0/env/v11"
)

// CDK context keys, set in cdk.json or with `cdk synth -c key=value`.
const (
	BuildBucketArnContextKey     = "buildBucketArn"
	StackSuffixContextKey        = "stackSuffix"
	ManageBucketPolicyContextKey = "manageBucketPolicy"
	IndexDocumentContextKey      = "indexDocument"
	ProfileContextKey            = "profile"
)

// contextString returns the string value of a context key, or "" when unset.
func contextString(scope constructs.Construct, key string) string {
	if v, ok := scope.Node().TryGetContext(jsii.String(key)).(string); ok {
		return v
	}
	return ""
}

// contextBool reads a boolean context value. `-c key=true` arrives as a string, cdk.json
// values arrive as booleans.
func contextBool(scope constructs.Construct, key string) (*bool, error) {
	switch v := scope.Node().TryGetContext(jsii.String(key)).(type) {
	case nil:
		return nil, nil
	case bool:
		return &v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("context %s: %w", key, err)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("context %s: unsupported value %v", key, v)
	}
}

type stackNameEnvironmentVariables struct {
	StackSuffix string `env:"STACK_SUFFIX"`
}

// WithStackSuffix appends "-<suffix>" to base when a suffix is configured through the
// stackSuffix context key or the STACK_SUFFIX environment variable.
func WithStackSuffix(scope constructs.Construct, base string) string {
	suffix := contextString(scope, StackSuffixContextKey)
	if suffix == "" {
		var vars stackNameEnvironmentVariables
		if err := env.Parse(&vars); err == nil {
			suffix = vars.StackSuffix
		}
	}
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}
