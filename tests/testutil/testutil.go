package testutil

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

const (
	// BuildBucketArn is a syntactically valid bucket that tests import by reference.
	BuildBucketArn = "arn:aws:s3:::ci-build-artifacts"
	Account        = "123456789012"
)

//---------------------------------------------------------------------
// 1. Generic helpers
//---------------------------------------------------------------------

// TmpDir creates a temp directory removed when the test ends.
func TmpDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "fixture-dir-*")
	if err != nil {
		t.Fatalf("tmp-dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// SetEnv sets environment variables for the duration of the test.
func SetEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

//---------------------------------------------------------------------
// 2. CDK fixtures
//---------------------------------------------------------------------

// NewStack returns a fresh app and a stack pinned to account/region.
func NewStack(t *testing.T, region string, context map[string]interface{}) (awscdk.App, awscdk.Stack) {
	t.Helper()
	var props *awscdk.AppProps
	if context != nil {
		props = &awscdk.AppProps{Context: &context}
	}
	app := awscdk.NewApp(props)
	stack := awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(Account),
			Region:  jsii.String(region),
		},
	})
	return app, stack
}

// TemplateJSON synthesizes the stack and returns its CloudFormation template as canonical JSON.
func TemplateJSON(t *testing.T, stack awscdk.Stack) string {
	t.Helper()
	tpl := assertions.Template_FromStack(stack, nil).ToJSON()
	out, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal-template: %v", err)
	}
	return string(out)
}
