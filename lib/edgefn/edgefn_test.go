package edgefn_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/trufnetwork/artifacts-cdn/infra/lib/edgefn"
	"github.com/trufnetwork/artifacts-cdn/infra/tests/testutil"
)

func TestRender_Golden(t *testing.T) {
	g := goldie.New(t)

	src, err := edgefn.Render(edgefn.RewriterOptions{})
	require.NoError(t, err)
	g.Assert(t, "default", src)

	src, err = edgefn.Render(edgefn.RewriterOptions{IndexDocument: "listing.html"})
	require.NoError(t, err)
	g.Assert(t, "custom-index", src)
}

func TestRender_RejectsUnsafeIndexDocument(t *testing.T) {
	for _, doc := range []string{"a/b.html", "it's.html", `back\slash`, "new\nline"} {
		_, err := edgefn.Render(edgefn.RewriterOptions{IndexDocument: doc})
		require.Error(t, err, "index document %q", doc)
		require.ErrorContains(t, err, "invalid rewriter options")
	}
}

func TestStage_IsContentAddressed(t *testing.T) {
	first, err := edgefn.Stage(edgefn.RewriterOptions{})
	require.NoError(t, err)
	second, err := edgefn.Stage(edgefn.RewriterOptions{IndexDocument: edgefn.DefaultIndexDocument})
	require.NoError(t, err)
	other, err := edgefn.Stage(edgefn.RewriterOptions{IndexDocument: "listing.html"})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.NotEqual(t, first, other)
	require.FileExists(t, filepath.Join(first, edgefn.EntryFile))
}

func newStack(region string) awscdk.Stack {
	app := awscdk.NewApp(nil)
	return awscdk.NewStack(app, jsii.String("TestStack"), &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String("123456789012"),
			Region:  jsii.String(region),
		},
	})
}

func TestNewUrlRewriter_Synth(t *testing.T) {
	stack := newStack(edgefn.EdgeRegion)

	fn, err := edgefn.NewUrlRewriter(stack, "CfUrlRewriter", nil)
	require.NoError(t, err)
	require.NotNil(t, fn.CurrentVersion())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]interface{}{
		"Handler":       edgefn.Handler,
		"MemorySize":    edgefn.MemorySizeMB,
		"Runtime":       "nodejs20.x",
		"Architectures": []interface{}{"x86_64"},
	})

	annotations := assertions.Annotations_FromStack(stack)
	annotations.HasNoWarning(jsii.String("*"), assertions.Match_AnyValue())
}

func TestNewUrlRewriter_WarnsOutsideEdgeRegion(t *testing.T) {
	stack := newStack("eu-west-1")

	_, err := edgefn.NewUrlRewriter(stack, "CfUrlRewriter", nil)
	require.NoError(t, err)

	annotations := assertions.Annotations_FromStack(stack)
	annotations.HasWarning(jsii.String("/TestStack"), assertions.Match_StringLikeRegexp(jsii.String("must be deployed in us-east-1")))
}

func TestNewUrlRewriter_CodeDir(t *testing.T) {
	t.Run("prebuilt artifact", func(t *testing.T) {
		dir := testutil.TmpDir(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, edgefn.EntryFile), []byte("exports.handler = async (e) => e.Records[0].cf.request;\n"), 0o644))

		stack := newStack(edgefn.EdgeRegion)
		_, err := edgefn.NewUrlRewriter(stack, "CfUrlRewriter", &edgefn.UrlRewriterProps{CodeDir: dir})
		require.NoError(t, err)
	})

	t.Run("missing artifact declares nothing", func(t *testing.T) {
		dir := testutil.TmpDir(t)

		stack := newStack(edgefn.EdgeRegion)
		_, err := edgefn.NewUrlRewriter(stack, "CfUrlRewriter", &edgefn.UrlRewriterProps{CodeDir: dir})
		require.ErrorIs(t, err, edgefn.ErrArtifactMissing)

		template := assertions.Template_FromStack(stack, nil)
		template.ResourceCountIs(jsii.String("AWS::Lambda::Function"), jsii.Number(0))
	})
}
