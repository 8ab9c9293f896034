package edgefn_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trufnetwork/artifacts-cdn/infra/lib/edgefn"
)

func TestStage_ConcurrentReadersSeeCompleteSource(t *testing.T) {
	// a fresh content hash so every writer races on a missing file
	opts := edgefn.RewriterOptions{IndexDocument: fmt.Sprintf("race-%d.html", time.Now().UnixNano())}
	want, err := edgefn.Render(opts)
	require.NoError(t, err)

	dir, err := edgefn.Stage(opts)
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	entry := filepath.Join(dir, edgefn.EntryFile)
	require.NoError(t, os.Remove(entry))

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := edgefn.Stage(opts); err != nil {
					errs <- err
					return
				}
			}
		}()
	}

	torn := 0
	for i := 0; i < 2000; i++ {
		got, err := os.ReadFile(entry)
		if os.IsNotExist(err) {
			continue
		}
		require.NoError(t, err)
		if !bytes.Equal(want, got) {
			torn++
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Zero(t, torn, "reads of a partially written %s", edgefn.EntryFile)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "asset directory must only hold the entry file")
	leftovers, err := filepath.Glob(dir + "-*.tmp")
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

func TestStage_RepairsModifiedSource(t *testing.T) {
	opts := edgefn.RewriterOptions{IndexDocument: "repair.html"}
	dir, err := edgefn.Stage(opts)
	require.NoError(t, err)
	entry := filepath.Join(dir, edgefn.EntryFile)
	require.NoError(t, os.WriteFile(entry, []byte("stale"), 0o644))

	_, err = edgefn.Stage(opts)
	require.NoError(t, err)
	want, err := edgefn.Render(opts)
	require.NoError(t, err)
	got, err := os.ReadFile(entry)
	require.NoError(t, err)
	require.Equal(t, string(want), string(got))
}

// runHandler invokes the staged handler with a viewer-request event and returns the rewritten URI.
func runHandler(t *testing.T, dir, uri string) string {
	t.Helper()
	const script = `
const handler = require(process.argv[1]).handler;
const event = { Records: [{ cf: { request: { uri: process.argv[2], method: 'GET' } } }] };
handler(event).then((req) => process.stdout.write(req.uri));
`
	out, err := exec.Command("node", "-e", script, filepath.Join(dir, edgefn.EntryFile), uri).CombinedOutput()
	require.NoError(t, err, "node: %s", out)
	return strings.TrimSpace(string(out))
}

func TestRewriter_Behavior(t *testing.T) {
	if _, err := exec.LookPath("node"); err != nil {
		t.Skip("node is not installed")
	}

	tests := []struct {
		name  string
		index string
		uri   string
		want  string
	}{
		{name: "root", uri: "/", want: "/index.html"},
		{name: "repeated slashes", uri: "//a//b/", want: "/a/b/index.html"},
		{name: "file", uri: "/a/b.zip", want: "/a/b.zip"},
		{name: "directory without slash", uri: "/dir", want: "/dir"},
		{name: "collapsed file path", uri: "/a///b.zip", want: "/a/b.zip"},
		{name: "custom index", index: "listing.html", uri: "/builds/", want: "/builds/listing.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := edgefn.Stage(edgefn.RewriterOptions{IndexDocument: tt.index})
			require.NoError(t, err)
			require.Equal(t, tt.want, runHandler(t, dir, tt.uri))
		})
	}
}
