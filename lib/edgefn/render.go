package edgefn

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-playground/validator/v10"
)

const (
	rewriterTemplate = "templates/cf-url-rewriter.js.tmpl"
	// EntryFile is the file the Lambda handler is loaded from.
	EntryFile = "index.js"

	DefaultIndexDocument = "index.html"
)

//go:embed templates/*.tmpl
var tplFS embed.FS

var ErrTemplateMissing = errors.New("edge function template missing")

// RewriterOptions is baked into the rewriter source at synth time.
type RewriterOptions struct {
	// IndexDocument is appended to URIs that end with "/".
	IndexDocument string `validate:"required,max=255,printascii,excludesall=/'\\"`
}

func (o RewriterOptions) withDefaults() RewriterOptions {
	if o.IndexDocument == "" {
		o.IndexDocument = DefaultIndexDocument
	}
	return o
}

// Render returns the rewriter source for the given options.
func Render(opts RewriterOptions) ([]byte, error) {
	opts = opts.withDefaults()
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid rewriter options: %w", err)
	}

	t, err := template.New(filepath.Base(rewriterTemplate)).
		Funcs(sprig.TxtFuncMap()).
		ParseFS(tplFS, rewriterTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateMissing, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, opts); err != nil {
		return nil, fmt.Errorf("executing template %q: %w", t.Name(), err)
	}
	return buf.Bytes(), nil
}

// Stage renders the rewriter into a directory named after the content hash, so the
// same options always produce the same asset path and hash.
func Stage(opts RewriterOptions) (string, error) {
	src, err := Render(opts)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(src)
	dir := filepath.Join(os.TempDir(), "cf-url-rewriter-"+hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating staging dir %q: %w", dir, err)
	}
	if err := writeAtomic(filepath.Join(dir, EntryFile), src); err != nil {
		return "", fmt.Errorf("writing rewriter source: %w", err)
	}
	return dir, nil
}

// writeAtomic replaces path with content through a rename, so concurrent stagers and
// asset fingerprinting never observe a partially written file. An identical file is left alone.
// The temporary file is created next to the asset directory, never inside it.
func writeAtomic(path string, content []byte) error {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	assetDir := filepath.Dir(path)
	tmp, err := os.CreateTemp(filepath.Dir(assetDir), filepath.Base(assetDir)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
