package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type sourceFunc func() (map[string]any, error)

func (f sourceFunc) APIDoc() (map[string]any, error) {
	return f()
}

func testSource() Source {
	return sourceFunc(func() (map[string]any, error) {
		return map[string]any{
			"openapi": "3.1.0",
			"info":    map[string]any{"title": "Books & Co", "version": "1.0.0"},
			"paths":   map[string]any{},
		}, nil
	})
}

func run(t *testing.T, src Source, args ...string) (string, error) {
	t.Helper()
	cmd := NewCommand(src)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestResolveExportConfig(t *testing.T) {
	parse := func(t *testing.T, args ...string) (ExportConfig, error) {
		t.Helper()
		flags := NewCommand(testSource()).Flags()
		require.NoError(t, flags.Parse(args))
		return resolveExportConfig(flags)
	}

	t.Run("defaults", func(t *testing.T) {
		cfg, err := parse(t)
		require.NoError(t, err)
		assert.Equal(t, ExportConfig{Format: "json", Indent: 2}, cfg)
	})

	t.Run("flags", func(t *testing.T) {
		cfg, err := parse(t, "-o", " out.yaml ", "-f", " YAML ", "--indent", "0")
		require.NoError(t, err)
		assert.Equal(t, ExportConfig{Output: "out.yaml", Format: "yaml", Indent: 0}, cfg)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := parse(t, "--format", "xml")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUsage)
		assert.Contains(t, err.Error(), `unsupported format "xml"`)
	})

	t.Run("negative indent", func(t *testing.T) {
		_, err := parse(t, "--indent", "-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUsage)
	})

	t.Run("empty flag set", func(t *testing.T) {
		cfg, err := resolveExportConfig(pflag.NewFlagSet("empty", pflag.ContinueOnError))
		require.NoError(t, err)
		assert.Equal(t, defaultExportConfig(), cfg)
	})
}

func TestCommand(t *testing.T) {
	t.Run("json to stdout", func(t *testing.T) {
		out, err := run(t, testSource())
		require.NoError(t, err)
		assert.Contains(t, out, "\n  \"info\"")
		assert.Contains(t, out, "Books & Co")

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "3.1.0", doc["openapi"])
	})

	t.Run("compact json", func(t *testing.T) {
		out, err := run(t, testSource(), "--indent", "0")
		require.NoError(t, err)
		assert.Equal(t, 1, bytes.Count([]byte(out), []byte("\n")))
	})

	t.Run("yaml to stdout", func(t *testing.T) {
		out, err := run(t, testSource(), "--format", "yaml")
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "3.1.0", doc["openapi"])
		assert.Equal(t, "Books & Co", doc["info"].(map[string]any)["title"])
	})

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "openapi.yaml")
		out, err := run(t, testSource(), "-f", "yaml", "-o", path)
		require.NoError(t, err)
		assert.Empty(t, out)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "openapi: 3.1.0")
	})

	t.Run("unwritable output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "openapi.json")
		_, err := run(t, testSource(), "--output", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create output")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := run(t, testSource(), "--pretty")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUsage)
		assert.Contains(t, err.Error(), "Usage:")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := run(t, testSource(), "--format", "toml")
		assert.ErrorIs(t, err, ErrUsage)
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := run(t, sourceFunc(func() (map[string]any, error) { return nil, boom }))
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "build document")
		assert.NotErrorIs(t, err, ErrUsage)
	})
}

type closeRecorder struct {
	bytes.Buffer
	writeErr error
	closeErr error
	closed   bool
}

func (c *closeRecorder) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return c.Buffer.Write(p)
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.closeErr
}

func TestWriteAndClose(t *testing.T) {
	doc := map[string]any{"openapi": "3.1.0"}
	cfg := defaultExportConfig()

	t.Run("success", func(t *testing.T) {
		wc := &closeRecorder{}
		require.NoError(t, writeAndClose(wc, doc, cfg))
		assert.True(t, wc.closed)
		assert.Contains(t, wc.String(), `"openapi": "3.1.0"`)
	})

	t.Run("close error returned", func(t *testing.T) {
		diskFull := errors.New("disk full")
		wc := &closeRecorder{closeErr: diskFull}
		err := writeAndClose(wc, doc, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, diskFull)
		assert.Contains(t, err.Error(), "close output")
	})

	t.Run("write error wins", func(t *testing.T) {
		writeErr := errors.New("short write")
		wc := &closeRecorder{writeErr: writeErr, closeErr: errors.New("close")}
		err := writeAndClose(wc, doc, cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, writeErr)
		assert.NotContains(t, err.Error(), "close output")
		assert.True(t, wc.closed)
	})
}
