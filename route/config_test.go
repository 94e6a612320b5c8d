package route

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oasroute.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)

		assert.Equal(t, "/openapi", cfg.DocPrefix)
		assert.Equal(t, "/openapi.json", cfg.DocURL)
		assert.Equal(t, "/openapi.yaml", cfg.YAMLURL)
		assert.Equal(t, http.StatusUnprocessableEntity, cfg.ValidationErrorStatus)
		assert.Equal(t, int64(DefaultMaxBodySize), cfg.MaxBodySize)
		assert.Nil(t, cfg.DocUI)
		assert.True(t, cfg.DocsEnabled())
	})

	t.Run("file", func(t *testing.T) {
		path := writeConfig(t, `
doc_prefix = "/docs"
doc_url = "/spec.json"
yaml_url = "-"
doc_ui = false
ui_plugins = ["swagger", "redoc"]
json_indent = 2
validation_error_status = 400
max_body_size = 1024
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "/docs", cfg.DocPrefix)
		assert.Equal(t, "/spec.json", cfg.DocURL)
		assert.Equal(t, "-", cfg.YAMLURL)
		assert.False(t, cfg.DocsEnabled())
		assert.Equal(t, []string{"swagger", "redoc"}, cfg.UIPlugins)
		assert.Equal(t, 2, cfg.JSONIndent)
		assert.Equal(t, http.StatusBadRequest, cfg.ValidationErrorStatus)
		assert.Equal(t, int64(1024), cfg.MaxBodySize)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := writeConfig(t, `
doc_prefix = "/docs"
validation_error_status = 400
`)
		t.Setenv(EnvDocPrefix, "/api-docs")
		t.Setenv(EnvDocURL, "/doc.json")
		t.Setenv(EnvYAMLURL, "/doc.yaml")
		t.Setenv(EnvDocUI, "true")
		t.Setenv(EnvValidationErrorStatus, "418")
		t.Setenv(EnvMaxBodySize, "2048")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "/api-docs", cfg.DocPrefix)
		assert.Equal(t, "/doc.json", cfg.DocURL)
		assert.Equal(t, "/doc.yaml", cfg.YAMLURL)
		require.NotNil(t, cfg.DocUI)
		assert.True(t, *cfg.DocUI)
		assert.Equal(t, http.StatusTeapot, cfg.ValidationErrorStatus)
		assert.Equal(t, int64(2048), cfg.MaxBodySize)
	})

	t.Run("invalid environment", func(t *testing.T) {
		tests := map[string]string{
			EnvDocUI:                 "maybe",
			EnvValidationErrorStatus: "teapot",
			EnvMaxBodySize:           "1MB",
		}
		for key, value := range tests {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := LoadConfig("")
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid "+key)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Contains(t, err.Error(), "read config")
	})

	t.Run("malformed file", func(t *testing.T) {
		path := writeConfig(t, `doc_prefix = `)
		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			message string
		}{
			{"status too low", "validation_error_status = 99", "invalid validation_error_status: 99"},
			{"status too high", "validation_error_status = 600", "invalid validation_error_status: 600"},
			{"negative body size", "max_body_size = -1", "invalid max_body_size: -1"},
			{"unknown plugin", `ui_plugins = ["elements"]`, `unknown ui plugin: "elements"`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := LoadConfig(writeConfig(t, tt.content))
				require.Error(t, err)
				assert.EqualError(t, err, tt.message)
			})
		}
	})
}

func TestConfigFinalize(t *testing.T) {
	enabled := true
	cfg := Config{DocPrefix: "/reference", DocUI: &enabled, MaxBodySize: 64}
	require.NoError(t, cfg.Finalize())

	assert.Equal(t, "/reference", cfg.DocPrefix)
	assert.Equal(t, "/openapi.json", cfg.DocURL)
	assert.Equal(t, int64(64), cfg.MaxBodySize)
	assert.True(t, cfg.DocsEnabled())

	enabled = false
	assert.False(t, cfg.DocsEnabled())
}
