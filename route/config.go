package route

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/vitalvas/oasroute/openapi"
)

// Environment overrides applied by LoadConfig.
const (
	EnvDocPrefix             = "OASROUTE_DOC_PREFIX"
	EnvDocURL                = "OASROUTE_DOC_URL"
	EnvYAMLURL               = "OASROUTE_YAML_URL"
	EnvDocUI                 = "OASROUTE_DOC_UI"
	EnvValidationErrorStatus = "OASROUTE_VALIDATION_ERROR_STATUS"
	EnvMaxBodySize           = "OASROUTE_MAX_BODY_SIZE"
)

// Config holds the application settings that can live in a TOML file.
type Config struct {
	// DocPrefix is where the documentation endpoints are mounted.
	DocPrefix string `toml:"doc_prefix"`
	// DocURL is the JSON document path relative to DocPrefix.
	DocURL string `toml:"doc_url"`
	// YAMLURL is the YAML document path relative to DocPrefix; "-" disables it.
	YAMLURL string `toml:"yaml_url"`
	// DocUI serves the documentation endpoints; nil means true.
	DocUI *bool `toml:"doc_ui"`
	// UIPlugins names the UI pages to offer: swagger, rapidoc, redoc.
	UIPlugins []string `toml:"ui_plugins"`
	// JSONIndent pretty-prints the served JSON document.
	JSONIndent int `toml:"json_indent"`

	ValidationErrorStatus int   `toml:"validation_error_status"`
	MaxBodySize           int64 `toml:"max_body_size"`
}

// LoadConfig reads path (skipped when empty), applies OASROUTE_*
// environment overrides and fills defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Finalize(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Finalize fills defaults and validates the values.
func (c *Config) Finalize() error {
	c.loadDefaults()
	return c.validate()
}

// DocsEnabled reports whether the documentation endpoints are served.
func (c *Config) DocsEnabled() bool {
	return c.DocUI == nil || *c.DocUI
}

func (c *Config) loadDefaults() {
	if c.DocPrefix == "" {
		c.DocPrefix = "/openapi"
	}
	if c.DocURL == "" {
		c.DocURL = "/openapi.json"
	}
	if c.YAMLURL == "" {
		c.YAMLURL = "/openapi.yaml"
	}
	if c.ValidationErrorStatus == 0 {
		c.ValidationErrorStatus = http.StatusUnprocessableEntity
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvDocPrefix); v != "" {
		c.DocPrefix = v
	}
	if v := os.Getenv(EnvDocURL); v != "" {
		c.DocURL = v
	}
	if v := os.Getenv(EnvYAMLURL); v != "" {
		c.YAMLURL = v
	}
	if v := os.Getenv(EnvDocUI); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDocUI, err)
		}
		c.DocUI = &b
	}
	if v := os.Getenv(EnvValidationErrorStatus); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvValidationErrorStatus, err)
		}
		c.ValidationErrorStatus = n
	}
	if v := os.Getenv(EnvMaxBodySize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxBodySize, err)
		}
		c.MaxBodySize = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.ValidationErrorStatus < 100 || c.ValidationErrorStatus > 599 {
		return fmt.Errorf("invalid validation_error_status: %d", c.ValidationErrorStatus)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("invalid max_body_size: %d", c.MaxBodySize)
	}
	for _, name := range c.UIPlugins {
		if _, ok := openapi.PluginByName(name); !ok {
			return fmt.Errorf("unknown ui plugin: %q", name)
		}
	}
	return nil
}
