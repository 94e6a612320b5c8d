// Package cli provides a cobra command that exports the OpenAPI document
// of an application.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vitalvas/oasroute/openapi"
)

// ErrUsage is wrapped by errors caused by invalid flags.
var ErrUsage = errors.New("cli usage error")

// Source provides the document to export; *route.App implements it.
type Source interface {
	APIDoc() (map[string]any, error)
}

// ExportConfig holds the resolved flags of the export command.
type ExportConfig struct {
	Output string
	Format string
	Indent int
}

func defaultExportConfig() ExportConfig {
	return ExportConfig{Format: "json", Indent: 2}
}

// NewCommand returns the "openapi" command writing src's document to
// stdout or a file.
func NewCommand(src Source) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Export the OpenAPI document",
		Example: strings.TrimSpace(`  app openapi
  app openapi --format yaml --output openapi.yaml`),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveExportConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return export(cmd.OutOrStdout(), src, cfg)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v\n\n%s", ErrUsage, err, c.UsageString())
	})

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Write the document to this file instead of stdout")
	flags.StringP("format", "f", "", "Output format (json|yaml); defaults to json")
	flags.Int("indent", 0, "JSON indentation width; defaults to 2")

	return cmd
}

func resolveExportConfig(flags *pflag.FlagSet) (ExportConfig, error) {
	cfg := defaultExportConfig()

	if flags.Changed("output") {
		value, err := flags.GetString("output")
		if err != nil {
			return cfg, err
		}
		cfg.Output = strings.TrimSpace(value)
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return cfg, err
		}
		cfg.Format = strings.ToLower(strings.TrimSpace(value))
	}
	if flags.Changed("indent") {
		value, err := flags.GetInt("indent")
		if err != nil {
			return cfg, err
		}
		cfg.Indent = value
	}

	if cfg.Format != "json" && cfg.Format != "yaml" {
		return cfg, fmt.Errorf("%w: unsupported format %q", ErrUsage, cfg.Format)
	}
	if cfg.Indent < 0 {
		return cfg, fmt.Errorf("%w: indent must not be negative", ErrUsage)
	}
	return cfg, nil
}

func export(stdout io.Writer, src Source, cfg ExportConfig) error {
	doc, err := src.APIDoc()
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}

	if cfg.Output == "" {
		return writeDocument(stdout, doc, cfg)
	}

	f, err := os.Create(cfg.Output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	return writeAndClose(f, doc, cfg)
}

// writeAndClose writes doc to wc and closes it. A close failure is returned
// when the write itself succeeded.
func writeAndClose(wc io.WriteCloser, doc map[string]any, cfg ExportConfig) error {
	err := writeDocument(wc, doc, cfg)
	if cerr := wc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close output: %w", cerr)
	}
	return err
}

func writeDocument(w io.Writer, doc map[string]any, cfg ExportConfig) error {
	if cfg.Format == "yaml" {
		return openapi.WriteYAML(w, doc)
	}
	return openapi.WriteJSON(w, doc, cfg.Indent)
}
