package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

// DocumentFunc returns the serialized document to serve.
type DocumentFunc func() (map[string]any, error)

// UIPlugin renders an interactive documentation page for the document
// served at specURL. Each plugin is mounted at <prefix>/<Name()> and
// listed on the selector page.
type UIPlugin interface {
	Name() string
	Render(title, specURL string) string
}

// HandleConfig configures the endpoints registered by Handle.
type HandleConfig struct {
	// Title is the HTML page title (default: info title).
	Title string

	// JSONPath is the JSON document path relative to the prefix
	// (default: "/openapi.json"). Set to "-" to disable.
	JSONPath string

	// YAMLPath is the YAML document path relative to the prefix
	// (default: "/openapi.yaml"). Set to "-" to disable.
	YAMLPath string

	// Indent is the JSON indentation width (0 for compact output).
	Indent int

	// Plugins are the UI pages offered on the selector page.
	Plugins []UIPlugin
}

func (cfg HandleConfig) jsonPath() string {
	if cfg.JSONPath == "" {
		return "/openapi.json"
	}
	return cfg.JSONPath
}

func (cfg HandleConfig) yamlPath() string {
	if cfg.YAMLPath == "" {
		return "/openapi.yaml"
	}
	return cfg.YAMLPath
}

// Handle registers the document endpoints under prefix:
//
//	<prefix><JSONPath>     - document as JSON
//	<prefix><YAMLPath>     - document as YAML
//	<prefix>/              - selector page listing the UI plugins
//	<prefix>/<plugin name> - one page per plugin
//
// The document is fetched from doc on every request; caching is the
// caller's concern.
func Handle(r chi.Router, prefix string, doc DocumentFunc, cfg *HandleConfig) {
	if cfg == nil {
		cfg = &HandleConfig{}
	}
	prefix = strings.TrimRight(prefix, "/")

	var specURL string

	if p := cfg.yamlPath(); p != "-" {
		specURL = JoinPath(prefix, p)
		r.Get(specURL, func(w http.ResponseWriter, _ *http.Request) {
			serveDocument(w, doc, "application/x-yaml", func(buf *bytes.Buffer, m map[string]any) error {
				return WriteYAML(buf, m)
			})
		})
	}

	if p := cfg.jsonPath(); p != "-" {
		specURL = JoinPath(prefix, p)
		r.Get(specURL, func(w http.ResponseWriter, _ *http.Request) {
			serveDocument(w, doc, "application/json", func(buf *bytes.Buffer, m map[string]any) error {
				return WriteJSON(buf, m, cfg.Indent)
			})
		})
	}

	if specURL == "" {
		return
	}

	title := func() string {
		if cfg.Title != "" {
			return cfg.Title
		}
		if m, err := doc(); err == nil {
			if info, ok := m["info"].(map[string]any); ok {
				if t, ok := info["title"].(string); ok {
					return t
				}
			}
		}
		return "API"
	}

	for _, plugin := range cfg.Plugins {
		r.Get(JoinPath(prefix, plugin.Name()), func(w http.ResponseWriter, _ *http.Request) {
			writeHTML(w, plugin.Render(title(), specURL))
		})
	}

	r.Get(prefix+"/", func(w http.ResponseWriter, _ *http.Request) {
		writeHTML(w, selectorTemplate(title(), prefix, specURL, cfg.Plugins))
	})
}

func serveDocument(w http.ResponseWriter, doc DocumentFunc, contentType string, encode func(*bytes.Buffer, map[string]any) error) {
	m, err := doc()
	if err != nil {
		http.Error(w, "failed to build OpenAPI document", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := encode(&buf, m); err != nil {
		http.Error(w, "failed to serialize OpenAPI document", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeHTML(w http.ResponseWriter, page string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func selectorTemplate(title, prefix, specURL string, plugins []UIPlugin) string {
	var items strings.Builder
	for _, p := range plugins {
		fmt.Fprintf(&items, "<li><a href=%q>%s</a></li>\n", JoinPath(prefix, p.Name()), html.EscapeString(p.Name()))
	}
	fmt.Fprintf(&items, "<li><a href=%q>%s</a></li>\n", specURL, html.EscapeString(specURL))

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%s</title>
</head>
<body>
<h1>%s</h1>
<ul>
%s</ul>
</body>
</html>`, html.EscapeString(title), html.EscapeString(title), items.String())
}

// SwaggerUI is the Swagger UI plugin. Config entries are passed to
// SwaggerUIBundle next to url and dom_id.
type SwaggerUI struct {
	Config map[string]any
}

func (SwaggerUI) Name() string { return "swagger" }

func (p SwaggerUI) Render(title, specURL string) string {
	var extra string
	if len(p.Config) > 0 {
		keys := make([]string, 0, len(p.Config))
		for k := range p.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var buf strings.Builder
		for _, k := range keys {
			v, err := json.Marshal(p.Config[k])
			if err != nil {
				continue
			}
			fmt.Fprintf(&buf, ", %q: %s", k, v)
		}
		extra = buf.String()
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"%s});
</script>
</body>
</html>`, html.EscapeString(title), specURL, extra)
}

// RapiDoc is the RapiDoc plugin.
type RapiDoc struct{}

func (RapiDoc) Name() string { return "rapidoc" }

func (RapiDoc) Render(title, specURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<script type="module" src="https://unpkg.com/rapidoc/dist/rapidoc-min.js"></script>
</head>
<body>
<rapi-doc spec-url=%q></rapi-doc>
</body>
</html>`, html.EscapeString(title), specURL)
}

// Redoc is the Redoc plugin.
type Redoc struct{}

func (Redoc) Name() string { return "redoc" }

func (Redoc) Render(title, specURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
<body>
<redoc spec-url=%q></redoc>
<script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>`, html.EscapeString(title), specURL)
}

// PluginByName returns the built-in plugin with the given name.
func PluginByName(name string) (UIPlugin, bool) {
	switch name {
	case "swagger":
		return SwaggerUI{}, true
	case "rapidoc":
		return RapiDoc{}, true
	case "redoc":
		return Redoc{}, true
	}
	return nil, false
}
