package openapi

import (
	"encoding/json"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToMap serializes v (usually a *Document) to its JSON dictionary form:
// aliases resolved, unset fields omitted, extensions inlined.
func ToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteJSON encodes v as JSON. A positive indent pretty-prints with that
// many spaces per level.
func WriteJSON(w io.Writer, v any, indent int) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}
	return enc.Encode(v)
}

// WriteYAML encodes v as YAML. Structs are routed through their JSON form
// so field names follow the json tags.
func WriteYAML(w io.Writer, v any) error {
	if _, ok := v.(map[string]any); !ok {
		m, err := ToMap(v)
		if err != nil {
			return err
		}
		v = m
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
