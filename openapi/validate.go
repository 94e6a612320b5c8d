package openapi

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidDocument is wrapped by every error returned from Validate.
var ErrInvalidDocument = errors.New("openapi: invalid document")

// Validate checks the required fields and bounds that the object model
// cannot express through Go types alone. All violations are joined into
// a single error.
func (d *Document) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidDocument}, args...)...))
	}

	if d.Info.Title == "" {
		add("info.title is required")
	}
	if d.Info.Version == "" {
		add("info.version is required")
	}
	if d.Info.License != nil && d.Info.License.Name == "" {
		add("info.license.name is required")
	}

	for i, srv := range d.Servers {
		for name, v := range srv.Variables {
			if v != nil && v.Enum != nil && len(v.Enum) == 0 {
				add("servers[%d].variables.%s.enum must not be empty", i, name)
			}
		}
	}

	for _, path := range sortedKeys(d.Paths) {
		item := d.Paths[path]
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			for status, resp := range op.Responses {
				if resp != nil && resp.Description == "" {
					add("paths.%s.%s.responses.%s.description is required", path, method, status)
				}
			}
			for _, p := range op.Parameters {
				checkSchema(p.Schema, fmt.Sprintf("paths.%s.%s.parameters.%s", path, method, p.Name), add)
			}
		}
	}

	if d.Components != nil {
		for _, name := range sortedKeys(d.Components.Schemas) {
			checkSchema(d.Components.Schemas[name], "components.schemas."+name, add)
		}
	}

	return errors.Join(errs...)
}

func checkSchema(s *Schema, loc string, add func(string, ...any)) {
	if s == nil {
		return
	}
	if s.MultipleOf != nil && *s.MultipleOf <= 0 {
		add("%s.multipleOf must be greater than 0", loc)
	}
	for name, bound := range map[string]*int{
		"minLength":     s.MinLength,
		"maxLength":     s.MaxLength,
		"minItems":      s.MinItems,
		"maxItems":      s.MaxItems,
		"minProperties": s.MinProperties,
		"maxProperties": s.MaxProperties,
	} {
		if bound != nil && *bound < 0 {
			add("%s.%s must not be negative", loc, name)
		}
	}
	for _, prop := range sortedKeys(s.Properties) {
		checkSchema(s.Properties[prop], loc+".properties."+prop, add)
	}
	checkSchema(s.Items, loc+".items", add)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
