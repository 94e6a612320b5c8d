package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strings"
	"sync"
)

// ErrInvalidModel is returned when a type cannot be used as an input model.
var ErrInvalidModel = errors.New("model: invalid model")

var fileHeaderType = reflect.TypeFor[*multipart.FileHeader]()

// Field describes one exported, serialized field of a model struct.
type Field struct {
	// Name is the JSON name of the field.
	Name string
	// Alias is the optional alternative external name from the alias tag.
	Alias string
	// Index is the reflect index path, through inlined embedded structs.
	Index []int
	// Type is the Go type of the field.
	Type reflect.Type
	// Default holds the decoded default tag; valid when HasDefault is set.
	Default    any
	HasDefault bool
	// Required is true when the field has no default and is not optional.
	Required bool
	// List is true for slice fields (other than []byte).
	List bool
	// File is true for *multipart.FileHeader fields and slices of them.
	File bool
	// StringEncoded mirrors the encoding/json ",string" option.
	StringEncoded bool
	// Tag is the raw struct tag.
	Tag reflect.StructTag
}

// Key returns the external name: the alias when set, otherwise the JSON name.
func (f Field) Key() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Model is the cached description of a struct type used as an input or output.
type Model struct {
	Type   reflect.Type
	Fields []Field

	// Root is the container type of a custom-root model, nil otherwise.
	Root      reflect.Type
	rootIndex []int
}

// IsRoot reports whether the model is a custom-root container.
func (m *Model) IsRoot() bool {
	return m.Root != nil
}

// Field looks up a field by JSON name or alias.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name || (f.Alias != "" && f.Alias == name) {
			return f, true
		}
	}
	return Field{}, false
}

var cache sync.Map // reflect.Type -> *Model

// Of inspects the dynamic type of v. Pointers are dereferenced.
func Of(v any) (*Model, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrInvalidModel)
	}
	return Inspect(reflect.TypeOf(v))
}

// Inspect returns the model description of t, which must be a struct
// or a pointer to one. Results are cached per type.
func Inspect(t reflect.Type) (*Model, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := cache.Load(t); ok {
		return cached.(*Model), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidModel, t)
	}

	m := &Model{Type: t}

	if r, ok := reflect.New(t).Interface().(rooted); ok {
		m.Root = r.rootType()
		sf, _ := t.FieldByName("Root")
		m.rootIndex = sf.Index
	} else {
		fields, err := collectFields(t, nil, false)
		if err != nil {
			return nil, err
		}
		m.Fields = fields
	}

	actual, _ := cache.LoadOrStore(t, m)
	return actual.(*Model), nil
}

func collectFields(t reflect.Type, parent []int, allOptional bool) ([]Field, error) {
	var out []Field

	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() && !sf.Anonymous {
			continue
		}

		index := append(append([]int(nil), parent...), i)
		jsonTag := sf.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		name, opts := parseJSONTag(jsonTag)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			isPtr := ft.Kind() == reflect.Pointer
			if isPtr {
				ft = ft.Elem()
			}
			// Fields promoted through an unexported embedded pointer cannot be set.
			if ft.Kind() == reflect.Struct && (sf.IsExported() || !isPtr) {
				inner, err := collectFields(ft, index, allOptional || isPtr)
				if err != nil {
					return nil, err
				}
				out = append(out, inner...)
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		f := Field{
			Name:          name,
			Alias:         sf.Tag.Get("alias"),
			Index:         index,
			Type:          sf.Type,
			StringEncoded: opts.stringEncode,
			Tag:           sf.Tag,
		}

		if def, ok := sf.Tag.Lookup("default"); ok {
			f.HasDefault = true
			f.Default = parseDefault(sf.Type, def)
		}

		switch {
		case sf.Type == fileHeaderType:
			f.File = true
		case sf.Type.Kind() == reflect.Slice && sf.Type.Elem().Kind() != reflect.Uint8:
			f.List = true
			f.File = sf.Type.Elem() == fileHeaderType
		}

		optional := allOptional || f.HasDefault || opts.omitempty || sf.Type.Kind() == reflect.Pointer
		f.Required = !optional || (hasValidateRule(sf.Tag, "required") && !f.HasDefault)

		out = append(out, f)
	}

	return out, nil
}

type jsonTagOpts struct {
	omitempty    bool
	stringEncode bool
}

// parseJSONTag splits a json struct tag into its name and options.
func parseJSONTag(tag string) (string, jsonTagOpts) {
	if tag == "" {
		return "", jsonTagOpts{}
	}
	name, rest, _ := strings.Cut(tag, ",")
	var opts jsonTagOpts
	for opt := range strings.SplitSeq(rest, ",") {
		switch opt {
		case "omitempty", "omitzero":
			opts.omitempty = true
		case "string":
			opts.stringEncode = true
		}
	}
	return name, opts
}

func hasValidateRule(tag reflect.StructTag, rule string) bool {
	for part := range strings.SplitSeq(tag.Get("validate"), ",") {
		if part == "dive" {
			return false
		}
		if part == rule {
			return true
		}
	}
	return false
}

// parseDefault keeps defaults of string fields verbatim and parses the
// others with ParseLoose.
func parseDefault(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.String {
		return def
	}
	return ParseLoose(def)
}

// ParseLoose decodes s as a single JSON value, keeping numbers as
// json.Number, and falls back to the raw string.
func ParseLoose(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	return v
}
