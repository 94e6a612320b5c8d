package openapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitalvas/oasroute/model"
)

// ErrComponentConflict is returned when two different schemas claim the
// same component name.
var ErrComponentConflict = errors.New("openapi: component name conflict")

// Exampler can be implemented by models to provide the "example" of
// their component schema.
//
//	func (u User) OpenAPIExample() any {
//	    return User{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "Alice"}
//	}
type Exampler interface {
	OpenAPIExample() any
}

// Describer can be implemented by models to provide the description of
// their component schema and of responses that return them.
type Describer interface {
	OpenAPIDescription() string
}

// ContentTyper can be implemented by body and response models whose
// primary media type is not application/json.
type ContentTyper interface {
	OpenAPIContentType() string
}

var (
	timeType       = reflect.TypeFor[time.Time]()
	uuidType       = reflect.TypeFor[uuid.UUID]()
	fileHeaderType = reflect.TypeFor[*multipart.FileHeader]()
)

// SchemaGenerator converts Go types to JSON Schema objects and collects
// named struct types as component schemas referenced through $ref.
//
// See: https://spec.openapis.org/oas/v3.1.0#schema-object
type SchemaGenerator struct {
	schemas   map[string]*Schema
	visited   map[reflect.Type]bool
	typeNames map[reflect.Type]string
	nameTypes map[string]reflect.Type
}

// NewSchemaGenerator creates an empty generator.
func NewSchemaGenerator() *SchemaGenerator {
	return &SchemaGenerator{
		schemas:   make(map[string]*Schema),
		visited:   make(map[reflect.Type]bool),
		typeNames: make(map[reflect.Type]string),
		nameTypes: make(map[string]reflect.Type),
	}
}

// Schemas returns the collected component schemas.
func (g *SchemaGenerator) Schemas() map[string]*Schema {
	return g.schemas
}

// Generate produces a JSON Schema for the given Go value. Named struct
// types are stored as component schemas and returned as $ref.
func (g *SchemaGenerator) Generate(v any) *Schema {
	if v == nil {
		return nil
	}
	return g.generateType(reflect.TypeOf(v))
}

// Ref registers the named struct type of v and returns its component name.
// It returns an empty name for unnamed or non-struct types.
func (g *SchemaGenerator) Ref(v any) string {
	s := g.Generate(v)
	if s == nil || !strings.HasPrefix(s.Ref, SchemaRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(s.Ref, SchemaRefPrefix)
}

// Inline returns the object schema of the struct type of v without
// registering the type itself; types it references are still registered.
// Parameter models are expanded this way into one parameter per property.
func (g *SchemaGenerator) Inline(v any) *Schema {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return g.generateType(t)
	}
	if root := model.RootOf(t); root != nil {
		return g.generateType(root)
	}
	return g.generateStructSchema(t)
}

// AddSchema stores a hand-written component schema. A different schema
// already stored under the same name is a conflict.
func (g *SchemaGenerator) AddSchema(name string, s *Schema) error {
	if existing, ok := g.schemas[name]; ok && !reflect.DeepEqual(existing, s) {
		return fmt.Errorf("%w: %q", ErrComponentConflict, name)
	}
	g.schemas[name] = s
	return nil
}

// Absorb merges the component schemas of child into g. Schemas generated
// from the same Go type, or deeply equal ones, merge silently; anything
// else sharing a name is a conflict.
func (g *SchemaGenerator) Absorb(child *SchemaGenerator) error {
	if child == nil || child == g {
		return nil
	}

	for _, name := range sortedKeys(child.schemas) {
		schema := child.schemas[name]
		childType := child.nameTypes[name]

		if existing, ok := g.schemas[name]; ok {
			parentType := g.nameTypes[name]
			sameType := childType != nil && parentType == childType
			if !sameType && !reflect.DeepEqual(existing, schema) {
				return fmt.Errorf("%w: %q", ErrComponentConflict, name)
			}
			continue
		}

		g.schemas[name] = schema
		if childType != nil {
			g.nameTypes[name] = childType
			g.typeNames[childType] = name
			g.visited[childType] = true
		}
	}

	return nil
}

func (g *SchemaGenerator) generateType(t reflect.Type) *Schema {
	if t == fileHeaderType {
		return &Schema{Type: TypeString("string"), Format: "binary"}
	}

	nullable := false
	if t.Kind() == reflect.Pointer {
		nullable = true
		t = t.Elem()
	}

	if t.Kind() == reflect.Struct && t != timeType {
		if name := g.schemaName(t); name != "" {
			if !g.visited[t] {
				g.visited[t] = true
				g.schemas[name] = g.componentSchema(t)
			}

			ref := RefTo(name)
			if nullable {
				return &Schema{AnyOf: []*Schema{ref, {Type: TypeString("null")}}}
			}
			return ref
		}
	}

	schema := g.generateInlineType(t)
	if nullable && schema != nil {
		applyNullable(schema)
	}
	return schema
}

// componentSchema builds the stored schema for a named struct type.
func (g *SchemaGenerator) componentSchema(t reflect.Type) *Schema {
	var schema *Schema
	if root := model.RootOf(t); root != nil {
		schema = g.generateType(root)
		switch {
		case schema == nil:
			schema = &Schema{}
		case schema.Ref != "":
			schema = &Schema{AllOf: []*Schema{schema}}
		}
	} else {
		schema = g.generateStructSchema(t)
	}

	zero := reflect.New(t).Interface()
	if ex, ok := zero.(Exampler); ok {
		schema.Example = ex.OpenAPIExample()
	}
	if d, ok := zero.(Describer); ok {
		schema.Description = d.OpenAPIDescription()
	}
	return schema
}

func (g *SchemaGenerator) generateInlineType(t reflect.Type) *Schema {
	switch t {
	case timeType:
		return &Schema{Type: TypeString("string"), Format: "date-time"}
	case uuidType:
		return &Schema{Type: TypeString("string"), Format: "uuid"}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: TypeString("boolean")}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: TypeString("integer")}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: TypeString("number")}

	case reflect.String:
		return &Schema{Type: TypeString("string")}

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: TypeString("string"), Format: "byte"}
		}
		return &Schema{Type: TypeString("array"), Items: g.generateType(t.Elem())}

	case reflect.Array:
		return &Schema{Type: TypeString("array"), Items: g.generateType(t.Elem())}

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return &Schema{Type: TypeString("object")}
		}
		return &Schema{Type: TypeString("object"), AdditionalProperties: g.generateType(t.Elem())}

	case reflect.Struct:
		return g.generateStructSchema(t)

	case reflect.Interface:
		return &Schema{}
	}

	return nil
}

// generateStructSchema builds an object schema whose property names are
// the external field names (alias first) reported by the model package.
func (g *SchemaGenerator) generateStructSchema(t reflect.Type) *Schema {
	schema := &Schema{Type: TypeString("object")}

	m, err := model.Inspect(t)
	if err != nil {
		return schema
	}

	for _, f := range m.Fields {
		fieldSchema := g.generateType(f.Type)
		if fieldSchema == nil {
			continue
		}

		if fieldSchema.Ref == "" && len(fieldSchema.AnyOf) == 0 {
			applyValidateTag(fieldSchema, f.Tag.Get("validate"), f.Type)
			if f.StringEncoded {
				applyStringEncoding(fieldSchema)
			}
		}
		if f.HasDefault {
			fieldSchema.Default = f.Default
		}
		applyOpenAPITag(fieldSchema, f.Tag.Get("openapi"))

		if schema.Properties == nil {
			schema.Properties = make(map[string]*Schema)
		}
		schema.Properties[f.Key()] = fieldSchema

		if f.Required {
			schema.Required = append(schema.Required, f.Key())
		}
	}

	return schema
}

// applyValidateTag mirrors go-playground/validator rules into schema
// keywords. Rules after "dive" describe the elements of a slice or map.
//
// See: https://json-schema.org/draft/2020-12/json-schema-validation
func applyValidateTag(schema *Schema, tag string, t reflect.Type) {
	if tag == "" {
		return
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	rules, rest, dived := strings.Cut(tag, ",dive")
	if strings.HasPrefix(tag, "dive") {
		rules, rest, dived = "", strings.TrimPrefix(tag, "dive"), true
	}
	if dived {
		rest = strings.TrimPrefix(rest, ",")
		switch {
		case t.Kind() == reflect.Slice && schema.Items != nil && schema.Items.Ref == "":
			applyValidateTag(schema.Items, rest, t.Elem())
		case t.Kind() == reflect.Map && schema.AdditionalProperties != nil && schema.AdditionalProperties.Ref == "":
			applyValidateTag(schema.AdditionalProperties, rest, t.Elem())
		}
	}

	kind := t.Kind()
	if t == timeType || t == uuidType {
		kind = reflect.Invalid
	}

	for rule := range strings.SplitSeq(rules, ",") {
		name, param, _ := strings.Cut(strings.TrimSpace(rule), "=")

		switch name {
		case "gte", "min":
			setLowerBound(schema, kind, param, false)
		case "gt":
			setLowerBound(schema, kind, param, true)
		case "lte", "max":
			setUpperBound(schema, kind, param, false)
		case "lt":
			setUpperBound(schema, kind, param, true)
		case "len":
			setLowerBound(schema, kind, param, false)
			setUpperBound(schema, kind, param, false)
		case "oneof":
			values := strings.Fields(param)
			schema.Enum = make([]any, len(values))
			for i, v := range values {
				schema.Enum[i] = parseExampleValue(schema, v)
			}
		case "unique":
			schema.UniqueItems = true
		case "email":
			schema.Format = "email"
		case "url", "uri", "http_url":
			schema.Format = "uri"
		case "uuid", "uuid4", "uuid_rfc4122":
			schema.Format = "uuid"
		case "ipv4":
			schema.Format = "ipv4"
		case "ipv6":
			schema.Format = "ipv6"
		case "hostname", "hostname_rfc1123", "fqdn":
			schema.Format = "hostname"
		case "alpha":
			schema.Pattern = "^[a-zA-Z]+$"
		case "alphanum":
			schema.Pattern = "^[a-zA-Z0-9]+$"
		case "numeric":
			schema.Pattern = `^[-+]?[0-9]+(?:\.[0-9]+)?$`
		}
	}
}

func setLowerBound(schema *Schema, kind reflect.Kind, param string, exclusive bool) {
	switch kind {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if exclusive {
			n++
		}
		switch kind {
		case reflect.String:
			schema.MinLength = &n
		case reflect.Map:
			schema.MinProperties = &n
		default:
			schema.MinItems = &n
		}
	case reflect.Invalid, reflect.Bool, reflect.Struct, reflect.Interface:
	default:
		v, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return
		}
		if exclusive {
			schema.ExclusiveMinimum = &v
		} else {
			schema.Minimum = &v
		}
	}
}

func setUpperBound(schema *Schema, kind reflect.Kind, param string, exclusive bool) {
	switch kind {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		if exclusive {
			n--
		}
		switch kind {
		case reflect.String:
			schema.MaxLength = &n
		case reflect.Map:
			schema.MaxProperties = &n
		default:
			schema.MaxItems = &n
		}
	case reflect.Invalid, reflect.Bool, reflect.Struct, reflect.Interface:
	default:
		v, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return
		}
		if exclusive {
			schema.ExclusiveMaximum = &v
		} else {
			schema.Maximum = &v
		}
	}
}

// applyOpenAPITag applies documentation keywords from the `openapi` struct tag.
func applyOpenAPITag(schema *Schema, tag string) {
	if tag == "" {
		return
	}

	for part := range strings.SplitSeq(tag, ",") {
		key, value, _ := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "description":
			schema.Description = value
		case "example":
			schema.Example = parseExampleValue(schema, value)
		case "format":
			schema.Format = value
		case "title":
			schema.Title = value
		case "pattern":
			schema.Pattern = value
		case "enum":
			values := strings.Split(value, "|")
			schema.Enum = make([]any, len(values))
			for i, v := range values {
				schema.Enum[i] = parseExampleValue(schema, v)
			}
		case "deprecated":
			schema.Deprecated = true
		case "readOnly":
			schema.ReadOnly = true
		case "writeOnly":
			schema.WriteOnly = true
		case "multipleOf":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				schema.MultipleOf = &v
			}
		case "minimum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				schema.Minimum = &v
			}
		case "maximum":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				schema.Maximum = &v
			}
		case "minLength":
			if v, err := strconv.Atoi(value); err == nil {
				schema.MinLength = &v
			}
		case "maxLength":
			if v, err := strconv.Atoi(value); err == nil {
				schema.MaxLength = &v
			}
		case "minItems":
			if v, err := strconv.Atoi(value); err == nil {
				schema.MinItems = &v
			}
		case "maxItems":
			if v, err := strconv.Atoi(value); err == nil {
				schema.MaxItems = &v
			}
		case "uniqueItems":
			schema.UniqueItems = true
		default:
			if strings.HasPrefix(key, "x-") {
				if schema.Extensions == nil {
					schema.Extensions = Extensions{}
				}
				schema.Extensions[key] = value
			}
		}
	}
}

// parseExampleValue converts a tag string to the Go value matching the
// schema type.
func parseExampleValue(schema *Schema, value string) any {
	switch {
	case schema.Type.Has("integer"):
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	case schema.Type.Has("number"):
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	case schema.Type.Has("boolean"):
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return value
}

// schemaName returns a unique component name for t. A second type with an
// already claimed simple name gets its package name as prefix, then a
// numeric suffix if that collides too.
func (g *SchemaGenerator) schemaName(t reflect.Type) string {
	simple := sanitizeSchemaName(t.Name())
	if simple == "" || t.PkgPath() == "" {
		return ""
	}

	if name, ok := g.typeNames[t]; ok {
		return name
	}

	name := simple
	if existing, ok := g.nameTypes[name]; ok && existing != t {
		name = pkgPrefix(t.PkgPath()) + simple
		if existing, ok := g.nameTypes[name]; ok && existing != t {
			base := name
			for i := 2; ; i++ {
				candidate := base + strconv.Itoa(i)
				if _, ok := g.nameTypes[candidate]; !ok {
					name = candidate
					break
				}
			}
		}
	}

	g.typeNames[t] = name
	g.nameTypes[name] = t
	return name
}

// pkgPrefix capitalizes the last package path segment ("net/http" -> "Http").
func pkgPrefix(pkgPath string) string {
	if idx := strings.LastIndexByte(pkgPath, '/'); idx >= 0 {
		pkgPath = pkgPath[idx+1:]
	}
	if len(pkgPath) == 0 {
		return ""
	}
	pkgPath = strings.ReplaceAll(pkgPath, "-", "_")
	pkgPath = strings.ReplaceAll(pkgPath, ".", "_")
	return strings.ToUpper(pkgPath[:1]) + pkgPath[1:]
}

// sanitizeSchemaName flattens generic instantiation names:
// "Page[pkg.Book]" becomes "PageBook" and "Page[[]pkg.Book]" "PageBookList".
func sanitizeSchemaName(name string) string {
	idx := strings.IndexByte(name, '[')
	if idx < 0 {
		return name
	}

	base := name[:idx]
	inner := name[idx+1 : len(name)-1]

	isList := strings.HasPrefix(inner, "[]")
	inner = strings.TrimPrefix(inner, "[]")

	if dot := strings.LastIndexByte(inner, '.'); dot >= 0 {
		inner = inner[dot+1:]
	}

	result := base + inner
	if isList {
		result += "List"
	}
	return result
}

// applyNullable widens the schema type with "null".
func applyNullable(schema *Schema) {
	if schema.Ref != "" {
		return
	}
	if types := schema.Type.Values(); len(types) > 0 {
		schema.Type = TypeArray(append(types, "null")...)
	}
}

// applyStringEncoding mirrors the encoding/json ",string" option.
func applyStringEncoding(schema *Schema) {
	if schema.Type.IsZero() {
		return
	}
	if schema.Type.Has("null") {
		schema.Type = TypeArray("string", "null")
	} else {
		schema.Type = TypeString("string")
	}
}
