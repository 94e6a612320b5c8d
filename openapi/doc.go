// Package openapi models OpenAPI v3.1.0 documents and generates their
// schemas from Go types.
//
// The package has four parts:
//
//   - the object model (Document, Operation, Schema, ...) with x- extension
//     support and Document.Validate for required fields and bounds;
//   - SchemaGenerator, which reflects structs into JSON Schema Draft 2020-12
//     and registers named types under #/components/schemas;
//   - Spec, a registry of paths, tags and components that can absorb the
//     registry of a child group under a URL prefix;
//   - Handle, which serves a document as JSON and YAML next to a selector
//     page for UI plugins.
//
// Struct fields are described with the json, alias, default, validate and
// openapi tags:
//
//	type Book struct {
//	    ID     uuid.UUID `json:"id" openapi:"readOnly"`
//	    Title  string    `json:"title" validate:"min=1,max=200"`
//	    Rating int       `json:"rating" validate:"gte=1,lte=5" default:"3"`
//	    Notes  *string   `json:"notes,omitempty" openapi:"description=Free text"`
//	}
//
// validate rules become schema bounds (gte -> minimum, gt -> exclusiveMinimum,
// min/max on strings -> minLength/maxLength, on slices -> minItems/maxItems).
// The openapi tag adds documentation keywords: description, example, format,
// title, pattern, enum (a|b|c), deprecated, readOnly, writeOnly, multipleOf,
// minimum, maximum, minLength, maxLength, minItems, maxItems, uniqueItems.
//
// See: https://spec.openapis.org/oas/v3.1.0
// See: https://json-schema.org/draft/2020-12/json-schema-validation
package openapi
