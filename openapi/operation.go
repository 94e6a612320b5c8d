package openapi

import (
	"maps"
	"net/http"
	"strconv"
)

// ResponseSpec is the declared shape of one response status: a model
// whose schema becomes the content, a hand-written response object, both
// (the object is completed with the model reference) or neither.
type ResponseSpec struct {
	Model any
	Raw   *Response
}

// IsEmpty reports whether neither a model nor a raw response is set.
func (r ResponseSpec) IsEmpty() bool {
	return r.Model == nil && r.Raw == nil
}

// Overlay returns r with the parts set in o replacing its own. An empty
// o resets the status to a bare response.
func (r ResponseSpec) Overlay(o ResponseSpec) ResponseSpec {
	if o.IsEmpty() {
		return o
	}
	if o.Model != nil {
		r.Model = o.Model
	}
	if o.Raw != nil {
		r.Raw = o.Raw
	}
	return r
}

// BuildResponses synthesizes response objects for every declared status.
func BuildResponses(gen *SchemaGenerator, specs map[string]ResponseSpec) map[string]*Response {
	if len(specs) == 0 {
		return nil
	}
	out := make(map[string]*Response, len(specs))
	for status, spec := range specs {
		out[status] = BuildResponse(gen, status, spec)
	}
	return out
}

// BuildResponse synthesizes one response object.
func BuildResponse(gen *SchemaGenerator, status string, spec ResponseSpec) *Response {
	resp := &Response{Description: StatusDescription(status)}

	if spec.Model != nil {
		if d, ok := spec.Model.(Describer); ok && d.OpenAPIDescription() != "" {
			resp.Description = d.OpenAPIDescription()
		}
		resp.Content = map[string]*MediaType{
			ContentTypeOf(spec.Model): {Schema: ResolveSchema(gen, spec.Model)},
		}
	}

	if raw := spec.Raw; raw != nil {
		if raw.Description != "" {
			resp.Description = raw.Description
		}
		resp.Content = mergeMap(resp.Content, raw.Content)
		resp.Headers = mergeMap(resp.Headers, raw.Headers)
		resp.Links = mergeMap(resp.Links, raw.Links)
		resp.Extensions = raw.Extensions
	}

	return resp
}

// mergeMap copies override over base into a fresh map.
func mergeMap[V any](base, override map[string]V) map[string]V {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]V, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// ContentTypeOf returns the declared media type of a model, defaulting
// to application/json.
func ContentTypeOf(v any) string {
	if ct, ok := v.(ContentTyper); ok {
		if s := ct.OpenAPIContentType(); s != "" {
			return s
		}
	}
	return "application/json"
}

// ResolveSchema accepts either a ready *Schema or a Go value to reflect.
func ResolveSchema(gen *SchemaGenerator, v any) *Schema {
	if v == nil {
		return nil
	}
	if s, ok := v.(*Schema); ok {
		return s
	}
	return gen.Generate(v)
}

// StatusDescription returns the HTTP reason phrase of a status key.
// "default" maps to "Default response" and unknown codes to "Success".
func StatusDescription(status string) string {
	if status == "default" {
		return "Default response"
	}
	if code, err := strconv.Atoi(status); err == nil {
		if text := http.StatusText(code); text != "" {
			return text
		}
	}
	return "Success"
}

// ValidationErrorResponse is the response injected for input validation
// failures: a JSON array of the named error schema.
func ValidationErrorResponse(status, schemaName string) *Response {
	return &Response{
		Description: StatusDescription(status),
		Content: map[string]*MediaType{
			"application/json": {
				Schema: &Schema{Type: TypeString("array"), Items: RefTo(schemaName)},
			},
		},
	}
}

// HasInputs reports whether the operation declares parameters or a body.
func (o *Operation) HasInputs() bool {
	return len(o.Parameters) > 0 || o.RequestBody != nil
}

// EnsureResponse sets resp at status unless a response is already there.
func (o *Operation) EnsureResponse(status string, resp *Response) {
	if _, ok := o.Responses[status]; ok {
		return
	}
	if o.Responses == nil {
		o.Responses = make(map[string]*Response)
	}
	o.Responses[status] = resp
}

// MergeParameters appends custom to auto, dropping auto parameters that
// custom redefines by name and location.
func MergeParameters(auto, custom []*Parameter) []*Parameter {
	if len(auto) == 0 && len(custom) == 0 {
		return nil
	}

	overrides := make(map[[2]string]struct{}, len(custom))
	for _, p := range custom {
		overrides[[2]string{p.Name, p.In}] = struct{}{}
	}

	var merged []*Parameter
	for _, p := range auto {
		if _, ok := overrides[[2]string{p.Name, p.In}]; !ok {
			merged = append(merged, p)
		}
	}

	return append(merged, custom...)
}
