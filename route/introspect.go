package route

import (
	"encoding"
	"maps"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/vitalvas/oasroute/model"
	"github.com/vitalvas/oasroute/openapi"
)

// OperationIDFunc derives an operation id from the endpoint name, the
// path template and the HTTP method.
type OperationIDFunc func(name, path, method string) string

var (
	nonWordRegexp       = regexp.MustCompile(`\W`)
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// DefaultOperationID joins name and path, replaces every non-word
// character with "_" and appends the lower-case method:
//
//	("get_book", "/book/{bid}", "GET") -> "get_book_book__bid__get"
func DefaultOperationID(name, path, method string) string {
	return nonWordRegexp.ReplaceAllString(name+path, "_") + "_" + strings.ToLower(method)
}

// defaults are the documentation defaults a scaffold applies to each of
// its routes.
type defaults struct {
	tags        []openapi.Tag
	security    []openapi.SecurityRequirement
	responses   map[string]openapi.ResponseSpec
	operationID OperationIDFunc
	hideDocs    bool
}

func (d *defaults) setResponse(status string, v any) {
	if d.responses == nil {
		d.responses = make(map[string]openapi.ResponseSpec)
	}
	d.responses[status] = responseSpec(v)
}

// buildOperation introspects a route declaration into an operation and
// registers the models it references with spec's generator. It returns
// nil when the route is not documented.
func (d *defaults) buildOperation(spec *openapi.Spec, cfg *routeConfig, name, rule, method string) *openapi.Operation {
	if d.hideDocs || cfg.hidden {
		return nil
	}

	gen := spec.Generator()
	tpl, vars := openapi.ParseRule(rule)

	op := &openapi.Operation{
		ExternalDocs: cfg.externalDocs,
		Deprecated:   cfg.deprecated,
		Servers:      cfg.servers,
		Extensions:   cfg.extensions,
	}

	op.Summary, op.Description = splitDocString(cfg.docString)
	if cfg.summary != "" {
		op.Summary = cfg.summary
	}
	if cfg.description != "" {
		op.Description = cfg.description
	}

	op.OperationID = cfg.operationID
	if op.OperationID == "" {
		idFunc := d.operationID
		if idFunc == nil {
			idFunc = DefaultOperationID
		}
		op.OperationID = idFunc(name, tpl, method)
	}

	tags := append(slices.Clone(cfg.tags), d.tags...)
	for _, tag := range tags {
		spec.AddTag(tag)
		if !slices.Contains(op.Tags, tag.Name) {
			op.Tags = append(op.Tags, tag.Name)
		}
	}

	if len(cfg.security) > 0 || len(d.security) > 0 {
		op.Security = append(slices.Clone(cfg.security), d.security...)
	}

	var auto []*openapi.Parameter
	for _, v := range vars {
		auto = append(auto, v.PathParameter())
	}

	var params []*openapi.Parameter
	for _, source := range []Source{SourceHeader, SourceCookie, SourcePath, SourceQuery} {
		if in := cfg.inputs[source]; in != nil && in.model != nil {
			params = append(params, parametersOf(gen, in)...)
		}
	}
	op.Parameters = openapi.MergeParameters(auto, params)

	if in := cfg.inputs[SourceForm]; in != nil && in.model != nil {
		op.RequestBody = formBody(gen, in, cfg.extraForm)
	}
	if in := cfg.inputs[SourceBody]; in != nil {
		op.RequestBody = mergeRequestBody(op.RequestBody, requestBody(gen, in, cfg.extraBody))
	}

	specs := maps.Clone(d.responses)
	if specs == nil {
		specs = make(map[string]openapi.ResponseSpec)
	}
	for status, r := range cfg.responses {
		specs[status] = specs[status].Overlay(r)
	}
	op.Responses = openapi.BuildResponses(gen, specs)

	return op
}

// parametersOf expands a parameter model into one parameter per property.
func parametersOf(gen *openapi.SchemaGenerator, in *input) []*openapi.Parameter {
	schema := gen.Inline(in.value)
	location := in.source.in()

	params := make([]*openapi.Parameter, 0, len(in.model.Fields))
	for _, f := range in.model.Fields {
		prop := schema.Properties[f.Key()]
		if prop == nil {
			continue
		}

		p := &openapi.Parameter{
			Name:        f.Key(),
			In:          location,
			Required:    location == openapi.InPath || slices.Contains(schema.Required, f.Key()),
			Description: prop.Description,
			Deprecated:  prop.Deprecated,
			Example:     prop.Example,
			Schema:      prop,
		}
		if location == openapi.InQuery && f.List {
			explode := true
			p.Style = "form"
			p.Explode = &explode
		}
		params = append(params, p)
	}
	return params
}

// formBody documents a form model as multipart/form-data. File fields are
// encoded as octet streams and object fields as JSON.
func formBody(gen *openapi.SchemaGenerator, in *input, extra *Extra) *openapi.RequestBody {
	ct := "multipart/form-data"
	if extra != nil && extra.ContentType != "" {
		ct = extra.ContentType
	}

	media := &openapi.MediaType{Schema: openapi.ResolveSchema(gen, in.value)}
	for _, f := range in.model.Fields {
		var fieldCT string
		switch {
		case f.File:
			fieldCT = "application/octet-stream"
		case isObjectField(f):
			fieldCT = "application/json"
		default:
			continue
		}
		if media.Encoding == nil {
			media.Encoding = make(map[string]*openapi.Encoding)
		}
		media.Encoding[f.Key()] = &openapi.Encoding{ContentType: fieldCT}
	}

	body := &openapi.RequestBody{
		Required: true,
		Content:  map[string]*openapi.MediaType{ct: media},
	}
	applyExtra(body, extra)
	return body
}

// requestBody documents a body input: one media type per declared model
// and an empty schema per raw content type.
func requestBody(gen *openapi.SchemaGenerator, in *input, extra *Extra) *openapi.RequestBody {
	body := &openapi.RequestBody{
		Required: true,
		Content:  make(map[string]*openapi.MediaType, len(in.members)+len(in.rawTypes)),
	}
	for _, m := range in.members {
		body.Content[m.contentType] = &openapi.MediaType{Schema: openapi.ResolveSchema(gen, m.value)}
	}
	for _, ct := range in.rawTypes {
		if _, ok := body.Content[ct]; !ok {
			body.Content[ct] = &openapi.MediaType{Schema: &openapi.Schema{}}
		}
	}
	applyExtra(body, extra)
	return body
}

func applyExtra(body *openapi.RequestBody, extra *Extra) {
	if extra == nil {
		return
	}
	if extra.Description != "" {
		body.Description = extra.Description
	}
	if extra.Required != nil {
		body.Required = *extra.Required
	}
	for _, media := range body.Content {
		if extra.Example != nil {
			media.Example = extra.Example
		}
		if len(extra.Examples) > 0 {
			media.Examples = extra.Examples
		}
		for name, enc := range extra.Encoding {
			if media.Encoding == nil {
				media.Encoding = make(map[string]*openapi.Encoding)
			}
			media.Encoding[name] = enc
		}
	}
}

// mergeRequestBody combines a form body and a JSON body into one
// request body keyed by content type.
func mergeRequestBody(form, body *openapi.RequestBody) *openapi.RequestBody {
	if form == nil {
		return body
	}
	maps.Copy(form.Content, body.Content)
	if form.Description == "" {
		form.Description = body.Description
	}
	form.Required = form.Required && body.Required
	return form
}

func isObjectField(f model.Field) bool {
	t := f.Type
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	}
	switch t.Kind() {
	case reflect.Map:
		return true
	case reflect.Struct:
		return !isScalarType(t)
	}
	return false
}

// isScalarType reports struct types that travel as a single string.
func isScalarType(t reflect.Type) bool {
	if t.PkgPath() == "time" && t.Name() == "Time" {
		return true
	}
	return reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// splitDocString returns the first non-empty line as summary and the
// remaining lines joined with <br/> as description.
func splitDocString(doc string) (string, string) {
	lines := strings.Split(strings.TrimSpace(doc), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "", ""
	}

	summary := strings.TrimSpace(lines[0])
	rest := lines[1:]
	for len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	for i := range rest {
		rest[i] = strings.TrimSpace(rest[i])
	}
	return summary, strings.Join(rest, "<br/>")
}

// handlerName returns the short name of a handler function:
// "pkg.getBook" -> "getBook", "pkg.(*Store).Get-fm" -> "Store.Get".
func handlerName(fn any) string {
	rf := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if rf == nil {
		return "handler"
	}

	name := rf.Name()
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	name = strings.NewReplacer("(*", "", ")", "").Replace(name)
	return name
}
