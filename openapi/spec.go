package openapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrDuplicateOperation is returned when a path and method pair is
// already occupied by a different operation.
var ErrDuplicateOperation = errors.New("openapi: duplicate operation")

// Spec is a registry of paths, tags and components. The application owns
// the root Spec; blueprints and views own local ones that are merged into
// their parent when attached.
type Spec struct {
	info         Info
	servers      []Server
	externalDocs *ExternalDocs
	security     []SecurityRequirement
	extensions   Extensions

	gen      *SchemaGenerator
	paths    map[string]*PathItem
	order    []string
	webhooks map[string]*PathItem
	tags     []Tag

	securitySchemes map[string]*SecurityScheme
	compResponses   map[string]*Response
	compParameters  map[string]*Parameter
	compExamples    map[string]*Example
}

// NewSpec creates an empty registry with the given API info.
func NewSpec(info Info) *Spec {
	return &Spec{
		info:  info,
		gen:   NewSchemaGenerator(),
		paths: make(map[string]*PathItem),
	}
}

// Info returns the API info.
func (s *Spec) Info() Info {
	return s.info
}

// Generator returns the schema generator backing the components registry.
func (s *Spec) Generator() *SchemaGenerator {
	return s.gen
}

// AddServer adds a document-level server.
func (s *Spec) AddServer(server Server) *Spec {
	s.servers = append(s.servers, server)
	return s
}

// SetExternalDocs sets the document-level external documentation link.
func (s *Spec) SetExternalDocs(url, description string) *Spec {
	s.externalDocs = &ExternalDocs{URL: url, Description: description}
	return s
}

// SetSecurity sets the document-level security requirements.
func (s *Spec) SetSecurity(reqs ...SecurityRequirement) *Spec {
	s.security = reqs
	return s
}

// SetExtension sets a top-level x- extension.
func (s *Spec) SetExtension(key string, value any) *Spec {
	if s.extensions == nil {
		s.extensions = make(Extensions)
	}
	s.extensions[key] = value
	return s
}

// AddTag appends tag unless a tag with the same name is already known.
// The first registration of a name wins.
func (s *Spec) AddTag(tag Tag) *Spec {
	for _, t := range s.tags {
		if t.Name == tag.Name {
			return s
		}
	}
	s.tags = append(s.tags, tag)
	return s
}

// Tags returns the registered tags in registration order.
func (s *Spec) Tags() []Tag {
	return s.tags
}

// AddSecurityScheme registers a reusable security scheme.
func (s *Spec) AddSecurityScheme(name string, scheme *SecurityScheme) *Spec {
	if s.securitySchemes == nil {
		s.securitySchemes = make(map[string]*SecurityScheme)
	}
	s.securitySchemes[name] = scheme
	return s
}

// AddComponentResponse registers a reusable response.
func (s *Spec) AddComponentResponse(name string, resp *Response) *Spec {
	if s.compResponses == nil {
		s.compResponses = make(map[string]*Response)
	}
	s.compResponses[name] = resp
	return s
}

// AddComponentParameter registers a reusable parameter.
func (s *Spec) AddComponentParameter(name string, param *Parameter) *Spec {
	if s.compParameters == nil {
		s.compParameters = make(map[string]*Parameter)
	}
	s.compParameters[name] = param
	return s
}

// AddComponentExample registers a reusable example.
func (s *Spec) AddComponentExample(name string, ex *Example) *Spec {
	if s.compExamples == nil {
		s.compExamples = make(map[string]*Example)
	}
	s.compExamples[name] = ex
	return s
}

// PathItem returns the path item for an OpenAPI template, creating it.
func (s *Spec) PathItem(path string) *PathItem {
	item, ok := s.paths[path]
	if !ok {
		item = &PathItem{}
		s.paths[path] = item
		s.order = append(s.order, path)
	}
	return item
}

// Paths returns the path templates in registration order.
func (s *Spec) Paths() []string {
	return s.order
}

// Operation returns the operation stored for path and method, if any.
func (s *Spec) Operation(path, method string) *Operation {
	item, ok := s.paths[path]
	if !ok {
		return nil
	}
	return item.Operation(method)
}

// AddOperation stores op under path and method. Storing the same
// operation twice is a no-op; a different one is ErrDuplicateOperation.
func (s *Spec) AddOperation(path, method string, op *Operation) error {
	item := s.PathItem(path)
	if existing := item.Operation(method); existing != nil {
		if existing == op {
			return nil
		}
		return fmt.Errorf("%w: %s %s", ErrDuplicateOperation, strings.ToUpper(method), path)
	}
	item.SetOperation(method, op)
	return nil
}

// AddWebhook stores op as the method of the named webhook.
func (s *Spec) AddWebhook(name, method string, op *Operation) *Spec {
	if s.webhooks == nil {
		s.webhooks = make(map[string]*PathItem)
	}
	item, ok := s.webhooks[name]
	if !ok {
		item = &PathItem{}
		s.webhooks[name] = item
	}
	item.SetOperation(method, op)
	return s
}

// Merge absorbs the tags, paths and components of child. Child paths are
// re-templated under prefix.
func (s *Spec) Merge(child *Spec, prefix string) error {
	if child == s {
		return nil
	}

	for _, tag := range child.tags {
		s.AddTag(tag)
	}

	for _, path := range child.order {
		full := JoinPath(prefix, path)
		src := child.paths[path]

		dst := s.PathItem(full)
		if dst.Summary == "" {
			dst.Summary = src.Summary
		}
		if dst.Description == "" {
			dst.Description = src.Description
		}

		for _, method := range methodOrder {
			op := src.Operation(method)
			if op == nil {
				continue
			}
			if err := s.AddOperation(full, method, op); err != nil {
				return err
			}
		}
	}

	if err := s.gen.Absorb(child.gen); err != nil {
		return err
	}

	for name, scheme := range child.securitySchemes {
		if _, ok := s.securitySchemes[name]; !ok {
			s.AddSecurityScheme(name, scheme)
		}
	}

	return nil
}

// Build assembles the document from the current registry contents.
func (s *Spec) Build() *Document {
	doc := &Document{
		OpenAPI:      Version,
		Info:         s.info,
		Servers:      s.servers,
		Paths:        make(map[string]*PathItem, len(s.paths)),
		ExternalDocs: s.externalDocs,
		Security:     s.security,
		Extensions:   s.extensions,
	}

	for path, item := range s.paths {
		doc.Paths[path] = item
	}
	if len(s.webhooks) > 0 {
		doc.Webhooks = s.webhooks
	}
	if len(s.tags) > 0 {
		doc.Tags = append([]Tag(nil), s.tags...)
	}
	doc.Components = s.buildComponents()

	return doc
}

func (s *Spec) buildComponents() *Components {
	schemas := s.gen.Schemas()

	hasData := len(schemas) > 0 ||
		len(s.securitySchemes) > 0 ||
		len(s.compResponses) > 0 ||
		len(s.compParameters) > 0 ||
		len(s.compExamples) > 0
	if !hasData {
		return nil
	}

	comp := &Components{}
	if len(schemas) > 0 {
		comp.Schemas = make(map[string]*Schema, len(schemas))
		for name, schema := range schemas {
			comp.Schemas[name] = schema
		}
	}
	if len(s.securitySchemes) > 0 {
		comp.SecuritySchemes = s.securitySchemes
	}
	if len(s.compResponses) > 0 {
		comp.Responses = s.compResponses
	}
	if len(s.compParameters) > 0 {
		comp.Parameters = s.compParameters
	}
	if len(s.compExamples) > 0 {
		comp.Examples = s.compExamples
	}

	return comp
}

var methodOrder = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operation returns the operation for a method name (any case).
func (p *PathItem) Operation(method string) *Operation {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return p.Get
	case http.MethodPut:
		return p.Put
	case http.MethodPost:
		return p.Post
	case http.MethodDelete:
		return p.Delete
	case http.MethodOptions:
		return p.Options
	case http.MethodHead:
		return p.Head
	case http.MethodPatch:
		return p.Patch
	case http.MethodTrace:
		return p.Trace
	}
	return nil
}

// SetOperation assigns op to the field of a method name (any case).
func (p *PathItem) SetOperation(method string, op *Operation) {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		p.Get = op
	case http.MethodPut:
		p.Put = op
	case http.MethodPost:
		p.Post = op
	case http.MethodDelete:
		p.Delete = op
	case http.MethodOptions:
		p.Options = op
	case http.MethodHead:
		p.Head = op
	case http.MethodPatch:
		p.Patch = op
	case http.MethodTrace:
		p.Trace = op
	}
}

// Operations returns the non-nil operations keyed by lower-case method.
func (p *PathItem) Operations() map[string]*Operation {
	ops := make(map[string]*Operation)
	for _, method := range methodOrder {
		if op := p.Operation(method); op != nil {
			ops[method] = op
		}
	}
	return ops
}
