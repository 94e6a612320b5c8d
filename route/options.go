package route

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/vitalvas/oasroute/model"
	"github.com/vitalvas/oasroute/openapi"
)

// Source identifies where an input model is read from.
type Source int

// Input sources in extraction order.
const (
	SourceHeader Source = iota
	SourceCookie
	SourcePath
	SourceQuery
	SourceForm
	SourceBody
	SourceRaw

	numSources
)

func (s Source) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceCookie:
		return "cookie"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceForm:
		return "form"
	case SourceBody:
		return "body"
	case SourceRaw:
		return "raw"
	}
	return "unknown"
}

// in returns the OpenAPI parameter location of a parameter source.
func (s Source) in() string {
	switch s {
	case SourceHeader:
		return openapi.InHeader
	case SourceCookie:
		return openapi.InCookie
	case SourcePath:
		return openapi.InPath
	case SourceQuery:
		return openapi.InQuery
	}
	return ""
}

// bodyMember is one content type of a request body.
type bodyMember struct {
	contentType string
	value       any
	model       *model.Model
}

// input is one declared source of a route.
type input struct {
	source Source
	value  any
	model  *model.Model

	// body only
	members  []bodyMember
	rawTypes []string
	union    bool
}

// Extra is additional request body documentation merged into the
// generated request body object.
type Extra struct {
	Description string
	// Required overrides the default of true when set.
	Required *bool
	Example  any
	Examples map[string]*openapi.Example
	Encoding map[string]*openapi.Encoding
	// ContentType replaces the form content type (multipart/form-data).
	ContentType string
}

// Option configures one route declaration.
type Option func(*routeConfig)

type routeConfig struct {
	inputs [numSources]*input

	name         string
	summary      string
	description  string
	docString    string
	operationID  string
	tags         []openapi.Tag
	externalDocs *openapi.ExternalDocs
	responses    map[string]openapi.ResponseSpec
	extraBody    *Extra
	extraForm    *Extra
	deprecated   bool
	security     []openapi.SecurityRequirement
	servers      []openapi.Server
	extensions   openapi.Extensions
	hidden       bool
	middlewares  []func(http.Handler) http.Handler

	errs []error
}

func newRouteConfig(opts []Option) *routeConfig {
	cfg := &routeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *routeConfig) fail(sentinel error, format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

// hasInputs reports whether any model-backed source is declared.
func (c *routeConfig) hasInputs() bool {
	for s, in := range c.inputs {
		if in != nil && Source(s) != SourceRaw {
			return true
		}
	}
	return false
}

func (c *routeConfig) declare(source Source, v any) *input {
	if c.inputs[source] != nil {
		c.fail(ErrDuplicateSource, "%s declared twice", source)
		return nil
	}
	in := &input{source: source, value: v}
	c.inputs[source] = in
	return in
}

func (c *routeConfig) inspect(source Source, v any) *model.Model {
	if v == nil {
		c.fail(ErrInvalidModel, "%s model is nil", source)
		return nil
	}
	m, err := model.Of(v)
	if err != nil {
		c.fail(ErrInvalidModel, "%s: %v", source, err)
		return nil
	}
	return m
}

func (c *routeConfig) parameters(source Source, v any) {
	in := c.declare(source, v)
	if in == nil {
		return
	}
	in.model = c.inspect(source, v)
	if in.model != nil && in.model.IsRoot() {
		c.fail(ErrInvalidModel, "%s: custom-root model %s cannot describe parameters", source, in.model.Type)
		in.model = nil
	}
}

// body returns the body input, creating it on first use.
func (c *routeConfig) body() *input {
	if in := c.inputs[SourceBody]; in != nil {
		return in
	}
	in := &input{source: SourceBody}
	c.inputs[SourceBody] = in
	return in
}

func (c *routeConfig) addMember(ct string, v any) {
	m := c.inspect(SourceBody, v)
	if m == nil {
		return
	}
	in := c.body()
	for _, mem := range in.members {
		if mem.contentType == ct {
			c.fail(ErrDuplicateSource, "body content type %q declared twice", ct)
			return
		}
	}
	in.members = append(in.members, bodyMember{contentType: ct, value: v, model: m})
}

// WithHeader reads request headers into v's type.
func WithHeader(v any) Option {
	return func(c *routeConfig) { c.parameters(SourceHeader, v) }
}

// WithCookie reads request cookies into v's type.
func WithCookie(v any) Option {
	return func(c *routeConfig) { c.parameters(SourceCookie, v) }
}

// WithPath reads URL variables into v's type.
func WithPath(v any) Option {
	return func(c *routeConfig) { c.parameters(SourcePath, v) }
}

// WithQuery reads the query string into v's type.
func WithQuery(v any) Option {
	return func(c *routeConfig) { c.parameters(SourceQuery, v) }
}

// WithForm reads an urlencoded or multipart form into v's type.
func WithForm(v any) Option {
	return func(c *routeConfig) {
		in := c.declare(SourceForm, v)
		if in == nil {
			return
		}
		in.model = c.inspect(SourceForm, v)
	}
}

// WithBody decodes the request body (JSON, or msgpack when the request
// says so) into v's type. Custom-root models are accepted.
func WithBody(v any) Option {
	return func(c *routeConfig) {
		if in := c.inputs[SourceBody]; in != nil && !in.union {
			c.fail(ErrDuplicateSource, "body declared twice")
			return
		}
		c.addMember(openapi.ContentTypeOf(v), v)
	}
}

// WithBodyContent declares one member of a content-type keyed body. The
// request's Content-Type selects the member to decode; requests with
// other content types reach the handler with the raw body.
func WithBodyContent(contentType string, v any) Option {
	return func(c *routeConfig) {
		in := c.inputs[SourceBody]
		if in != nil && !in.union {
			c.fail(ErrDuplicateSource, "body declared twice")
			return
		}
		c.addMember(contentType, v)
		c.body().union = true
	}
}

// WithRawBody documents content types whose payload is passed through
// undecoded.
func WithRawBody(contentTypes ...string) Option {
	return func(c *routeConfig) {
		in := c.inputs[SourceBody]
		if in != nil && !in.union {
			c.fail(ErrDuplicateSource, "body declared twice")
			return
		}
		in = c.body()
		in.union = true
		in.rawTypes = append(in.rawTypes, contentTypes...)
	}
}

// WithRaw exposes the raw request through Raw.
func WithRaw() Option {
	return func(c *routeConfig) { c.declare(SourceRaw, nil) }
}

// Name sets the endpoint name (default: the handler function name).
func Name(name string) Option {
	return func(c *routeConfig) { c.name = name }
}

// Summary sets the operation summary.
func Summary(s string) Option {
	return func(c *routeConfig) { c.summary = s }
}

// Description sets the operation description.
func Description(s string) Option {
	return func(c *routeConfig) { c.description = s }
}

// DocString documents the operation from a handler doc text: the first
// non-empty line is the summary, the remaining lines the description.
// Explicit Summary and Description win.
func DocString(doc string) Option {
	return func(c *routeConfig) { c.docString = doc }
}

// OperationID sets an explicit operation id.
func OperationID(id string) Option {
	return func(c *routeConfig) { c.operationID = id }
}

// Tags adds tags to the operation. Tag objects are registered on the
// document, the first registration of a name wins.
func Tags(tags ...openapi.Tag) Option {
	return func(c *routeConfig) { c.tags = append(c.tags, tags...) }
}

// TagNames adds tags by name.
func TagNames(names ...string) Option {
	return func(c *routeConfig) {
		for _, n := range names {
			c.tags = append(c.tags, openapi.Tag{Name: n})
		}
	}
}

// ExternalDocs links external documentation to the operation.
func ExternalDocs(url, description string) Option {
	return func(c *routeConfig) {
		c.externalDocs = &openapi.ExternalDocs{URL: url, Description: description}
	}
}

// Response declares a response model for status. v may be a model value,
// a ready *openapi.Schema, an *openapi.Response, or nil for a bare response.
func Response(status int, v any) Option {
	return ResponseKey(strconv.Itoa(status), v)
}

// ResponseKey is Response with a raw status key such as "default" or "2XX".
func ResponseKey(status string, v any) Option {
	return func(c *routeConfig) {
		if c.responses == nil {
			c.responses = make(map[string]openapi.ResponseSpec)
		}
		c.responses[status] = responseSpec(v)
	}
}

// responseSpec classifies a response declaration.
func responseSpec(v any) openapi.ResponseSpec {
	switch r := v.(type) {
	case nil:
		return openapi.ResponseSpec{}
	case *openapi.Response:
		return openapi.ResponseSpec{Raw: r}
	case openapi.ResponseSpec:
		return r
	}
	return openapi.ResponseSpec{Model: v}
}

// ExtraBody merges additional documentation into the JSON request body.
func ExtraBody(extra Extra) Option {
	return func(c *routeConfig) { c.extraBody = &extra }
}

// ExtraForm merges additional documentation into the form request body.
func ExtraForm(extra Extra) Option {
	return func(c *routeConfig) { c.extraForm = &extra }
}

// Deprecated marks the operation deprecated.
func Deprecated() Option {
	return func(c *routeConfig) { c.deprecated = true }
}

// Security adds security requirements ahead of the scaffold defaults.
func Security(reqs ...openapi.SecurityRequirement) Option {
	return func(c *routeConfig) { c.security = append(c.security, reqs...) }
}

// Servers sets operation-level servers.
func Servers(servers ...openapi.Server) Option {
	return func(c *routeConfig) { c.servers = append(c.servers, servers...) }
}

// Extension sets an x- extension on the operation.
func Extension(key string, value any) Option {
	return func(c *routeConfig) {
		if c.extensions == nil {
			c.extensions = make(openapi.Extensions)
		}
		c.extensions[key] = value
	}
}

// Hidden serves the route without documenting it.
func Hidden() Option {
	return func(c *routeConfig) { c.hidden = true }
}

// Middleware wraps this route's handler.
func Middleware(mw ...func(http.Handler) http.Handler) Option {
	return func(c *routeConfig) { c.middlewares = append(c.middlewares, mw...) }
}
