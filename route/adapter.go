package route

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vitalvas/oasroute/model"
)

// DefaultMaxBodySize caps the request body read by body inputs.
const DefaultMaxBodySize int64 = 10 << 20

const multipartMemory = 32 << 20

// Inputs holds the validated inputs of one request. Model-backed sources
// hold a pointer to a new value of the declared type.
type Inputs struct {
	Header any
	Cookie any
	Path   any
	Query  any
	Form   any
	Body   any
	Raw    *http.Request
}

type inputsKey struct{}

// InputsOf returns the validated inputs stored in the request context.
func InputsOf(r *http.Request) *Inputs {
	in, _ := r.Context().Value(inputsKey{}).(*Inputs)
	return in
}

func withInputs(r *http.Request, in *Inputs) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), inputsKey{}, in))
}

// Header returns the validated header model of the request, or nil.
func Header[T any](r *http.Request) *T { return inputAs[T](r, SourceHeader) }

// Cookie returns the validated cookie model of the request, or nil.
func Cookie[T any](r *http.Request) *T { return inputAs[T](r, SourceCookie) }

// Path returns the validated path model of the request, or nil.
func Path[T any](r *http.Request) *T { return inputAs[T](r, SourcePath) }

// Query returns the validated query model of the request, or nil.
func Query[T any](r *http.Request) *T { return inputAs[T](r, SourceQuery) }

// Form returns the validated form model of the request, or nil.
func Form[T any](r *http.Request) *T { return inputAs[T](r, SourceForm) }

// Body returns the validated body model of the request. It is nil when
// the request content type selected a raw body member.
func Body[T any](r *http.Request) *T { return inputAs[T](r, SourceBody) }

// Raw returns the raw request when the route declared WithRaw.
func Raw(r *http.Request) *http.Request {
	if in := InputsOf(r); in != nil {
		return in.Raw
	}
	return nil
}

func inputAs[T any](r *http.Request, source Source) *T {
	in := InputsOf(r)
	if in == nil {
		return nil
	}

	var v any
	switch source {
	case SourceHeader:
		v = in.Header
	case SourceCookie:
		v = in.Cookie
	case SourcePath:
		v = in.Path
	case SourceQuery:
		v = in.Query
	case SourceForm:
		v = in.Form
	case SourceBody:
		v = in.Body
	}
	out, _ := v.(*T)
	return out
}

// adapter extracts, coerces and validates the declared inputs of a route.
// It is shared by every rule the endpoint is served under.
type adapter struct {
	inputs [numSources]*input
}

func newAdapter(cfg *routeConfig) *adapter {
	return &adapter{inputs: cfg.inputs}
}

// bind runs every declared source in order. The first failing source
// stops extraction and its error is returned.
func (a *adapter) bind(r *http.Request, wildcard string, maxBodySize int64) (*Inputs, *model.ValidationError) {
	out := &Inputs{}

	for s, in := range a.inputs {
		if in == nil {
			continue
		}

		var (
			v   any
			err error
		)
		switch Source(s) {
		case SourceHeader:
			v, err = in.model.Decode(headerValues(r, in.model))
			out.Header = v
		case SourceCookie:
			v, err = in.model.Decode(cookieValues(r, in.model))
			out.Cookie = v
		case SourcePath:
			v, err = in.model.Decode(pathValues(r, wildcard))
			out.Path = v
		case SourceQuery:
			v, err = in.model.Decode(queryValues(r, in.model))
			out.Query = v
		case SourceForm:
			v, err = in.model.Decode(formValues(r, in.model))
			out.Form = v
		case SourceBody:
			v, err = a.body(r, in, maxBodySize)
			out.Body = v
		case SourceRaw:
			out.Raw = r
		}

		if err != nil {
			verr, ok := err.(*model.ValidationError)
			if !ok {
				verr = &model.ValidationError{
					Title:  Source(s).String(),
					Errors: []model.ErrorDetail{{Type: "value_error", Loc: []any{}, Msg: err.Error()}},
				}
			}
			return nil, verr
		}
	}

	return out, nil
}

// headerValues looks every field up by name, by name with "_" replaced
// with "-", and by alias.
func headerValues(r *http.Request, m *model.Model) map[string]any {
	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		candidates := []string{f.Name, strings.ReplaceAll(f.Name, "_", "-")}
		if f.Alias != "" {
			candidates = append(candidates, f.Alias)
		}

		for _, name := range candidates {
			values := r.Header.Values(name)
			if len(values) == 0 {
				continue
			}
			if f.List {
				out[f.Name] = toAny(values)
			} else {
				out[f.Name] = values[0]
			}
			break
		}
	}
	return out
}

func cookieValues(r *http.Request, m *model.Model) map[string]any {
	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		var values []any
		for _, c := range r.Cookies() {
			if c.Name == f.Name || (f.Alias != "" && c.Name == f.Alias) {
				values = append(values, c.Value)
			}
		}
		if len(values) == 0 {
			continue
		}
		if f.List {
			out[f.Name] = values
		} else {
			out[f.Name] = values[0]
		}
	}
	return out
}

func pathValues(r *http.Request, wildcard string) map[string]any {
	out := make(map[string]any)
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			if wildcard != "" {
				out[wildcard] = rctx.URLParams.Values[i]
			}
			continue
		}
		out[key] = rctx.URLParams.Values[i]
	}
	return out
}

// queryValues gathers list fields from every occurrence of the key and
// scalar fields from the first one.
func queryValues(r *http.Request, m *model.Model) map[string]any {
	query := r.URL.Query()
	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		values, ok := query[f.Name]
		if !ok && f.Alias != "" {
			values, ok = query[f.Alias]
		}
		if !ok || len(values) == 0 {
			continue
		}
		if f.List {
			out[f.Name] = toAny(values)
		} else {
			out[f.Name] = values[0]
		}
	}
	return out
}

// formValues parses a multipart or urlencoded form. Files are taken from
// the multipart parts; object and list values are JSON-decoded so they
// survive the trip, scalars are left for the model to parse.
func formValues(r *http.Request, m *model.Model) map[string]any {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		_ = r.ParseMultipartForm(multipartMemory)
	} else {
		_ = r.ParseForm()
	}

	out := make(map[string]any, len(m.Fields))
	for _, f := range m.Fields {
		keys := []string{f.Name}
		if f.Alias != "" {
			keys = append(keys, f.Alias)
		}

		if f.File {
			if r.MultipartForm == nil {
				continue
			}
			for _, key := range keys {
				files := r.MultipartForm.File[key]
				if len(files) == 0 {
					continue
				}
				if f.List {
					out[f.Name] = toAny(files)
				} else {
					out[f.Name] = files[0]
				}
				break
			}
			continue
		}

		for _, key := range keys {
			values, ok := r.PostForm[key]
			if !ok || len(values) == 0 {
				continue
			}
			if f.List {
				elem := f.Type
				for elem.Kind() == reflect.Pointer {
					elem = elem.Elem()
				}
				items := make([]any, len(values))
				for i, v := range values {
					items[i] = formScalar(elem.Elem(), v)
				}
				out[f.Name] = items
			} else {
				out[f.Name] = formScalar(f.Type, values[0])
			}
			break
		}
	}
	return out
}

// formScalar keeps scalar fields as strings for the model to parse and
// JSON-decodes object, list and free-form fields.
func formScalar(t reflect.Type, value string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Interface:
		return model.ParseLoose(value)
	case reflect.Struct, reflect.Array:
		if !isScalarType(t) {
			return model.ParseLoose(value)
		}
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return model.ParseLoose(value)
		}
	}
	return value
}

// body reads the payload once, restores r.Body for the handler and
// decodes it into the declared model for the request content type.
func (a *adapter) body(r *http.Request, in *input, limit int64) (any, error) {
	data, err := readBody(r, limit)
	if err != nil {
		return nil, err
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	member := in.members
	if in.union {
		idx := slices.IndexFunc(in.members, func(m bodyMember) bool { return m.contentType == ct })
		if idx < 0 {
			return nil, nil
		}
		member = in.members[idx : idx+1]
	}
	if len(member) == 0 {
		return nil, nil
	}

	if !in.union && !isJSONType(ct) && !isMsgPackType(ct) {
		return member[0].model.Decode(nil)
	}
	return member[0].model.Decode(decodePayload(ct, data))
}

// isJSONType reports application/json and structured +json media types.
func isJSONType(ct string) bool {
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}

func isMsgPackType(ct string) bool {
	return ct == "application/msgpack" || ct == "application/x-msgpack"
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	if limit <= 0 {
		limit = DefaultMaxBodySize
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	_ = r.Body.Close()
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &model.ValidationError{
			Title: "body",
			Errors: []model.ErrorDetail{{
				Type: "body_too_large",
				Loc:  []any{},
				Msg:  fmt.Sprintf("Request body exceeds %d bytes", limit),
				Ctx:  map[string]any{"max_size": limit},
			}},
		}
	}

	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

// decodePayload decodes msgpack for msgpack content types and JSON for
// the others. An undecodable payload becomes nil so the model
// reports it as missing. A JSON string holding JSON is decoded once more.
func decodePayload(contentType string, data []byte) any {
	if len(data) == 0 {
		return nil
	}

	if isMsgPackType(contentType) {
		var v any
		if err := msgpack.Unmarshal(data, &v); err != nil {
			return nil
		}
		return v
	}

	v, ok := decodeJSON(data)
	if !ok {
		return nil
	}
	if s, isString := v.(string); isString {
		if inner, ok := decodeJSON([]byte(s)); ok {
			return inner
		}
	}
	return v
}

func decodeJSON(data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func toAny[S ~[]E, E any](s S) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
