package route

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/vitalvas/oasroute/openapi"
)

// viewMethods maps handler method names to HTTP methods.
var viewMethods = []struct{ name, method string }{
	{"Get", http.MethodGet},
	{"Post", http.MethodPost},
	{"Put", http.MethodPut},
	{"Patch", http.MethodPatch},
	{"Delete", http.MethodDelete},
	{"Head", http.MethodHead},
	{"Options", http.MethodOptions},
}

var (
	responseWriterType = reflect.TypeFor[http.ResponseWriter]()
	requestType        = reflect.TypeFor[*http.Request]()
	errorType          = reflect.TypeFor[error]()
	kwargsType         = reflect.TypeFor[map[string]any]()
)

// Registrar is implemented by App and Blueprint.
type Registrar interface {
	core() *scaffold
}

// MethodDoc documents one handler method of a view class.
type MethodDoc struct {
	method string
	opts   []Option
}

// Doc declares the inputs and documentation of a view method.
func Doc(method string, opts ...Option) MethodDoc {
	return MethodDoc{method: strings.ToUpper(method), opts: opts}
}

// View collects class-based routes. A class is a struct type whose Get,
// Post, Put, Patch, Delete, Head or Options methods have the HandlerFunc
// signature; each registration builds one instance per route.
//
//	type BookView struct{ store *Store }
//
//	func (v *BookView) Get(w http.ResponseWriter, r *http.Request) error { ... }
//
//	view := route.NewView("/v1")
//	view.Route("/books/<int:bid>", func(kw map[string]any) *BookView {
//	    return &BookView{store: kw["store"].(*Store)}
//	}, route.Doc("GET", route.WithPath(BookPath{})))
//	view.Register(app, route.ViewKwargs(map[string]any{"store": store}))
type View struct {
	prefix string
	spec   *openapi.Spec
	defaults

	routes []*viewRoute
}

type viewRoute struct {
	rule    string
	class   reflect.Type
	factory func(kwargs map[string]any) reflect.Value
	methods []viewMethod
}

type viewMethod struct {
	ep     *Endpoint
	method reflect.Method
}

// NewView creates a view collection serving its routes under prefix.
func NewView(prefix string) *View {
	return &View{prefix: prefix, spec: openapi.NewSpec(openapi.Info{})}
}

// Tags adds default tags.
func (v *View) Tags(tags ...openapi.Tag) *View {
	v.tags = append(v.tags, tags...)
	return v
}

// TagNames adds default tags by name.
func (v *View) TagNames(names ...string) *View {
	for _, n := range names {
		v.tags = append(v.tags, openapi.Tag{Name: n})
	}
	return v
}

// Security appends default security requirements.
func (v *View) Security(reqs ...openapi.SecurityRequirement) *View {
	v.security = append(v.security, reqs...)
	return v
}

// Response declares a default response for every method.
func (v *View) Response(status int, model any) *View {
	v.setResponse(strconv.Itoa(status), model)
	return v
}

// OperationIDFunc sets the operation id derivation.
func (v *View) OperationIDFunc(fn OperationIDFunc) *View {
	v.operationID = fn
	return v
}

// HideDocs serves the view's routes without documenting them.
func (v *View) HideDocs() *View {
	v.hideDocs = true
	return v
}

// Route declares a class at rule. class is a struct value or pointer (a
// new value is served with kwargs assigned to its exported fields), a
// func() *T, or a func(map[string]any) *T receiving the kwargs. Invalid
// classes and docs for methods the class lacks panic with ErrInvalidView.
func (v *View) Route(rule string, class any, docs ...MethodDoc) *View {
	typ, factory, err := viewFactory(class)
	if err != nil {
		panic(err)
	}

	byMethod := make(map[string][]Option, len(docs))
	for _, d := range docs {
		byMethod[d.method] = append(byMethod[d.method], d.opts...)
	}

	full := openapi.JoinPath(v.prefix, rule)
	vr := &viewRoute{rule: full, class: typ, factory: factory}

	for _, vm := range viewMethods {
		m, ok := typ.MethodByName(vm.name)
		if !ok {
			continue
		}
		if !isHandlerMethod(m) {
			registrationPanic(ErrInvalidView, "%s.%s does not have the handler signature", typ.Elem().Name(), vm.name)
		}

		cfg := newRouteConfig(byMethod[vm.method])
		if err := errors.Join(cfg.errs...); err != nil {
			panic(err)
		}
		delete(byMethod, vm.method)

		name := cfg.name
		if name == "" {
			name = typ.Elem().Name() + "." + vm.name
		}

		ep := &Endpoint{
			name:    name,
			method:  vm.method,
			cfg:     cfg,
			adapter: newAdapter(cfg),
			ops:     make(map[string]*openapi.Operation),
		}
		if op := v.buildOperation(v.spec, cfg, name, full, vm.method); op != nil {
			mustRegister(v.spec.AddOperation(template(full), vm.method, op))
			ep.ops[template(full)] = op
		}

		vr.methods = append(vr.methods, viewMethod{ep: ep, method: m})
	}

	for method := range byMethod {
		registrationPanic(ErrInvalidView, "%s documents %s but has no handler for it", typ.Elem().Name(), method)
	}
	if len(vr.methods) == 0 {
		registrationPanic(ErrInvalidView, "%s has no handler methods", typ.Elem().Name())
	}

	v.routes = append(v.routes, vr)
	return v
}

// RegisterOption configures a view registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	prefix string
	kwargs map[string]any
}

// ViewPrefix serves the views under an additional prefix.
func ViewPrefix(prefix string) RegisterOption {
	return func(c *registerConfig) { c.prefix = prefix }
}

// ViewKwargs passes kwargs to class factories.
func ViewKwargs(kwargs map[string]any) RegisterOption {
	return func(c *registerConfig) { c.kwargs = kwargs }
}

// Register serves every view route on target. URL prefixes compose as
// target prefix, registration prefix, view prefix, rule. Each request is
// handled by a new instance built from the class factory and the
// registration kwargs. Registering again under the same final paths is a
// no-op.
func (v *View) Register(target Registrar, opts ...RegisterOption) {
	rc := &registerConfig{}
	for _, opt := range opts {
		opt(rc)
	}

	s := target.core()
	base := openapi.JoinPath(s.prefix, rc.prefix)

	mustRegister(s.spec.Merge(v.spec, base))

	for _, vr := range v.routes {
		for _, vm := range vr.methods {
			s.addMount(mount{
				ep:      vm.ep,
				handler: boundHandler(vr.factory, rc.kwargs, vm.method),
				rule:    openapi.JoinPath(base, vr.rule),
				chain:   []*scaffold{s},
			})
		}
	}
	s.changed()
}

// viewFactory resolves the class type (always a pointer to struct) and a
// constructor for it.
func viewFactory(class any) (reflect.Type, func(map[string]any) reflect.Value, error) {
	if class == nil {
		return nil, nil, fmt.Errorf("%w: nil class", ErrInvalidView)
	}

	cv := reflect.ValueOf(class)
	ct := cv.Type()

	if ct.Kind() == reflect.Func {
		if ct.NumOut() != 1 || !isStructPointer(ct.Out(0)) {
			return nil, nil, fmt.Errorf("%w: factory %s must return a struct pointer", ErrInvalidView, ct)
		}
		switch {
		case ct.NumIn() == 0:
			return ct.Out(0), func(map[string]any) reflect.Value {
				return cv.Call(nil)[0]
			}, nil
		case ct.NumIn() == 1 && ct.In(0) == kwargsType:
			return ct.Out(0), func(kwargs map[string]any) reflect.Value {
				if kwargs == nil {
					kwargs = map[string]any{}
				}
				return cv.Call([]reflect.Value{reflect.ValueOf(kwargs)})[0]
			}, nil
		}
		return nil, nil, fmt.Errorf("%w: factory %s must take no arguments or map[string]any", ErrInvalidView, ct)
	}

	if ct.Kind() == reflect.Struct {
		ct = reflect.PointerTo(ct)
	}
	if !isStructPointer(ct) {
		return nil, nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidView, ct)
	}
	return ct, func(kwargs map[string]any) reflect.Value {
		v := reflect.New(ct.Elem())
		applyKwargs(v.Elem(), kwargs)
		return v
	}, nil
}

// applyKwargs assigns each kwarg to the exported field of the same name
// (case-insensitive) when the value is assignable.
func applyKwargs(v reflect.Value, kwargs map[string]any) {
	for key, val := range kwargs {
		f := v.FieldByNameFunc(func(name string) bool { return strings.EqualFold(name, key) })
		if !f.IsValid() || !f.CanSet() || val == nil {
			continue
		}
		rv := reflect.ValueOf(val)
		if rv.Type().AssignableTo(f.Type()) {
			f.Set(rv)
		}
	}
}

func isStructPointer(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct
}

// isHandlerMethod reports func(recv, http.ResponseWriter, *http.Request) error.
func isHandlerMethod(m reflect.Method) bool {
	t := m.Type
	return t.NumIn() == 3 && t.In(1) == responseWriterType && t.In(2) == requestType &&
		t.NumOut() == 1 && t.Out(0) == errorType
}

// boundHandler builds a fresh class instance for every request.
func boundHandler(factory func(map[string]any) reflect.Value, kwargs map[string]any, m reflect.Method) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		instance := factory(kwargs)
		return instance.Method(m.Index).Interface().(func(http.ResponseWriter, *http.Request) error)(w, r)
	}
}
