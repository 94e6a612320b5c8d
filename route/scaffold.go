package route

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vitalvas/oasroute/openapi"
)

// HandlerFunc serves a request whose declared inputs were validated.
// A returned error is passed to the nearest error handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ErrorHandler writes the response for an error returned by a handler.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Endpoint is a declared handler with its inputs and documentation.
type Endpoint struct {
	owner   *scaffold
	name    string
	method  string
	handler HandlerFunc
	cfg     *routeConfig
	adapter *adapter
	ops     map[string]*openapi.Operation
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string {
	return e.name
}

// Method returns the HTTP method.
func (e *Endpoint) Method() string {
	return e.method
}

// Operation returns the documented operation for a rule (including the
// owner's prefix), or nil when the endpoint is hidden or not served there.
func (e *Endpoint) Operation(rule string) *openapi.Operation {
	return e.ops[template(rule)]
}

// Alias serves the endpoint under an additional rule. The inputs and
// their adapter are shared; the rule gets its own operation. View
// endpoints have no owner and cannot be aliased.
func (e *Endpoint) Alias(rule string) *Endpoint {
	if e.owner == nil {
		registrationPanic(ErrInvalidView, "view endpoint %s cannot be aliased", e.name)
	}
	e.owner.register(e, rule, e.handler)
	return e
}

// mount is one endpoint served under one rule, as seen by a scaffold.
type mount struct {
	ep      *Endpoint
	handler HandlerFunc
	rule    string
	// chain lists the scaffolds the route passed through, nearest first.
	chain []*scaffold
}

// scaffold is the core shared by App and Blueprint: a URL prefix, a local
// document registry, documentation defaults and the mounts collected so
// far.
type scaffold struct {
	name   string
	prefix string
	spec   *openapi.Spec
	defaults

	errorHandler ErrorHandler
	middlewares  []func(http.Handler) http.Handler

	mounts []mount
	routes map[string]*Endpoint

	// onMount is called for every new mount; the App serves it.
	onMount func(mount)
	// onChange is called after anything that alters the document.
	onChange func()
	logger   *slog.Logger
	children []*scaffold
}

func newScaffold(name, prefix string, info openapi.Info) *scaffold {
	return &scaffold{
		name:   name,
		prefix: prefix,
		spec:   openapi.NewSpec(info),
		routes: make(map[string]*Endpoint),
		logger: slog.Default(),
	}
}

func (s *scaffold) core() *scaffold {
	return s
}

// Get registers a GET route.
func (s *scaffold) Get(rule string, h HandlerFunc, opts ...Option) *Endpoint {
	return s.Handle(http.MethodGet, rule, h, opts...)
}

// Post registers a POST route.
func (s *scaffold) Post(rule string, h HandlerFunc, opts ...Option) *Endpoint {
	return s.Handle(http.MethodPost, rule, h, opts...)
}

// Put registers a PUT route.
func (s *scaffold) Put(rule string, h HandlerFunc, opts ...Option) *Endpoint {
	return s.Handle(http.MethodPut, rule, h, opts...)
}

// Patch registers a PATCH route.
func (s *scaffold) Patch(rule string, h HandlerFunc, opts ...Option) *Endpoint {
	return s.Handle(http.MethodPatch, rule, h, opts...)
}

// Delete registers a DELETE route.
func (s *scaffold) Delete(rule string, h HandlerFunc, opts ...Option) *Endpoint {
	return s.Handle(http.MethodDelete, rule, h, opts...)
}

// Handle registers a route for method. Invalid input declarations and
// conflicting registrations panic.
func (s *scaffold) Handle(method, rule string, h HandlerFunc, opts ...Option) *Endpoint {
	cfg := newRouteConfig(opts)
	if err := errors.Join(cfg.errs...); err != nil {
		panic(err)
	}

	name := cfg.name
	if name == "" {
		name = handlerName(h)
	}

	ep := &Endpoint{
		owner:   s,
		name:    name,
		method:  strings.ToUpper(method),
		handler: h,
		cfg:     cfg,
		adapter: newAdapter(cfg),
		ops:     make(map[string]*openapi.Operation),
	}

	s.register(ep, rule, h)
	return ep
}

// register documents ep under rule and mounts it.
func (s *scaffold) register(ep *Endpoint, rule string, h HandlerFunc) {
	full := openapi.JoinPath(s.prefix, rule)

	if existing, ok := s.routes[routeKey(ep.method, full)]; ok {
		if existing == ep {
			return
		}
		registrationPanic(ErrDuplicateRoute, "%s %s is served by %s", ep.method, template(full), existing.name)
	}

	if op := s.buildOperation(s.spec, ep.cfg, ep.name, full, ep.method); op != nil {
		mustRegister(s.spec.AddOperation(template(full), ep.method, op))
		ep.ops[template(full)] = op
	}

	s.addMount(mount{ep: ep, handler: h, rule: full, chain: []*scaffold{s}})
}

// addMount records m unless the same endpoint already serves its rule.
func (s *scaffold) addMount(m mount) {
	key := routeKey(m.ep.method, m.rule)
	if existing, ok := s.routes[key]; ok {
		if existing == m.ep {
			return
		}
		registrationPanic(ErrDuplicateRoute, "%s %s is served by %s", m.ep.method, template(m.rule), existing.name)
	}

	s.routes[key] = m.ep
	s.mounts = append(s.mounts, m)
	s.logger.Debug("route registered",
		slog.String("scaffold", s.name),
		slog.String("method", m.ep.method),
		slog.String("rule", m.rule),
		slog.String("endpoint", m.ep.name),
	)

	if s.onMount != nil {
		s.onMount(m)
	}
	s.changed()
}

// registerAPI absorbs the routes and registry of child under s's prefix.
func (s *scaffold) registerAPI(child *scaffold) {
	if child == s {
		registrationPanic(ErrSelfRegistration, "%s", s.name)
	}

	mustRegister(s.spec.Merge(child.spec, s.prefix))

	s.children = append(s.children, child)
	child.setLogger(s.logger)

	for _, m := range child.mounts {
		chain := append(append([]*scaffold(nil), m.chain...), s)
		s.addMount(mount{
			ep:      m.ep,
			handler: m.handler,
			rule:    openapi.JoinPath(s.prefix, m.rule),
			chain:   chain,
		})
	}
	s.changed()
}

// setLogger hands logger down to s and every scaffold nested in it.
func (s *scaffold) setLogger(logger *slog.Logger) {
	s.logger = logger
	for _, c := range s.children {
		c.setLogger(logger)
	}
}

func (s *scaffold) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// errorHandlerFor returns the nearest error handler along the chain.
func errorHandlerFor(chain []*scaffold) ErrorHandler {
	for _, sc := range chain {
		if sc.errorHandler != nil {
			return sc.errorHandler
		}
	}
	return nil
}

// wrap applies the route and scaffold middlewares, innermost first.
func (m mount) wrap(h http.Handler) http.Handler {
	h = chainMiddlewares(m.ep.cfg.middlewares, h)
	for _, sc := range m.chain {
		h = chainMiddlewares(sc.middlewares, h)
	}
	return h
}

// chainMiddlewares wraps h so that mws[0] runs first.
func chainMiddlewares(mws []func(http.Handler) http.Handler, h http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func routeKey(method, rule string) string {
	return method + " " + template(rule)
}
