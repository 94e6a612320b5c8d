package route

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/vitalvas/oasroute/model"
	"github.com/vitalvas/oasroute/openapi"
)

// ValidationErrorSchema is the component name of the default validation
// error model.
const ValidationErrorSchema = "ValidationErrorModel"

// ValidationErrorHandler writes the response for a request whose inputs
// failed validation.
type ValidationErrorHandler func(w http.ResponseWriter, r *http.Request, status int, err *model.ValidationError)

// App is the application: a chi router serving every registered route
// and the OpenAPI document describing them.
//
// Middlewares added with Use must be registered before the first route.
type App struct {
	*scaffold

	cfg     Config
	router  *chi.Mux
	plugins []openapi.UIPlugin

	validationModel    any
	validationCallback ValidationErrorHandler

	docsOnce sync.Once
	mu       sync.Mutex
	doc      map[string]any
}

// AppOption configures an App.
type AppOption func(*App)

// WithConfig replaces the default configuration. The config is finalized.
func WithConfig(cfg Config) AppOption {
	return func(a *App) { a.cfg = cfg }
}

// WithLogger sets the logger used for registration and error reports.
// Blueprints use it from the moment they are registered on the app.
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) { a.setLogger(logger) }
}

// WithValidationErrorStatus sets the status of validation failures.
func WithValidationErrorStatus(status int) AppOption {
	return func(a *App) { a.cfg.ValidationErrorStatus = status }
}

// WithValidationErrorModel documents validation failures with v's schema
// instead of the built-in error detail model.
func WithValidationErrorModel(v any) AppOption {
	return func(a *App) { a.validationModel = v }
}

// WithValidationErrorCallback replaces the default validation failure
// response, a JSON array of error details.
func WithValidationErrorCallback(fn ValidationErrorHandler) AppOption {
	return func(a *App) { a.validationCallback = fn }
}

// WithPlugins adds UI plugins to the documentation selector page.
func WithPlugins(plugins ...openapi.UIPlugin) AppOption {
	return func(a *App) { a.plugins = append(a.plugins, plugins...) }
}

// New creates an application. Invalid configuration panics.
func New(info openapi.Info, opts ...AppOption) *App {
	a := &App{
		scaffold: newScaffold("app", "", info),
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.cfg.Finalize(); err != nil {
		panic(err)
	}
	for _, name := range a.cfg.UIPlugins {
		if p, ok := openapi.PluginByName(name); ok {
			a.plugins = append(a.plugins, p)
		}
	}

	a.onMount = a.serve
	a.onChange = a.invalidate
	return a
}

// Config returns the finalized configuration.
func (a *App) Config() Config {
	return a.cfg
}

// Router returns the underlying chi router, for mounting handlers that
// are not documented.
func (a *App) Router() chi.Router {
	return a.router
}

// Use adds middlewares to the router.
func (a *App) Use(mw ...func(http.Handler) http.Handler) *App {
	a.router.Use(mw...)
	return a
}

// ErrorHandler sets the application error handler, used when neither a
// route's blueprint nor its parents handle the error.
func (a *App) ErrorHandler(fn ErrorHandler) *App {
	a.errorHandler = fn
	return a
}

// Response declares a default response for every route declared on the
// application afterwards.
func (a *App) Response(status int, v any) *App {
	a.setResponse(strconv.Itoa(status), v)
	return a
}

// OperationIDFunc sets the operation id derivation for application routes.
func (a *App) OperationIDFunc(fn OperationIDFunc) *App {
	a.operationID = fn
	return a
}

// Tag registers a document tag. The first registration of a name wins.
func (a *App) Tag(tag openapi.Tag) *App {
	a.spec.AddTag(tag)
	a.invalidate()
	return a
}

// Server adds a document server.
func (a *App) Server(server openapi.Server) *App {
	a.spec.AddServer(server)
	a.invalidate()
	return a
}

// SecurityScheme registers a security scheme component.
func (a *App) SecurityScheme(name string, scheme *openapi.SecurityScheme) *App {
	a.spec.AddSecurityScheme(name, scheme)
	a.invalidate()
	return a
}

// Security sets the document-level security requirements.
func (a *App) Security(reqs ...openapi.SecurityRequirement) *App {
	a.spec.SetSecurity(reqs...)
	a.invalidate()
	return a
}

// ExternalDocs sets the document external documentation link.
func (a *App) ExternalDocs(url, description string) *App {
	a.spec.SetExternalDocs(url, description)
	a.invalidate()
	return a
}

// Extension sets a top-level x- extension on the document.
func (a *App) Extension(key string, value any) *App {
	a.spec.SetExtension(key, value)
	a.invalidate()
	return a
}

// Webhook documents a webhook operation.
func (a *App) Webhook(name, method string, op *openapi.Operation) *App {
	a.spec.AddWebhook(name, method, op)
	a.invalidate()
	return a
}

// RegisterAPI serves a blueprint and merges its documentation.
func (a *App) RegisterAPI(bp *Blueprint) *App {
	a.registerAPI(bp.scaffold)
	return a
}

// ServeHTTP dispatches to the registered routes. The documentation
// endpoints are mounted on the first request.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.docsOnce.Do(a.mountDocs)
	a.router.ServeHTTP(w, r)
}

func (a *App) mountDocs() {
	if !a.cfg.DocsEnabled() {
		return
	}
	openapi.Handle(a.router, a.cfg.DocPrefix, a.APIDoc, &openapi.HandleConfig{
		JSONPath: a.cfg.DocURL,
		YAMLPath: a.cfg.YAMLURL,
		Indent:   a.cfg.JSONIndent,
		Plugins:  a.plugins,
	})
}

// serve adds a mount to the router.
func (a *App) serve(m mount) {
	pattern, wildcard := chiPattern(m.rule)
	ep, handler, chain := m.ep, m.handler, m.chain

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in, verr := ep.adapter.bind(r, wildcard, a.cfg.MaxBodySize)
		if verr != nil {
			a.logger.Debug("request validation failed",
				slog.String("endpoint", ep.name),
				slog.String("path", r.URL.Path),
				slog.Int("errors", len(verr.Errors)),
			)
			a.validationFailed(w, r, verr)
			return
		}

		r = withInputs(r, in)
		if err := handler(w, r); err != nil {
			a.handleError(chain, w, r, err)
		}
	})

	a.router.Method(ep.method, pattern, m.wrap(h))
}

func (a *App) validationFailed(w http.ResponseWriter, r *http.Request, err *model.ValidationError) {
	status := a.cfg.ValidationErrorStatus
	if a.validationCallback != nil {
		a.validationCallback(w, r, status, err)
		return
	}
	_ = JSON(w, status, err.Errors)
}

// handleError passes err to the nearest error handler of the route's
// scaffolds, falling back to a JSON error body.
func (a *App) handleError(chain []*scaffold, w http.ResponseWriter, r *http.Request, err error) {
	if h := errorHandlerFor(chain); h != nil {
		h(w, r, err)
		return
	}

	var he *HTTPError
	if errors.As(err, &he) {
		_ = JSON(w, he.Status, errorBody{Code: he.Status, Message: he.Message})
		return
	}

	a.logger.Error("handler failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	_ = JSON(w, http.StatusInternalServerError, errorBody{
		Code:    http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
	})
}

func (a *App) invalidate() {
	a.mu.Lock()
	a.doc = nil
	a.mu.Unlock()
}

// APIDoc returns the document in its JSON dictionary form. The result is
// cached until the next registration.
func (a *App) APIDoc() (map[string]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc != nil {
		return a.doc, nil
	}

	doc, err := a.buildDocument()
	if err != nil {
		return nil, err
	}
	m, err := openapi.ToMap(doc)
	if err != nil {
		return nil, err
	}
	a.doc = m
	return m, nil
}

// Document builds and validates the document.
func (a *App) Document() (*openapi.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buildDocument()
}

// buildDocument registers the validation error model, assembles the
// document and adds the validation response to every operation with
// inputs.
func (a *App) buildDocument() (*openapi.Document, error) {
	name, err := a.validationSchema()
	if err != nil {
		return nil, err
	}

	doc := a.spec.Build()

	status := strconv.Itoa(a.cfg.ValidationErrorStatus)
	for _, item := range doc.Paths {
		for _, op := range item.Operations() {
			if op.HasInputs() {
				op.EnsureResponse(status, openapi.ValidationErrorResponse(status, name))
			}
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (a *App) validationSchema() (string, error) {
	gen := a.spec.Generator()
	if a.validationModel == nil {
		return ValidationErrorSchema, gen.AddSchema(ValidationErrorSchema, gen.Inline(model.ErrorDetail{}))
	}
	if name := gen.Ref(a.validationModel); name != "" {
		return name, nil
	}
	return ValidationErrorSchema, gen.AddSchema(ValidationErrorSchema, openapi.ResolveSchema(gen, a.validationModel))
}
