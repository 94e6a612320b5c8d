package route

import (
	"net/http"
	"strconv"

	"github.com/vitalvas/oasroute/openapi"
)

// Blueprint groups routes under a URL prefix with shared documentation
// defaults. Its routes are served once it is registered on an App, either
// directly or through parent blueprints:
//
//	books := route.NewBlueprint("books", "/books").TagNames("Books")
//	books.Get("/<int:bid>", getBook, route.WithPath(BookPath{}))
//	app.RegisterAPI(books)
//
// Routes declared after registration are not picked up by the parent.
type Blueprint struct {
	*scaffold
}

// NewBlueprint creates a blueprint serving its routes under prefix.
func NewBlueprint(name, prefix string) *Blueprint {
	return &Blueprint{scaffold: newScaffold(name, prefix, openapi.Info{})}
}

// Name returns the blueprint name.
func (b *Blueprint) Name() string {
	return b.name
}

// Prefix returns the URL prefix.
func (b *Blueprint) Prefix() string {
	return b.prefix
}

// Tags adds default tags to every route declared afterwards.
func (b *Blueprint) Tags(tags ...openapi.Tag) *Blueprint {
	b.tags = append(b.tags, tags...)
	return b
}

// TagNames adds default tags by name.
func (b *Blueprint) TagNames(names ...string) *Blueprint {
	for _, n := range names {
		b.tags = append(b.tags, openapi.Tag{Name: n})
	}
	return b
}

// Security appends default security requirements.
func (b *Blueprint) Security(reqs ...openapi.SecurityRequirement) *Blueprint {
	b.security = append(b.security, reqs...)
	return b
}

// Response declares a default response for every route.
func (b *Blueprint) Response(status int, v any) *Blueprint {
	b.setResponse(strconv.Itoa(status), v)
	return b
}

// OperationIDFunc sets the operation id derivation for routes without an
// explicit id.
func (b *Blueprint) OperationIDFunc(fn OperationIDFunc) *Blueprint {
	b.operationID = fn
	return b
}

// HideDocs serves the blueprint's routes without documenting them.
func (b *Blueprint) HideDocs() *Blueprint {
	b.hideDocs = true
	return b
}

// ErrorHandler handles errors returned by the blueprint's routes and by
// routes of blueprints nested inside it that have no handler of their own.
func (b *Blueprint) ErrorHandler(fn ErrorHandler) *Blueprint {
	b.errorHandler = fn
	return b
}

// Use adds middlewares wrapping every route of the blueprint.
func (b *Blueprint) Use(mw ...func(http.Handler) http.Handler) *Blueprint {
	b.middlewares = append(b.middlewares, mw...)
	return b
}

// RegisterAPI nests child under this blueprint's prefix. Registering a
// blueprint on itself panics with ErrSelfRegistration.
func (b *Blueprint) RegisterAPI(child *Blueprint) *Blueprint {
	b.registerAPI(child.scaffold)
	return b
}
