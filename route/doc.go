// Package route serves HTTP handlers whose inputs are declared as typed
// models and documents them as an OpenAPI 3.1 document.
//
// A route declares where its inputs come from. Each source is decoded
// into a new value of the declared type, coerced and validated before
// the handler runs; failures are answered with a list of error details
// (status 422 by default) and the handler is not called.
//
//	type BookPath struct {
//	    BID int `json:"bid" validate:"gte=1"`
//	}
//
//	type BookQuery struct {
//	    Age    *int   `json:"age"`
//	    Author string `json:"author" validate:"required"`
//	}
//
//	app := route.New(openapi.Info{Title: "Books", Version: "1.0.0"})
//	app.Get("/book/<int:bid>", func(w http.ResponseWriter, r *http.Request) error {
//	    path := route.Path[BookPath](r)
//	    query := route.Query[BookQuery](r)
//	    return route.JSON(w, http.StatusOK, lookup(path.BID, query.Author))
//	}, route.WithPath(BookPath{}), route.WithQuery(BookQuery{}), route.Response(200, Book{}))
//
// Inputs are read in a fixed order: header, cookie, path, query, form,
// body, raw. The first source that fails stops the others.
//
// URL rules accept <name>, <converter:name> (string, int, float, uuid,
// path) and {name} variables; the document uses {name} templates.
//
// Blueprints group routes under a prefix with default tags, security and
// responses and can be nested; views bind struct methods (Get, Post, ...)
// to a rule. Registration mistakes (duplicate routes, invalid models,
// conflicting component names) panic at startup.
//
// The App serves the document as JSON and YAML under Config.DocPrefix and
// rebuilds it after every registration.
package route
