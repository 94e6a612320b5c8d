package route

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/oasroute/openapi"
)

type store struct{}

func (*store) list(http.ResponseWriter, *http.Request) error { return nil }

func buildTestOperation(t *testing.T, d defaults, rule, method string, opts ...Option) *openapi.Operation {
	t.Helper()
	cfg := newRouteConfig(opts)
	require.NoError(t, errors.Join(cfg.errs...))
	return d.buildOperation(openapi.NewSpec(openapi.Info{}), cfg, "getBook", rule, method)
}

func parameterNames(op *openapi.Operation) []string {
	names := make([]string, 0, len(op.Parameters))
	for _, p := range op.Parameters {
		names = append(names, p.In+":"+p.Name)
	}
	return names
}

func TestDefaultOperationID(t *testing.T) {
	tests := []struct {
		name, path, method string
		want               string
	}{
		{"get_book", "/book/{bid}", http.MethodGet, "get_book_book__bid__get"},
		{"Store.list", "/v1/books", http.MethodPost, "Store_list_v1_books_post"},
		{"ping", "/", http.MethodHead, "ping__head"},
		{"files", "/files/{name}", http.MethodDelete, "files_files__name__delete"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultOperationID(tt.name, tt.path, tt.method))
		})
	}
}

func TestSplitDocString(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		summary     string
		description string
	}{
		{"empty", "", "", ""},
		{"blank", "  \n\n ", "", ""},
		{"summary only", "Get a book", "Get a book", ""},
		{"description", "Get a book\n\n  Looks the book up by id.\n  Returns 404 when missing.", "Get a book", "Looks the book up by id.<br/>Returns 404 when missing."},
		{"leading blank lines", "\n\n  List books\n  Paginated.", "List books", "Paginated."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, description := splitDocString(tt.doc)
			assert.Equal(t, tt.summary, summary)
			assert.Equal(t, tt.description, description)
		})
	}
}

func TestHandlerName(t *testing.T) {
	assert.Equal(t, "getBook", handlerName(HandlerFunc(getBook)))
	assert.Equal(t, "noContent", handlerName(noContent))
	assert.Equal(t, "store.list", handlerName((&store{}).list))
	assert.Equal(t, "handler", handlerName((func())(nil)))
}

func TestChiPattern(t *testing.T) {
	tests := []struct {
		rule     string
		pattern  string
		wildcard string
		template string
	}{
		{"", "/", "", "/"},
		{"/", "/", "", "/"},
		{"/book/<int:bid>", "/book/{bid:[0-9]+}", "", "/book/{bid}"},
		{"/book/<int(min=1):bid>", "/book/{bid:[0-9]+}", "", "/book/{bid}"},
		{"/price/<float:amount>", `/price/{amount:[0-9]+(?:\.[0-9]+)?}`, "", "/price/{amount}"},
		{"/user/<uuid:id>", "/user/{id:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}}", "", "/user/{id}"},
		{"/user/<name>", "/user/{name}", "", "/user/{name}"},
		{"/user/<string:name>", "/user/{name}", "", "/user/{name}"},
		{"/user/{id}", "/user/{id}", "", "/user/{id}"},
		{"/files/<path:name>", "/files/*", "name", "/files/{name}"},
	}
	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			pattern, wildcard := chiPattern(tt.rule)
			assert.Equal(t, tt.pattern, pattern)
			assert.Equal(t, tt.wildcard, wildcard)
			assert.Equal(t, tt.template, template(tt.rule))
		})
	}
}

func TestBuildOperation(t *testing.T) {
	t.Run("documentation precedence", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodGet,
			DocString("List books\n\nReturns every book."),
		)
		assert.Equal(t, "List books", op.Summary)
		assert.Equal(t, "Returns every book.", op.Description)
		assert.Equal(t, "getBook_books_get", op.OperationID)

		op = buildTestOperation(t, defaults{}, "/books", http.MethodGet,
			DocString("List books\n\nReturns every book."),
			Summary("Books"),
			Description("All of them."),
			OperationID("listBooks"),
		)
		assert.Equal(t, "Books", op.Summary)
		assert.Equal(t, "All of them.", op.Description)
		assert.Equal(t, "listBooks", op.OperationID)
	})

	t.Run("metadata", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodGet,
			ExternalDocs("https://example.com/books", "Guide"),
			Deprecated(),
			Servers(openapi.Server{URL: "https://books.example.com"}),
			Extension("x-internal", true),
		)
		require.NotNil(t, op.ExternalDocs)
		assert.Equal(t, "https://example.com/books", op.ExternalDocs.URL)
		assert.Equal(t, "Guide", op.ExternalDocs.Description)
		assert.True(t, op.Deprecated)
		require.Len(t, op.Servers, 1)
		assert.Equal(t, "https://books.example.com", op.Servers[0].URL)
		assert.Equal(t, true, op.Extensions["x-internal"])
	})

	t.Run("tags and security", func(t *testing.T) {
		d := defaults{
			tags:     []openapi.Tag{{Name: "books"}},
			security: []openapi.SecurityRequirement{{"basic": {}}},
		}
		op := buildTestOperation(t, d, "/books", http.MethodGet,
			TagNames("catalogue", "books"),
			Security(openapi.SecurityRequirement{"apiKey": {}}),
		)
		assert.Equal(t, []string{"catalogue", "books"}, op.Tags)
		require.Len(t, op.Security, 2)
		assert.Contains(t, op.Security[0], "apiKey")
		assert.Contains(t, op.Security[1], "basic")

		assert.Nil(t, buildTestOperation(t, defaults{}, "/books", http.MethodGet).Security)
	})

	t.Run("custom operation id func", func(t *testing.T) {
		d := defaults{operationID: func(name, path, method string) string {
			return method + " " + path
		}}
		op := buildTestOperation(t, d, "/book/<int:bid>", http.MethodGet)
		assert.Equal(t, "GET /book/{bid}", op.OperationID)
	})

	t.Run("hidden", func(t *testing.T) {
		assert.Nil(t, buildTestOperation(t, defaults{}, "/books", http.MethodGet, Hidden()))
		assert.Nil(t, buildTestOperation(t, defaults{hideDocs: true}, "/books", http.MethodGet))
	})

	t.Run("parameters in source order", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/book/<int:bid>/<int:rev>", http.MethodGet,
			WithQuery(bookQuery{}),
			WithPath(bookPath{}),
			WithCookie(sessionCookie{}),
			WithHeader(helloHeader{}),
		)
		assert.Equal(t, []string{
			"path:rev",
			"header:hello_world",
			"header:x-client",
			"header:accept",
			"cookie:session",
			"cookie:ui-theme",
			"path:bid",
			"query:age",
			"query:author",
		}, parameterNames(op))

		byName := make(map[string]*openapi.Parameter)
		for _, p := range op.Parameters {
			byName[p.Name] = p
		}
		assert.True(t, byName["bid"].Required)
		assert.True(t, byName["rev"].Required)
		assert.True(t, byName["author"].Required)
		assert.False(t, byName["age"].Required)
		assert.False(t, byName["x-client"].Required)
	})

	t.Run("query lists explode", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodGet, WithQuery(listQuery{}))
		require.Len(t, op.Parameters, 2)

		tag := op.Parameters[0]
		assert.Equal(t, "tag", tag.Name)
		assert.Equal(t, "form", tag.Style)
		require.NotNil(t, tag.Explode)
		assert.True(t, *tag.Explode)

		limit := op.Parameters[1]
		assert.Equal(t, "limit", limit.Name)
		assert.Empty(t, limit.Style)
		assert.Nil(t, limit.Explode)
		assert.False(t, limit.Required)
	})

	t.Run("form body encodings", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/covers", http.MethodPost, WithForm(coverForm{}))
		require.NotNil(t, op.RequestBody)
		assert.True(t, op.RequestBody.Required)

		media := op.RequestBody.Content["multipart/form-data"]
		require.NotNil(t, media)
		require.NotNil(t, media.Schema)
		assert.Equal(t, "application/octet-stream", media.Encoding["file"].ContentType)
		assert.Equal(t, "application/json", media.Encoding["meta"].ContentType)
		assert.NotContains(t, media.Encoding, "caption")
		assert.NotContains(t, media.Encoding, "tags")
	})

	t.Run("form content type and extras", func(t *testing.T) {
		optional := false
		op := buildTestOperation(t, defaults{}, "/login", http.MethodPost,
			WithForm(loginForm{}),
			ExtraForm(Extra{
				ContentType: "application/x-www-form-urlencoded",
				Description: "Credentials",
				Required:    &optional,
				Example:     map[string]any{"user": "ann"},
			}),
		)
		body := op.RequestBody
		require.NotNil(t, body)
		assert.Equal(t, "Credentials", body.Description)
		assert.False(t, body.Required)

		media := body.Content["application/x-www-form-urlencoded"]
		require.NotNil(t, media)
		assert.Equal(t, map[string]any{"user": "ann"}, media.Example)
		assert.Nil(t, media.Encoding)
	})

	t.Run("json body extras", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodPost,
			WithBody(bookBody{}),
			ExtraBody(Extra{
				Description: "The book",
				Examples:    map[string]*openapi.Example{"dune": {Value: map[string]any{"age": 1}}},
			}),
		)
		body := op.RequestBody
		require.NotNil(t, body)
		assert.Equal(t, "The book", body.Description)
		assert.True(t, body.Required)

		media := body.Content["application/json"]
		require.NotNil(t, media)
		require.NotNil(t, media.Schema)
		assert.Contains(t, media.Examples, "dune")
	})

	t.Run("form and body share the request body", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodPost,
			WithForm(loginForm{}),
			WithBody(bookBody{}),
		)
		require.NotNil(t, op.RequestBody)
		assert.Contains(t, op.RequestBody.Content, "multipart/form-data")
		assert.Contains(t, op.RequestBody.Content, "application/json")
	})

	t.Run("union body with raw types", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodPost,
			WithBodyContent("application/json", bookBody{}),
			WithRawBody("text/plain", "application/json"),
		)
		content := op.RequestBody.Content
		require.Len(t, content, 2)
		assert.NotEmpty(t, content["application/json"].Schema.Ref)
		assert.Equal(t, &openapi.Schema{}, content["text/plain"].Schema)
	})

	t.Run("responses", func(t *testing.T) {
		d := defaults{}
		d.setResponse("404", errOut{})
		d.setResponse("500", errOut{})

		op := buildTestOperation(t, d, "/books", http.MethodGet,
			Response(http.StatusOK, []bookOut{}),
			Response(http.StatusNotFound, &openapi.Response{Description: "No such book"}),
			ResponseKey("default", nil),
		)

		require.Len(t, op.Responses, 4)
		assert.Equal(t, "OK", op.Responses["200"].Description)
		assert.Contains(t, op.Responses["200"].Content, "application/json")

		notFound := op.Responses["404"]
		assert.Equal(t, "No such book", notFound.Description)
		assert.Contains(t, notFound.Content, "application/json")

		assert.Equal(t, "Internal Server Error", op.Responses["500"].Description)
		assert.Equal(t, "Default response", op.Responses["default"].Description)
		assert.Nil(t, op.Responses["default"].Content)
	})

	t.Run("no responses", func(t *testing.T) {
		op := buildTestOperation(t, defaults{}, "/books", http.MethodGet)
		assert.Nil(t, op.Responses)
		assert.Nil(t, op.Parameters)
		assert.Nil(t, op.RequestBody)
	})
}
