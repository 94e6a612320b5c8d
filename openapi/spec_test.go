package openapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecTags(t *testing.T) {
	s := NewSpec(Info{Title: "Books", Version: "1.0.0"})
	s.AddTag(Tag{Name: "books", Description: "first"}).
		AddTag(Tag{Name: "authors"}).
		AddTag(Tag{Name: "books", Description: "second"})

	require.Len(t, s.Tags(), 2)
	assert.Equal(t, "first", s.Tags()[0].Description)
	assert.Equal(t, "authors", s.Tags()[1].Name)
}

func TestSpecOperations(t *testing.T) {
	t.Run("add and lookup", func(t *testing.T) {
		s := NewSpec(Info{Title: "Books", Version: "1.0.0"})
		op := &Operation{OperationID: "list_books"}

		require.NoError(t, s.AddOperation("/books", http.MethodGet, op))
		assert.Same(t, op, s.Operation("/books", "get"))
		assert.Nil(t, s.Operation("/books", http.MethodPost))
		assert.Nil(t, s.Operation("/authors", http.MethodGet))
	})

	t.Run("same operation twice", func(t *testing.T) {
		s := NewSpec(Info{})
		op := &Operation{}
		require.NoError(t, s.AddOperation("/books", "get", op))
		assert.NoError(t, s.AddOperation("/books", "GET", op))
	})

	t.Run("duplicate operation", func(t *testing.T) {
		s := NewSpec(Info{})
		require.NoError(t, s.AddOperation("/books", "get", &Operation{}))

		err := s.AddOperation("/books", "get", &Operation{})
		assert.ErrorIs(t, err, ErrDuplicateOperation)
		assert.Contains(t, err.Error(), "GET /books")
	})

	t.Run("path order", func(t *testing.T) {
		s := NewSpec(Info{})
		require.NoError(t, s.AddOperation("/b", "get", &Operation{}))
		require.NoError(t, s.AddOperation("/a", "get", &Operation{}))
		require.NoError(t, s.AddOperation("/b", "post", &Operation{}))
		assert.Equal(t, []string{"/b", "/a"}, s.Paths())
	})

	t.Run("path item methods", func(t *testing.T) {
		item := &PathItem{}
		get, del := &Operation{}, &Operation{}
		item.SetOperation("get", get)
		item.SetOperation(http.MethodDelete, del)
		item.SetOperation("connect", &Operation{})

		assert.Same(t, get, item.Get)
		assert.Same(t, del, item.Operation("delete"))
		assert.Nil(t, item.Operation("connect"))
		assert.Equal(t, map[string]*Operation{"get": get, "delete": del}, item.Operations())
	})
}

func TestSpecMerge(t *testing.T) {
	type mergedBook struct {
		Title string `json:"title"`
	}

	t.Run("paths under prefix", func(t *testing.T) {
		parent := NewSpec(Info{Title: "Books", Version: "1.0.0"})
		child := NewSpec(Info{})

		op := &Operation{OperationID: "get_book"}
		require.NoError(t, child.AddOperation("/books/{id}", "get", op))
		child.PathItem("/books/{id}").Summary = "A book"
		child.AddTag(Tag{Name: "books"})
		child.AddSecurityScheme("apiKey", &SecurityScheme{Type: "apiKey", Name: "X-Key", In: "header"})
		child.Generator().Generate(mergedBook{})

		require.NoError(t, parent.Merge(child, "/api"))

		assert.Same(t, op, parent.Operation("/api/books/{id}", "get"))
		assert.Equal(t, "A book", parent.PathItem("/api/books/{id}").Summary)
		assert.Equal(t, []Tag{{Name: "books"}}, parent.Tags())

		doc := parent.Build()
		require.NotNil(t, doc.Components)
		assert.Contains(t, doc.Components.Schemas, "mergedBook")
		assert.Contains(t, doc.Components.SecuritySchemes, "apiKey")
	})

	t.Run("parent security scheme wins", func(t *testing.T) {
		parent := NewSpec(Info{})
		child := NewSpec(Info{})
		parent.AddSecurityScheme("auth", &SecurityScheme{Type: "http", Scheme: "bearer"})
		child.AddSecurityScheme("auth", &SecurityScheme{Type: "http", Scheme: "basic"})

		require.NoError(t, parent.Merge(child, ""))
		assert.Equal(t, "bearer", parent.Build().Components.SecuritySchemes["auth"].Scheme)
	})

	t.Run("conflicting operation", func(t *testing.T) {
		parent := NewSpec(Info{})
		child := NewSpec(Info{})
		require.NoError(t, parent.AddOperation("/api/books", "get", &Operation{}))
		require.NoError(t, child.AddOperation("/books", "get", &Operation{}))

		assert.ErrorIs(t, parent.Merge(child, "/api"), ErrDuplicateOperation)
	})

	t.Run("self", func(t *testing.T) {
		s := NewSpec(Info{})
		assert.NoError(t, s.Merge(s, "/api"))
	})
}

func TestSpecBuild(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		doc := NewSpec(Info{Title: "Books", Version: "1.0.0"}).Build()
		assert.Equal(t, Version, doc.OpenAPI)
		assert.Equal(t, "Books", doc.Info.Title)
		assert.Empty(t, doc.Paths)
		assert.Nil(t, doc.Components)
		assert.Nil(t, doc.Tags)
		assert.Nil(t, doc.Webhooks)
	})

	t.Run("document level settings", func(t *testing.T) {
		s := NewSpec(Info{Title: "Books", Version: "1.0.0"})
		s.AddServer(Server{URL: "https://api.example.com"}).
			SetExternalDocs("https://example.com/docs", "Guide").
			SetSecurity(SecurityRequirement{"apiKey": {}}).
			SetExtension("x-logo", "logo.png").
			AddWebhook("newBook", http.MethodPost, &Operation{OperationID: "new_book"}).
			AddComponentResponse("NotFound", &Response{Description: "Not found"}).
			AddComponentParameter("Limit", &Parameter{Name: "limit", In: InQuery}).
			AddComponentExample("Dune", &Example{Summary: "Dune"})

		doc := s.Build()
		assert.Equal(t, []Server{{URL: "https://api.example.com"}}, doc.Servers)
		assert.Equal(t, &ExternalDocs{URL: "https://example.com/docs", Description: "Guide"}, doc.ExternalDocs)
		assert.Len(t, doc.Security, 1)
		assert.Equal(t, "logo.png", doc.Extensions["x-logo"])
		require.Contains(t, doc.Webhooks, "newBook")
		assert.Equal(t, "new_book", doc.Webhooks["newBook"].Post.OperationID)

		require.NotNil(t, doc.Components)
		assert.Contains(t, doc.Components.Responses, "NotFound")
		assert.Contains(t, doc.Components.Parameters, "Limit")
		assert.Contains(t, doc.Components.Examples, "Dune")
		assert.Nil(t, doc.Components.Schemas)
	})

	t.Run("later registrations appear", func(t *testing.T) {
		s := NewSpec(Info{})
		first := s.Build()
		require.NoError(t, s.AddOperation("/books", "get", &Operation{}))
		second := s.Build()

		assert.Empty(t, first.Paths)
		assert.Contains(t, second.Paths, "/books")
	})
}
