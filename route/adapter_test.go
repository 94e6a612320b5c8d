package route

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vitalvas/oasroute/model"
)

type helloHeader struct {
	HelloWorld string   `json:"hello_world"`
	Client     string   `json:"x_client,omitempty" alias:"x-client"`
	Accept     []string `json:"accept,omitempty"`
}

type sessionCookie struct {
	Session string `json:"session" validate:"min=3"`
	Theme   string `json:"theme,omitempty" alias:"ui-theme"`
}

type coverForm struct {
	File    *multipart.FileHeader `json:"file" validate:"required"`
	Caption string                `json:"caption,omitempty"`
	Pages   int                   `json:"pages,omitempty"`
	Meta    map[string]any        `json:"meta,omitempty"`
	Tags    []string              `json:"tags,omitempty"`
}

type loginForm struct {
	User     string `json:"user"`
	Remember bool   `json:"remember,omitempty"`
	Scores   []int  `json:"scores,omitempty"`
}

type filesPath struct {
	Name string `json:"name"`
}

type listQuery struct {
	Tags  []string `json:"tag,omitempty"`
	Limit int      `json:"limit" default:"20" validate:"gte=1,lte=100"`
}

type tagList struct {
	model.RootModel[[]string]
}

func TestHeaderInput(t *testing.T) {
	app := newTestApp()
	app.Get("/hello", func(w http.ResponseWriter, r *http.Request) error {
		return JSON(w, http.StatusOK, Header[helloHeader](r))
	}, WithHeader(helloHeader{}))

	t.Run("name with dashes and alias", func(t *testing.T) {
		header := http.Header{}
		header.Set("Hello-World", "hi")
		header.Set("X-Client", "cli")
		header.Add("Accept", "text/plain")
		header.Add("Accept", "application/json")

		rec := request(t, app, http.MethodGet, "/hello", nil, header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"hello_world": "hi",
			"x_client": "cli",
			"accept": ["text/plain", "application/json"]
		}`, rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := request(t, app, http.MethodGet, "/hello", nil, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		details := errorDetails(t, rec)
		require.Len(t, details, 1)
		assert.Equal(t, "missing", details[0].Type)
		assert.Equal(t, []any{"hello_world"}, details[0].Loc)
	})
}

func TestCookieInput(t *testing.T) {
	app := newTestApp()
	app.Get("/me", func(w http.ResponseWriter, r *http.Request) error {
		return JSON(w, http.StatusOK, Cookie[sessionCookie](r))
	}, WithCookie(sessionCookie{}))

	t.Run("valid", func(t *testing.T) {
		header := http.Header{"Cookie": {"session=abcdef; ui-theme=dark"}}
		rec := request(t, app, http.MethodGet, "/me", nil, header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"session":"abcdef","theme":"dark"}`, rec.Body.String())
	})

	t.Run("too short", func(t *testing.T) {
		header := http.Header{"Cookie": {"session=ab"}}
		rec := request(t, app, http.MethodGet, "/me", nil, header)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "string_too_short", errorDetails(t, rec)[0].Type)
	})

	t.Run("header checked before cookie", func(t *testing.T) {
		app := newTestApp()
		app.Get("/both", noContent, WithHeader(helloHeader{}), WithCookie(sessionCookie{}))

		rec := request(t, app, http.MethodGet, "/both", nil, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, []any{"hello_world"}, errorDetails(t, rec)[0].Loc)
	})
}

func TestQueryInput(t *testing.T) {
	app := newTestApp()
	app.Get("/books", func(w http.ResponseWriter, r *http.Request) error {
		return JSON(w, http.StatusOK, Query[listQuery](r))
	}, WithQuery(listQuery{}))

	rec := request(t, app, http.MethodGet, "/books?tag=a&tag=b", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tag":["a","b"],"limit":20}`, rec.Body.String())

	rec = request(t, app, http.MethodGet, "/books?limit=x", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	details := errorDetails(t, rec)
	assert.Equal(t, "int_parsing", details[0].Type)
	assert.Equal(t, "x", details[0].Input)
}

func TestPathWildcard(t *testing.T) {
	app := newTestApp()
	app.Get("/files/<path:name>", func(w http.ResponseWriter, r *http.Request) error {
		return JSON(w, http.StatusOK, Path[filesPath](r))
	}, WithPath(filesPath{}))

	rec := request(t, app, http.MethodGet, "/files/covers/2024/dune.png", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"name":"covers/2024/dune.png"}`, rec.Body.String())

	doc, err := app.Document()
	require.NoError(t, err)
	assert.Contains(t, doc.Paths, "/files/{name}")
}

func multipartRequest(t *testing.T, fields map[string]string, file string) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", file)
		require.NoError(t, err)
		_, err = fw.Write([]byte("PNG"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, http.Header{"Content-Type": {mw.FormDataContentType()}}
}

func TestFormInput(t *testing.T) {
	type result struct {
		Filename string         `json:"filename"`
		Caption  string         `json:"caption"`
		Pages    int            `json:"pages"`
		Meta     map[string]any `json:"meta"`
		Tags     []string       `json:"tags"`
	}

	app := newTestApp()
	app.Post("/cover", func(w http.ResponseWriter, r *http.Request) error {
		form := Form[coverForm](r)
		return JSON(w, http.StatusOK, result{
			Filename: form.File.Filename,
			Caption:  form.Caption,
			Pages:    form.Pages,
			Meta:     form.Meta,
			Tags:     form.Tags,
		})
	}, WithForm(coverForm{}))

	t.Run("multipart", func(t *testing.T) {
		body, header := multipartRequest(t, map[string]string{
			"caption": "123",
			"pages":   "42",
			"meta":    `{"lang": "en"}`,
		}, "dune.png")

		rec := request(t, app, http.MethodPost, "/cover", body, header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{
			"filename": "dune.png",
			"caption": "123",
			"pages": 42,
			"meta": {"lang": "en"},
			"tags": null
		}`, rec.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		body, header := multipartRequest(t, map[string]string{"caption": "x"}, "")

		rec := request(t, app, http.MethodPost, "/cover", body, header)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		details := errorDetails(t, rec)
		assert.Equal(t, "missing", details[0].Type)
		assert.Equal(t, []any{"file"}, details[0].Loc)
	})

	t.Run("urlencoded", func(t *testing.T) {
		app := newTestApp()
		app.Post("/login", func(w http.ResponseWriter, r *http.Request) error {
			return JSON(w, http.StatusOK, Form[loginForm](r))
		}, WithForm(loginForm{}))

		values := url.Values{"user": {"ann"}, "remember": {"true"}, "scores": {"1", "2"}}
		header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}

		rec := request(t, app, http.MethodPost, "/login", strings.NewReader(values.Encode()), header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"user":"ann","remember":true,"scores":[1,2]}`, rec.Body.String())
	})

	t.Run("documented as multipart", func(t *testing.T) {
		doc, err := app.Document()
		require.NoError(t, err)

		body := doc.Paths["/cover"].Post.RequestBody
		require.NotNil(t, body)
		assert.True(t, body.Required)
		media := body.Content["multipart/form-data"]
		require.NotNil(t, media)
		assert.Equal(t, "application/octet-stream", media.Encoding["file"].ContentType)
		assert.Equal(t, "application/json", media.Encoding["meta"].ContentType)
		assert.NotContains(t, media.Encoding, "caption")
	})
}

func TestMsgPackBody(t *testing.T) {
	app := newTestApp()
	app.Post("/book", func(w http.ResponseWriter, r *http.Request) error {
		return Negotiate(w, r, http.StatusOK, Body[bookBody](r))
	}, WithBody(bookBody{}))

	data, err := msgpack.Marshal(map[string]any{"age": 7, "author": "ann"})
	require.NoError(t, err)

	header := http.Header{
		"Content-Type": {"application/msgpack"},
		"Accept":       {"application/msgpack"},
	}
	rec := request(t, app, http.MethodPost, "/book", bytes.NewReader(data), header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 7, out["age"])
	assert.Equal(t, "ann", out["author"])

	t.Run("json response by default", func(t *testing.T) {
		rec := request(t, app, http.MethodPost, "/book", bytes.NewReader(data), http.Header{"Content-Type": {"application/x-msgpack"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"age":7,"author":"ann"}`, rec.Body.String())
	})

	t.Run("invalid payload", func(t *testing.T) {
		rec := request(t, app, http.MethodPost, "/book", strings.NewReader("\xc1"), http.Header{"Content-Type": {"application/msgpack"}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUnionBody(t *testing.T) {
	app := newTestApp()
	app.Post("/import", func(w http.ResponseWriter, r *http.Request) error {
		if b := Body[bookBody](r); b != nil {
			return JSON(w, http.StatusOK, map[string]any{"decoded": b.Author})
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		return JSON(w, http.StatusOK, map[string]any{"raw": string(data)})
	},
		WithBodyContent("application/json", bookBody{}),
		WithRawBody("text/csv"),
	)

	rec := request(t, app, http.MethodPost, "/import", strings.NewReader(`{"age":1,"author":"ann"}`), jsonHeader())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"decoded":"ann"}`, rec.Body.String())

	rec = request(t, app, http.MethodPost, "/import", strings.NewReader("ann,1"), http.Header{"Content-Type": {"text/csv"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"raw":"ann,1"}`, rec.Body.String())

	rec = request(t, app, http.MethodPost, "/import", strings.NewReader(`{"age":-1}`), jsonHeader())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	doc, err := app.Document()
	require.NoError(t, err)
	content := doc.Paths["/import"].Post.RequestBody.Content
	assert.Contains(t, content, "application/json")
	require.Contains(t, content, "text/csv")
	assert.NotNil(t, content["text/csv"].Schema)
}

func TestRootModelBody(t *testing.T) {
	app := newTestApp()
	app.Post("/tags", func(w http.ResponseWriter, r *http.Request) error {
		return JSON(w, http.StatusOK, Body[tagList](r).Root)
	}, WithBody(tagList{}))

	rec := request(t, app, http.MethodPost, "/tags", strings.NewReader(`["a","b"]`), jsonHeader())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `["a","b"]`, rec.Body.String())

	rec = request(t, app, http.MethodPost, "/tags", strings.NewReader(`{"a":1}`), jsonHeader())
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "list_type", errorDetails(t, rec)[0].Type)
}

func TestRawInput(t *testing.T) {
	app := newTestApp()
	app.Post("/echo", func(w http.ResponseWriter, r *http.Request) error {
		raw := Raw(r)
		require.NotNil(t, raw)
		data, err := io.ReadAll(raw.Body)
		if err != nil {
			return err
		}
		return JSON(w, http.StatusOK, map[string]any{
			"body":   string(data),
			"author": Body[bookBody](r).Author,
		})
	}, WithBody(bookBody{}), WithRaw())

	rec := request(t, app, http.MethodPost, "/echo", strings.NewReader(`{"age":1,"author":"ann"}`), jsonHeader())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"body":"{\"age\":1,\"author\":\"ann\"}","author":"ann"}`, rec.Body.String())
}

func TestAccessorsOutsideRoutes(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, InputsOf(r))
	assert.Nil(t, Query[listQuery](r))
	assert.Nil(t, Raw(r))

	r = withInputs(r, &Inputs{Query: &listQuery{Limit: 3}})
	assert.Equal(t, 3, Query[listQuery](r).Limit)
	assert.Nil(t, Query[bookQuery](r))
	assert.Nil(t, Body[bookBody](r))
}

func TestSourceString(t *testing.T) {
	names := []string{"header", "cookie", "path", "query", "form", "body", "raw"}
	for i, name := range names {
		assert.Equal(t, name, Source(i).String())
	}
	assert.Equal(t, "unknown", numSources.String())
}
