package web_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/erisa/pkg/web"
)

var (
	homeView  = web.ViewDef{Template: "home.html", Title: "Home"}
	errorView = web.ViewDef{Template: "error.html", Title: "Error"}
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/app.html": {Data: []byte(
			`{{define "app"}}<title>{{.Title}}</title><base href="{{.BasePath}}/">` +
				`{{with .Flash}}<p class="{{.Kind}}">{{.Message}}</p>{{end}}{{template "content" .}}{{end}}`)},
		"views/home.html":  {Data: []byte(`{{define "content"}}<p>{{money .Data}}</p>{{end}}`)},
		"views/error.html": {Data: []byte(`{{define "content"}}<h1>{{.Data.Status}} {{.Data.Message}}</h1>{{end}}`)},
		"static/app.css":   {Data: []byte(`body { margin: 0; }`)},
	}
}

func newSet(t *testing.T) *web.TemplateSet {
	t.Helper()
	ts, err := web.NewTemplateSet(testFS(), "layouts/*.html", "app", "views", "/app", web.Funcs(), []web.ViewDef{homeView, errorView})
	require.NoError(t, err)
	return ts
}

func TestRender(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	err := ts.Render(rec, http.StatusCreated, homeView, web.ViewData{
		Data:  decimal.RequireFromString("1234.5"),
		Flash: &web.Flash{Kind: "success", Message: "Saved"},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "<title>Home</title>")
	assert.Contains(t, body, `<base href="/app/">`)
	assert.Contains(t, body, `<p class="success">Saved</p>`)
	assert.Contains(t, body, "<p>$1,234.50</p>")
	assert.Equal(t, "/app", ts.BasePath())
}

func TestRenderTitleOverride(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	require.NoError(t, ts.Render(rec, http.StatusOK, homeView, web.ViewData{Title: "Claim 42", Data: decimal.Zero}))
	assert.Contains(t, rec.Body.String(), "<title>Claim 42</title>")
}

func TestRenderUnknownView(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	err := ts.Render(rec, http.StatusOK, web.ViewDef{Template: "missing.html"}, web.ViewData{})
	assert.Error(t, err)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestRenderTemplateErrorWritesNothing(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	// money on a string fails during execution
	err := ts.Render(rec, http.StatusOK, homeView, web.ViewData{Data: "not a decimal"})
	assert.Error(t, err)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestNewTemplateSetMissingView(t *testing.T) {
	_, err := web.NewTemplateSet(testFS(), "layouts/*.html", "app", "views", "", web.Funcs(),
		[]web.ViewDef{{Template: "nope.html"}})
	assert.Error(t, err)
}

func TestRenderErrorPage(t *testing.T) {
	ts := newSet(t)
	rec := httptest.NewRecorder()

	data := web.ViewData{Data: web.ErrorPage{Status: http.StatusNotFound, Message: http.StatusText(http.StatusNotFound)}}
	require.NoError(t, ts.Render(rec, http.StatusNotFound, errorView, data))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>404 Not Found</h1>")
}

func TestFlashRoundTrip(t *testing.T) {
	set := httptest.NewRecorder()
	web.SetFlash(set, "error", "Claim not found")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range set.Result().Cookies() {
		req.AddCookie(c)
	}

	pop := httptest.NewRecorder()
	flash := web.PopFlash(pop, req)
	require.NotNil(t, flash)
	assert.Equal(t, "error", flash.Kind)
	assert.Equal(t, "Claim not found", flash.Message)

	cleared := pop.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestPopFlashAbsentOrCorrupt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, web.PopFlash(httptest.NewRecorder(), req))

	req.AddCookie(&http.Cookie{Name: "flash", Value: "%%%"})
	assert.Nil(t, web.PopFlash(httptest.NewRecorder(), req))
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"999.999", "$1,000.00"},
		{"1234567.8", "$1,234,567.80"},
		{"-42.1", "-$42.10"},
		{"100000", "$100,000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, web.Money(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestWithPage(t *testing.T) {
	values := url.Values{"status": {"denied"}, "page": {"1"}}

	got := web.WithPage(values, 3)

	assert.Equal(t, "page=3&status=denied", got)
	assert.Equal(t, "1", values.Get("page"), "input must not be mutated")
}

func TestDateFuncs(t *testing.T) {
	funcs := web.Funcs()
	date := funcs["date"].(func(time.Time) string)

	assert.Equal(t, "Mar 4, 2024", date(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", date(time.Time{}))
}

func TestHumanFuncs(t *testing.T) {
	funcs := web.Funcs()
	count := funcs["count"].(func(int) string)

	assert.Equal(t, "1,234,567", count(1234567))
	assert.Equal(t, "3 hours ago", web.Ago(time.Now().Add(-3*time.Hour)))
	assert.Equal(t, "", web.Ago(time.Time{}))
}

func TestStaticHandler(t *testing.T) {
	h := web.StaticHandler(testFS(), "static", "/static/")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "margin"))
}

func TestRouterFallback(t *testing.T) {
	r := web.NewRouter()
	r.Handle("GET /known", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r.SetFallback(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		path string
		want int
	}{
		{"/known", http.StatusNoContent},
		{"/unknown", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
