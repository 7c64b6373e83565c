package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	gohttp "github.com/km-arc/go-dicontainer/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newRequest(method, target string, headers map[string]string) *gohttp.Request {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return gohttp.NewRequest(r)
}

// ── Query ─────────────────────────────────────────────────────────────────────

func TestRequest_Query(t *testing.T) {
	req := newRequest(http.MethodGet, "/greet?name=Ada&lang=fr", nil)

	if got := req.Query("name"); got != "Ada" {
		t.Errorf("Query(name): got %q want Ada", got)
	}
	if got := req.Query("lang"); got != "fr" {
		t.Errorf("Query(lang): got %q want fr", got)
	}
}

func TestRequest_Query_Fallback(t *testing.T) {
	req := newRequest(http.MethodGet, "/greet", nil)

	if got := req.Query("name", "world"); got != "world" {
		t.Errorf("got %q want world", got)
	}
}

// ── Headers ───────────────────────────────────────────────────────────────────

func TestRequest_Header(t *testing.T) {
	req := newRequest(http.MethodGet, "/", map[string]string{"X-Custom": "abc"})

	if got := req.Header("X-Custom"); got != "abc" {
		t.Errorf("got %q want abc", got)
	}
}

func TestRequest_Language(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"fr-CH, fr;q=0.9, en;q=0.8", "fr"},
		{"EN", "en"},
		{"de;q=0.7", "de"},
		{"*", "en"},
		{"", "en"},
	}
	for _, tc := range cases {
		req := newRequest(http.MethodGet, "/", map[string]string{"Accept-Language": tc.header})
		if got := req.Language("en"); got != tc.want {
			t.Errorf("Language(%q): got %q want %q", tc.header, got, tc.want)
		}
	}
}

// ── Routing ───────────────────────────────────────────────────────────────────

func TestRequest_RouteParamAndRequestID(t *testing.T) {
	var param, id string
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/greet/{lang}", func(w http.ResponseWriter, raw *http.Request) {
		req := gohttp.NewRequest(raw)
		param = req.RouteParam("lang")
		id = req.RequestID()
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/greet/fr", nil))

	if param != "fr" {
		t.Errorf("RouteParam: got %q want fr", param)
	}
	if id == "" {
		t.Error("RequestID should be set by middleware")
	}
}

func TestRequest_Method(t *testing.T) {
	req := newRequest(http.MethodDelete, "/", nil)

	if got := req.Method(); got != http.MethodDelete {
		t.Errorf("got %q want DELETE", got)
	}
}

func TestRequest_Path(t *testing.T) {
	req := newRequest(http.MethodGet, "/greet/fr?x=1", nil)

	if got := req.Path(); got != "/greet/fr" {
		t.Errorf("got %q want /greet/fr", got)
	}
}

func TestRequest_IP(t *testing.T) {
	req := newRequest(http.MethodGet, "/", nil)

	if got := req.IP(); got != "192.0.2.1:1234" {
		t.Errorf("got %q want httptest default remote addr", got)
	}
}
