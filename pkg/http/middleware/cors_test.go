package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsCall(t *testing.T, cfg CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := CORS(cfg)(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	req := httptest.NewRequest(method, "/api/bins", nil)
	if origin != "" {
		req.Header.Set(echo.HeaderOrigin, origin)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	return rec
}

func TestCORSPreflight(t *testing.T) {
	cfg := CORSConfig{
		AllowOrigins: []string{"https://ops.example"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"X-User-ID"},
		MaxAge:       600,
	}

	rec := corsCall(t, cfg, http.MethodOptions, "https://ops.example")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	h := rec.Header()
	if h.Get(echo.HeaderAccessControlAllowOrigin) != "https://ops.example" ||
		h.Get(echo.HeaderAccessControlAllowMethods) != "GET, POST" ||
		h.Get(echo.HeaderAccessControlAllowHeaders) != "X-User-ID" ||
		h.Get(echo.HeaderAccessControlMaxAge) != "600" {
		t.Fatalf("unexpected preflight headers %v", h)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	cfg := CORSConfig{AllowOrigins: []string{"https://ops.example"}}

	rec := corsCall(t, cfg, http.MethodGet, "https://evil.example")
	if rec.Code != http.StatusOK {
		t.Fatalf("request should pass through, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if rec.Header().Get(echo.HeaderVary) != echo.HeaderOrigin {
		t.Fatalf("missing Vary: Origin")
	}
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	rec := corsCall(t, CORSConfig{AllowOrigins: []string{"*"}}, http.MethodGet, "https://any.example")
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://any.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowMethods) != "" {
		t.Fatalf("methods belong to preflight responses only")
	}
}
