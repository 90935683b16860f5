package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type pingResult struct {
	User string `json:"user"`
	Q    string `json:"q"`
}

func newEchoBackend() *httptest.Server {
	e := echo.New()
	e.GET("/raw", func(c echo.Context) error {
		return c.JSON(http.StatusOK, pingResult{User: c.Request().Header.Get(HeaderUserID), Q: c.QueryParam("q")})
	})
	e.GET("/wrapped", func(c echo.Context) error {
		return SuccessResponse(c, pingResult{User: c.Request().Header.Get(HeaderUserID)})
	})
	e.POST("/conflict", func(c echo.Context) error {
		return AppErrorResponse(c, ConflictError("tick already running"))
	})
	e.POST("/invalid", func(c echo.Context) error {
		return BadRequestResponse(c, []ValidationError{{Field: "level", Message: "must be at most 100"}})
	})
	return httptest.NewServer(e)
}

func TestClientDecodesRawAndEnvelope(t *testing.T) {
	srv := newEchoBackend()
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithHeader(HeaderUserID, "u1"), WithHeader(HeaderUserRole, ""))

	var raw pingResult
	err := c.Do(context.Background(), &Request{Method: MethodGet, Path: "/raw", Query: map[string][]string{"q": {"x"}}}, &raw)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if raw.User != "u1" || raw.Q != "x" {
		t.Fatalf("unexpected raw result %+v", raw)
	}

	var wrapped pingResult
	if err := c.DoData(context.Background(), &Request{Method: MethodGet, Path: "/wrapped"}, &wrapped); err != nil {
		t.Fatalf("DoData: %v", err)
	}
	if wrapped.User != "u1" {
		t.Fatalf("unexpected wrapped result %+v", wrapped)
	}
}

func TestClientStatusErrors(t *testing.T) {
	srv := newEchoBackend()
	defer srv.Close()
	c := NewClient(srv.URL)

	err := c.Do(context.Background(), &Request{Method: MethodPost, Path: "/conflict"}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusConflict || len(se.Details) != 1 || se.Details[0] != "tick already running" {
		t.Fatalf("unexpected error %+v", se)
	}

	err = c.Do(context.Background(), &Request{Method: MethodPost, Path: "/invalid", Body: map[string]int{"level": 120}}, nil)
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusBadRequest || se.Details[0] != "level: must be at most 100" {
		t.Fatalf("unexpected error %+v", se)
	}

	err = c.Do(context.Background(), &Request{Method: MethodGet, Path: "/missing"}, nil)
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
