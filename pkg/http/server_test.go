package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyzReportsFailingDependency(t *testing.T) {
	s := NewServer(nil,
		WithMetricsPath(""),
		WithReadiness("redis", func(context.Context) error { return nil }),
		WithReadiness("mqtt", func(context.Context) error { return errors.New("not connected") }),
		WithReadiness("skipped", nil),
	)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["redis"] != "ok" || body["mqtt"] != "not connected" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["skipped"]; ok {
		t.Fatalf("nil check should not be registered")
	}
}

func TestReadyzWithoutChecks(t *testing.T) {
	s := NewServer(nil, WithMetricsPath(""))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
