package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type levelRequest struct {
	Level    *float64 `json:"level" validate:"required,gte=0,lte=100"`
	Category string   `json:"category" validate:"omitempty,oneof=PLASTIC PAPER"`
	Days     int      `json:"days" default:"7" validate:"gte=1,lte=365"`
}

func bindJSON(t *testing.T, body string, dst interface{}) ValidationErrors {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	return ReadAndValidateRequest(c, dst)
}

func TestReadAndValidateRequestUsesJSONNames(t *testing.T) {
	req := &levelRequest{}
	errs := bindJSON(t, `{"level":120,"category":"WOOD"}`, req)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %+v", errs)
	}
	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	if e := byField["level"]; e.Code != "ERR_LTE" || e.Message != "level must be 100 or less" {
		t.Fatalf("level error %+v", e)
	}
	if e := byField["category"]; e.Code != "ERR_ONEOF" || e.Message != "category must be one of: PLASTIC, PAPER" {
		t.Fatalf("category error %+v", e)
	}
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	req := &levelRequest{}
	if errs := bindJSON(t, `{"level":40}`, req); errs != nil {
		t.Fatalf("unexpected errors %+v", errs)
	}
	if req.Days != 7 || *req.Level != 40 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestReadAndValidateRequestBadJSON(t *testing.T) {
	errs := bindJSON(t, `{"level":`, &levelRequest{})
	if len(errs) != 1 || errs[0].Code != "ERR_UNKNOWN" {
		t.Fatalf("expected bind error, got %+v", errs)
	}
}
