package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestReadiness(t *testing.T) {
	e := echo.New()
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	cases := []struct {
		name   string
		checks map[string]Checker
		code   int
		status string
	}{
		{"all up", map[string]Checker{"mongodb": ok, "redis": ok}, http.StatusOK, "ok"},
		{"redis down", map[string]Checker{"mongodb": ok, "redis": down}, http.StatusServiceUnavailable, "degraded"},
		{"no checks", nil, http.StatusOK, "ok"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
		if err := NewReadinessHandler(tc.checks, zerolog.Nop()).Readiness(c); err != nil {
			t.Fatalf("%s: handler error: %v", tc.name, err)
		}
		if rec.Code != tc.code {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.code, rec.Code)
		}
		var resp readinessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: invalid json: %v", tc.name, err)
		}
		if resp.Status != tc.status {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.status, resp.Status)
		}
		if len(resp.Dependencies) != len(tc.checks) {
			t.Fatalf("%s: unexpected dependencies %+v", tc.name, resp.Dependencies)
		}
	}
}

func TestReadiness_HidesCheckErrors(t *testing.T) {
	e := echo.New()
	var logs bytes.Buffer
	down := func(context.Context) error { return errors.New("dial tcp 10.1.2.3:6379: connection refused") }
	h := NewReadinessHandler(map[string]Checker{"redis": down}, zerolog.New(&logs))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	want := `{"status":"degraded","dependencies":{"redis":{"status":"unhealthy"}}}` + "\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if !strings.Contains(logs.String(), "10.1.2.3:6379") || !strings.Contains(logs.String(), `"dependency":"redis"`) {
		t.Fatalf("expected the failure to be logged, got %s", logs.String())
	}
}

func TestLiveness(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	if err := NewHealthHandler().Liveness(e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
