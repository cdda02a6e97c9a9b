package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
	"github.com/learnpath/lms-api/internal/core/service"
	"github.com/learnpath/lms-api/internal/infrastructure/db/memory"
)

type testServer struct {
	e      *echo.Echo
	store  *memory.Store
	tokens *service.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore(0)
	hasher := service.NewPasswordHasher(service.AlgorithmBcrypt, bcrypt.MinCost)
	tokens := service.NewTokenService("router-secret", "lms-test", service.TokenTTLs{})
	users := service.NewUserService(store, hasher, nil, nil, log)

	for _, u := range []ports.CreateUserInput{
		{Email: "admin@x.com", Password: "correctpass", Role: "ADMIN"},
		{Email: "student@x.com", Password: "studentpass", Role: "STUDENT"},
	} {
		if _, err := users.CreateUser(context.Background(), u); err != nil {
			t.Fatalf("seed %s: %v", u.Email, err)
		}
	}

	e := NewRouter(Dependencies{
		Log:      log,
		Auth:     service.NewAuthService(store, hasher, tokens, nil, log),
		Users:    users,
		Resolver: service.NewIdentityResolver(tokens, store, nil, log),
	})
	return &testServer{e: e, store: store, tokens: tokens}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestRouter_Login(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/login", `{"email":"admin@x.com","password":"correctpass"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if tok, _ := body["token"].(string); tok == "" {
		t.Fatalf("expected non-empty token, got %v", body["token"])
	}
	identity, _ := body["identity"].(map[string]any)
	if identity["email"] != "admin@x.com" || identity["role"] != "ADMIN" || identity["id"] == "" {
		t.Fatalf("unexpected identity %+v", identity)
	}

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"admin@x.com","password":"wrongpass"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	body = decode(t, rec)
	if _, present := body["token"]; present {
		t.Fatalf("token must be absent on failure: %v", body)
	}
	if body["error"] != "unauthenticated" {
		t.Fatalf("unexpected error body %v", body)
	}

	unknown := s.do(http.MethodPost, "/auth/login", `{"email":"nobody@x.com","password":"wrongpass"}`, "")
	if unknown.Code != rec.Code || unknown.Body.String() != rec.Body.String() {
		t.Fatalf("unknown email distinguishable: %d %s vs %d %s", unknown.Code, unknown.Body, rec.Code, rec.Body)
	}

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"admin@x.com"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestRouter_AdminRoute(t *testing.T) {
	s := newTestServer(t)
	studentToken := s.login(t, "student@x.com", "studentpass")
	adminToken := s.login(t, "admin@x.com", "correctpass")

	body := `{"email":"instructor@x.com","password":"instructorpass","role":"INSTRUCTOR"}`

	rec := s.do(http.MethodPost, "/admin/users", body, studentToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode(t, rec)
	allowed, _ := resp["allowed_roles"].([]any)
	if len(allowed) != 1 || allowed[0] != "ADMIN" {
		t.Fatalf("expected allowed_roles [ADMIN], got %v", resp)
	}
	if _, err := s.store.FindByEmail(context.Background(), "instructor@x.com"); err == nil {
		t.Fatalf("handler ran for a student")
	}

	rec = s.do(http.MethodPost, "/admin/users", body, adminToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/admin/users", body, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
}

func TestRouter_DeletedAccountTokenStopsWorking(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin@x.com", "correctpass")
	studentToken := s.login(t, "student@x.com", "studentpass")

	if rec := s.do(http.MethodGet, "/auth/me", "", studentToken); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	student, err := s.store.FindByEmail(context.Background(), "student@x.com")
	if err != nil {
		t.Fatalf("find student: %v", err)
	}
	if rec := s.do(http.MethodDelete, "/admin/users/"+student.ID, "", adminToken); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, "/auth/me", "", studentToken)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after delete, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "subject_not_found") {
		t.Fatalf("failure reason leaked: %s", rec.Body.String())
	}
}

func TestRouter_RoleChangeAppliesImmediately(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(t, "admin@x.com", "correctpass")
	studentToken := s.login(t, "student@x.com", "studentpass")

	if rec := s.do(http.MethodGet, "/admin/users/whatever", "", studentToken); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	student, _ := s.store.FindByEmail(context.Background(), "student@x.com")
	rec := s.do(http.MethodPatch, "/admin/users/"+student.ID+"/role", `{"role":"ADMIN"}`, adminToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/admin/users/"+student.ID, "", studentToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("promoted student should pass the gate with the old token, got %d", rec.Code)
	}
}

func TestRouter_ShortLivedToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "student@x.com", "studentpass")

	rec := s.do(http.MethodPost, "/auth/token", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	short, _ := decode(t, rec)["token"].(string)

	claims, err := s.tokens.Parse(short)
	if err != nil {
		t.Fatalf("parse short-lived token: %v", err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != service.DefaultShortLivedTTL {
		t.Fatalf("expected %v lifetime, got %v", service.DefaultShortLivedTTL, got)
	}
	if claims.Role != domain.RoleStudent {
		t.Fatalf("unexpected role %s", claims.Role)
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
