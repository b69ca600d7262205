package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
	"github.com/Sajadaliismail/gatekeeper/internal/core/service"
	"github.com/Sajadaliismail/gatekeeper/internal/infrastructure/config"
)

// memRepo is an in-memory ports.UserRepository keyed by email.
type memRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemRepo() *memRepo { return &memRepo{users: map[string]*domain.User{}} }

func (r *memRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memRepo) FindAll(_ context.Context) ([]domain.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (r *memRepo) GetProjectedByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	u, err := r.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	p.ID = ""
	return &p, nil
}

func (r *memRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.Email]; ok {
		return nil, &domain.DuplicateKeyError{Field: "email"}
	}
	u.ID = u.Email
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.Email] = &u
	cp := u
	return &cp, nil
}

func (r *memRepo) UpdateByEmail(_ context.Context, email string, patch domain.UserPatch) (*domain.User, error) {
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Address != nil {
		u.Address = *patch.Address
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.IsBanned != nil {
		u.IsBanned = *patch.IsBanned
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) DeleteByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, domain.NormalizeEmail(email))
	return true, nil
}

type testServer struct {
	t    *testing.T
	srv  *httptest.Server
	repo *memRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg, err := config.LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":   "s3cret",
		"BCRYPT_COST":  "4",
		"CORS_ORIGINS": "http://app.example",
	}))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	hasher, err := service.NewBcryptHasher(service.HasherConfig{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	tokens, err := service.NewTokenService(service.TokenConfig{Secret: cfg.Security.JWTSecret, TTL: cfg.Security.TokenTTL})
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	repo := newMemRepo()
	users := service.NewUserService(repo, hasher, tokens, nil, zerolog.Nop())
	reg := prometheus.NewRegistry()

	e := NewRouter(cfg, Services{
		Users:      users,
		Tokens:     tokens,
		Checks:     nil,
		Registerer: reg,
		Gatherer:   reg,
	}, zerolog.Nop())

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv, repo: repo}
}

// do sends a JSON request. token, when set, travels in the cookie.
func (s *testServer) do(method, path, body, token string) (*http.Response, map[string]any) {
	s.t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *testServer) signupAndLogin(name, email string) string {
	s.t.Helper()
	resp, _ := s.do(http.MethodPost, "/api/signup",
		`{"name":"`+name+`","email":"`+email+`","password":"Secret1"}`, "")
	if resp.StatusCode != http.StatusCreated {
		s.t.Fatalf("signup %s: expected 201, got %d", email, resp.StatusCode)
	}
	return s.login(email)
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	resp, body := s.do(http.MethodPost, "/api/login", `{"email":"`+email+`","password":"Secret1"}`, "")
	if resp.StatusCode != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d %v", email, resp.StatusCode, body)
	}
	token, _ := body["token"].(string)
	return token
}

func (s *testServer) promote(email string, role domain.Role) {
	s.t.Helper()
	if _, err := s.repo.UpdateByEmail(context.Background(), email, domain.UserPatch{Role: &role}); err != nil {
		s.t.Fatalf("promote: %v", err)
	}
}

func TestRouter_SignupLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	annToken := s.signupAndLogin("Ann", "ann@x.com")

	resp, body := s.do(http.MethodPost, "/api/signup", `{"name":"Ann","email":"ANN@x.com","password":"Secret1"}`, "")
	if resp.StatusCode != http.StatusConflict || body["error"] != "User already exists" {
		t.Fatalf("expected 409 on duplicate signup, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"wrong"}`, "")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Incorrect password" {
		t.Fatalf("expected 401 on wrong password, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodPost, "/api/login", `{"email":"ghost@x.com","password":"Secret1"}`, "")
	if resp.StatusCode != http.StatusNotFound || body["error"] != "User is not registered" {
		t.Fatalf("expected 404 for unknown user, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodGet, "/api/", "", annToken)
	if resp.StatusCode != http.StatusOK || body["email"] != "ann@x.com" || body["role"] != "user" {
		t.Fatalf("expected own profile, got %d %v", resp.StatusCode, body)
	}
	if _, ok := body["password"]; ok {
		t.Fatalf("password leaked: %v", body)
	}

	resp, body = s.do(http.MethodGet, "/api/", "", "")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Authentication token is missing" {
		t.Fatalf("expected 401 without token, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodGet, "/api/", "", "garbage")
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "Invalid token or signature" {
		t.Fatalf("expected 401 for garbage token, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_SignupMultiBytePassword(t *testing.T) {
	s := newTestServer(t)

	// 40 characters pass the length rule but exceed bcrypt's 72 bytes.
	payload := `{"name":"Eve","email":"eve@x.com","password":"` + strings.Repeat("é", 40) + `"}`
	resp, body := s.do(http.MethodPost, "/api/signup", payload, "")
	if resp.StatusCode != http.StatusBadRequest || body["error"] != "password must be at most 72 bytes" {
		t.Fatalf("expected 400 for an overlong password, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodPost, "/api/signup", `{"name":"Eve","email":"eve@x.com","password":"      "}`, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected a blank six-character password to be accepted, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_RoleGates(t *testing.T) {
	s := newTestServer(t)

	annToken := s.signupAndLogin("Ann", "ann@x.com")

	resp, body := s.do(http.MethodPatch, "/api/change-role", `{"email":"ann@x.com","role":"admin"}`, annToken)
	if resp.StatusCode != http.StatusForbidden || body["error"] != "Access denied. Insufficient role." {
		t.Fatalf("expected 403 for user on change-role, got %d %v", resp.StatusCode, body)
	}

	s.signupAndLogin("Bob", "bob@x.com")
	s.promote("bob@x.com", domain.RoleAdmin)
	bobToken := s.login("bob@x.com")

	resp, body = s.do(http.MethodGet, "/api/", "", bobToken)
	users, _ := body["users"].([]any)
	if resp.StatusCode != http.StatusOK || len(users) != 2 {
		t.Fatalf("expected admin to list 2 users, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodPatch, "/api/change-role", `{"email":"ann@x.com","role":"moderator"}`, bobToken)
	if resp.StatusCode != http.StatusOK || body["role"] != true {
		t.Fatalf("expected role change, got %d %v", resp.StatusCode, body)
	}

	resp, _ = s.do(http.MethodPatch, "/api/edit-user", `{"name":"Bobby"}`, bobToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected admin to be refused on edit-user, got %d", resp.StatusCode)
	}
}

func TestRouter_BanTakesEffectOnNextRequest(t *testing.T) {
	s := newTestServer(t)

	annToken := s.signupAndLogin("Ann", "ann@x.com")
	s.signupAndLogin("Carol", "carol@x.com")
	s.promote("carol@x.com", domain.RoleModerator)
	carolToken := s.login("carol@x.com")

	resp, body := s.do(http.MethodPatch, "/api/change-status", `{"email":"ann@x.com","isBanned":true}`, carolToken)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("expected ban to succeed, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodGet, "/api/", "", annToken)
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "User has been banned" {
		t.Fatalf("expected banned token to be refused, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodPost, "/api/login", `{"email":"ann@x.com","password":"Secret1"}`, "")
	if resp.StatusCode != http.StatusForbidden || body["error"] != "User is banned" {
		t.Fatalf("expected banned login to fail, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_EditAndDeleteSelf(t *testing.T) {
	s := newTestServer(t)

	annToken := s.signupAndLogin("Ann", "ann@x.com")
	s.signupAndLogin("Dan", "dan@x.com")

	resp, _ := s.do(http.MethodPatch, "/api/edit-user", `{"name":"Ann B","address":"2 Side St"}`, annToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected edit to succeed, got %d", resp.StatusCode)
	}
	_, body := s.do(http.MethodGet, "/api/", "", annToken)
	if body["name"] != "Ann B" || body["address"] != "2 Side St" {
		t.Fatalf("edit not applied: %v", body)
	}

	resp, _ = s.do(http.MethodDelete, "/api/delete-user", `{"email":"dan@x.com"}`, annToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 deleting someone else, got %d", resp.StatusCode)
	}

	resp, body = s.do(http.MethodDelete, "/api/delete-user", `{"email":"ann@x.com"}`, annToken)
	if resp.StatusCode != http.StatusOK || body["success"] != true {
		t.Fatalf("expected self delete, got %d %v", resp.StatusCode, body)
	}

	resp, body = s.do(http.MethodGet, "/api/", "", annToken)
	if resp.StatusCode != http.StatusUnauthorized || body["error"] != "User not found" {
		t.Fatalf("expected deleted user's token to be refused, got %d %v", resp.StatusCode, body)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected liveness ok, got %d %v", resp.StatusCode, body)
	}

	resp, _ = s.do(http.MethodGet, "/health/ready", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected readiness ok with no checks, got %d", resp.StatusCode)
	}

	res, err := http.Get(s.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected /metrics 200, got %d", res.StatusCode)
	}

	res, err = http.Get(s.srv.URL + "/swagger/doc.json")
	if err != nil {
		t.Fatalf("swagger: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected swagger doc 200, got %d", res.StatusCode)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, s.srv.URL+"/api/login", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example" {
		t.Fatalf("expected allowed origin echo, got %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials to be allowed")
	}
}
