package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	adapthttp "todos/internal/adapter/http"
	"todos/internal/adapter/memory"
	"todos/internal/app"
	"todos/internal/domain"
)

const testSecret = "test-secret"

// ---------------------------------------------------------------------------
// Mock repository (function-fields pattern)
// ---------------------------------------------------------------------------

type mockTodoRepo struct {
	listFn   func(ctx context.Context, ownerID string) ([]domain.Todo, error)
	getFn    func(ctx context.Context, id string) (*domain.Todo, error)
	createFn func(ctx context.Context, ownerID, text string) (*domain.Todo, error)
	updateFn func(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockTodoRepo) ListTodos(ctx context.Context, ownerID string) ([]domain.Todo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockTodoRepo) GetTodo(ctx context.Context, id string) (*domain.Todo, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTodoRepo) CreateTodo(ctx context.Context, ownerID, text string) (*domain.Todo, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, text)
	}
	return &domain.Todo{ID: "t1", Text: text, OwnerID: ownerID}, nil
}

func (m *mockTodoRepo) UpdateTodo(ctx context.Context, id string, patch domain.TodoPatch) (*domain.Todo, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, domain.ErrNotFound
}

func (m *mockTodoRepo) DeleteTodo(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id string) (*domain.User, error)
	createFn        func(ctx context.Context, username, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.User{ID: id}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash)
	}
	return &domain.User{ID: "u1", Username: username, PasswordHash: passwordHash}, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, users domain.UserRepository, todos domain.TodoRepository) *adapthttp.Server {
	t.Helper()
	log := discardLogger()
	authSvc := app.NewAuthService(users, app.NewTokens(testSecret, time.Hour), log)
	return adapthttp.New(authSvc, app.NewTodoService(todos), log, nil)
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db := memory.New()
	return newServer(t, db, db).Handler()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectMessage(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
	got := decode[map[string]string](t, w)
	if got["message"] != msg {
		t.Errorf("expected message %q, got %q", msg, got["message"])
	}
}

func registerAndLogin(t *testing.T, h http.Handler, username, password string) string {
	t.Helper()
	creds := map[string]string{"username": username, "password": password}
	expectMessage(t, do(t, h, "POST", "/register", "", creds), http.StatusOK, "User registered successfully!")

	w := do(t, h, "POST", "/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	token := decode[map[string]string](t, w)["token"]
	if token == "" {
		t.Fatal("login returned empty token")
	}
	return token
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"success", map[string]string{"username": "alice", "password": "pw"}, 200, "User registered successfully!"},
		{"duplicate", map[string]string{"username": "alice", "password": "other"}, 400, "Username already taken"},
		{"missing password", map[string]string{"username": "bob"}, 400, "All fields are required"},
		{"missing username", map[string]string{"password": "pw"}, 400, "All fields are required"},
		{"bad json", "{", 400, "All fields are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectMessage(t, do(t, h, "POST", "/register", "", tt.body), tt.code, tt.msg)
		})
	}
}

func TestLogin(t *testing.T) {
	h := newTestHandler(t)
	registerAndLogin(t, h, "alice", "pw")

	tests := []struct {
		name string
		body map[string]string
		msg  string
	}{
		{"unknown user", map[string]string{"username": "nobody", "password": "pw"}, "User not found"},
		{"wrong password", map[string]string{"username": "alice", "password": "nope"}, "Invalid credentials"},
		{"missing fields", map[string]string{"username": "alice"}, "All fields are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectMessage(t, do(t, h, "POST", "/login", "", tt.body), http.StatusBadRequest, tt.msg)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := newTestHandler(t)
	valid := registerAndLogin(t, h, "alice", "pw")

	ghost, err := app.NewTokens(testSecret, time.Hour).Issue("ghost")
	if err != nil {
		t.Fatal(err)
	}

	expired, err := app.NewTokens(testSecret, -time.Minute).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := app.NewTokens("another-secret", time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		msg    string
	}{
		{"no header", "", "Access Denied. No Token Provided"},
		{"wrong scheme", "Basic abc", "Access Denied. No Token Provided"},
		{"bare scheme", "Bearer", "Access Denied. No Token Provided"},
		{"bearer without token", "Bearer ", "Invalid or Expired Token"},
		{"double space", "Bearer  " + valid, "Invalid or Expired Token"},
		{"unknown user", "Bearer " + ghost, "Invalid or Expired Token"},
		{"garbage token", "Bearer not-a-jwt", "Invalid or Expired Token"},
		{"expired token", "Bearer " + expired, "Invalid or Expired Token"},
		{"wrong key", "Bearer " + foreign, "Invalid or Expired Token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/todos", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			expectMessage(t, w, http.StatusUnauthorized, tt.msg)
		})
	}
}

func TestAuthStoreFailures(t *testing.T) {
	boom := errors.New("connection reset")
	users := &mockUserRepo{
		getByUsernameFn: func(context.Context, string) (*domain.User, error) { return nil, boom },
		getByIDFn:       func(context.Context, string) (*domain.User, error) { return nil, boom },
	}
	h := newServer(t, users, &mockTodoRepo{}).Handler()
	creds := map[string]string{"username": "alice", "password": "pw"}

	expectMessage(t, do(t, h, "POST", "/register", "", creds), 500, "Internal Server Error")
	expectMessage(t, do(t, h, "POST", "/login", "", creds), 500, "Internal Server Error")

	token, err := app.NewTokens(testSecret, time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	expectMessage(t, do(t, h, "GET", "/todos", token, nil), 500, "Internal Server Error")
}

func TestRegisterReservedUsername(t *testing.T) {
	h := newTestHandler(t)
	creds := map[string]string{"username": domain.SSOUsername("someone"), "password": "pw"}
	expectMessage(t, do(t, h, "POST", "/register", "", creds), http.StatusBadRequest, "Username is reserved")
}

func TestSSOLoginRedirect(t *testing.T) {
	db := memory.New()
	oidcCfg := &adapthttp.OIDCConfig{OAuth2Config: oauth2.Config{
		ClientID: "todos",
		Endpoint: oauth2.Endpoint{AuthURL: "https://id.example.com/auth"},
	}}
	h := newServer(t, db, db).WithOIDC(oidcCfg).Handler()

	w := do(t, h, "GET", "/auth/sso/login", "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	var state string
	for _, c := range w.Result().Cookies() {
		if c.Name == "oauth_state" {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("expected oauth_state cookie")
	}
	loc := w.Header().Get("Location")
	if !strings.HasPrefix(loc, "https://id.example.com/auth?") || !strings.Contains(loc, "state="+state) {
		t.Errorf("unexpected redirect %q", loc)
	}
}

func TestSSOCallbackRejectsBadState(t *testing.T) {
	db := memory.New()
	h := newServer(t, db, db).WithOIDC(&adapthttp.OIDCConfig{}).Handler()

	tests := []struct {
		name   string
		cookie *http.Cookie
		query  string
	}{
		{"no cookie", nil, "?state=abc&code=x"},
		{"empty cookie", &http.Cookie{Name: "oauth_state", Value: ""}, "?state=&code=x"},
		{"mismatched state", &http.Cookie{Name: "oauth_state", Value: "abc"}, "?state=xyz&code=x"},
		{"missing state", &http.Cookie{Name: "oauth_state", Value: "abc"}, "?code=x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/auth/sso/callback"+tt.query, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			expectMessage(t, w, http.StatusBadRequest, "Invalid SSO state")
		})
	}
}

func TestSSORoutesAbsentWithoutOIDC(t *testing.T) {
	h := newTestHandler(t)
	if w := do(t, h, "GET", "/auth/sso/login", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Todos
// ---------------------------------------------------------------------------

func TestTodoFlow(t *testing.T) {
	h := newTestHandler(t)
	token := registerAndLogin(t, h, "alice", "secret")

	w := do(t, h, "POST", "/todos", token, map[string]string{"text": "buy milk"})
	if w.Code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[domain.Todo](t, w)
	if created.ID == "" || created.Text != "buy milk" || created.Completed || created.OwnerID == "" {
		t.Fatalf("unexpected created todo: %+v", created)
	}

	w = do(t, h, "GET", "/todos", token, nil)
	list := decode[[]domain.Todo](t, w)
	if len(list) != 1 || list[0] != created {
		t.Fatalf("expected [created], got %+v", list)
	}

	w = do(t, h, "PUT", "/todos/"+created.ID, token, map[string]bool{"completed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[domain.Todo](t, w)
	if !updated.Completed || updated.Text != "buy milk" {
		t.Errorf("completed-only patch: got %+v", updated)
	}

	expectMessage(t, do(t, h, "DELETE", "/todos/"+created.ID, token, nil), http.StatusOK, "Todo deleted")

	w = do(t, h, "GET", "/todos", token, nil)
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestTodoJSONShape(t *testing.T) {
	h := newTestHandler(t)
	token := registerAndLogin(t, h, "alice", "pw")

	w := do(t, h, "POST", "/todos", token, map[string]string{"text": "x"})
	raw := decode[map[string]any](t, w)
	for _, key := range []string{"_id", "text", "completed", "userId"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %v", key, raw)
		}
	}
}

func TestTodoOwnership(t *testing.T) {
	h := newTestHandler(t)
	alice := registerAndLogin(t, h, "alice", "pw")
	bob := registerAndLogin(t, h, "bob", "pw")

	todo := decode[domain.Todo](t, do(t, h, "POST", "/todos", alice, map[string]string{"text": "alice's"}))

	if list := decode[[]domain.Todo](t, do(t, h, "GET", "/todos", bob, nil)); len(list) != 0 {
		t.Errorf("bob sees alice's todos: %+v", list)
	}

	expectMessage(t, do(t, h, "PUT", "/todos/"+todo.ID, bob, map[string]string{"text": "mine"}), http.StatusForbidden, "Unauthorized")
	expectMessage(t, do(t, h, "DELETE", "/todos/"+todo.ID, bob, nil), http.StatusForbidden, "Unauthorized")

	list := decode[[]domain.Todo](t, do(t, h, "GET", "/todos", alice, nil))
	if len(list) != 1 || list[0].Text != "alice's" {
		t.Errorf("alice's todo changed: %+v", list)
	}
}

func TestTodoValidation(t *testing.T) {
	h := newTestHandler(t)
	token := registerAndLogin(t, h, "alice", "pw")
	todo := decode[domain.Todo](t, do(t, h, "POST", "/todos", token, map[string]string{"text": "x"}))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
		msg    string
	}{
		{"create without text", "POST", "/todos", map[string]string{}, 400, "Text is required"},
		{"create empty text", "POST", "/todos", map[string]string{"text": ""}, 400, "Text is required"},
		{"update nothing", "PUT", "/todos/" + todo.ID, map[string]string{}, 400, "Nothing to update"},
		{"update empty text", "PUT", "/todos/" + todo.ID, map[string]string{"text": ""}, 400, "Text is required"},
		{"update unknown", "PUT", "/todos/does-not-exist", map[string]bool{"completed": true}, 404, "Todo not found"},
		{"delete unknown", "DELETE", "/todos/does-not-exist", nil, 404, "Todo not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectMessage(t, do(t, h, tt.method, tt.path, token, tt.body), tt.code, tt.msg)
		})
	}
}

func TestTodoStoreFailures(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &mockTodoRepo{
		listFn:   func(context.Context, string) ([]domain.Todo, error) { return nil, boom },
		createFn: func(context.Context, string, string) (*domain.Todo, error) { return nil, boom },
		getFn:    func(context.Context, string) (*domain.Todo, error) { return nil, boom },
	}
	h := newServer(t, &mockUserRepo{}, repo).Handler()
	token, err := app.NewTokens(testSecret, time.Hour).Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	expectMessage(t, do(t, h, "GET", "/todos", token, nil), 500, "Failed to fetch todos")
	expectMessage(t, do(t, h, "POST", "/todos", token, map[string]string{"text": "x"}), 500, "Failed to add todo")
	expectMessage(t, do(t, h, "PUT", "/todos/1", token, map[string]bool{"completed": true}), 500, "Failed to update todo")
	expectMessage(t, do(t, h, "DELETE", "/todos/1", token, nil), 500, "Failed to delete todo")
}

func TestWithoutAuth(t *testing.T) {
	db := memory.New()
	h := newServer(t, db, db).WithoutAuth().Handler()

	w := do(t, h, "POST", "/todos", "", map[string]string{"text": "anonymous"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	raw := decode[map[string]any](t, w)
	if _, ok := raw["userId"]; ok {
		t.Errorf("unexpected userId in %v", raw)
	}

	id, _ := raw["_id"].(string)
	w = do(t, h, "PUT", "/todos/"+id, "", map[string]bool{"completed": true})
	if got := decode[domain.Todo](t, w); !got.Completed {
		t.Errorf("expected completed todo, got %+v", got)
	}

	if w := do(t, h, "POST", "/register", "", map[string]string{"username": "a", "password": "b"}); w.Code != http.StatusNotFound {
		t.Errorf("register should not be mounted, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Ambient routes
// ---------------------------------------------------------------------------

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest("OPTIONS", "/todos", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow origin *, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Authorization not allowed: %q", got)
	}
}

func TestHealth(t *testing.T) {
	db := memory.New()
	srv := newServer(t, db, db)

	w := do(t, srv.Handler(), "GET", "/health", "", nil)
	if w.Code != http.StatusOK || decode[map[string]bool](t, w)["ok"] != true {
		t.Errorf("expected healthy, got %d %s", w.Code, w.Body.String())
	}

	srv.WithHealthCheck(func(context.Context) error { return errors.New("down") })
	w = do(t, srv.Handler(), "GET", "/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	do(t, h, "GET", "/todos", "", nil)

	w := do(t, h, "GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "todos_http_requests_total") || !strings.Contains(body, `route="GET /todos"`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}
