package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"accounts-api/internal/domain"
	"accounts-api/internal/repository"
	"accounts-api/internal/service"
	"accounts-api/internal/sso"
)

const testFrontendURL = "https://app.example.com"

// memUserRepo es un repositorio en memoria con la misma semántica de errores
// que la implementación de Postgres.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *memUserRepo) Update(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	for id, existing := range r.users {
		if id != user.ID && strings.EqualFold(existing.Email, user.Email) {
			return repository.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	user.UpdatedAt = &now
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	return nil
}

type capturingMailer struct {
	mu         sync.Mutex
	resetToken string
}

func (m *capturingMailer) SendWelcomeEmail(_ context.Context, _, _ string) error { return nil }

func (m *capturingMailer) SendPasswordResetEmail(_ context.Context, _, _, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetToken = token
	return nil
}

func (m *capturingMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetToken
}

type fakeSSOProvider struct{ email string }

func (p *fakeSSOProvider) Name() string { return "okta" }

func (p *fakeSSOProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeSSOProvider) Exchange(_ context.Context, _ string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "idp-token"}, nil
}

func (p *fakeSSOProvider) Profile(_ context.Context, _ *oauth2.Token) (sso.Profile, error) {
	return sso.Profile{Email: p.email, FirstName: "Ada", LastName: "Lovelace"}, nil
}

type testEnv struct {
	router *gin.Engine
	mailer *capturingMailer
	tokens *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	repo := newMemUserRepo()
	tokens := service.NewTokenService("test-secret", 15*time.Minute, time.Hour)
	mailer := &capturingMailer{}
	userServ := service.NewUserService(logger, repo, tokens, mailer, nil)

	ssoServ := sso.NewService(logger, userServ, tokens, testFrontendURL)
	ssoServ.Register(&fakeSSOProvider{email: "sso-user@example.com"})

	loginH := NewLoginHandler(logger, userServ, tokens)
	userH := NewUserHandler(logger, userServ)
	ssoH := NewSSOHandler(logger, ssoServ)

	router := NewRouter(
		logger,
		loginH,
		userH,
		ssoH,
		JWTAuthMiddleware(tokens, userServ),
		[]string{testFrontendURL},
		func(context.Context) error { return nil },
	)
	return &testEnv{router: router, mailer: mailer, tokens: tokens}
}

func (e *testEnv) performJSON(method, path, body, bearer string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) performForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signup(t *testing.T, email, password string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Ada","last_name":"Lovelace"}`, email, password)
	w := e.performJSON(http.MethodPost, "/users/signup", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup returned %d: %s", w.Code, w.Body.String())
	}
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.performForm("/login/access-token", url.Values{
		"username": {email},
		"password": {password},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.TokenType != "bearer" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response: %s", w.Body.String())
	}
	return resp.AccessToken
}

func TestSignupLoginMe(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")
	token := env.login(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodGet, "/users/me", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("me returned %d: %s", w.Code, w.Body.String())
	}
	var me domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.Email != "ada@example.com" || me.Status != domain.StatusBasic {
		t.Fatalf("unexpected me payload: %+v", me)
	}
	if strings.Contains(w.Body.String(), "hashed_password") {
		t.Fatalf("response must not expose the password hash: %s", w.Body.String())
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")

	body := `{"email":"ADA@example.com","password":"pw12345678"}`
	w := env.performJSON(http.MethodPost, "/users/signup", body, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")

	w := env.performForm("/login/access-token", url.Values{
		"username": {"ada@example.com"},
		"password": {"wrong-password"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad credentials, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMe_MissingBearer(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodGet, "/users/me", "", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without bearer, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateMe_PartialFields(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")
	token := env.login(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodPatch, "/users/me", `{"first_name":"Augusta"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update me returned %d: %s", w.Code, w.Body.String())
	}
	var updated domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if updated.FirstName != "Augusta" || updated.LastName != "Lovelace" {
		t.Fatalf("expected only first_name changed, got %+v", updated)
	}
}

func TestUpdatePasswordMe(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")
	token := env.login(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodPatch, "/users/me/password",
		`{"current_password":"wrong-password","new_password":"pw87654321"}`, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong current password, got %d: %s", w.Code, w.Body.String())
	}

	w = env.performJSON(http.MethodPatch, "/users/me/password",
		`{"current_password":"pw12345678","new_password":"pw87654321"}`, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update password returned %d: %s", w.Code, w.Body.String())
	}

	env.login(t, "ada@example.com", "pw87654321")
}

func TestDeleteByID_SelfForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")
	token := env.login(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodGet, "/users/me", "", token)
	var me domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}

	w = env.performJSON(http.MethodDelete, "/users/"+me.ID, "", token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for self delete by id, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDeleteMe_ThenLoginFails(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")
	token := env.login(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodDelete, "/users/me", "", token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete me returned %d: %s", w.Code, w.Body.String())
	}

	w = env.performForm("/login/access-token", url.Values{
		"username": {"ada@example.com"},
		"password": {"pw12345678"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 after account deleted, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPasswordRecovery_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodPost, "/password-recovery/nobody@example.com", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPasswordRecovery_ResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "ada@example.com", "pw12345678")

	w := env.performJSON(http.MethodPost, "/password-recovery/ada@example.com", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("recovery returned %d: %s", w.Code, w.Body.String())
	}
	resetToken := env.mailer.lastResetToken()
	if resetToken == "" {
		t.Fatalf("expected reset token delivered by mail")
	}

	body := fmt.Sprintf(`{"token":%q,"new_password":"pw87654321"}`, resetToken)
	w = env.performJSON(http.MethodPost, "/reset-password/", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("reset password returned %d: %s", w.Code, w.Body.String())
	}

	env.login(t, "ada@example.com", "pw87654321")
}

func TestResetPassword_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodPost, "/reset-password/",
		`{"token":"not-a-jwt","new_password":"pw87654321"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSSOLogin_UnknownProvider(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodGet, "/sso/github/login", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown provider, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSSOLogin_RedirectsToProvider(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodGet, "/sso/okta/login?next=https://app.example.com/after", "", "")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://idp.example.com/authorize?state=") {
		t.Fatalf("unexpected redirect location: %q", location)
	}
}

func TestSSOCallback_IssuesLocalToken(t *testing.T) {
	env := newTestEnv(t)
	state := url.QueryEscape(sso.EncodeState("https://app.example.com/welcome"))

	w := env.performJSON(http.MethodGet, "/sso/okta/callback?code=auth-code&state="+state, "", "")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	location := w.Header().Get("Location")
	if !strings.HasPrefix(location, "https://app.example.com/welcome?token=") {
		t.Fatalf("unexpected redirect location: %q", location)
	}

	// El token de la redirección sirve para la API local.
	localToken := strings.TrimPrefix(location, "https://app.example.com/welcome?token=")
	resp := env.performJSON(http.MethodGet, "/users/me", "", localToken)
	if resp.Code != http.StatusOK {
		t.Fatalf("me with sso token returned %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "sso-user@example.com") {
		t.Fatalf("expected sso account in response: %s", resp.Body.String())
	}
}

func TestSSOCallback_GarbageStateRedirectsToFrontend(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodGet, "/sso/okta/callback?code=auth-code&state=garbage", "", "")
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != testFrontendURL {
		t.Fatalf("expected redirect to frontend, got %q", got)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.performJSON(http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("healthz returned %d: %s", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/users/signup", nil)
	req.Header.Set("Origin", testFrontendURL)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testFrontendURL {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
}
