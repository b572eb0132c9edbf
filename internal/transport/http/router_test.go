package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-signup-verify/internal/config"
	"github.com/go-signup-verify/internal/domain"
	jwtinfra "github.com/go-signup-verify/internal/infrastructure/jwt"
	"github.com/go-signup-verify/internal/infrastructure/smtp"
	"github.com/go-signup-verify/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory credential store with the same atomicity
// guarantees as the real backends.
type memStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemStore() *memStore { return &memStore{users: map[string]domain.User{}} }

func (s *memStore) FindByEmailOrUsername(_ context.Context, email, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memStore) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *memStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return domain.ErrDuplicateUser
		}
	}
	s.users[u.UserID] = *u
	return nil
}

func (s *memStore) SetVerificationCode(_ context.Context, userID, code string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.VerificationCode, u.VerificationCodeExpiry = &code, &expiry
	s.users[userID] = u
	return nil
}

func (s *memStore) MarkVerified(_ context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.IsVerified || u.VerificationCode == nil || *u.VerificationCode != code {
		var current *domain.User
		if ok {
			current = &u
		}
		return domain.VerifyConflict(userID, current)
	}
	u.IsVerified = true
	u.VerificationCode, u.VerificationCodeExpiry = nil, nil
	s.users[userID] = u
	return nil
}

func (s *memStore) Delete(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, u.UserID)
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) byUsername(name string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == name {
			return u, true
		}
	}
	return domain.User{}, false
}

type capturingMailer struct {
	mu   sync.Mutex
	sent []smtp.Message
	err  error
}

func (m *capturingMailer) Send(_ context.Context, msg smtp.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testServer struct {
	store  *memStore
	mailer *capturingMailer
	srv    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	provider, err := jwtinfra.NewProvider(config.TokenConfig{Secret: "router-test-secret"})
	require.NoError(t, err)
	ts := &testServer{store: newMemStore(), mailer: &capturingMailer{}}
	cfg := &config.Config{AllowedOrigins: []string{"*"}, AppEnv: "test"}
	ts.srv = httptest.NewServer(NewRouter(cfg, &Deps{
		UserRepo:      ts.store,
		TokenProvider: provider,
		Mailer:        ts.mailer,
		Metrics:       observability.NewMetrics(),
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestFlow_SignupVerifyLogin(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"username": "ana", "email": "ana@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var signup struct {
		VerificationToken string `json:"verificationToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &signup))
	require.NotEmpty(t, signup.VerificationToken)

	stored, ok := ts.store.byUsername("ana")
	require.True(t, ok)
	assert.False(t, stored.IsVerified)
	require.NotNil(t, stored.VerificationCode)
	code := *stored.VerificationCode
	require.Len(t, ts.mailer.sent, 1)
	assert.Equal(t, "ana@x.com", ts.mailer.sent[0].To)
	assert.Contains(t, ts.mailer.sent[0].HTML, code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	status, env = ts.do(t, http.MethodPost, "/v1/verify-email", "", map[string]string{"code": wrong, "token": signup.VerificationToken})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.KindCodeMismatch, env.Error)

	status, _ = ts.do(t, http.MethodPost, "/v1/verify-email", "", map[string]string{"code": code, "token": signup.VerificationToken})
	require.Equal(t, http.StatusOK, status)

	stored, _ = ts.store.byUsername("ana")
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.VerificationCode)
	assert.Nil(t, stored.VerificationCodeExpiry)

	status, env = ts.do(t, http.MethodPost, "/v1/verify-email", "", map[string]string{"code": code, "token": signup.VerificationToken})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, domain.KindAlreadyVerified, env.Error)

	status, env = ts.do(t, http.MethodPost, "/v1/login", "", map[string]string{"email": "ana@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, status)
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	status, env = ts.do(t, http.MethodGet, "/v1/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"username":"ana"`)

	status, _ = ts.do(t, http.MethodGet, "/v1/me", signup.VerificationToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestFlow_DuplicateSignupLeavesStoreUnchanged(t *testing.T) {
	ts := newTestServer(t)
	status, _ := ts.do(t, http.MethodPost, "/v1/signup", "", map[string]string{"username": "ana", "email": "ana@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, status)

	for _, body := range []map[string]string{
		{"username": "ana", "email": "other@x.com", "password": "pw123456"},
		{"username": "bob", "email": "ANA@x.com", "password": "pw123456"},
	} {
		status, env := ts.do(t, http.MethodPost, "/v1/signup", "", body)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, domain.KindDuplicateUser, env.Error)
	}
	assert.Len(t, ts.store.users, 1)
	assert.Len(t, ts.mailer.sent, 1)
}

func TestFlow_DispatchFailureRollsBackSignup(t *testing.T) {
	ts := newTestServer(t)
	ts.mailer.err = fmt.Errorf("dial tcp: connection refused")

	status, env := ts.do(t, http.MethodPost, "/v1/signup", "", map[string]string{"username": "ana", "email": "ana@x.com", "password": "pw123456"})

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, domain.KindEmailDispatch, env.Error)
	assert.Empty(t, ts.store.users)
}

func TestFlow_PendingLoginResendsCode(t *testing.T) {
	ts := newTestServer(t)
	status, _ := ts.do(t, http.MethodPost, "/v1/signup", "", map[string]string{"username": "ana", "email": "ana@x.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, status)

	status, env := ts.do(t, http.MethodPost, "/v1/login", "", map[string]string{"email": "ana@x.com", "password": "pw123456"})

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"needsVerification":true`)
	assert.Len(t, ts.mailer.sent, 2)
}

func TestFlow_VerifyRejectsMalformedCode(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/v1/verify-email", "", map[string]string{"code": "12ab56", "token": "whatever"})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.KindValidation, env.Error)
}

func TestFlow_MultibytePasswordOverBcryptLimit(t *testing.T) {
	ts := newTestServer(t)

	// 40 runes, 80 bytes.
	status, env := ts.do(t, http.MethodPost, "/v1/signup", "", map[string]string{
		"username": "ana", "email": "ana@x.com", "password": strings.Repeat("é", 40),
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, domain.KindValidation, env.Error)
	_, ok := ts.store.byUsername("ana")
	assert.False(t, ok)
	assert.Empty(t, ts.mailer.sent)
}

func TestRouter_UnversionedAuthRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, env := ts.do(t, http.MethodPost, "/signup", "", map[string]string{
		"username": "ana", "email": "ana@x.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var signup struct {
		VerificationToken string `json:"verificationToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &signup))
	stored, ok := ts.store.byUsername("ana")
	require.True(t, ok)

	status, _ = ts.do(t, http.MethodPost, "/verify-email", "", map[string]string{
		"code": *stored.VerificationCode, "token": signup.VerificationToken,
	})
	assert.Equal(t, http.StatusOK, status)

	status, env = ts.do(t, http.MethodPost, "/login", "", map[string]string{"email": "ana@x.com", "password": "pw123456"})
	assert.Equal(t, http.StatusOK, status, env.Message)
}

func TestRouter_MetricsExposed(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/v1/health-check/ping", "", nil)

	resp, err := ts.srv.Client().Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `signup_verify_http_requests_total{code="200",method="GET",route="/v1/health-check/{action}"} 1`)
}
