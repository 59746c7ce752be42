package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"streamhub/internal/core/domain"
	"streamhub/internal/core/ports"
	"streamhub/internal/core/services"
	"streamhub/internal/infrastructure/monitoring"
	"streamhub/internal/infrastructure/repositories/memory"
	"streamhub/internal/infrastructure/security"
	"streamhub/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fakeStoreProbe struct {
	err error
}

func (p fakeStoreProbe) Backend() string      { return "mongo" }
func (p fakeStoreProbe) DatabaseName() string { return "assignmentdb" }
func (p fakeStoreProbe) HealthCheck(ctx context.Context) error {
	return p.err
}

type unavailableStreams struct{}

func (unavailableStreams) Create(ctx context.Context, stream *domain.Stream) (*domain.Stream, error) {
	return nil, fmt.Errorf("dial tcp 10.1.2.3:27017: %w", domain.ErrStoreUnavailable)
}

func (unavailableStreams) GetByID(ctx context.Context, id domain.StreamID) (*domain.Stream, error) {
	return nil, fmt.Errorf("dial tcp 10.1.2.3:27017: %w", domain.ErrStoreUnavailable)
}

func (unavailableStreams) ListAll(ctx context.Context) ([]*domain.Stream, error) {
	return nil, fmt.Errorf("dial tcp 10.1.2.3:27017: %w", domain.ErrStoreUnavailable)
}

func (unavailableStreams) Update(ctx context.Context, id domain.StreamID, patch domain.StreamPatch) (*domain.Stream, error) {
	return nil, fmt.Errorf("dial tcp 10.1.2.3:27017: %w", domain.ErrStoreUnavailable)
}

func (unavailableStreams) Delete(ctx context.Context, id domain.StreamID) (bool, error) {
	return false, fmt.Errorf("dial tcp 10.1.2.3:27017: %w", domain.ErrStoreUnavailable)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	reg    *prometheus.Registry
}

type serverOption func(*RouterDeps)

func withStreams(repo ports.StreamRepository) serverOption {
	return func(d *RouterDeps) {
		d.StreamService = services.NewStreamService(repo, security.SystemClock{}, zap.NewNop().Sugar(), nil)
	}
}

func withProbe(probe StoreProbe) serverOption {
	return func(d *RouterDeps) {
		d.Health = NewHealthHandler(probe, monitoring.NewHealthChecker(), time.Second)
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := security.NewPasswordHasher(security.SchemeBcrypt, bcrypt.MinCost, 0)
	require.NoError(t, err)
	codec, err := security.NewJWTCodec("test-secret", "HS256")
	require.NoError(t, err)

	log := zap.NewNop()
	clock := security.SystemClock{}
	reg := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(reg)

	deps := RouterDeps{
		Config:         config.DefaultConfig(),
		Logger:         log,
		AuthService:    services.NewAuthService(memory.NewMemoryUserRepository(), hasher, codec, clock, 30*time.Minute, log.Sugar(), collector),
		StreamService:  services.NewStreamService(memory.NewMemoryStreamRepository(), clock, log.Sugar(), collector),
		Health:         NewHealthHandler(fakeStoreProbe{}, monitoring.NewHealthChecker(), time.Second),
		Metrics:        collector,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testServer{t: t, router: NewRouter(deps), reg: reg}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signup(email, password string) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/auth/signup", "", CredentialsRequest{Email: email, Password: password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestAuth_SignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/signup", "", CredentialsRequest{Email: "demo@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	signup := decode[TokenResponse](t, w)
	assert.NotEmpty(t, signup.AccessToken)
	assert.Equal(t, "bearer", signup.TokenType)

	w = s.do(http.MethodPost, "/auth/login", "", CredentialsRequest{Email: "demo@example.com", Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[TokenResponse](t, w)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, "bearer", login.TokenType)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/streams", login.AccessToken, nil).Code)
}

func TestAuth_DuplicateSignupIs400(t *testing.T) {
	s := newTestServer(t)
	s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodPost, "/auth/signup", "", CredentialsRequest{Email: "Demo@Example.com", Password: "other-pass"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "EMAIL_ALREADY_REGISTERED", decode[map[string]interface{}](t, w)["error"])
}

func TestAuth_SignupValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"bad email", CredentialsRequest{Email: "not-an-email", Password: "s3cret-pass"}},
		{"short password", CredentialsRequest{Email: "a@example.com", Password: "123"}},
		{"long password", CredentialsRequest{Email: "a@example.com", Password: strings.Repeat("x", 73)}},
		{"not json", "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/auth/signup", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "INVALID_INPUT", decode[map[string]interface{}](t, w)["error"])
		})
	}
}

func TestAuth_LoginFailuresAreUniform(t *testing.T) {
	s := newTestServer(t)
	s.signup("demo@example.com", "s3cret-pass")

	wrongPassword := s.do(http.MethodPost, "/auth/login", "", CredentialsRequest{Email: "demo@example.com", Password: "wrong-pass"})
	unknownUser := s.do(http.MethodPost, "/auth/login", "", CredentialsRequest{Email: "ghost@example.com", Password: "s3cret-pass"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "INVALID_CREDENTIALS", decode[map[string]interface{}](t, wrongPassword)["error"])
}

func TestStreams_RequireBearerToken(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/streams"},
		{http.MethodGet, "/streams"},
		{http.MethodGet, "/streams/abc"},
		{http.MethodPut, "/streams/abc"},
		{http.MethodDelete, "/streams/abc"},
	}

	for _, r := range routes {
		for _, token := range []string{"", "garbage"} {
			w := s.do(r.method, r.path, token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s token=%q", r.method, r.path, token)
		}
	}
}

func TestStreams_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodPost, "/streams", token, map[string]interface{}{"title": "Demo", "description": ""})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[domain.Stream](t, w)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Demo", created.Title)
	require.NotNil(t, created.Description)
	assert.Equal(t, "", *created.Description)
	assert.False(t, created.IsLive)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	w = s.do(http.MethodGet, "/streams/"+string(created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode[domain.Stream](t, w).ID)

	time.Sleep(2 * time.Millisecond)
	w = s.do(http.MethodPut, "/streams/"+string(created.ID), token, map[string]interface{}{"title": "Demo2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[domain.Stream](t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Demo2", updated.Title)
	assert.Equal(t, "", *updated.Description)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(created.CreatedAt))

	w = s.do(http.MethodPut, "/streams/"+string(created.ID), token, map[string]interface{}{"is_live": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.Stream](t, w).IsLive)

	w = s.do(http.MethodDelete, "/streams/"+string(created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[map[string]interface{}](t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, string(created.ID), resp["deleted"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/streams/"+string(created.ID), token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/streams/"+string(created.ID), token, nil).Code)
}

func TestStreams_CreateFromQueryParameters(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodPost, "/streams?title=Morning+show", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := decode[domain.Stream](t, w)
	assert.Equal(t, "Morning show", created.Title)
	require.NotNil(t, created.Description)
	assert.Equal(t, "", *created.Description)

	w = s.do(http.MethodPost, "/streams?title=Evening&description=late", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "late", *decode[domain.Stream](t, w).Description)
}

func TestStreams_CreateFromChunkedJSON(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	req := httptest.NewRequest(http.MethodPost, "/streams", iotest.OneByteReader(strings.NewReader(`{"title":"Chunked","description":"streamed body"}`)))
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)
	require.Equal(t, int64(-1), req.ContentLength)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	created := decode[domain.Stream](t, w)
	assert.Equal(t, "Chunked", created.Title)
	require.NotNil(t, created.Description)
	assert.Equal(t, "streamed body", *created.Description)
}

func TestStreams_CreateRequiresTitle(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	for _, body := range []interface{}{nil, map[string]interface{}{"title": "   "}, map[string]interface{}{"title": strings.Repeat("t", 201)}} {
		w := s.do(http.MethodPost, "/streams", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestStreams_ListNewestFirst(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodGet, "/streams", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	var ids []domain.StreamID
	for _, title := range []string{"first", "second", "third"} {
		w := s.do(http.MethodPost, "/streams", token, map[string]interface{}{"title": title})
		require.Equal(t, http.StatusOK, w.Code)
		ids = append(ids, decode[domain.Stream](t, w).ID)
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/streams/"+string(ids[1]), token, nil).Code)

	listed := decode[[]domain.Stream](t, s.do(http.MethodGet, "/streams", token, nil))
	require.Len(t, listed, 2)
	assert.Equal(t, ids[2], listed[0].ID)
	assert.Equal(t, ids[0], listed[1].ID)
}

func TestStreams_UnknownIDs(t *testing.T) {
	s := newTestServer(t)
	token := s.signup("demo@example.com", "s3cret-pass")

	for _, id := range []string{"6650f0c2a1b2c3d4e5f60718", "not-an-id"} {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/streams/"+id, token, nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/streams/"+id, token, map[string]interface{}{"title": "x"}).Code)
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/streams/"+id, token, nil).Code)
	}
}

func TestStreams_StoreOutageIs503(t *testing.T) {
	s := newTestServer(t, withStreams(unavailableStreams{}))
	token := s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodGet, "/streams", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "10.1.2.3")

	w = s.do(http.MethodGet, "/streams/abc", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","store":"mongo","database":"assignmentdb"}`, w.Body.String())

	w = s.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealth_DatabaseDown(t *testing.T) {
	s := newTestServer(t, withProbe(fakeStoreProbe{err: fmt.Errorf("server selection timeout")}))

	w := s.do(http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]interface{}](t, w)
	assert.Equal(t, "SERVICE_UNAVAILABLE", body["error"])
	assert.Equal(t, "mongo unreachable", body["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.signup("demo@example.com", "s3cret-pass")

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `streamhub_http_requests_total{method="POST",route="/auth/signup",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `streamhub_auth_attempts_total{flow="signup",outcome="success"} 1`)
}
