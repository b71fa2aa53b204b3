package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/handler"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	redismocks "github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis/mocks"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/models"
	servicemocks "github.com/DebiyaQugan28/vallblox-gaming-store/internal/services/mocks"
	pkgerrors "github.com/DebiyaQugan28/vallblox-gaming-store/pkg/errors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

type nopProcessor struct{}

func (nopProcessor) Process(ctx context.Context, body []byte) error { return nil }

type okPinger struct{}

func (okPinger) PingContext(ctx context.Context) error { return nil }

type routerFixture struct {
	accounts *servicemocks.AccountService
	orders   *servicemocks.OrderService
	redis    *redismocks.RedisClient
	tokens   *auth.TokenManager
	router   *mux.Router
}

func newRouterFixture(perMinute int) *routerFixture {
	f := &routerFixture{
		accounts: &servicemocks.AccountService{},
		orders:   &servicemocks.OrderService{},
		redis:    &redismocks.RedisClient{},
		tokens:   auth.NewTokenManager(testJWTSecret, time.Hour, time.Hour),
	}
	h := handler.NewHandler(f.accounts, &servicemocks.CatalogService{}, f.orders, nopProcessor{}, okPinger{})
	f.router = SetupRouter(h, f.tokens, f.redis, NewRateLimiter(perMinute, time.Minute))
	return f
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouter_ProtectedRoutesRequireSession(t *testing.T) {
	f := newRouterFixture(0)
	token, _, err := f.tokens.IssueSession(&models.Account{ID: 7, Email: "budi@example.com"})
	require.NoError(t, err)

	f.redis.On("Get", mock.Anything, "account:7:token").Return(token, nil)
	f.accounts.On("Logout", mock.Anything, int64(7)).Return(nil)

	rec := serve(f.router, httptest.NewRequest(http.MethodDelete, "/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = serve(f.router, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(f.router, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	f.accounts.AssertExpectations(t)
}

func TestRouter_PublicOrderLookupNeedsNoToken(t *testing.T) {
	f := newRouterFixture(0)
	f.orders.On("GetOrder", mock.Anything, "VALLBLOX-1-7").Return(nil, pkgerrors.ErrOrderNotFound)

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/orders/{ref}", "404"))
	rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/orders/VALLBLOX-1-7", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	after := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/orders/{ref}", "404"))
	assert.Equal(t, before+1, after)
}

func TestRouter_UnknownPathAndMetrics(t *testing.T) {
	f := newRouterFixture(0)

	rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])

	rec = serve(f.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec = serve(f.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CredentialEndpointsAreThrottled(t *testing.T) {
	f := newRouterFixture(2)
	f.accounts.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, "", pkgerrors.ErrInvalidCredentials)

	login := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
		req.RemoteAddr = remote
		return serve(f.router, req)
	}

	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.1:5001").Code)

	rec := login("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.2:5000").Code)
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, ip := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
		req.RemoteAddr = ip
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 3, rl.ClientCount())

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	req.RemoteAddr = "10.0.0.9:1"
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, rl.ClientCount())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
