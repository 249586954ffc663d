package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jengzang/mobility-backend-go/internal/config"
	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/metrics"
	"github.com/jengzang/mobility-backend-go/internal/middleware"
)

const secret = "router-secret"

func setupRouter(t *testing.T, rateLimit int) *gin.Engine {
	t.Helper()
	return setupRouterWithSecret(t, rateLimit, secret)
}

func setupRouterWithSecret(t *testing.T, rateLimit int, jwtSecret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		JWTSecret:       jwtSecret,
		Timezone:        "UTC",
		KernelLambda:    0.5,
		KernelSharpness: 0.25,
		RateLimit:       rateLimit,
	}
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	r, wait, err := SetupRouter(ctx, cfg, db, collector, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		wait()
	})
	return r
}

func request(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	r := setupRouter(t, 0)

	w := request(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/metrics", "", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/graphs", "", "").Code)
	assert.Equal(t, http.StatusNoContent, request(r, http.MethodOptions, "/api/v1/graphs", "", "").Code)
}

func TestWriteRoutesRequireToken(t *testing.T) {
	r := setupRouter(t, 0)

	for _, path := range []string{"/api/v1/mine", "/api/v1/stations", "/api/v1/roads", "/api/v1/tasks/mesos"} {
		assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodPost, path, "", "").Code, path)
	}

	token, err := middleware.GenerateToken(secret, "admin", time.Hour)
	require.NoError(t, err)

	w := request(r, http.MethodPost, "/api/v1/stations", "1,c1,120.1,30.2\n", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"imported":1`)
}

func TestWriteRoutesDisabledWithoutSecret(t *testing.T) {
	r := setupRouterWithSecret(t, 0, "")

	forged, err := middleware.GenerateToken("anything", "admin", time.Hour)
	require.NoError(t, err)
	for _, path := range []string{"/api/v1/mine", "/api/v1/stations", "/api/v1/roads", "/api/v1/tasks/mesos"} {
		assert.Equal(t, http.StatusServiceUnavailable, request(r, http.MethodPost, path, "", forged).Code, path)
	}
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/graphs", "", "").Code)
}

func TestRateLimit(t *testing.T) {
	r := setupRouter(t, 2)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/flows", "", "").Code)
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/api/v1/flows", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(r, http.MethodGet, "/api/v1/flows", "", "").Code)

	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/health", "", "").Code, "health is not limited")
}
