package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authguard/internal/config"
	"authguard/internal/logging"
	"authguard/internal/services"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "app-test-secret"
	cfg.Auth.BcryptCost = 4
	cfg.RateLimit.LoginPerMinute = 3
	return cfg
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_MissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	_, err := NewRouter(cfg, Deps{Logger: logging.Discard()})
	assert.ErrorIs(t, err, config.ErrMissingSigningSecret)
	assert.Contains(t, err.Error(), "token service")
}

func TestNewRouter_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig(), Deps{Logger: logging.Discard()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_GuardDefaultsTo401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r, err := NewRouter(testConfig(), Deps{Logger: logging.Discard()})
	require.NoError(t, err)

	for _, header := range []string{"", "Basic abc", "Bearer not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestNewRouter_DistinctForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Auth.DistinctForbidden = true
	r, err := NewRouter(cfg, Deps{Logger: logging.Discard()})
	require.NoError(t, err)

	w := postJSON(t, r, "/register", gin.H{"email": "u@x.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, r, "/login", gin.H{"email": "u@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var res services.LoginResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_LoginRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	r, err := NewRouter(testConfig(), Deps{Cache: cache, Logger: logging.Discard()})
	require.NoError(t, err)

	body := gin.H{"email": "nobody@x.com", "password": "whatever"}
	for i := 0; i < 3; i++ {
		w := postJSON(t, r, "/login", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := postJSON(t, r, "/login", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	n, err := cache.Exists(context.Background(), "rl:login:nobody@x.com").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBuildNotifier_DryRun(t *testing.T) {
	cfg := testConfig()
	cfg.Email.DryRun = true

	n := buildNotifier(cfg, logging.Discard())
	_, ok := n.(*services.LogNotifier)
	assert.True(t, ok)
}
