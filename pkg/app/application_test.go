package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"geobus/pkg/client"
	"geobus/pkg/config"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"
	"geobus/pkg/middleware"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct{}

func (echoHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/echo", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		_ = httputil.WriteCreated(w, map[string]string{"at": time.Now().String()})
	})
	router.GET("/api/panic", func(http.ResponseWriter, *http.Request, httprouter.Params) {
		panic("boom")
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.NewNop(),
		Client:            client.NewClient(),
	}
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	a := NewApplication()
	a.SetApp(testConfig(), echoHandler{})
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
	return a
}

func TestHealthAndReadiness(t *testing.T) {
	a := newTestApp(t)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestIdempotentReplay(t *testing.T) {
	a := newTestApp(t)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyHeader, "book-1")
		w := httptest.NewRecorder()
		a.Handler().ServeHTTP(w, req)
		return w
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code)
	second := send()
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestMiddlewareStack(t *testing.T) {
	a := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestShutdownHooksRunInOrder(t *testing.T) {
	a := newTestApp(t)

	var order []string
	a.OnShutdown(func(context.Context) error { order = append(order, "dispatcher"); return nil })
	a.OnShutdown(func(context.Context) error { order = append(order, "clients"); return nil })
	a.runShutdownHooks()

	assert.Equal(t, []string{"dispatcher", "clients"}, order)
}
