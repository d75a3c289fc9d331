package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"geobus/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, store Pinger, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := httprouter.New()
	NewHealthHandler(store, logger.NewNop()).RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("no primary") })

	w := serve(t, down, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	up := pingFunc(func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})
	w := serve(t, up, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","database":"ok"}`, w.Body.String())

	down := pingFunc(func(context.Context) error { return errors.New("no primary") })
	w = serve(t, down, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unavailable","database":"error"}`, w.Body.String())
}
