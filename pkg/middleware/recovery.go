package middleware

import (
	"net/http"
	"runtime/debug"

	apperrors "geobus/pkg/errors"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic recovered",
						"request_id", RequestID(r.Context()),
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)

					_ = httputil.WriteError(w, apperrors.Internal("Internal server error", nil))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
