package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "geobus/pkg/errors"
	httputil "geobus/pkg/http"
)

// timeoutWriter drops writes that arrive after the deadline fired.
type timeoutWriter struct {
	http.ResponseWriter
	mu         sync.Mutex
	timedOut   bool
	written    bool
	statusCode int
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut || tw.written {
		return
	}

	tw.statusCode = code
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}

	if !tw.written {
		tw.statusCode = http.StatusOK
		tw.written = true
	}

	return tw.ResponseWriter.Write(b)
}

// RequestTimeout answers TIMEOUT once the deadline passes while the handler
// keeps running in the background. Paths listed in inline run on the calling
// goroutine with the same deadline on their context and always write their
// own result, so a committed write is never reported as a timeout.
func RequestTimeout(timeout time.Duration, inline ...string) func(http.Handler) http.Handler {
	inlinePaths := make(map[string]bool, len(inline))
	for _, p := range inline {
		inlinePaths[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			r = r.WithContext(ctx)

			if inlinePaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tw := &timeoutWriter{ResponseWriter: w}

			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicked:
				panic(p)
			case <-ctx.Done():
				tw.mu.Lock()
				tw.timedOut = true
				if !tw.written {
					tw.written = true
					_ = httputil.WriteError(w, apperrors.Timeout("Request timeout"))
				}
				tw.mu.Unlock()
			}
		})
	}
}
