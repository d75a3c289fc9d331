package middleware

import (
	"errors"
	"net/http"

	"geobus/pkg/auth"
	apperrors "geobus/pkg/errors"
	httputil "geobus/pkg/http"
	"geobus/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// Authenticator guards individual routes with a bearer token.
type Authenticator struct {
	verifier TokenVerifier
	log      *logger.Logger
}

func NewAuthenticator(verifier TokenVerifier, log *logger.Logger) *Authenticator {
	return &Authenticator{verifier: verifier, log: log}
}

// Require accepts only the Authorization header.
func (a *Authenticator) Require(next httprouter.Handle) httprouter.Handle {
	return a.guard(next, false)
}

// RequireAllowQuery also accepts ?token=, for links opened directly by a browser.
func (a *Authenticator) RequireAllowQuery(next httprouter.Handle) httprouter.Handle {
	return a.guard(next, true)
}

func (a *Authenticator) guard(next httprouter.Handle, allowQuery bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		raw := httputil.BearerToken(r)
		if raw == "" && allowQuery {
			raw = r.URL.Query().Get("token")
		}

		claims, err := a.verifier.Verify(raw)
		if err != nil {
			a.log.Warn("Authentication failed",
				"request_id", RequestID(r.Context()),
				"path", r.URL.Path,
				"error", err,
			)
			if writeErr := httputil.WriteError(w, authError(err)); writeErr != nil {
				a.log.Error("failed to write error response", "handler", "auth", "operation", "WriteError", "error", writeErr)
			}
			return
		}

		next(w, r.WithContext(auth.WithClaims(r.Context(), claims)), ps)
	}
}

func authError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, auth.ErrTokenMissing):
		return apperrors.Unauthorized("Access denied. No token provided.")
	case errors.Is(err, auth.ErrTokenExpired):
		return apperrors.TokenExpired()
	default:
		return apperrors.Unauthorized("Invalid token. Please login again.")
	}
}
