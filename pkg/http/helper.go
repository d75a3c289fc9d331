package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "geobus/pkg/errors"
)

// DecodeJSON reads a single JSON object from the request body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperrors.InvalidInput("request body is required")
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("request body is required")
		}
		return apperrors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

// BearerToken returns the credential from "Authorization: Bearer <token>",
// or an empty string when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
