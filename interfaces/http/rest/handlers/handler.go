// Package handlers adapts HTTP requests to commands and queries.
package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"ameliorate/pkg/auth"
	pkgerrors "ameliorate/pkg/errors"
)

// callerID returns the authenticated user id set by the auth middleware
func callerID(r *http.Request) (string, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return "", pkgerrors.NewUnauthorizedError("authentication required")
	}
	return user.UserID, nil
}

// pathParam reads a required chi URL parameter
func pathParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return "", pkgerrors.NewValidationError(name + " is required")
	}
	return value, nil
}

// chiTopicPath returns the username and title of /topics/{username}/{title}.
// chi matches on the raw path when one is present, so titles with spaces
// arrive escaped.
func chiTopicPath(r *http.Request) (username, title string) {
	return unescape(chi.URLParam(r, "username")), unescape(chi.URLParam(r, "title"))
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}
