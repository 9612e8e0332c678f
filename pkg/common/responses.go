package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	pkgerrors "ameliorate/pkg/errors"
)

// MaxBodyBytes bounds request bodies; a whole playground graph fits well
// inside it.
const MaxBodyBytes = 1 << 20

// RespondJSON writes data as a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// ParseJSONBody decodes the request body into v. Unknown fields and
// trailing data are rejected as validation errors.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return pkgerrors.NewValidationError(fmt.Sprintf("request body must not exceed %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			return pkgerrors.NewValidationError("request body is empty")
		default:
			return pkgerrors.NewValidationError("invalid request body: " + err.Error())
		}
	}
	if decoder.More() {
		return pkgerrors.NewValidationError("request body must contain a single JSON object")
	}
	return nil
}

// ExtractRequestID returns the caller supplied or chi generated request id
func ExtractRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return r.Header.Get("X-Amzn-Trace-Id")
}
