package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		check  func(error) bool
		status int
	}{
		{"validation", NewValidationError("bad"), IsValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("topic"), IsNotFound, http.StatusNotFound},
		{"conflict", NewConflictError("dup"), IsConflict, http.StatusConflict},
		{"forbidden", NewForbiddenError(""), IsForbidden, http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError(""), IsUnauthorized, http.StatusUnauthorized},
		{"wrapped with fmt", fmt.Errorf("handler: %w", NewNotFoundError("node")), IsNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("plain")))
}

func TestWrapKeepsType(t *testing.T) {
	err := Wrap(NewForbiddenError("not yours"), "update topic")
	assert.True(t, IsForbidden(err))
	assert.Contains(t, err.Error(), "update topic: not yours")

	plain := Wrap(errors.New("boom"), "load")
	assert.EqualError(t, plain, "load: boom")
	assert.Nil(t, Wrap(nil, "noop"))
}

func TestErrorHandler_Handle(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	t.Run("app error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/topics/x/y", nil)

		h.Handle(rec, req, NewNotFoundError("topic"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Error)
		assert.Equal(t, "NOT_FOUND", body.Type)
		assert.Equal(t, "topic not found", body.Message)
	})

	t.Run("untyped error is hidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		h.Handle(rec, req, errors.New("driver exploded"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "driver exploded")
	})

	t.Run("request id assigned by chi", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		var assigned string
		chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assigned = chimiddleware.GetReqID(r.Context())
			h.Handle(w, r, NewValidationError("bad"))
		})).ServeHTTP(rec, req)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, assigned)
		assert.Equal(t, assigned, body.RequestID)
	})

	t.Run("request id from header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")

		h.Handle(rec, req, NewValidationError("bad"))

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "req-42", body.RequestID)
	})

	t.Run("panic recovery", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		h.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("bad")
		})).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
