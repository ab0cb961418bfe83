package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"message": "test"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"message":"test"}`, w.Body.String())
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusAccepted, nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteSuccessBodies(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteOK(w, map[string]string{"access_token": "abc"}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"access_token":"abc"}`, w.Body.String())

	w = httptest.NewRecorder()
	require.NoError(t, WriteCreated(w, map[string]string{"id": "123"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":"123"}`, w.Body.String())

	w = httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestWriteUnauthorized(t *testing.T) {
	t.Run("with custom message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteUnauthorized(w, "Could not validate credentials"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
		response := decodeError(t, w)
		assert.Equal(t, "unauthorized", response.Error)
		assert.Equal(t, "Could not validate credentials", response.Message)
	})

	t.Run("with empty message", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteUnauthorized(w, ""))
		assert.Equal(t, "Authentication required", decodeError(t, w).Message)
	})
}

func TestWriteTooManyRequests(t *testing.T) {
	t.Run("retry after rounds up to whole seconds", func(t *testing.T) {
		w := httptest.NewRecorder()
		details := map[string]interface{}{"retry_after_seconds": 90}

		require.NoError(t, WriteTooManyRequests(w, "Too many failed login attempts", 89500*time.Millisecond, details))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("Retry-After"))
		response := decodeError(t, w)
		assert.Equal(t, "rate_limit_exceeded", response.Error)
		assert.Equal(t, float64(90), response.Details["retry_after_seconds"])
	})

	t.Run("no retry hint", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteTooManyRequests(w, "", 0, nil))
		assert.Empty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, "Rate limit exceeded", decodeError(t, w).Message)
	})
}

func TestWriteDefaultMessages(t *testing.T) {
	tests := []struct {
		name        string
		write       func(w http.ResponseWriter) error
		status      int
		errorType   string
		wantMessage string
	}{
		{"forbidden", func(w http.ResponseWriter) error { return WriteForbidden(w, "") }, http.StatusForbidden, "forbidden", "Access forbidden"},
		{"not found", func(w http.ResponseWriter) error { return WriteNotFound(w, "") }, http.StatusNotFound, "not_found", "Resource not found"},
		{"not implemented", func(w http.ResponseWriter) error { return WriteNotImplemented(w, "") }, http.StatusNotImplemented, "not_implemented", "Not implemented"},
		{"internal", func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") }, http.StatusInternalServerError, "internal_error", "Internal server error"},
		{"bad request", func(w http.ResponseWriter) error { return WriteBadRequest(w, "Validation failed", nil) }, http.StatusBadRequest, "bad_request", "Validation failed"},
		{"conflict", func(w http.ResponseWriter) error { return WriteConflict(w, "Email already registered", nil) }, http.StatusConflict, "conflict", "Email already registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))

			assert.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.errorType, response.Error)
			assert.Equal(t, tt.wantMessage, response.Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name              string
		status            int
		expectedErrorType string
	}{
		{"bad request", http.StatusBadRequest, "bad_request"},
		{"unauthorized", http.StatusUnauthorized, "unauthorized"},
		{"forbidden", http.StatusForbidden, "forbidden"},
		{"not found", http.StatusNotFound, "not_found"},
		{"conflict", http.StatusConflict, "conflict"},
		{"rate limit", http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"not implemented", http.StatusNotImplemented, "not_implemented"},
		{"method not allowed", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"unavailable", http.StatusServiceUnavailable, "service_unavailable"},
		{"unknown status defaults to internal error", http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			details := map[string]interface{}{"key": "value"}

			require.NoError(t, WriteError(w, tt.status, "message", details))

			assert.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.expectedErrorType, response.Error)
			assert.Equal(t, "value", response.Details["key"])
		})
	}

	t.Run("empty message falls back to the default", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteError(w, http.StatusServiceUnavailable, "", nil))
		assert.Equal(t, "Service unavailable", decodeError(t, w).Message)
	})

	t.Run("unauthorized carries a challenge", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteError(w, http.StatusUnauthorized, "nope", nil))
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"jane@example.com"}`, ""},
		{"empty", ``, "request body is empty"},
		{"malformed", `{"email":`, "invalid JSON body"},
		{"unknown field", `{"email":"a","admin":true}`, "invalid JSON body"},
		{"trailing object", `{"email":"a"}{"email":"b"}`, "single JSON object"},
		{"too large", `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var dst payload
			err := DecodeJSON(w, req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "jane@example.com", dst.Email)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
