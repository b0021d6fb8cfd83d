package render

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/passgate/internal/apperrors"
)

func freezeNow(t *testing.T) {
	now := Now
	Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { Now = now })
}

func TestRender_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		data := map[string]any{"key1": 1, "key2": "222"}
		JSON(w, data)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`+"\n", string(body))
}

func TestRender_Error(t *testing.T) {
	freezeNow(t)

	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody string
	}{
		{
			name:         "app error",
			err:          apperrors.Unauthorized("Invalid credentials"),
			expectedCode: http.StatusUnauthorized,
			expectedBody: `{"statusCode": 401, "timestamp": "2025-03-01T12:00:00Z", "path": "/test?q=1", "message": "Invalid credentials"}`,
		},
		{
			name:         "transport error",
			err:          apperrors.ErrTimeout,
			expectedCode: http.StatusServiceUnavailable,
			expectedBody: `{"statusCode": 503, "timestamp": "2025-03-01T12:00:00Z", "path": "/test?q=1", "message": "Service unavailable"}`,
		},
		{
			name:         "unknown error is hidden",
			err:          errors.New("password hash is $2a$..."),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"statusCode": 500, "timestamp": "2025-03-01T12:00:00Z", "path": "/test?q=1", "message": "Internal server error"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Error(w, r, tc.err)
			}))
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/test?q=1")
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck

			assert.Equal(t, tc.expectedCode, resp.StatusCode)
			assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, string(body))
		})
	}
}

func TestRender_BindAndValidate(t *testing.T) {
	freezeNow(t)

	type User struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"omitempty,min=8"`
		Age      int    `json:"age"`
	}

	tests := []struct {
		name           string
		requestBody    string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "valid request",
			requestBody:    `{"username": "john"}`,
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success": true}`,
		},
		{
			name:           "invalid json",
			requestBody:    `invalid-json`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"statusCode": 400,
				"timestamp": "2025-03-01T12:00:00Z",
				"path": "/test",
				"message": "Failed to parse JSON: invalid character 'i' looking for beginning of value"
			}`,
		},
		{
			name:           "invalid type",
			requestBody:    `{"username": "john", "age": "old"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"statusCode": 400,
				"timestamp": "2025-03-01T12:00:00Z",
				"path": "/test",
				"message": "Invalid data type for field 'age'"
			}`,
		},
		{
			name:           "validation failed",
			requestBody:    `{"password": "short"}`,
			expectedStatus: http.StatusBadRequest,
			expectedBody: `{
				"statusCode": 400,
				"timestamp": "2025-03-01T12:00:00Z",
				"path": "/test",
				"message": "Request validation failed",
				"fields": {
					"username": "This field is required",
					"password": "Value is too short (minimum 8)"
				}
			}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, err := BindAndValidate[User](w, r)
				if err != nil {
					return // Error response already written
				}
				JSON(w, map[string]bool{"success": true})
			}))
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(tc.requestBody))
			require.NoError(t, err)
			require.Equal(t, tc.expectedStatus, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			defer resp.Body.Close() //nolint:errcheck

			assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
			assert.JSONEq(t, tc.expectedBody, string(body))
		})
	}
}
