package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nkiryanov/passgate/internal/apperrors"
	"github.com/nkiryanov/passgate/internal/validate"
)

// Now is time source for error timestamps
var Now = time.Now

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	StatusCode int               `json:"statusCode"`
	Timestamp  string            `json:"timestamp"`
	Path       string            `json:"path"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render error as {statusCode, timestamp, path, message}
// Errors that are not *apperrors.Error are rendered as internal ones
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.As(err)
	JSONWithStatus(w, newErrorResponse(r, appErr.Status, appErr.Message), appErr.Status)
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, r *http.Request, err error) {
	response := newErrorResponse(r, http.StatusBadRequest, "")

	// Try to provide more specific error message based on error type
	switch err := err.(type) {
	case *json.UnmarshalTypeError:
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", err.Field)
	default:
		response.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// Render validation errors with message for every invalid field
func ValidationErrors(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	response := newErrorResponse(r, http.StatusBadRequest, "Request validation failed")
	response.Fields = fields

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, r, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		fields := validate.Fields(err)
		if fields == nil {
			Error(w, r, err)
			return value, err
		}
		ValidationErrors(w, r, fields)
		return value, err
	}

	return value, nil
}

func newErrorResponse(r *http.Request, status int, message string) ErrorResponse {
	return ErrorResponse{
		StatusCode: status,
		Timestamp:  Now().UTC().Format(time.RFC3339),
		Path:       r.URL.RequestURI(),
		Message:    message,
	}
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
