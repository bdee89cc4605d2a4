package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/Kodar11/Blog/pkg/errors"
	"github.com/Kodar11/Blog/pkg/logger"
	"github.com/Kodar11/Blog/pkg/validator"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// Response is the JSON envelope used for every response, success or failure.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Data       any               `json:"data"`
	Message    string            `json:"message"`
	Success    bool              `json:"success"`
	Errors     map[string]string `json:"errors,omitempty"`
	RequestID  string            `json:"requestId,omitempty"`
}

// NewResponse builds an envelope; success is derived from the status code.
func NewResponse(status int, data any, message string) Response {
	if message == "" {
		message = "Success"
	}
	return Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes data wrapped in the standard envelope.
func Write(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, NewResponse(status, data, message))
}

// WriteError writes the envelope for err. AppErrors render their own status and
// message; anything else becomes a generic 500 so no internal detail leaks.
// It prefers the request-scoped logger from context over the fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	status := apperrors.HTTPStatus(err)
	message := "an internal error occurred"

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case errors.Is(err, apperrors.ErrNotFound):
		message = "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		message = "resource already exists"
	case errors.Is(err, apperrors.ErrUnauthorized):
		message = "unauthorized"
	case errors.Is(err, apperrors.ErrInvalidInput):
		message = "invalid input"
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	resp := NewResponse(status, nil, message)
	resp.RequestID = requestID
	WriteJSON(w, status, resp)
}

// WriteValidationError writes a 400 envelope. Field-level messages from the
// validator package are attached under "errors".
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	resp := NewResponse(http.StatusBadRequest, nil, err.Error())
	resp.RequestID = logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &valErr):
		resp.Message = "request validation failed"
		resp.Errors = valErr.Fields()
	case errors.As(err, &appErr):
		resp.Message = appErr.Message
	}

	WriteJSON(w, http.StatusBadRequest, resp)
}

// DecodeJSON reads at most 1MB of JSON from the request body into dst. The
// decoder error stays on the returned error's chain and out of its message.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.FromContext(r.Context()).DebugContext(r.Context(), "request body rejected",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		appErr := apperrors.InvalidInput("invalid request body")
		appErr.Err = fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
		return appErr
	}
	return nil
}
