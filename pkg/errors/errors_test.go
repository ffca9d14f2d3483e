package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", http.StatusBadRequest)
	expected := "INVALID_INPUT: test error"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("original error")
	err := WrapError(originalErr, ErrCodeInternal, "wrapped error", http.StatusInternalServerError)

	if !errors.Is(err, originalErr) {
		t.Errorf("expected wrapped error to match cause")
	}
	if !strings.Contains(err.Error(), "original error") {
		t.Errorf("Error() should contain cause, got: %v", err.Error())
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", http.StatusBadRequest)
	err.WithContext("field", "room").WithContext("max", 128)

	if err.Context["field"] != "room" {
		t.Errorf("Context[field] = %v, want 'room'", err.Context["field"])
	}
	if err.Context["max"] != 128 {
		t.Errorf("Context[max] = %v, want 128", err.Context["max"])
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{NewInvalidInputError("bad"), ErrCodeInvalidInput, http.StatusBadRequest},
		{NewNotFoundError("stream"), ErrCodeNotFound, http.StatusNotFound},
		{NewUnauthorizedError("sign in"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{NewPermissionRequiredError("camera"), ErrCodePermissionRequired, http.StatusForbidden},
		{NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{NewInternalError("oops"), ErrCodeInternal, http.StatusInternalServerError},
		{NewBadGatewayError(errors.New("join failed")), ErrCodeBadGateway, http.StatusBadGateway},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.code {
			t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
		}
		if tt.err.HTTPStatus != tt.status {
			t.Errorf("HTTPStatus = %v, want %v", tt.err.HTTPStatus, tt.status)
		}
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewNotFoundError("stream")
	wrapped := fmt.Errorf("handler: %w", appErr)

	if got := GetAppError(wrapped); got != appErr {
		t.Errorf("GetAppError() = %v, want %v", got, appErr)
	}
	if got := GetAppError(errors.New("plain")); got != nil {
		t.Errorf("GetAppError() = %v, want nil", got)
	}
	if got := GetAppError(nil); got != nil {
		t.Errorf("GetAppError(nil) = %v, want nil", got)
	}
}
