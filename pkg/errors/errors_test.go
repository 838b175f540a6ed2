package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "no url provided", http.StatusBadRequest)
	assert.Equal(t, "INVALID_INPUT: no url provided", err.Error())
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("gate: context deadline exceeded")
	err := WrapError(cause, ErrCodeServiceUnavailable, "browser session busy", http.StatusServiceUnavailable)

	assert.Same(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "context deadline exceeded")
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewInvalidInputError("invalid url")
	err.WithContext("url", "ftp://example.com").WithContext("max_length", 2048)

	assert.Equal(t, "ftp://example.com", err.Context["url"])
	assert.Equal(t, 2048, err.Context["max_length"])
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"invalid input", NewInvalidInputError("x"), ErrCodeInvalidInput, http.StatusBadRequest},
		{"rate limit", NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{"internal", NewInternalError("x"), ErrCodeInternal, http.StatusInternalServerError},
		{"unavailable", NewServiceUnavailableError("x"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestGetAppError(t *testing.T) {
	appErr := NewInvalidInputError("test")

	assert.Same(t, appErr, GetAppError(appErr))

	wrapped := fmt.Errorf("handler: %w", appErr)
	require.NotNil(t, GetAppError(wrapped))

	assert.Nil(t, GetAppError(errors.New("regular error")))
	assert.Nil(t, GetAppError(nil))
}
