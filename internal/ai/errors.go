package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

// ErrorType is the category of a collaborator failure.
type ErrorType string

const (
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeInvalidKey ErrorType = "invalid_key"
	ErrorTypeNoKey      ErrorType = "no_key"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Classify categorises err. API status codes are preferred and the error text is the fallback for wrapped or
// proxied failures.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoAPIKey) {
		return ErrorTypeNoKey
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrorTypeInvalidKey
		case http.StatusTooManyRequests:
			return ErrorTypeRateLimit
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return ErrorTypeNetwork
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "api key"):
		return ErrorTypeInvalidKey
	case strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "network"):
		return ErrorTypeNetwork
	default:
		return ErrorTypeUnknown
	}
}

// UserMessage is a short explanation of t suitable for chat-style callers.
func UserMessage(t ErrorType) string {
	switch t {
	case ErrorTypeNetwork:
		return "The AI coach could not be reached. Please check your connection and try again."
	case ErrorTypeRateLimit:
		return "Too many requests. Please wait a moment before trying again."
	case ErrorTypeInvalidKey:
		return "The AI coach rejected the configured API key."
	case ErrorTypeNoKey:
		return "The AI coach is not configured."
	case ErrorTypeUnknown:
		return "We're having trouble reaching the AI coach right now. Please try again."
	default:
		return ""
	}
}
