package llm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorType classifies what part of the LLM configuration or transport
// caused an error.
type ErrorType string

const (
	ErrorTypeEndpoint    ErrorType = "endpoint"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeModel       ErrorType = "model"
	ErrorTypeRateLimited ErrorType = "rate_limited"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a provider failure carrying enough classification for the retry
// layer and the circuit breaker to act on it.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)

	joined := strings.Join(parts, " ")
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", joined, e.Cause)
	}
	return joined
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError, so the retry package can
// check retryability without importing this one.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// classifyRule matches lowercased provider error text. Every needle in
// needsAll must appear, plus at least one from anyOf when it is non-empty.
type classifyRule struct {
	needsAll  []string
	anyOf     []string
	errType   ErrorType
	message   string
	retryable bool
}

func (r classifyRule) matches(haystack string) bool {
	for _, needle := range r.needsAll {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	for _, needle := range r.anyOf {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return len(r.anyOf) == 0
}

// classifyRules are checked in order; the first hit wins. Order encodes
// precedence: credential failures outrank rate limiting, and the model
// lookup rule must fire before the generic 404 rule.
var classifyRules = []classifyRule{
	{
		anyOf:   []string{"401", "unauthorized", "invalid api key"},
		errType: ErrorTypeAuth, message: "authentication failed",
	},
	{
		needsAll: []string{"model"},
		anyOf:    []string{"not found", "does not exist"},
		errType:  ErrorTypeModel, message: "model not found",
	},
	{
		anyOf:   []string{"404"},
		errType: ErrorTypeEndpoint, message: "endpoint not found",
	},
	{
		anyOf:   []string{"connection refused", "no such host"},
		errType: ErrorTypeEndpoint, message: "connection failed", retryable: true,
	},
	{
		anyOf:   []string{"timeout", "deadline exceeded", "context canceled"},
		errType: ErrorTypeEndpoint, message: "request timeout", retryable: true,
	},
	{
		anyOf:   []string{"429", "rate limit", "too many requests"},
		errType: ErrorTypeRateLimited, message: "rate limited", retryable: true,
	},
	{
		// Self-hosted endpoints surface GPU faults as 200-level errors;
		// they clear on their own, so treat them like server hiccups.
		anyOf:   []string{"cuda error", "gpu error", "out of memory"},
		errType: ErrorTypeEndpoint, message: "GPU error", retryable: true,
	},
	{
		anyOf:   []string{"500", "502", "503", "504"},
		errType: ErrorTypeEndpoint, message: "server error", retryable: true,
	},
}

// statusCodes in probe order; the first code found in the text wins.
var statusCodes = []int{400, 401, 403, 404, 429, 500, 502, 503, 504}

func extractStatusCode(haystack string) int {
	for _, code := range statusCodes {
		if strings.Contains(haystack, strconv.Itoa(code)) {
			return code
		}
	}
	return 0
}

// ClassifyError turns an arbitrary provider error into a structured Error.
// An *Error anywhere in the chain passes through unchanged rather than
// being reclassified from its rendered text.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	haystack := strings.ToLower(err.Error())
	statusCode := extractStatusCode(haystack)

	for _, rule := range classifyRules {
		if rule.matches(haystack) {
			classified := NewError(rule.errType, rule.message, rule.retryable, err)
			classified.StatusCode = statusCode
			return classified
		}
	}

	unknown := NewError(ErrorTypeUnknown, "llm error", false, err)
	unknown.StatusCode = statusCode
	return unknown
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
