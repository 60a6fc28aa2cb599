package client

import (
	"context"
	"errors"
	"strings"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as metric labels (upstreamErrorsTotal).
const (
	ErrorCategoryTimeout      ErrorCategory = "timeout"
	ErrorCategoryNetwork      ErrorCategory = "network"
	ErrorCategoryUnauthorized ErrorCategory = "unauthorized"
	ErrorCategoryRejected     ErrorCategory = "upstream_4xx"
	ErrorCategoryRateLimited  ErrorCategory = "rate_limited"
	ErrorCategoryUpstream5xx  ErrorCategory = "upstream_5xx"
	ErrorCategoryCircuitOpen  ErrorCategory = "circuit_open"
	ErrorCategoryParsing      ErrorCategory = "parsing"
	ErrorCategoryUnknown      ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ErrorCategoryCircuitOpen
	case errors.Is(err, ErrUnauthorized):
		return ErrorCategoryUnauthorized
	case errors.Is(err, ErrRateLimited):
		return ErrorCategoryRateLimited
	case errors.Is(err, ErrUpstreamFailure):
		return ErrorCategoryUpstream5xx
	case errors.Is(err, ErrUpstreamRejected):
		return ErrorCategoryRejected
	case errors.Is(err, ErrInvalidResponse):
		return ErrorCategoryParsing
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorCategoryTimeout
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return ErrorCategoryTimeout
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "http request failed") {
		return ErrorCategoryNetwork
	}
	return ErrorCategoryUnknown
}
