package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRateLimited     = errors.New("gateway rate limited")
	ErrCreditsDepleted = errors.New("gateway credits depleted")
	ErrMissingAPIKey   = errors.New("LOVABLE_API_KEY not configured")
	ErrEmptyChoices    = errors.New("gateway returned empty choices")
)

// StatusError is a non-2xx gateway reply other than 429 and 402.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI Gateway error: %d", e.StatusCode)
}

// errorForStatus maps a gateway status code to the error returned by Invoke.
func errorForStatus(code int, body string) error {
	switch code {
	case 429:
		return ErrRateLimited
	case 402:
		return ErrCreditsDepleted
	default:
		return &StatusError{StatusCode: code, Body: body}
	}
}

// IsQuotaOrRate reports whether err should stop a batch of gateway calls.
func IsQuotaOrRate(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCreditsDepleted)
}

type ErrorType string

const (
	ErrorQuota     ErrorType = "quota"
	ErrorRate      ErrorType = "rate"
	ErrorTransient ErrorType = "transient"
	ErrorPermanent ErrorType = "permanent"
	ErrorContext   ErrorType = "context"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrCreditsDepleted):
		return ErrorQuota
	case errors.Is(err, ErrRateLimited):
		return ErrorRate
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrorTransient
	}
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode >= 500 {
		return ErrorTransient
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"):
		return ErrorQuota
	case strings.Contains(e, "too long"), strings.Contains(e, "context length"):
		return ErrorContext
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}
