package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ecopulse/internal/gateway"
	"ecopulse/internal/identity"
	"ecopulse/internal/service"
)

const (
	msgRateLimited     = "Rate limit exceeded. Please try again later."
	msgCreditsDepleted = "Credits depleted. Please add credits to continue."
	maxBodyBytes       = 25 << 20
)

var (
	errNotFoundRoute    = errors.New("not found")
	errMethodNotAllowed = errors.New("method not allowed")
	errInvalidJSON      = errors.New("invalid json")
	errBatchUnavailable = errors.New("batch workflows are not configured")
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := http.StatusText(code)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

// fail writes err with the status and message for its class.
func fail(w http.ResponseWriter, err error) {
	code, msg := statusFor(err)
	writeJSON(w, code, map[string]string{"error": msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, gateway.ErrCreditsDepleted):
		return http.StatusPaymentRequired, msgCreditsDepleted
	case errors.Is(err, identity.ErrMissingToken), errors.Is(err, identity.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, errInvalidJSON), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// decode reads a JSON body into v. An empty body leaves v unchanged.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errInvalidJSON, err)
}
