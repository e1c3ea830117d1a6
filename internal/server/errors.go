package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcanaland/lumen/internal/deck"
	"github.com/arcanaland/lumen/internal/history"
	"github.com/arcanaland/lumen/internal/session"
)

// APIError is the error body of every failed request
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Code: e.Code, Message: message, StatusCode: e.StatusCode}
}

var (
	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Sign in to ask the cards",
		StatusCode: http.StatusUnauthorized,
	}

	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrQuotaExceeded = &APIError{
		Code:       "quota_exceeded",
		Message:    "You have used all of your readings",
		StatusCode: http.StatusPaymentRequired,
	}

	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "Not allowed in the current phase",
		StatusCode: http.StatusConflict,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
)

// asAPIError maps domain errors onto API errors
func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, session.ErrEmptyQuestion),
		errors.Is(err, session.ErrInvalidCount),
		errors.Is(err, session.ErrUnknownCard),
		errors.Is(err, deck.ErrUnknownVariant):
		return ErrBadRequest.WithMessage(err.Error())
	case errors.Is(err, session.ErrNotSignedIn):
		return ErrUnauthorized
	case errors.Is(err, session.ErrQuotaExhausted):
		return ErrQuotaExceeded
	case errors.Is(err, session.ErrWrongPhase):
		return ErrConflict
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrDrawLocked):
		return ErrConflict.WithMessage(err.Error())
	case errors.Is(err, history.ErrNotFound):
		return ErrNotFound.WithMessage("history entry not found")
	}
	return ErrInternal
}

// envelope is the body of every response
type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	apiErr := asAPIError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	json.NewEncoder(w).Encode(envelope{Error: apiErr})
}
