package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// AppError is the admission-control error taxonomy. Reason is the stable
// machine-readable code; Code is the HTTP status the transport layer maps it to.
type AppError struct {
	Code    int    `json:"-"`
	Reason  string `json:"reason"`
	Message string `json:"error"`

	// RetryAfter > 0 means the caller may retry after that many seconds.
	RetryAfter int `json:"retry_after,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match any AppError against a sentinel by Reason.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Reason == other.Reason
}

var (
	ErrValidation         = &AppError{Code: http.StatusBadRequest, Reason: "validation_error", Message: "validation error"}
	ErrQuotaExceeded      = &AppError{Code: http.StatusTooManyRequests, Reason: "quota_exceeded", Message: "daily quota exceeded"}
	ErrCooldownActive     = &AppError{Code: http.StatusTooManyRequests, Reason: "cooldown_active", Message: "cooldown active"}
	ErrSessionNotFound    = &AppError{Code: http.StatusNotFound, Reason: "session_not_found", Message: "interview session not found, start a new interview"}
	ErrSessionInactive    = &AppError{Code: http.StatusBadRequest, Reason: "session_inactive", Message: "interview session is no longer active"}
	ErrQuestionCapReached = &AppError{Code: http.StatusBadRequest, Reason: "question_cap_reached", Message: "question limit reached for this interview"}
	ErrAICapReached       = &AppError{Code: http.StatusBadRequest, Reason: "ai_cap_reached", Message: "AI follow-up question limit reached for this interview"}
	ErrGeneration         = &AppError{Code: http.StatusBadGateway, Reason: "generation_error", Message: "question generation failed"}
	ErrStorage            = &AppError{Code: http.StatusInternalServerError, Reason: "storage_error", Message: "storage operation failed"}
	ErrRateLimited        = &AppError{Code: http.StatusTooManyRequests, Reason: "rate_limited", Message: "too many requests, please slow down"}
	ErrUnauthorized       = &AppError{Code: http.StatusUnauthorized, Reason: "unauthorized", Message: "unauthorized"}
	ErrForbidden          = &AppError{Code: http.StatusForbidden, Reason: "forbidden", Message: "forbidden"}
	ErrNotFound           = &AppError{Code: http.StatusNotFound, Reason: "not_found", Message: "not found"}
	ErrInternalServer     = &AppError{Code: http.StatusInternalServerError, Reason: "internal_error", Message: "internal server error"}
)

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Reason: ErrValidation.Reason, Message: msg}
}

func NewQuotaExceededError(msg string) *AppError {
	return &AppError{Code: http.StatusTooManyRequests, Reason: ErrQuotaExceeded.Reason, Message: msg}
}

// NewCooldownError reports how many whole seconds remain before the next
// question may be requested.
func NewCooldownError(waitSeconds int) *AppError {
	return &AppError{
		Code:       http.StatusTooManyRequests,
		Reason:     ErrCooldownActive.Reason,
		Message:    fmt.Sprintf("please wait %d seconds before requesting the next question", waitSeconds),
		RetryAfter: waitSeconds,
	}
}

// NewGenerationError wraps a collaborator failure without absorbing it.
func NewGenerationError(err error) *AppError {
	return &AppError{
		Code:    http.StatusBadGateway,
		Reason:  ErrGeneration.Reason,
		Message: fmt.Sprintf("question generation failed: %v", err),
		cause:   err,
	}
}

// NewStorageError wraps a storage failure; the operation must not have
// partially committed.
func NewStorageError(err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Reason:  ErrStorage.Reason,
		Message: "storage operation failed",
		cause:   err,
	}
}

// Reason extracts the stable reason code from err, or "internal_error" for
// anything outside the taxonomy.
func Reason(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ErrInternalServer.Reason
}

// HandleError writes err as a JSON response, mapping AppErrors to their HTTP
// status and everything else to a generic 500.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}
		JSONError(w, appErr)
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
