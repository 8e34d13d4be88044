// AngelaMos | 2026
// errors.go

package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrGeneration         = errors.New("generation failed")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrPaymentProvider    = errors.New("payment provider error")
	ErrPaymentRequired    = errors.New("payment required")
)

// AppError carries the HTTP shape of an error alongside the wrapped cause.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func ValidationError(message string) *AppError {
	return NewAppError(
		ErrInvalidInput,
		message,
		http.StatusBadRequest,
		"VALIDATION_ERROR",
	)
}

func NotFoundError(resource string) *AppError {
	return NewAppError(
		ErrNotFound,
		resource+" not found",
		http.StatusNotFound,
		"NOT_FOUND",
	)
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(
		ErrUnauthorized,
		message,
		http.StatusUnauthorized,
		"UNAUTHORIZED",
	)
}

func ForbiddenError(message string) *AppError {
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, "CONFLICT")
}

func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already exists",
		http.StatusConflict,
		"DUPLICATE",
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		ErrTokenExpired,
		"token has expired",
		http.StatusUnauthorized,
		"TOKEN_EXPIRED",
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		ErrTokenRevoked,
		"token has been revoked",
		http.StatusUnauthorized,
		"TOKEN_REVOKED",
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		ErrTokenInvalid,
		"token is invalid",
		http.StatusUnauthorized,
		"TOKEN_INVALID",
	)
}

// ToAppError maps the service sentinels onto their HTTP representation.
// Unknown errors become a generic 500 that does not leak the cause.
func ToAppError(err error, resource string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundError(resource)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(
			err,
			validationMessage(err),
			http.StatusBadRequest,
			"VALIDATION_ERROR",
		)
	case errors.Is(err, ErrUnauthorized):
		return UnauthorizedError("")
	case errors.Is(err, ErrForbidden):
		return ForbiddenError("insufficient permissions")
	case errors.Is(err, ErrDuplicateKey):
		return DuplicateError(resource)
	case errors.Is(err, ErrConflict):
		return ConflictError(resource + " was modified concurrently or is in the wrong state")
	case errors.Is(err, ErrPaymentRequired):
		return NewAppError(
			err,
			"payment required",
			http.StatusPaymentRequired,
			"PAYMENT_REQUIRED",
		)
	case errors.Is(err, ErrGeneration):
		return NewAppError(
			err,
			"the oracle could not answer right now, please try again",
			http.StatusBadGateway,
			"GENERATION_FAILED",
		)
	case errors.Is(err, ErrPaymentProvider):
		return NewAppError(
			err,
			"payment provider unavailable",
			http.StatusBadGateway,
			"PAYMENT_PROVIDER_ERROR",
		)
	case errors.Is(err, ErrStorageUnavailable):
		return NewAppError(
			err,
			"storage temporarily unavailable",
			http.StatusServiceUnavailable,
			"STORAGE_UNAVAILABLE",
		)
	case errors.Is(err, context.Canceled):
		return NewAppError(err, "request canceled", 499, "REQUEST_CANCELED")
	}

	return NewAppError(
		err,
		"internal server error",
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
	)
}

type inputError struct {
	reason string
}

func (e *inputError) Error() string { return e.reason }

func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput builds an error matching ErrInvalidInput whose message is
// safe to return to the client verbatim.
func InvalidInput(format string, args ...any) error {
	return &inputError{reason: fmt.Sprintf(format, args...)}
}

func validationMessage(err error) string {
	var in *inputError
	if errors.As(err, &in) {
		return in.reason
	}
	return "invalid input"
}

// IsUnavailable reports whether err means the store could not be reached,
// as opposed to a query that reached it and failed.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
