// Package apperr contains the closed set of service errors returned by the
// wallet, payment and claim flows, and their HTTP mapping.
package apperr

import (
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Category defines error category
type Category int

const (
	// CategoryGeneralError The service failed in an unexpected way
	CategoryGeneralError Category = iota
	// CategoryDataError The client sent invalid data in the request
	CategoryDataError
	// CategoryUnauthorized The client is not authenticated
	CategoryUnauthorized
	// CategoryForbidden The client may not act on the requested resource
	CategoryForbidden
	// CategoryResourceNotFound The requested resource does not exist
	CategoryResourceNotFound
	// CategoryDataConflict The request conflicts with existing data
	CategoryDataConflict
	// CategoryDependencyFailure A payment provider or the database failed
	CategoryDependencyFailure
)

// Error codes. DuplicateReference is never returned to callers as a failure:
// a repeated reference is an idempotent success.
const (
	CodeProviderUnavailable  = "provider_unavailable"
	CodePaymentNotSuccessful = "payment_not_successful"
	CodeInvalidAmount        = "invalid_amount"
	CodeInsufficientBalance  = "insufficient_balance"
	CodeDuplicateReference   = "duplicate_reference"
	CodeAlreadyClaimed       = "already_claimed"
	CodeClaimExpired         = "claim_expired"
	CodePersistenceFailure   = "persistence_failure"
	CodeNotFound             = "not_found"
	CodeInvalidRequest       = "invalid_request"
	CodeUnauthorized         = "unauthorized"
	CodeForbidden            = "forbidden"
	CodeConflict             = "conflict"
)

// ServiceError represents service specific type that
// is used all over the services.
type ServiceError struct {
	Category Category
	Code     string
	Message  string
	Err      error
}

// Sentinel errors, compare with errors.Is.
var (
	ErrProviderUnavailable  = &ServiceError{Category: CategoryDependencyFailure, Code: CodeProviderUnavailable, Message: "payment provider unavailable"}
	ErrPaymentNotSuccessful = &ServiceError{Category: CategoryDataError, Code: CodePaymentNotSuccessful, Message: "payment was not successful"}
	ErrInvalidAmount        = &ServiceError{Category: CategoryDataError, Code: CodeInvalidAmount, Message: "token amount must be a positive integer"}
	ErrInsufficientBalance  = &ServiceError{Category: CategoryDataError, Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrDuplicateReference   = &ServiceError{Category: CategoryDataConflict, Code: CodeDuplicateReference, Message: "reference already processed"}
	ErrAlreadyClaimed       = &ServiceError{Category: CategoryDataConflict, Code: CodeAlreadyClaimed, Message: "guest payment already claimed"}
	ErrClaimExpired         = &ServiceError{Category: CategoryDataError, Code: CodeClaimExpired, Message: "guest token expired"}
	ErrPersistenceFailure   = &ServiceError{Category: CategoryDependencyFailure, Code: CodePersistenceFailure, Message: "persistence failure"}
	ErrNotFound             = &ServiceError{Category: CategoryResourceNotFound, Code: CodeNotFound, Message: "not found"}
	ErrInvalidRequest       = &ServiceError{Category: CategoryDataError, Code: CodeInvalidRequest, Message: "invalid request"}
	ErrUnauthorized         = &ServiceError{Category: CategoryUnauthorized, Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden            = &ServiceError{Category: CategoryForbidden, Code: CodeForbidden, Message: "forbidden"}
	ErrConflict             = &ServiceError{Category: CategoryDataConflict, Code: CodeConflict, Message: "conflict"}
)

// Error method to comply with error interface
func (err *ServiceError) Error() string {
	if err.Err != nil {
		return err.Message + ": " + err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error
func (err *ServiceError) Unwrap() error {
	return err.Err
}

// Is matches any ServiceError carrying the same code
func (err *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return err.Code == t.Code
}

// StatusCode returns the HTTP status code for the error category
func (err *ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryDataError:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryResourceNotFound:
		return http.StatusNotFound
	case CategoryDataConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Wrap attaches cause to a copy of kind
func Wrap(kind *ServiceError, cause error) error {
	return &ServiceError{Category: kind.Category, Code: kind.Code, Message: kind.Message, Err: cause}
}

// WithMessage returns a copy of kind with a caller-facing message
func WithMessage(kind *ServiceError, message string) error {
	return &ServiceError{Category: kind.Category, Code: kind.Code, Message: message}
}

// Persistence wraps a database error as a retryable PersistenceFailure and
// records the stack of the call site.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	return Wrap(ErrPersistenceFailure, pkgerrors.WithStack(err))
}

// From extracts the ServiceError of err, falling back to a general error
func From(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return &ServiceError{Category: CategoryGeneralError, Code: "internal", Message: "internal server error", Err: err}
}

// Retryable reports whether the caller may safely retry the whole operation
func Retryable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrPersistenceFailure)
}
