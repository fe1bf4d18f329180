package settle

import (
	"errors"
	"fmt"

	"github.com/campuskit/settle/tenant"
)

// Sentinel errors for common failure scenarios. Tenant resolution and
// isolation sentinels are declared in the tenant package and re-exported
// here so errors.Is works across both.
var (
	// General errors
	ErrNotFound     = errors.New("settle: not found")
	ErrInvalidInput = errors.New("settle: invalid input")

	// Tenant resolution errors
	ErrTenantResolution = tenant.ErrTenantResolution
	ErrBindingNotFound  = tenant.ErrBindingNotFound

	// Isolation errors
	ErrIsolationViolation = tenant.ErrIsolationViolation

	// Sequence allocation errors
	ErrSequenceConflict  = errors.New("settle: sequence counter changed concurrently")
	ErrSequenceExhausted = errors.New("settle: sequence allocation retries exhausted")

	// Settlement errors
	ErrSettlementConflict = errors.New("settle: event already settled by a concurrent run")
	ErrEventNotFound      = errors.New("settle: revenue event not found")
	ErrRecordNotFound     = errors.New("settle: settlement record not found")

	// Store errors
	ErrStoreNotReady = errors.New("settle: store not ready")
	ErrStoreClosed   = errors.New("settle: store is closed")
)

// ValidationError represents a validation failure with the offending field named.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("settle: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError collects per-event failures from a settlement run.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "settle: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("settle: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrBindingNotFound)
}

// IsAuthorizationError reports whether the error should surface to callers
// as an authorization failure. Both cases deliberately carry no detail about
// other tenants' data.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrTenantResolution) ||
		errors.Is(err, ErrIsolationViolation)
}

// IsRetryable returns true if the error is transient and the whole operation
// can safely be retried by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSequenceConflict) ||
		errors.Is(err, ErrSequenceExhausted) ||
		errors.Is(err, ErrSettlementConflict) ||
		errors.Is(err, ErrStoreNotReady)
}

// IsValidation returns true if the error is a field validation failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
