// Package revenue defines the persisted revenue event: the unit fact that
// the settlement engine consumes. Events are created when an enrollment or
// franchise-fee record is recognized as revenue, transition unsettled →
// settled exactly once, and are never deleted — they are the audit trail.
package revenue

import (
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/types"
)

// SourceType identifies what kind of record produced a revenue event.
// The share policy keys off it.
type SourceType string

const (
	SourceEnrollment   SourceType = "enrollment"
	SourceFranchiseFee SourceType = "franchise_fee"
)

// Valid reports whether the source type is one the engine knows how to split.
func (s SourceType) Valid() bool {
	return s == SourceEnrollment || s == SourceFranchiseFee
}

// Status is the settlement state of an event.
type Status string

const (
	StatusUnsettled Status = "unsettled"
	StatusSettled   Status = "settled"
)

// Event is a persisted revenue fact.
type Event struct {
	types.Entity
	ID            id.EventID  `json:"id"`
	SourceType    SourceType  `json:"source_type"`
	SourceID      string      `json:"source_id"`
	FranchiseCode string      `json:"franchise_code"`
	BranchCode    string      `json:"branch_code"`
	GrossAmount   types.Money `json:"gross_amount"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Status        Status      `json:"status"`
	SettledAt     *time.Time  `json:"settled_at,omitempty"`
	SettlementID  id.RecordID `json:"settlement_id,omitempty"`
}

// TenantCodes implements tenant.Stamped.
func (e *Event) TenantCodes() (string, string) {
	return e.FranchiseCode, e.BranchCode
}

// SetTenantCodes implements tenant.Stamped.
func (e *Event) SetTenantCodes(franchiseCode, branchCode string) {
	e.FranchiseCode = franchiseCode
	e.BranchCode = branchCode
}

// FieldError names the offending field of a malformed event. The root
// package wraps it into its ValidationError taxonomy.
type FieldError struct {
	Field   string
	Message string
}

// Validate checks the event for structural problems. It returns a FieldError
// naming the first offending field, or nil.
func (e *Event) Validate() *FieldError {
	if !e.SourceType.Valid() {
		return &FieldError{Field: "source_type", Message: "unknown source type"}
	}
	if e.SourceID == "" {
		return &FieldError{Field: "source_id", Message: "missing originating record reference"}
	}
	if e.GrossAmount.Currency == "" {
		return &FieldError{Field: "gross_amount", Message: "missing currency"}
	}
	if e.GrossAmount.IsNegative() {
		return &FieldError{Field: "gross_amount", Message: "gross amount must be non-negative"}
	}
	if e.OccurredAt.IsZero() {
		return &FieldError{Field: "occurred_at", Message: "missing occurrence time"}
	}
	return nil
}

// ListOpts narrows revenue event queries. The zero value lists everything
// the caller's tenant filter allows.
type ListOpts struct {
	Status Status
	Source SourceType
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
