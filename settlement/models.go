// Package settlement defines the settlement record — the immutable batch
// artifact a settlement run produces — and the share policy that splits an
// event's gross amount between the platform company, tax, and the
// franchise.
package settlement

import (
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/types"
)

// Line is one settled event inside a record. It carries the tenant codes of
// the event so that per-tenant payout reporting never needs to join back to
// the event collection.
type Line struct {
	EventID        id.EventID         `json:"event_id"`
	SourceType     revenue.SourceType `json:"source_type"`
	FranchiseCode  string             `json:"franchise_code"`
	BranchCode     string             `json:"branch_code"`
	Gross          types.Money        `json:"gross"`
	CompanyShare   types.Money        `json:"company_share"`
	TaxShare       types.Money        `json:"tax_share"`
	FranchiseShare types.Money        `json:"franchise_share"`
}

// Record is the persisted artifact of one settlement run that transitioned
// at least one event. It is immutable after creation; the financial audit
// replays history from these records.
type Record struct {
	types.Entity
	ID                  id.RecordID `json:"id"`
	Lines               []Line      `json:"lines"`
	TotalGross          types.Money `json:"total_gross"`
	TotalCompanyShare   types.Money `json:"total_company_share"`
	TotalTaxShare       types.Money `json:"total_tax_share"`
	TotalFranchiseShare types.Money `json:"total_franchise_share"`
	ProcessedAt         time.Time   `json:"processed_at"`
}

// Empty reports whether the run settled no events. Empty records are
// returned to the caller but never persisted.
func (r *Record) Empty() bool { return len(r.Lines) == 0 }

// Append adds a settled event's line and accumulates the totals.
func (r *Record) Append(l Line) {
	r.Lines = append(r.Lines, l)
	r.TotalGross = r.TotalGross.Add(l.Gross)
	r.TotalCompanyShare = r.TotalCompanyShare.Add(l.CompanyShare)
	r.TotalTaxShare = r.TotalTaxShare.Add(l.TaxShare)
	r.TotalFranchiseShare = r.TotalFranchiseShare.Add(l.FranchiseShare)
}

// NewRecord creates an empty record with zeroed totals in the given currency.
func NewRecord(currency string) *Record {
	return &Record{
		Entity:              types.NewEntity(),
		ID:                  id.NewRecordID(),
		TotalGross:          types.Zero(currency),
		TotalCompanyShare:   types.Zero(currency),
		TotalTaxShare:       types.Zero(currency),
		TotalFranchiseShare: types.Zero(currency),
		ProcessedAt:         time.Now().UTC(),
	}
}

// ListOpts narrows settlement record queries.
type ListOpts struct {
	Start  time.Time
	End    time.Time
	Limit  int
	Offset int
}
