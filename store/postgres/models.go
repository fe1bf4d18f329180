package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/tenant"
	"github.com/campuskit/settle/types"
)

// ==================== Revenue event models ====================

type revenueEventModel struct {
	grove.BaseModel `grove:"table:settle_revenue_events"`

	ID            string     `grove:"id,pk"`
	SourceType    string     `grove:"source_type"`
	SourceID      string     `grove:"source_id"`
	FranchiseCode string     `grove:"franchise_code"`
	BranchCode    string     `grove:"branch_code"`
	GrossCents    int64      `grove:"gross_cents"`
	GrossCurrency string     `grove:"gross_currency"`
	OccurredAt    time.Time  `grove:"occurred_at"`
	Status        string     `grove:"status"`
	SettledAt     *time.Time `grove:"settled_at"`
	SettlementID  string     `grove:"settlement_id"`
	CreatedAt     time.Time  `grove:"created_at"`
	UpdatedAt     time.Time  `grove:"updated_at"`
}

func toRevenueEventModel(e *revenue.Event) *revenueEventModel {
	m := &revenueEventModel{
		ID:            e.ID.String(),
		SourceType:    string(e.SourceType),
		SourceID:      e.SourceID,
		FranchiseCode: e.FranchiseCode,
		BranchCode:    e.BranchCode,
		GrossCents:    e.GrossAmount.Amount,
		GrossCurrency: e.GrossAmount.Currency,
		OccurredAt:    e.OccurredAt,
		Status:        string(e.Status),
		SettledAt:     e.SettledAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if !e.SettlementID.IsNil() {
		m.SettlementID = e.SettlementID.String()
	}
	return m
}

func fromRevenueEventModel(m *revenueEventModel) (*revenue.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}

	e := &revenue.Event{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            eventID,
		SourceType:    revenue.SourceType(m.SourceType),
		SourceID:      m.SourceID,
		FranchiseCode: m.FranchiseCode,
		BranchCode:    m.BranchCode,
		GrossAmount:   types.Money{Amount: m.GrossCents, Currency: m.GrossCurrency},
		OccurredAt:    m.OccurredAt,
		Status:        revenue.Status(m.Status),
		SettledAt:     m.SettledAt,
	}

	if m.SettlementID != "" {
		recordID, err := id.ParseRecordID(m.SettlementID)
		if err != nil {
			return nil, err
		}
		e.SettlementID = recordID
	}
	return e, nil
}

// ==================== Settlement record models ====================

// lineDoc is the JSONB wire form of one settlement line. Field names are
// stable: the scope queries address them with ->> extraction.
type lineDoc struct {
	EventID             string `json:"event_id"`
	SourceType          string `json:"source_type"`
	FranchiseCode       string `json:"franchise_code"`
	BranchCode          string `json:"branch_code"`
	GrossCents          int64  `json:"gross_cents"`
	CompanyShareCents   int64  `json:"company_share_cents"`
	TaxShareCents       int64  `json:"tax_share_cents"`
	FranchiseShareCents int64  `json:"franchise_share_cents"`
}

type settlementRecordModel struct {
	grove.BaseModel `grove:"table:settle_settlement_records"`

	ID                       string          `grove:"id,pk"`
	Currency                 string          `grove:"currency"`
	Lines                    json.RawMessage `grove:"lines,type:jsonb"`
	TotalGrossCents          int64           `grove:"total_gross_cents"`
	TotalCompanyShareCents   int64           `grove:"total_company_share_cents"`
	TotalTaxShareCents       int64           `grove:"total_tax_share_cents"`
	TotalFranchiseShareCents int64           `grove:"total_franchise_share_cents"`
	ProcessedAt              time.Time       `grove:"processed_at"`
	CreatedAt                time.Time       `grove:"created_at"`
	UpdatedAt                time.Time       `grove:"updated_at"`
}

func toSettlementRecordModel(r *settlement.Record) *settlementRecordModel {
	docs := make([]lineDoc, len(r.Lines))
	for i, l := range r.Lines {
		docs[i] = lineDoc{
			EventID:             l.EventID.String(),
			SourceType:          string(l.SourceType),
			FranchiseCode:       l.FranchiseCode,
			BranchCode:          l.BranchCode,
			GrossCents:          l.Gross.Amount,
			CompanyShareCents:   l.CompanyShare.Amount,
			TaxShareCents:       l.TaxShare.Amount,
			FranchiseShareCents: l.FranchiseShare.Amount,
		}
	}
	lines, _ := json.Marshal(docs) //nolint:errcheck // best-effort

	return &settlementRecordModel{
		ID:                       r.ID.String(),
		Currency:                 r.TotalGross.Currency,
		Lines:                    lines,
		TotalGrossCents:          r.TotalGross.Amount,
		TotalCompanyShareCents:   r.TotalCompanyShare.Amount,
		TotalTaxShareCents:       r.TotalTaxShare.Amount,
		TotalFranchiseShareCents: r.TotalFranchiseShare.Amount,
		ProcessedAt:              r.ProcessedAt,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
}

func fromSettlementRecordModel(m *settlementRecordModel) (*settlement.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, err
	}

	var docs []lineDoc
	if len(m.Lines) > 0 {
		if err := json.Unmarshal(m.Lines, &docs); err != nil {
			return nil, err
		}
	}

	lines := make([]settlement.Line, len(docs))
	for i, d := range docs {
		eventID, err := id.ParseEventID(d.EventID)
		if err != nil {
			return nil, err
		}
		lines[i] = settlement.Line{
			EventID:        eventID,
			SourceType:     revenue.SourceType(d.SourceType),
			FranchiseCode:  d.FranchiseCode,
			BranchCode:     d.BranchCode,
			Gross:          types.Money{Amount: d.GrossCents, Currency: m.Currency},
			CompanyShare:   types.Money{Amount: d.CompanyShareCents, Currency: m.Currency},
			TaxShare:       types.Money{Amount: d.TaxShareCents, Currency: m.Currency},
			FranchiseShare: types.Money{Amount: d.FranchiseShareCents, Currency: m.Currency},
		}
	}

	return &settlement.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  recordID,
		Lines:               lines,
		TotalGross:          types.Money{Amount: m.TotalGrossCents, Currency: m.Currency},
		TotalCompanyShare:   types.Money{Amount: m.TotalCompanyShareCents, Currency: m.Currency},
		TotalTaxShare:       types.Money{Amount: m.TotalTaxShareCents, Currency: m.Currency},
		TotalFranchiseShare: types.Money{Amount: m.TotalFranchiseShareCents, Currency: m.Currency},
		ProcessedAt:         m.ProcessedAt,
	}, nil
}

// ==================== Sequence counter models ====================

type sequenceCounterModel struct {
	grove.BaseModel `grove:"table:settle_sequence_counters"`

	ScopeKey   string    `grove:"scope_key,pk"`
	TenantCode string    `grove:"tenant_code"`
	Period     string    `grove:"period"`
	LastValue  int64     `grove:"last_value"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func fromSequenceCounterModel(m *sequenceCounterModel) *sequence.Counter {
	return &sequence.Counter{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Scope:     sequence.Scope{TenantCode: m.TenantCode, Period: m.Period},
		LastValue: m.LastValue,
	}
}

// ==================== Admin binding models ====================

type adminBindingModel struct {
	grove.BaseModel `grove:"table:settle_admin_bindings"`

	ID            string    `grove:"id,pk"`
	UserID        string    `grove:"user_id"`
	Email         string    `grove:"email"`
	FranchiseCode string    `grove:"franchise_code"`
	BranchCode    string    `grove:"branch_code"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toAdminBindingModel(b *tenant.AdminBinding) *adminBindingModel {
	return &adminBindingModel{
		ID:            b.ID.String(),
		UserID:        b.UserID,
		Email:         b.Email,
		FranchiseCode: b.FranchiseCode,
		BranchCode:    b.BranchCode,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func fromAdminBindingModel(m *adminBindingModel) (*tenant.AdminBinding, error) {
	bindingID, err := id.ParseBindingID(m.ID)
	if err != nil {
		return nil, err
	}

	return &tenant.AdminBinding{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            bindingID,
		UserID:        m.UserID,
		Email:         m.Email,
		FranchiseCode: m.FranchiseCode,
		BranchCode:    m.BranchCode,
	}, nil
}
