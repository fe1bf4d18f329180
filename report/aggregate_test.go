package report

import (
	"testing"
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/types"
)

func TestPeriodRange(t *testing.T) {
	tests := []struct {
		period    string
		wantStart time.Time
		wantErr   bool
	}{
		{"24", time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), false},
		{"00", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), false},
		{"99", time.Date(2099, time.January, 1, 0, 0, 0, 0, time.UTC), false},
		{"2024", time.Time{}, true},
		{"2", time.Time{}, true},
		{"ab", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			start, end, err := PeriodRange(tt.period)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.period)
				}
				return
			}
			if err != nil {
				t.Fatalf("PeriodRange failed: %v", err)
			}
			if !start.Equal(tt.wantStart) {
				t.Errorf("start: got %v, want %v", start, tt.wantStart)
			}
			if want := tt.wantStart.AddDate(1, 0, 0); !end.Equal(want) {
				t.Errorf("end: got %v, want %v", end, want)
			}
		})
	}
}

func TestComputeMetrics(t *testing.T) {
	at := time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	settledAt := at.Add(time.Hour)

	ev1 := &revenue.Event{
		ID:          id.NewEventID(),
		SourceType:  revenue.SourceEnrollment,
		GrossAmount: types.INR(1000000),
		OccurredAt:  at,
		Status:      revenue.StatusSettled,
		SettledAt:   &settledAt,
	}
	ev2 := &revenue.Event{
		ID:          id.NewEventID(),
		SourceType:  revenue.SourceEnrollment,
		GrossAmount: types.INR(500000),
		OccurredAt:  at,
		Status:      revenue.StatusUnsettled,
	}
	ev3 := &revenue.Event{
		ID:          id.NewEventID(),
		SourceType:  revenue.SourceFranchiseFee,
		GrossAmount: types.INR(500000),
		OccurredAt:  at,
		Status:      revenue.StatusUnsettled,
	}

	rec := settlement.NewRecord("inr")
	rec.Append(settlement.Line{
		EventID:        ev1.ID,
		SourceType:     ev1.SourceType,
		Gross:          ev1.GrossAmount,
		CompanyShare:   types.INR(300000),
		TaxShare:       types.INR(50000),
		FranchiseShare: types.INR(650000),
	})
	// A line for an event outside the period must not count.
	rec.Append(settlement.Line{
		EventID:        id.NewEventID(),
		SourceType:     revenue.SourceEnrollment,
		Gross:          types.INR(999999),
		CompanyShare:   types.INR(299999),
		TaxShare:       types.INR(49999),
		FranchiseShare: types.INR(650001),
	})

	m := ComputeMetrics("24", "inr", []*revenue.Event{ev1, ev2, ev3}, []*settlement.Record{rec})

	if m.Period != "24" {
		t.Errorf("Period: got %q", m.Period)
	}
	if !m.TotalRevenue.Equal(types.INR(2000000)) {
		t.Errorf("TotalRevenue: got %v, want ₹20000.00", m.TotalRevenue)
	}
	if !m.TotalPayouts.Equal(types.INR(650000)) {
		t.Errorf("TotalPayouts: got %v, want ₹6500.00", m.TotalPayouts)
	}
	if !m.PendingSettlements.Equal(types.INR(1000000)) {
		t.Errorf("PendingSettlements: got %v, want ₹10000.00", m.PendingSettlements)
	}
	if want := types.INR(350000); !m.Balance.Equal(want) {
		t.Errorf("Balance: got %v, want %v", m.Balance, want)
	}

	if pct := m.CategoryBreakdown[revenue.SourceEnrollment]; pct != 75.0 {
		t.Errorf("enrollment breakdown: got %v, want 75", pct)
	}
	if pct := m.CategoryBreakdown[revenue.SourceFranchiseFee]; pct != 25.0 {
		t.Errorf("franchise_fee breakdown: got %v, want 25", pct)
	}
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics("24", "inr", nil, nil)

	if !m.TotalRevenue.IsZero() || !m.TotalPayouts.IsZero() || !m.PendingSettlements.IsZero() || !m.Balance.IsZero() {
		t.Errorf("empty period should produce all-zero metrics: %+v", m)
	}
	if len(m.CategoryBreakdown) != 0 {
		t.Errorf("expected empty breakdown, got %v", m.CategoryBreakdown)
	}
}

func TestTransactions(t *testing.T) {
	base := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	events := []*revenue.Event{
		{ID: id.NewEventID(), GrossAmount: types.INR(100), OccurredAt: base, Status: revenue.StatusUnsettled},
		{ID: id.NewEventID(), GrossAmount: types.INR(200), OccurredAt: base.Add(2 * time.Hour), Status: revenue.StatusSettled},
		{ID: id.NewEventID(), GrossAmount: types.INR(300), OccurredAt: base.Add(time.Hour), Status: revenue.StatusUnsettled},
	}

	txs := Transactions(events, 0)
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	for i := 1; i < len(txs); i++ {
		if txs[i].OccurredAt.After(txs[i-1].OccurredAt) {
			t.Errorf("transactions not time-descending at index %d", i)
		}
	}
	if !txs[0].Amount.Equal(types.INR(200)) {
		t.Errorf("newest first: got %v", txs[0].Amount)
	}

	// Limit truncates after ordering.
	limited := Transactions(events, 2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(limited))
	}
	if !limited[0].Amount.Equal(types.INR(200)) || !limited[1].Amount.Equal(types.INR(300)) {
		t.Errorf("limit kept wrong rows: %v, %v", limited[0].Amount, limited[1].Amount)
	}
}

func TestTransactionsStableTieBreak(t *testing.T) {
	at := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	events := []*revenue.Event{
		{ID: id.NewEventID(), GrossAmount: types.INR(1), OccurredAt: at},
		{ID: id.NewEventID(), GrossAmount: types.INR(2), OccurredAt: at},
		{ID: id.NewEventID(), GrossAmount: types.INR(3), OccurredAt: at},
	}

	first := Transactions(events, 0)
	second := Transactions([]*revenue.Event{events[2], events[0], events[1]}, 0)

	for i := range first {
		if first[i].ID.String() != second[i].ID.String() {
			t.Fatalf("ordering unstable at index %d: %q != %q", i, first[i].ID, second[i].ID)
		}
	}
}
