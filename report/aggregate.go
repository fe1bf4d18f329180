package report

import (
	"sort"

	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/types"
)

// ComputeMetrics derives the dashboard metrics for a period from the
// already-scoped event and record slices.
//
//   - TotalRevenue sums gross amounts of all events in the period, settled
//     or not.
//   - TotalPayouts sums the franchise share of settled events, read from
//     the settlement record lines (the audited artifact, not a recompute).
//   - PendingSettlements sums gross of still-unsettled events.
//   - Balance = TotalRevenue − TotalPayouts − PendingSettlements.
//
// CategoryBreakdown is each source type's percentage of TotalRevenue,
// rounded to two decimals.
func ComputeMetrics(period string, currency string, events []*revenue.Event, records []*settlement.Record) Metrics {
	m := Metrics{
		Period:             period,
		TotalRevenue:       types.Zero(currency),
		TotalPayouts:       types.Zero(currency),
		PendingSettlements: types.Zero(currency),
		CategoryBreakdown:  make(map[revenue.SourceType]float64),
	}

	byCategory := make(map[revenue.SourceType]int64)
	inPeriod := make(map[string]bool, len(events))

	for _, ev := range events {
		inPeriod[ev.ID.String()] = true
		m.TotalRevenue = m.TotalRevenue.Add(ev.GrossAmount)
		byCategory[ev.SourceType] += ev.GrossAmount.Amount
		if ev.Status == revenue.StatusUnsettled {
			m.PendingSettlements = m.PendingSettlements.Add(ev.GrossAmount)
		}
	}

	// Records can span periods; only lines whose event falls in this
	// period count toward payouts.
	for _, rec := range records {
		for _, line := range rec.Lines {
			if inPeriod[line.EventID.String()] {
				m.TotalPayouts = m.TotalPayouts.Add(line.FranchiseShare)
			}
		}
	}

	m.Balance = m.TotalRevenue.Subtract(m.TotalPayouts).Subtract(m.PendingSettlements)

	if m.TotalRevenue.Amount > 0 {
		for src, amount := range byCategory {
			pct := float64(amount) / float64(m.TotalRevenue.Amount) * 100
			m.CategoryBreakdown[src] = float64(int64(pct*100+0.5)) / 100
		}
	}

	return m
}

// Transactions produces the finite, restartable, time-descending ledger
// view from the scoped events. Ties on time break by ID so pagination is
// stable across calls.
func Transactions(events []*revenue.Event, limit int) []Transaction {
	txs := make([]Transaction, 0, len(events))
	for _, ev := range events {
		txs = append(txs, Transaction{
			ID:            ev.ID,
			SourceType:    ev.SourceType,
			FranchiseCode: ev.FranchiseCode,
			BranchCode:    ev.BranchCode,
			Amount:        ev.GrossAmount,
			Status:        ev.Status,
			OccurredAt:    ev.OccurredAt,
		})
	}

	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].OccurredAt.Equal(txs[j].OccurredAt) {
			return txs[i].OccurredAt.After(txs[j].OccurredAt)
		}
		return txs[i].ID.String() > txs[j].ID.String()
	})

	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs
}
