// Package report derives dashboard-facing financial metrics purely from the
// revenue event and settlement record history. Nothing here mutates state;
// the aggregator is a read-only consumer of the settlement engine's output
// schema.
package report

import (
	"fmt"
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/types"
)

// Metrics is the dashboard response for one period.
type Metrics struct {
	Period             string                         `json:"period"`
	TotalRevenue       types.Money                    `json:"total_revenue"`
	TotalPayouts       types.Money                    `json:"total_payouts"`
	PendingSettlements types.Money                    `json:"pending_settlements"`
	Balance            types.Money                    `json:"balance"`
	CategoryBreakdown  map[revenue.SourceType]float64 `json:"category_breakdown_percentages"`
}

// Transaction is one row of the time-descending ledger view.
type Transaction struct {
	ID            id.EventID         `json:"id"`
	SourceType    revenue.SourceType `json:"source_type"`
	FranchiseCode string             `json:"franchise_code"`
	BranchCode    string             `json:"branch_code"`
	Amount        types.Money        `json:"amount"`
	Status        revenue.Status     `json:"status"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

// PeriodRange maps a two-digit period ("24") to its calendar-year window
// [start, end). Periods are interpreted in the 21st century.
func PeriodRange(period string) (start, end time.Time, err error) {
	if len(period) != 2 || period[0] < '0' || period[0] > '9' || period[1] < '0' || period[1] > '9' {
		return time.Time{}, time.Time{}, fmt.Errorf("report: bad period %q, want two digits", period)
	}

	year := 2000 + int(period[0]-'0')*10 + int(period[1]-'0')
	start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(1, 0, 0)
	return start, end, nil
}
