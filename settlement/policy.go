package settlement

import (
	"fmt"

	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/types"
)

// Shares is a basis-point split of a gross amount. The three rates must sum
// to exactly 10000 bps.
type Shares struct {
	CompanyBps   int64 `json:"company_bps" mapstructure:"company_bps" yaml:"company_bps"`
	TaxBps       int64 `json:"tax_bps" mapstructure:"tax_bps" yaml:"tax_bps"`
	FranchiseBps int64 `json:"franchise_bps" mapstructure:"franchise_bps" yaml:"franchise_bps"`
}

// SharePolicy maps each revenue source type to its split. Rates are
// configuration, not literals: percentage policy changes without touching
// settlement logic.
type SharePolicy struct {
	BySource map[revenue.SourceType]Shares
}

// DefaultSharePolicy returns the platform's standing rates: enrollments
// split 30% company / 5% tax / 65% franchise; franchise fees accrue
// entirely to the company.
func DefaultSharePolicy() SharePolicy {
	return SharePolicy{
		BySource: map[revenue.SourceType]Shares{
			revenue.SourceEnrollment:   {CompanyBps: 3000, TaxBps: 500, FranchiseBps: 6500},
			revenue.SourceFranchiseFee: {CompanyBps: 10000, TaxBps: 0, FranchiseBps: 0},
		},
	}
}

// Validate checks every configured split sums to the whole.
func (p SharePolicy) Validate() error {
	if len(p.BySource) == 0 {
		return fmt.Errorf("settlement: share policy has no source types")
	}
	for src, s := range p.BySource {
		if s.CompanyBps < 0 || s.TaxBps < 0 || s.FranchiseBps < 0 {
			return fmt.Errorf("settlement: negative share rate for %s", src)
		}
		if total := s.CompanyBps + s.TaxBps + s.FranchiseBps; total != 10000 {
			return fmt.Errorf("settlement: shares for %s sum to %d bps, want 10000", src, total)
		}
	}
	return nil
}

// Split computes the three shares of a gross amount for a source type.
// Company and tax shares truncate toward zero; the franchise share takes
// the remainder, so the three always sum to the gross exactly — no
// minor-unit drift, run after run.
func (p SharePolicy) Split(src revenue.SourceType, gross types.Money) (company, tax, franchise types.Money, err error) {
	s, ok := p.BySource[src]
	if !ok {
		zero := types.Zero(gross.Currency)
		return zero, zero, zero, fmt.Errorf("settlement: no share policy for source type %q", src)
	}

	company = gross.PortionBps(s.CompanyBps)
	tax = gross.PortionBps(s.TaxBps)
	franchise = gross.Subtract(company).Subtract(tax)
	return company, tax, franchise, nil
}
