// Package sequence defines tenant-and-period-scoped counters and the
// externally visible registration numbers minted from them.
//
// Each (tenant, period) scope owns an independent counter: two tenants, or
// two admission years of one tenant, never compete for the same sequence.
// Counters are advanced only through the store's atomic increment
// primitive — a scan-for-max-and-write-back pattern would double-allocate
// under concurrent registrations.
package sequence

import (
	"github.com/campuskit/settle/types"
)

// Scope keys a counter by tenant code and period (two-digit admission year).
type Scope struct {
	TenantCode string `json:"tenant_code"`
	Period     string `json:"period"`
}

// Key returns the canonical storage key for the scope.
func (s Scope) Key() string { return s.TenantCode + ":" + s.Period }

// Counter is the persisted state of one scope. It is created on first
// allocation, mutated on every allocation, and never deleted. Gaps in
// issued values are tolerated after allocator failures; duplicates never
// are.
type Counter struct {
	types.Entity
	Scope     Scope `json:"scope"`
	LastValue int64 `json:"last_value"`
}
