package tenant

import "fmt"

// Policy builds isolation-enforcing read filters and write guards from a
// tenant Context. It is stateless and safe for concurrent use.
type Policy struct{}

// NewPolicy creates an access policy.
func NewPolicy() Policy { return Policy{} }

// FilterFor returns the read predicate for a context.
//
// A Global context reads unrestricted. Every other context gets a
// conjunction pinning franchise_code and, when the branch is distinct,
// branch_code. A non-global context can never receive an unrestricted
// filter: a context that somehow lacks a franchise code yields the empty
// fail-closed filter, which matches nothing.
func (Policy) FilterFor(c Context) Filter {
	if c.IsGlobal() {
		return All()
	}
	if c.FranchiseCode == "" {
		return Filter{}
	}

	f := Filter{}.And(FieldFranchiseCode, c.FranchiseCode)
	if c.BranchCode != "" && c.BranchCode != c.FranchiseCode {
		f = f.And(FieldBranchCode, c.BranchCode)
	}
	return f
}

// ScopeForWrite stamps the outgoing document with the context's tenant
// codes before persistence, overriding any client-supplied values. A global
// operator writes on behalf of a tenant, so the document must already carry
// its target codes.
func (Policy) ScopeForWrite(c Context, doc Stamped) error {
	if c.IsGlobal() {
		if fc, _ := doc.TenantCodes(); fc == "" {
			return fmt.Errorf("%w: global write requires explicit tenant codes", ErrMissingTenant)
		}
		return nil
	}
	if c.FranchiseCode == "" {
		return fmt.Errorf("%w: context has no franchise code", ErrMissingTenant)
	}

	doc.SetTenantCodes(c.FranchiseCode, c.BranchCode)
	return nil
}

// AssertInTenant fails when an update/delete target's stamped tenant fields
// do not match the context. This stops a caller from mutating another
// tenant's record by guessing an identifier; the error intentionally does
// not reveal which tenant owns the record.
func (Policy) AssertInTenant(c Context, doc Stamped) error {
	if c.IsGlobal() {
		return nil
	}

	fc, bc := doc.TenantCodes()
	if fc != c.FranchiseCode {
		return ErrIsolationViolation
	}
	if c.AccessLevel == AccessBranch && bc != c.BranchCode {
		return ErrIsolationViolation
	}
	return nil
}
