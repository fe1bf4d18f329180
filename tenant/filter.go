package tenant

// Canonical field names used in filter clauses. Storage drivers map these
// to their native column/field names.
const (
	FieldFranchiseCode = "franchise_code"
	FieldBranchCode    = "branch_code"
)

// Clause is a single field-equality predicate.
type Clause struct {
	Field string
	Value string
}

// Filter is a storage-agnostic tenant predicate: a conjunction of equality
// clauses, optionally combined with disjunction groups. Each storage driver
// renders it natively (bson, SQL WHERE, in-memory match).
//
// The zero Filter matches nothing useful and must not be used directly;
// predicates are built by Policy.FilterFor or ForCode so that a non-global
// context can never observe an unrestricted filter.
type Filter struct {
	// Unrestricted matches every record. Only a Global context produces it.
	Unrestricted bool

	// Equals are ANDed field-equality clauses.
	Equals []Clause

	// AnyOf groups are ANDed with Equals; the clauses inside each group are
	// ORed. Used for legacy-compatible lookups where a tenant code may be
	// stamped in either the franchise or the branch field.
	AnyOf [][]Clause
}

// All returns the unrestricted filter. Reserved for Global contexts.
func All() Filter { return Filter{Unrestricted: true} }

// ForCode returns a filter matching records stamped with the given tenant
// code in either tenant field. This is the legacy-compatible disjunction
// lookup: franchise-level records store the code as franchise_code while
// branch-level records store it as branch_code. To bound the lookup by a
// caller's scope, use AndCode on the scope filter instead.
func ForCode(code string) Filter {
	return Filter{AnyOf: [][]Clause{codeGroup(code)}}
}

// AndCode returns a copy of the filter narrowed by the same disjunction
// ForCode builds. The unrestricted flag is dropped so the code group
// applies on its own for global scopes.
func (f Filter) AndCode(code string) Filter {
	groups := make([][]Clause, len(f.AnyOf), len(f.AnyOf)+1)
	copy(groups, f.AnyOf)
	f.AnyOf = append(groups, codeGroup(code))
	f.Unrestricted = false
	return f
}

func codeGroup(code string) []Clause {
	return []Clause{
		{Field: FieldFranchiseCode, Value: code},
		{Field: FieldBranchCode, Value: code},
	}
}

// IsUnrestricted reports whether the filter matches every record.
func (f Filter) IsUnrestricted() bool {
	return f.Unrestricted && len(f.Equals) == 0 && len(f.AnyOf) == 0
}

// IsEmpty reports whether the filter carries no clauses at all without
// being explicitly unrestricted. Such a filter matches nothing; it is the
// fail-closed shape for a context that lacks tenant codes.
func (f Filter) IsEmpty() bool {
	return !f.Unrestricted && len(f.Equals) == 0 && len(f.AnyOf) == 0
}

// And returns a copy of the filter with an additional equality clause.
func (f Filter) And(field, value string) Filter {
	eq := make([]Clause, len(f.Equals), len(f.Equals)+1)
	copy(eq, f.Equals)
	f.Equals = append(eq, Clause{Field: field, Value: value})
	f.Unrestricted = false
	return f
}

// Matches evaluates the filter against a document, reading field values
// through the get function. Used by the in-memory store; database drivers
// render the filter into their query language instead.
func (f Filter) Matches(get func(field string) string) bool {
	if f.Unrestricted {
		return true
	}
	if f.IsEmpty() {
		return false
	}

	for _, c := range f.Equals {
		if get(c.Field) != c.Value {
			return false
		}
	}

	for _, group := range f.AnyOf {
		matched := false
		for _, c := range group {
			if get(c.Field) == c.Value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}
