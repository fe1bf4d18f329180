package tenant_test

import (
	"errors"
	"testing"

	"github.com/campuskit/settle/tenant"
)

// stampedDoc is a minimal Stamped implementation.
type stampedDoc struct {
	franchiseCode string
	branchCode    string
}

func (d *stampedDoc) TenantCodes() (string, string) { return d.franchiseCode, d.branchCode }
func (d *stampedDoc) SetTenantCodes(fc, bc string) {
	d.franchiseCode, d.branchCode = fc, bc
}

func TestFilterFor(t *testing.T) {
	policy := tenant.NewPolicy()

	tests := []struct {
		name             string
		ctx              tenant.Context
		wantUnrestricted bool
		wantEmpty        bool
		wantClauses      int
	}{
		{
			name:             "global reads unrestricted",
			ctx:              tenant.Context{Role: tenant.RoleOperator, AccessLevel: tenant.AccessGlobal},
			wantUnrestricted: true,
		},
		{
			name: "franchise pins franchise_code only",
			ctx: tenant.Context{
				FranchiseCode: "FR1",
				BranchCode:    "FR1",
				AccessLevel:   tenant.AccessFranchise,
			},
			wantClauses: 1,
		},
		{
			name: "branch pins both codes",
			ctx: tenant.Context{
				FranchiseCode: "FR1",
				BranchCode:    "BR1",
				AccessLevel:   tenant.AccessBranch,
			},
			wantClauses: 2,
		},
		{
			name:      "missing codes fail closed",
			ctx:       tenant.Context{AccessLevel: tenant.AccessBranch},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := policy.FilterFor(tt.ctx)
			if f.IsUnrestricted() != tt.wantUnrestricted {
				t.Errorf("IsUnrestricted: got %v, want %v", f.IsUnrestricted(), tt.wantUnrestricted)
			}
			if f.IsEmpty() != tt.wantEmpty {
				t.Errorf("IsEmpty: got %v, want %v", f.IsEmpty(), tt.wantEmpty)
			}
			if got := len(f.Equals); got != tt.wantClauses {
				t.Errorf("Equals clauses: got %d, want %d", got, tt.wantClauses)
			}
		})
	}
}

func TestFilterForNeverUnrestrictedForNonGlobal(t *testing.T) {
	policy := tenant.NewPolicy()

	contexts := []tenant.Context{
		{AccessLevel: tenant.AccessFranchise},
		{AccessLevel: tenant.AccessBranch},
		{AccessLevel: tenant.AccessBranch, BranchCode: "BR1"},
		{AccessLevel: tenant.AccessFranchise, FranchiseCode: "FR1"},
	}

	for _, tc := range contexts {
		if f := policy.FilterFor(tc); f.IsUnrestricted() {
			t.Errorf("non-global context %+v got unrestricted filter", tc)
		}
	}
}

func TestScopeForWrite(t *testing.T) {
	policy := tenant.NewPolicy()

	t.Run("stamps tenant codes over client values", func(t *testing.T) {
		doc := &stampedDoc{franchiseCode: "SPOOF", branchCode: "SPOOF"}
		tc := tenant.Context{
			FranchiseCode: "FR1",
			BranchCode:    "BR1",
			AccessLevel:   tenant.AccessBranch,
		}
		if err := policy.ScopeForWrite(tc, doc); err != nil {
			t.Fatalf("ScopeForWrite failed: %v", err)
		}
		if doc.franchiseCode != "FR1" || doc.branchCode != "BR1" {
			t.Errorf("got %q/%q, want FR1/BR1", doc.franchiseCode, doc.branchCode)
		}
	})

	t.Run("global write requires explicit codes", func(t *testing.T) {
		tc := tenant.Context{Role: tenant.RoleOperator, AccessLevel: tenant.AccessGlobal}
		if err := policy.ScopeForWrite(tc, &stampedDoc{}); !errors.Is(err, tenant.ErrMissingTenant) {
			t.Fatalf("expected ErrMissingTenant, got %v", err)
		}
		if err := policy.ScopeForWrite(tc, &stampedDoc{franchiseCode: "FR1"}); err != nil {
			t.Fatalf("global write with codes failed: %v", err)
		}
	})

	t.Run("context without codes cannot write", func(t *testing.T) {
		tc := tenant.Context{AccessLevel: tenant.AccessBranch}
		if err := policy.ScopeForWrite(tc, &stampedDoc{}); !errors.Is(err, tenant.ErrMissingTenant) {
			t.Fatalf("expected ErrMissingTenant, got %v", err)
		}
	})
}

func TestAssertInTenant(t *testing.T) {
	policy := tenant.NewPolicy()

	tests := []struct {
		name    string
		ctx     tenant.Context
		doc     *stampedDoc
		wantErr bool
	}{
		{
			name: "same tenant passes",
			ctx: tenant.Context{
				FranchiseCode: "FR1", BranchCode: "BR1",
				AccessLevel: tenant.AccessBranch,
			},
			doc: &stampedDoc{franchiseCode: "FR1", branchCode: "BR1"},
		},
		{
			name: "franchise admin sees sibling branch record",
			ctx: tenant.Context{
				FranchiseCode: "FR1", BranchCode: "FR1",
				AccessLevel: tenant.AccessFranchise,
			},
			doc: &stampedDoc{franchiseCode: "FR1", branchCode: "BR2"},
		},
		{
			name: "other franchise rejected",
			ctx: tenant.Context{
				FranchiseCode: "FR1", BranchCode: "BR1",
				AccessLevel: tenant.AccessBranch,
			},
			doc:     &stampedDoc{franchiseCode: "FR2", branchCode: "BR9"},
			wantErr: true,
		},
		{
			name: "branch admin cannot touch sibling branch",
			ctx: tenant.Context{
				FranchiseCode: "FR1", BranchCode: "BR1",
				AccessLevel: tenant.AccessBranch,
			},
			doc:     &stampedDoc{franchiseCode: "FR1", branchCode: "BR2"},
			wantErr: true,
		},
		{
			name: "global passes everything",
			ctx:  tenant.Context{Role: tenant.RoleOperator, AccessLevel: tenant.AccessGlobal},
			doc:  &stampedDoc{franchiseCode: "FR9", branchCode: "BR9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.AssertInTenant(tt.ctx, tt.doc)
			if tt.wantErr {
				if !errors.Is(err, tenant.ErrIsolationViolation) {
					t.Fatalf("expected ErrIsolationViolation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AssertInTenant failed: %v", err)
			}
		})
	}
}

func TestFilterMatches(t *testing.T) {
	get := func(doc map[string]string) func(string) string {
		return func(field string) string { return doc[field] }
	}

	doc := map[string]string{
		tenant.FieldFranchiseCode: "FR1",
		tenant.FieldBranchCode:    "BR1",
	}

	tests := []struct {
		name   string
		filter tenant.Filter
		want   bool
	}{
		{"unrestricted matches", tenant.All(), true},
		{"empty matches nothing", tenant.Filter{}, false},
		{"equality match", tenant.Filter{}.And(tenant.FieldFranchiseCode, "FR1"), true},
		{"equality mismatch", tenant.Filter{}.And(tenant.FieldFranchiseCode, "FR2"), false},
		{"either-field code hit on branch", tenant.ForCode("BR1"), true},
		{"either-field code hit on franchise", tenant.ForCode("FR1"), true},
		{"either-field code miss", tenant.ForCode("FR9"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(get(doc)); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}
