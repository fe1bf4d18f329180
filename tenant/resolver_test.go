package tenant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/campuskit/settle/tenant"
)

// fakeDirectory is an in-memory Directory for resolver tests.
type fakeDirectory struct {
	byUser  map[string]*tenant.AdminBinding
	byEmail map[string]*tenant.AdminBinding
}

func (d *fakeDirectory) AdminBindingByUser(_ context.Context, userID string) (*tenant.AdminBinding, error) {
	if b, ok := d.byUser[userID]; ok {
		return b, nil
	}
	return nil, tenant.ErrBindingNotFound
}

func (d *fakeDirectory) AdminBindingByEmail(_ context.Context, email string) (*tenant.AdminBinding, error) {
	if b, ok := d.byEmail[email]; ok {
		return b, nil
	}
	return nil, tenant.ErrBindingNotFound
}

func TestResolveOperator(t *testing.T) {
	r := tenant.NewResolver(&fakeDirectory{})

	tc, err := r.Resolve(context.Background(), tenant.Principal{
		Role:   tenant.RoleOperator,
		UserID: "op-1",
	}, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !tc.IsGlobal() {
		t.Error("operator should resolve to a global context")
	}
	if tc.TenantCode() != "" {
		t.Errorf("operator without codes should have no tenant code, got %q", tc.TenantCode())
	}
}

func TestResolveFromClaims(t *testing.T) {
	r := tenant.NewResolver(&fakeDirectory{})

	tests := []struct {
		name           string
		principal      tenant.Principal
		branchOverride string
		wantFranchise  string
		wantBranch     string
		wantLevel      tenant.AccessLevel
		wantErr        error
	}{
		{
			name: "both codes in claims",
			principal: tenant.Principal{
				Role:          tenant.RoleBranchAdmin,
				FranchiseCode: "FR1",
				BranchCode:    "BR1",
				UserID:        "u1",
			},
			wantFranchise: "FR1",
			wantBranch:    "BR1",
			wantLevel:     tenant.AccessBranch,
		},
		{
			name: "franchise-only becomes own branch",
			principal: tenant.Principal{
				Role:          tenant.RoleFranchiseAdmin,
				FranchiseCode: "FR1",
				UserID:        "u1",
			},
			wantFranchise: "FR1",
			wantBranch:    "FR1",
			wantLevel:     tenant.AccessFranchise,
		},
		{
			name: "branch override narrows franchise admin",
			principal: tenant.Principal{
				Role:          tenant.RoleFranchiseAdmin,
				FranchiseCode: "FR1",
				UserID:        "u1",
			},
			branchOverride: "BR2",
			wantFranchise:  "FR1",
			wantBranch:     "BR2",
			wantLevel:      tenant.AccessBranch,
		},
		{
			name: "branch override rejected for other branch",
			principal: tenant.Principal{
				Role:          tenant.RoleBranchAdmin,
				FranchiseCode: "FR1",
				BranchCode:    "BR1",
				UserID:        "u1",
			},
			branchOverride: "BR2",
			wantErr:        tenant.ErrIsolationViolation,
		},
		{
			name: "matching branch override is a no-op",
			principal: tenant.Principal{
				Role:          tenant.RoleBranchAdmin,
				FranchiseCode: "FR1",
				BranchCode:    "BR1",
				UserID:        "u1",
			},
			branchOverride: "BR1",
			wantFranchise:  "FR1",
			wantBranch:     "BR1",
			wantLevel:      tenant.AccessBranch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := r.Resolve(context.Background(), tt.principal, tt.branchOverride)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if tc.FranchiseCode != tt.wantFranchise {
				t.Errorf("FranchiseCode: got %q, want %q", tc.FranchiseCode, tt.wantFranchise)
			}
			if tc.BranchCode != tt.wantBranch {
				t.Errorf("BranchCode: got %q, want %q", tc.BranchCode, tt.wantBranch)
			}
			if tc.AccessLevel != tt.wantLevel {
				t.Errorf("AccessLevel: got %q, want %q", tc.AccessLevel, tt.wantLevel)
			}
		})
	}
}

func TestResolveFromDirectory(t *testing.T) {
	dir := &fakeDirectory{
		byUser: map[string]*tenant.AdminBinding{
			"u1": {UserID: "u1", FranchiseCode: "FR1", BranchCode: "BR1"},
		},
		byEmail: map[string]*tenant.AdminBinding{
			"admin@fr2.example": {Email: "admin@fr2.example", FranchiseCode: "FR2", BranchCode: "FR2"},
		},
	}
	r := tenant.NewResolver(dir)

	t.Run("by user ID", func(t *testing.T) {
		tc, err := r.Resolve(context.Background(), tenant.Principal{
			Role:   tenant.RoleBranchAdmin,
			UserID: "u1",
		}, "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if tc.FranchiseCode != "FR1" || tc.BranchCode != "BR1" {
			t.Errorf("got %q/%q, want FR1/BR1", tc.FranchiseCode, tc.BranchCode)
		}
		if tc.AccessLevel != tenant.AccessBranch {
			t.Errorf("AccessLevel: got %q, want branch", tc.AccessLevel)
		}
	})

	t.Run("falls back to email", func(t *testing.T) {
		tc, err := r.Resolve(context.Background(), tenant.Principal{
			Role:   tenant.RoleFranchiseAdmin,
			UserID: "unknown",
			Email:  "admin@fr2.example",
		}, "")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if tc.FranchiseCode != "FR2" {
			t.Errorf("FranchiseCode: got %q, want FR2", tc.FranchiseCode)
		}
		if tc.AccessLevel != tenant.AccessFranchise {
			t.Errorf("AccessLevel: got %q, want franchise", tc.AccessLevel)
		}
	})

	t.Run("no binding fails closed", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), tenant.Principal{
			Role:   tenant.RoleCounselor,
			UserID: "nobody",
			Email:  "nobody@example.com",
		}, "")
		if !errors.Is(err, tenant.ErrTenantResolution) {
			t.Fatalf("expected ErrTenantResolution, got %v", err)
		}
	})

	t.Run("unknown role is tenant-bound", func(t *testing.T) {
		_, err := r.Resolve(context.Background(), tenant.Principal{
			Role:   "student",
			UserID: "nobody",
		}, "")
		if !errors.Is(err, tenant.ErrTenantResolution) {
			t.Fatalf("expected ErrTenantResolution, got %v", err)
		}
	})
}
