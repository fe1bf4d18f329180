package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Directory looks up the canonical admin binding for a principal that does
// not carry tenant codes in its claims. The store satisfies this interface.
type Directory interface {
	AdminBindingByUser(ctx context.Context, userID string) (*AdminBinding, error)
	AdminBindingByEmail(ctx context.Context, email string) (*AdminBinding, error)
}

// Resolver turns an authenticated principal's claims into a canonical
// Context. It is stateless and safe for concurrent use.
type Resolver struct {
	dir    Directory
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by the given directory.
func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir, logger: slog.Default()}
}

// WithLogger sets the logger and returns the resolver for chaining.
func (r *Resolver) WithLogger(logger *slog.Logger) *Resolver {
	r.logger = logger
	return r
}

// Resolve builds the tenant Context for a principal. branchOverride, when
// non-empty, narrows a franchise-level principal to one of its branches;
// it is ignored for global operators and rejected for principals already
// bound to a different branch.
//
// Resolution order:
//  1. Claims carrying both codes are used directly.
//  2. A franchise-only principal becomes its own branch (no sub-branch
//     distinction exists for that tenant).
//  3. Otherwise the directory is consulted by user ID, then by email.
//  4. A global operator role bypasses tenant scoping entirely.
//  5. A tenant-bound role with no establishable binding fails with
//     ErrTenantResolution. There is no recovery path from unverified
//     claims: callers must re-authenticate instead.
func (r *Resolver) Resolve(ctx context.Context, p Principal, branchOverride string) (Context, error) {
	if p.Role == RoleOperator {
		return Context{
			FranchiseCode: p.FranchiseCode,
			BranchCode:    p.BranchCode,
			UserID:        p.UserID,
			Role:          p.Role,
			AccessLevel:   AccessGlobal,
		}, nil
	}

	fc, bc := p.FranchiseCode, p.BranchCode

	if fc == "" {
		binding, err := r.lookupBinding(ctx, p)
		if err != nil {
			r.logger.Warn("tenant resolution failed",
				"user_id", p.UserID,
				"role", p.Role,
			)
			return Context{}, fmt.Errorf("%w: role %q requires a tenant", ErrTenantResolution, p.Role)
		}
		fc, bc = binding.FranchiseCode, binding.BranchCode
	}

	if bc == "" {
		bc = fc
	}

	if branchOverride != "" && branchOverride != bc {
		if bc != fc {
			return Context{}, fmt.Errorf("%w: principal is bound to branch %q", ErrIsolationViolation, bc)
		}
		bc = branchOverride
	}

	level := AccessFranchise
	if bc != fc {
		level = AccessBranch
	}

	return Context{
		FranchiseCode: fc,
		BranchCode:    bc,
		UserID:        p.UserID,
		Role:          p.Role,
		AccessLevel:   level,
	}, nil
}

// lookupBinding recovers tenant codes from the admin directory, trying the
// user ID linkage first and falling back to email.
func (r *Resolver) lookupBinding(ctx context.Context, p Principal) (*AdminBinding, error) {
	if p.UserID != "" {
		b, err := r.dir.AdminBindingByUser(ctx, p.UserID)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrBindingNotFound) {
			return nil, err
		}
	}

	if p.Email != "" {
		b, err := r.dir.AdminBindingByEmail(ctx, p.Email)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrBindingNotFound) {
			return nil, err
		}
	}

	return nil, ErrBindingNotFound
}
