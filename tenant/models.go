// Package tenant implements tenant identity resolution and access policy
// for the settlement core.
//
// A tenant is a franchise, or a branch within a franchise; it is the unit
// of data isolation and of revenue-split scoping. Every request resolves an
// authenticated Principal into an explicit Context value that is passed by
// parameter into every downstream call — there is no ambient "current user"
// state anywhere in the module.
package tenant

import (
	"errors"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/types"
)

// Sentinel errors raised by resolution and policy checks.
var (
	ErrTenantResolution   = errors.New("settle/tenant: no tenant binding for principal")
	ErrBindingNotFound    = errors.New("settle/tenant: admin binding not found")
	ErrIsolationViolation = errors.New("settle/tenant: record belongs to a different tenant")
	ErrMissingTenant      = errors.New("settle/tenant: document carries no tenant codes")
)

// AccessLevel is the breadth of a tenant context's visibility.
type AccessLevel string

const (
	AccessGlobal    AccessLevel = "global"    // cross-tenant, platform operator
	AccessFranchise AccessLevel = "franchise" // one franchise, all its branches
	AccessBranch    AccessLevel = "branch"    // one branch only
)

// Role constants recognized by the resolver. Any unknown role is treated as
// tenant-bound: it must resolve to a franchise/branch or resolution fails.
const (
	RoleOperator       = "operator" // platform operator, global access
	RoleFranchiseAdmin = "franchise_admin"
	RoleBranchAdmin    = "branch_admin"
	RoleCounselor      = "counselor"
)

// Principal is the trusted identity handed in by the external authentication
// layer. The settlement core does not verify signatures or issue tokens; it
// only consumes the claims. Unverified claims must never reach this type.
type Principal struct {
	Role          string `json:"role"`
	FranchiseCode string `json:"franchise_code,omitempty"`
	BranchCode    string `json:"branch_code,omitempty"`
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
}

// Context is the canonical, request-scoped tenant identity. It is created
// fresh per request by the Resolver, never persisted and never shared
// across requests.
type Context struct {
	FranchiseCode string      `json:"franchise_code,omitempty"`
	BranchCode    string      `json:"branch_code,omitempty"`
	UserID        string      `json:"user_id"`
	Role          string      `json:"role"`
	AccessLevel   AccessLevel `json:"access_level"`
}

// IsGlobal reports whether the context bypasses tenant scoping.
func (c Context) IsGlobal() bool { return c.AccessLevel == AccessGlobal }

// TenantCode returns the most specific tenant code the context is bound to.
func (c Context) TenantCode() string {
	if c.BranchCode != "" {
		return c.BranchCode
	}
	return c.FranchiseCode
}

// AdminBinding is the canonical directory record linking a tenant
// administrator to the franchise/branch they own. It replaces the legacy
// practice of guessing tenant codes from a dozen field-name spellings on
// whatever record happened to be at hand: codes live here, under exactly
// one schema, and nowhere else.
type AdminBinding struct {
	types.Entity
	ID            id.BindingID `json:"id"`
	UserID        string       `json:"user_id"`
	Email         string       `json:"email"`
	FranchiseCode string       `json:"franchise_code"`
	BranchCode    string       `json:"branch_code"`
}

// Stamped is implemented by persisted documents that carry tenant
// attribution. The access policy stamps and checks these fields so that
// created records are always attributable to the correct tenant regardless
// of client-supplied values.
type Stamped interface {
	TenantCodes() (franchiseCode, branchCode string)
	SetTenantCodes(franchiseCode, branchCode string)
}
