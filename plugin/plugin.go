// Package plugin provides an extensible plugin system for the settlement
// core. Plugins can hook into lifecycle and settlement events to extend
// functionality. Hook payloads are passed as interface{} so plugin authors
// depend only on this package.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tenant hooks
// ──────────────────────────────────────────────────

// OnTenantResolved is called after a principal resolves to a tenant context.
type OnTenantResolved interface {
	Plugin
	OnTenantResolved(ctx context.Context, tc interface{}) error
}

// OnIsolationDenied is called when a cross-tenant access is refused.
type OnIsolationDenied interface {
	Plugin
	OnIsolationDenied(ctx context.Context, userID, tenantCode string) error
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueRecorded is called when a revenue event is persisted.
type OnRevenueRecorded interface {
	Plugin
	OnRevenueRecorded(ctx context.Context, event interface{}) error
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnEventSettled is called for each event a settlement run transitions,
// with the computed split line.
type OnEventSettled interface {
	Plugin
	OnEventSettled(ctx context.Context, line interface{}) error
}

// OnSettlementConflict is called when a concurrent run claimed an event
// first and this run skipped it.
type OnSettlementConflict interface {
	Plugin
	OnSettlementConflict(ctx context.Context, eventID string) error
}

// OnSettlementCompleted is called when a run finishes, whether or not a
// record was persisted.
type OnSettlementCompleted interface {
	Plugin
	OnSettlementCompleted(ctx context.Context, record interface{}) error
}

// ──────────────────────────────────────────────────
// Sequence hooks
// ──────────────────────────────────────────────────

// OnSequenceAllocated is called when a scoped counter hands out a value.
type OnSequenceAllocated interface {
	Plugin
	OnSequenceAllocated(ctx context.Context, tenantCode, period string, value int64) error
}

// OnRegistrationIssued is called when a registration number is minted.
type OnRegistrationIssued interface {
	Plugin
	OnRegistrationIssued(ctx context.Context, registration string) error
}
