// Package store declares the unified storage interface for the settlement
// core. Drivers exist for MongoDB, PostgreSQL, SQLite (all via Grove) and
// an in-memory implementation used by tests and as the extension default.
package store

import (
	"context"
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/tenant"
)

// Store is the unified storage interface for all settlement-core entities.
// Methods are declared explicitly rather than by embedding sub-interfaces
// to avoid naming conflicts.
//
// Two methods carry the module's concurrency contract and must be
// implemented as single atomic operations, never read-then-write:
//
//   - MarkEventSettled transitions an event to settled only if it is still
//     unsettled, returning settle.ErrSettlementConflict when a concurrent
//     run won the race.
//   - NextSequence atomically increments a scoped counter (creating it at
//     1 on first use) and returns the new value. Drivers that detect a
//     concurrent conflict instead of resolving it natively return
//     settle.ErrSequenceConflict; the engine retries within its budget.
type Store interface {
	// Revenue event methods
	CreateRevenueEvent(ctx context.Context, e *revenue.Event) error
	GetRevenueEvent(ctx context.Context, eventID id.EventID) (*revenue.Event, error)
	ListRevenueEvents(ctx context.Context, scope tenant.Filter, opts revenue.ListOpts) ([]*revenue.Event, error)
	MarkEventSettled(ctx context.Context, eventID id.EventID, recordID id.RecordID, settledAt time.Time) error

	// Settlement record methods
	CreateSettlementRecord(ctx context.Context, r *settlement.Record) error
	GetSettlementRecord(ctx context.Context, recordID id.RecordID) (*settlement.Record, error)
	ListSettlementRecords(ctx context.Context, scope tenant.Filter, opts settlement.ListOpts) ([]*settlement.Record, error)

	// Sequence counter methods
	NextSequence(ctx context.Context, scope sequence.Scope) (int64, error)
	CurrentSequence(ctx context.Context, scope sequence.Scope) (int64, error)

	// Admin directory methods (tenant.Directory)
	CreateAdminBinding(ctx context.Context, b *tenant.AdminBinding) error
	AdminBindingByUser(ctx context.Context, userID string) (*tenant.AdminBinding, error)
	AdminBindingByEmail(ctx context.Context, email string) (*tenant.AdminBinding, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
