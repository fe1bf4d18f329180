// Package audithook bridges settlement lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// particular audit system directly. Callers inject a RecorderFunc adapter
// that bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campuskit/settle/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnTenantResolved      = (*Extension)(nil)
	_ plugin.OnIsolationDenied     = (*Extension)(nil)
	_ plugin.OnRevenueRecorded     = (*Extension)(nil)
	_ plugin.OnEventSettled        = (*Extension)(nil)
	_ plugin.OnSettlementConflict  = (*Extension)(nil)
	_ plugin.OnSettlementCompleted = (*Extension)(nil)
	_ plugin.OnSequenceAllocated   = (*Extension)(nil)
	_ plugin.OnRegistrationIssued  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not depend on a
// concrete audit system — callers inject the concrete recorder at wiring
// time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges settlement lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tenant hooks
// ──────────────────────────────────────────────────

// OnTenantResolved implements plugin.OnTenantResolved.
func (e *Extension) OnTenantResolved(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionTenantResolved, SeverityInfo, OutcomeSuccess,
		ResourceTenant, "", CategoryAccess, nil,
		"event", "tenant_resolved",
	)
}

// OnIsolationDenied implements plugin.OnIsolationDenied.
func (e *Extension) OnIsolationDenied(ctx context.Context, userID, tenantCode string) error {
	return e.record(ctx, ActionIsolationDenied, SeverityWarning, OutcomeFailure,
		ResourceTenant, tenantCode, CategoryAccess, nil,
		"user_id", userID,
		"tenant_code", tenantCode,
	)
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueRecorded implements plugin.OnRevenueRecorded.
func (e *Extension) OnRevenueRecorded(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionRevenueRecorded, SeverityInfo, OutcomeSuccess,
		ResourceRevenueEvent, "", CategoryRevenue, nil,
		"event", "revenue_recorded",
	)
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnEventSettled implements plugin.OnEventSettled.
func (e *Extension) OnEventSettled(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionEventSettled, SeverityInfo, OutcomeSuccess,
		ResourceRevenueEvent, "", CategorySettlement, nil,
		"event", "event_settled",
	)
}

// OnSettlementConflict implements plugin.OnSettlementConflict.
func (e *Extension) OnSettlementConflict(ctx context.Context, eventID string) error {
	return e.record(ctx, ActionSettlementConflict, SeverityWarning, OutcomePartial,
		ResourceRevenueEvent, eventID, CategorySettlement, nil,
		"event_id", eventID,
	)
}

// OnSettlementCompleted implements plugin.OnSettlementCompleted.
func (e *Extension) OnSettlementCompleted(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionSettlementCompleted, SeverityInfo, OutcomeSuccess,
		ResourceSettlement, "", CategorySettlement, nil,
		"event", "settlement_completed",
	)
}

// ──────────────────────────────────────────────────
// Sequence hooks
// ──────────────────────────────────────────────────

// OnSequenceAllocated implements plugin.OnSequenceAllocated.
func (e *Extension) OnSequenceAllocated(ctx context.Context, tenantCode, period string, value int64) error {
	return e.record(ctx, ActionSequenceAllocated, SeverityInfo, OutcomeSuccess,
		ResourceSequence, tenantCode, CategoryAdmission, nil,
		"tenant_code", tenantCode,
		"period", period,
		"value", value,
	)
}

// OnRegistrationIssued implements plugin.OnRegistrationIssued.
func (e *Extension) OnRegistrationIssued(ctx context.Context, registration string) error {
	return e.record(ctx, ActionRegistrationIssued, SeverityInfo, OutcomeSuccess,
		ResourceRegistration, registration, CategoryAdmission, nil,
		"registration", registration,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
