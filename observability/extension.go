// Package observability provides a metrics extension that records settlement
// lifecycle event counts via an injected MetricFactory.
package observability

import (
	"context"

	"github.com/campuskit/settle/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnTenantResolved      = (*MetricsExtension)(nil)
	_ plugin.OnIsolationDenied     = (*MetricsExtension)(nil)
	_ plugin.OnRevenueRecorded     = (*MetricsExtension)(nil)
	_ plugin.OnEventSettled        = (*MetricsExtension)(nil)
	_ plugin.OnSettlementConflict  = (*MetricsExtension)(nil)
	_ plugin.OnSettlementCompleted = (*MetricsExtension)(nil)
	_ plugin.OnSequenceAllocated   = (*MetricsExtension)(nil)
	_ plugin.OnRegistrationIssued  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide settlement metrics.
// Register it as an engine plugin to automatically track revenue and
// settlement activity.
type MetricsExtension struct {
	factory MetricFactory

	// Tenant metrics
	TenantResolutions Counter
	IsolationDenials  Counter

	// Revenue metrics
	RevenueRecorded Counter

	// Settlement metrics
	EventsSettled        Counter
	SettlementConflicts  Counter
	SettlementsCompleted Counter

	// Sequence metrics
	SequencesAllocated   Counter
	RegistrationsIssued  Counter
	SequenceCounterValue Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Tenant metrics
		TenantResolutions: factory.Counter("settle.tenant.resolutions"),
		IsolationDenials:  factory.Counter("settle.tenant.isolation_denials"),

		// Revenue metrics
		RevenueRecorded: factory.Counter("settle.revenue.recorded"),

		// Settlement metrics
		EventsSettled:        factory.Counter("settle.settlement.events_settled"),
		SettlementConflicts:  factory.Counter("settle.settlement.conflicts"),
		SettlementsCompleted: factory.Counter("settle.settlement.completed"),

		// Sequence metrics
		SequencesAllocated:   factory.Counter("settle.sequence.allocated"),
		RegistrationsIssued:  factory.Counter("settle.registration.issued"),
		SequenceCounterValue: factory.Histogram("settle.sequence.counter_value"),

		// Error metrics
		StoreErrors:  factory.Counter("settle.store.errors"),
		PluginErrors: factory.Counter("settle.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Tenant hooks
// ──────────────────────────────────────────────────

// OnTenantResolved implements plugin.OnTenantResolved.
func (m *MetricsExtension) OnTenantResolved(_ context.Context, _ interface{}) error {
	m.TenantResolutions.Inc()
	return nil
}

// OnIsolationDenied implements plugin.OnIsolationDenied.
func (m *MetricsExtension) OnIsolationDenied(_ context.Context, _, _ string) error {
	m.IsolationDenials.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Revenue hooks
// ──────────────────────────────────────────────────

// OnRevenueRecorded implements plugin.OnRevenueRecorded.
func (m *MetricsExtension) OnRevenueRecorded(_ context.Context, _ interface{}) error {
	m.RevenueRecorded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Settlement hooks
// ──────────────────────────────────────────────────

// OnEventSettled implements plugin.OnEventSettled.
func (m *MetricsExtension) OnEventSettled(_ context.Context, _ interface{}) error {
	m.EventsSettled.Inc()
	return nil
}

// OnSettlementConflict implements plugin.OnSettlementConflict.
func (m *MetricsExtension) OnSettlementConflict(_ context.Context, _ string) error {
	m.SettlementConflicts.Inc()
	return nil
}

// OnSettlementCompleted implements plugin.OnSettlementCompleted.
func (m *MetricsExtension) OnSettlementCompleted(_ context.Context, _ interface{}) error {
	m.SettlementsCompleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Sequence hooks
// ──────────────────────────────────────────────────

// OnSequenceAllocated implements plugin.OnSequenceAllocated.
func (m *MetricsExtension) OnSequenceAllocated(_ context.Context, _, _ string, value int64) error {
	m.SequencesAllocated.Inc()
	m.SequenceCounterValue.Observe(float64(value))
	return nil
}

// OnRegistrationIssued implements plugin.OnRegistrationIssued.
func (m *MetricsExtension) OnRegistrationIssued(_ context.Context, _ string) error {
	m.RegistrationsIssued.Inc()
	return nil
}
