package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onTenantResolved      []OnTenantResolved
	onIsolationDenied     []OnIsolationDenied
	onRevenueRecorded     []OnRevenueRecorded
	onEventSettled        []OnEventSettled
	onSettlementConflict  []OnSettlementConflict
	onSettlementCompleted []OnSettlementCompleted
	onSequenceAllocated   []OnSequenceAllocated
	onRegistrationIssued  []OnRegistrationIssued
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTenantResolved); ok {
		r.onTenantResolved = append(r.onTenantResolved, v)
	}
	if v, ok := p.(OnIsolationDenied); ok {
		r.onIsolationDenied = append(r.onIsolationDenied, v)
	}
	if v, ok := p.(OnRevenueRecorded); ok {
		r.onRevenueRecorded = append(r.onRevenueRecorded, v)
	}
	if v, ok := p.(OnEventSettled); ok {
		r.onEventSettled = append(r.onEventSettled, v)
	}
	if v, ok := p.(OnSettlementConflict); ok {
		r.onSettlementConflict = append(r.onSettlementConflict, v)
	}
	if v, ok := p.(OnSettlementCompleted); ok {
		r.onSettlementCompleted = append(r.onSettlementCompleted, v)
	}
	if v, ok := p.(OnSequenceAllocated); ok {
		r.onSequenceAllocated = append(r.onSequenceAllocated, v)
	}
	if v, ok := p.(OnRegistrationIssued); ok {
		r.onRegistrationIssued = append(r.onRegistrationIssued, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTenantResolved)(nil)).Elem(), "OnTenantResolved")
	checkInterface(reflect.TypeOf((*OnIsolationDenied)(nil)).Elem(), "OnIsolationDenied")
	checkInterface(reflect.TypeOf((*OnRevenueRecorded)(nil)).Elem(), "OnRevenueRecorded")
	checkInterface(reflect.TypeOf((*OnEventSettled)(nil)).Elem(), "OnEventSettled")
	checkInterface(reflect.TypeOf((*OnSettlementConflict)(nil)).Elem(), "OnSettlementConflict")
	checkInterface(reflect.TypeOf((*OnSettlementCompleted)(nil)).Elem(), "OnSettlementCompleted")
	checkInterface(reflect.TypeOf((*OnSequenceAllocated)(nil)).Elem(), "OnSequenceAllocated")
	checkInterface(reflect.TypeOf((*OnRegistrationIssued)(nil)).Elem(), "OnRegistrationIssued")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTenantResolved emits a tenant resolved event.
func (r *Registry) EmitTenantResolved(ctx context.Context, tc interface{}) {
	r.mu.RLock()
	plugins := r.onTenantResolved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTenantResolved(ctx, tc)
		}); err != nil {
			r.logger.Warn("plugin OnTenantResolved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitIsolationDenied emits an isolation denied event.
func (r *Registry) EmitIsolationDenied(ctx context.Context, userID, tenantCode string) {
	r.mu.RLock()
	plugins := r.onIsolationDenied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnIsolationDenied(ctx, userID, tenantCode)
		}); err != nil {
			r.logger.Warn("plugin OnIsolationDenied failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevenueRecorded emits a revenue recorded event.
func (r *Registry) EmitRevenueRecorded(ctx context.Context, event interface{}) {
	r.mu.RLock()
	plugins := r.onRevenueRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevenueRecorded(ctx, event)
		}); err != nil {
			r.logger.Warn("plugin OnRevenueRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEventSettled emits an event settled event.
func (r *Registry) EmitEventSettled(ctx context.Context, line interface{}) {
	r.mu.RLock()
	plugins := r.onEventSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEventSettled(ctx, line)
		}); err != nil {
			r.logger.Warn("plugin OnEventSettled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementConflict emits a settlement conflict event.
func (r *Registry) EmitSettlementConflict(ctx context.Context, eventID string) {
	r.mu.RLock()
	plugins := r.onSettlementConflict
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementConflict(ctx, eventID)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementConflict failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSettlementCompleted emits a settlement completed event.
func (r *Registry) EmitSettlementCompleted(ctx context.Context, record interface{}) {
	r.mu.RLock()
	plugins := r.onSettlementCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSettlementCompleted(ctx, record)
		}); err != nil {
			r.logger.Warn("plugin OnSettlementCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSequenceAllocated emits a sequence allocated event.
func (r *Registry) EmitSequenceAllocated(ctx context.Context, tenantCode, period string, value int64) {
	r.mu.RLock()
	plugins := r.onSequenceAllocated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSequenceAllocated(ctx, tenantCode, period, value)
		}); err != nil {
			r.logger.Warn("plugin OnSequenceAllocated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRegistrationIssued emits a registration issued event.
func (r *Registry) EmitRegistrationIssued(ctx context.Context, registration string) {
	r.mu.RLock()
	plugins := r.onRegistrationIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRegistrationIssued(ctx, registration)
		}); err != nil {
			r.logger.Warn("plugin OnRegistrationIssued failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
