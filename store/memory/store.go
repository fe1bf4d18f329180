// Package memory provides an in-memory Store used by tests and as the
// default backend when no database is wired. The conditional-write
// semantics of settlement transitions and sequence increments are preserved
// under a single mutex, so concurrency tests exercise the same contract as
// the database drivers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	settle "github.com/campuskit/settle"
	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/store"
	"github.com/campuskit/settle/tenant"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is a mutex-guarded in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	migrated bool
	closed   bool

	events   map[string]*revenue.Event
	records  map[string]*settlement.Record
	counters map[string]*sequence.Counter
	bindings map[string]*tenant.AdminBinding // keyed by binding ID
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		events:   make(map[string]*revenue.Event),
		records:  make(map[string]*settlement.Record),
		counters: make(map[string]*sequence.Counter),
		bindings: make(map[string]*tenant.AdminBinding),
	}
}

// ==================== Revenue events ====================

func (s *Store) CreateRevenueEvent(_ context.Context, e *revenue.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[e.ID.String()]; exists {
		return settle.ErrInvalidInput
	}
	cp := *e
	s.events[e.ID.String()] = &cp
	return nil
}

func (s *Store) GetRevenueEvent(_ context.Context, eventID id.EventID) (*revenue.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.events[eventID.String()]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, settle.ErrEventNotFound
}

func (s *Store) ListRevenueEvents(_ context.Context, scope tenant.Filter, opts revenue.ListOpts) ([]*revenue.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*revenue.Event, 0)
	for _, e := range s.events {
		if !scope.Matches(eventField(e)) {
			continue
		}
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		if opts.Source != "" && e.SourceType != opts.Source {
			continue
		}
		if !opts.Start.IsZero() && e.OccurredAt.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !e.OccurredAt.Before(opts.End) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.After(result[j].OccurredAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})

	return window(result, opts.Offset, opts.Limit), nil
}

// MarkEventSettled performs the conditional unsettled → settled transition
// under the store lock, mirroring the database drivers' single conditional
// write.
func (s *Store) MarkEventSettled(_ context.Context, eventID id.EventID, recordID id.RecordID, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventID.String()]
	if !ok {
		return settle.ErrEventNotFound
	}
	if e.Status != revenue.StatusUnsettled {
		return settle.ErrSettlementConflict
	}

	e.Status = revenue.StatusSettled
	e.SettledAt = &settledAt
	e.SettlementID = recordID
	e.Touch()
	return nil
}

// ==================== Settlement records ====================

func (s *Store) CreateSettlementRecord(_ context.Context, r *settlement.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID.String()]; exists {
		return settle.ErrInvalidInput
	}
	cp := *r
	cp.Lines = append([]settlement.Line(nil), r.Lines...)
	s.records[r.ID.String()] = &cp
	return nil
}

func (s *Store) GetSettlementRecord(_ context.Context, recordID id.RecordID) (*settlement.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[recordID.String()]; ok {
		cp := *r
		cp.Lines = append([]settlement.Line(nil), r.Lines...)
		return &cp, nil
	}
	return nil, settle.ErrRecordNotFound
}

func (s *Store) ListSettlementRecords(_ context.Context, scope tenant.Filter, opts settlement.ListOpts) ([]*settlement.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*settlement.Record, 0)
	for _, r := range s.records {
		if !recordInScope(r, scope) {
			continue
		}
		if !opts.Start.IsZero() && r.ProcessedAt.Before(opts.Start) {
			continue
		}
		if !opts.End.IsZero() && !r.ProcessedAt.Before(opts.End) {
			continue
		}
		cp := *r
		cp.Lines = append([]settlement.Line(nil), r.Lines...)
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ProcessedAt.Equal(result[j].ProcessedAt) {
			return result[i].ProcessedAt.After(result[j].ProcessedAt)
		}
		return result[i].ID.String() > result[j].ID.String()
	})

	return window(result, opts.Offset, opts.Limit), nil
}

// ==================== Sequence counters ====================

func (s *Store) NextSequence(_ context.Context, scope sequence.Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[scope.Key()]
	if !ok {
		c = &sequence.Counter{Scope: scope}
		s.counters[scope.Key()] = c
	}
	c.LastValue++
	c.Touch()
	return c.LastValue, nil
}

func (s *Store) CurrentSequence(_ context.Context, scope sequence.Scope) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.counters[scope.Key()]; ok {
		return c.LastValue, nil
	}
	return 0, nil
}

// ==================== Admin directory ====================

func (s *Store) CreateAdminBinding(_ context.Context, b *tenant.AdminBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bindings[b.ID.String()]; exists {
		return settle.ErrInvalidInput
	}
	cp := *b
	s.bindings[b.ID.String()] = &cp
	return nil
}

func (s *Store) AdminBindingByUser(_ context.Context, userID string) (*tenant.AdminBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bindings {
		if b.UserID == userID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, tenant.ErrBindingNotFound
}

func (s *Store) AdminBindingByEmail(_ context.Context, email string) (*tenant.AdminBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bindings {
		if b.Email == email {
			cp := *b
			return &cp, nil
		}
	}
	return nil, tenant.ErrBindingNotFound
}

// ==================== Core ====================

// Migrate marks the store ready. There is no schema to build, but the
// lifecycle contract matches the database drivers: Ping reports not-ready
// until Migrate ran.
func (s *Store) Migrate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return settle.ErrStoreClosed
	}
	s.migrated = true
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return settle.ErrStoreClosed
	}
	if !s.migrated {
		return settle.ErrStoreNotReady
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return settle.ErrStoreClosed
	}
	s.closed = true
	return nil
}

// ==================== Helpers ====================

func eventField(e *revenue.Event) func(string) string {
	return func(field string) string {
		switch field {
		case tenant.FieldFranchiseCode:
			return e.FranchiseCode
		case tenant.FieldBranchCode:
			return e.BranchCode
		}
		return ""
	}
}

// recordInScope reports whether a record carries at least one line visible
// to the scope. Records can span tenants when produced by a global run.
func recordInScope(r *settlement.Record, scope tenant.Filter) bool {
	if scope.IsUnrestricted() {
		return true
	}
	for i := range r.Lines {
		l := &r.Lines[i]
		if scope.Matches(func(field string) string {
			switch field {
			case tenant.FieldFranchiseCode:
				return l.FranchiseCode
			case tenant.FieldBranchCode:
				return l.BranchCode
			}
			return ""
		}) {
			return true
		}
	}
	return false
}

func window[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
