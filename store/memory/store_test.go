package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	settle "github.com/campuskit/settle"
	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/tenant"
	"github.com/campuskit/settle/types"
)

func seedEvent(t *testing.T, s *Store, fc, bc string, at time.Time) *revenue.Event {
	t.Helper()
	ev := &revenue.Event{
		Entity:        types.NewEntity(),
		ID:            id.NewEventID(),
		SourceType:    revenue.SourceEnrollment,
		SourceID:      "src-" + bc,
		FranchiseCode: fc,
		BranchCode:    bc,
		GrossAmount:   types.INR(100000),
		OccurredAt:    at,
		Status:        revenue.StatusUnsettled,
	}
	if err := s.CreateRevenueEvent(context.Background(), ev); err != nil {
		t.Fatalf("CreateRevenueEvent failed: %v", err)
	}
	return ev
}

func TestMarkEventSettledTransitions(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	ev := seedEvent(t, s, "FR1", "BR1", at)
	recID := id.NewRecordID()

	if err := s.MarkEventSettled(ctx, ev.ID, recID, at.Add(time.Hour)); err != nil {
		t.Fatalf("MarkEventSettled failed: %v", err)
	}

	got, err := s.GetRevenueEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetRevenueEvent failed: %v", err)
	}
	if got.Status != revenue.StatusSettled {
		t.Errorf("Status: got %q, want settled", got.Status)
	}
	if got.SettledAt == nil || got.SettlementID.String() != recID.String() {
		t.Errorf("settlement stamp missing: %+v", got)
	}

	// The second claim loses.
	err = s.MarkEventSettled(ctx, ev.ID, id.NewRecordID(), at.Add(2*time.Hour))
	if !errors.Is(err, settle.ErrSettlementConflict) {
		t.Fatalf("expected ErrSettlementConflict, got %v", err)
	}

	// The winner's stamp survives.
	got, err = s.GetRevenueEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetRevenueEvent failed: %v", err)
	}
	if got.SettlementID.String() != recID.String() {
		t.Errorf("losing claim overwrote the stamp: %q", got.SettlementID)
	}

	// An unknown event is not-found, not a conflict.
	err = s.MarkEventSettled(ctx, id.NewEventID(), recID, at)
	if !errors.Is(err, settle.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestNextSequenceScopes(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := sequence.Scope{TenantCode: "BR1", Period: "24"}
	b := sequence.Scope{TenantCode: "BR1", Period: "25"}
	c := sequence.Scope{TenantCode: "BR2", Period: "24"}

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, a)
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != want {
			t.Errorf("scope a: got %d, want %d", got, want)
		}
	}

	// Other scopes are independent.
	for _, scope := range []sequence.Scope{b, c} {
		got, err := s.NextSequence(ctx, scope)
		if err != nil {
			t.Fatalf("NextSequence failed: %v", err)
		}
		if got != 1 {
			t.Errorf("scope %s: got %d, want 1", scope.Key(), got)
		}
	}

	cur, err := s.CurrentSequence(ctx, a)
	if err != nil {
		t.Fatalf("CurrentSequence failed: %v", err)
	}
	if cur != 3 {
		t.Errorf("CurrentSequence: got %d, want 3", cur)
	}

	// Unallocated scope reads zero.
	cur, err = s.CurrentSequence(ctx, sequence.Scope{TenantCode: "BR9", Period: "24"})
	if err != nil {
		t.Fatalf("CurrentSequence failed: %v", err)
	}
	if cur != 0 {
		t.Errorf("fresh scope: got %d, want 0", cur)
	}
}

func TestListRevenueEventsFiltering(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	seedEvent(t, s, "FR1", "BR1", base)
	seedEvent(t, s, "FR1", "BR2", base.Add(time.Hour))
	seedEvent(t, s, "FR2", "FR2", base.Add(2*time.Hour))

	// Franchise scope sees both its branches.
	scope := tenant.Filter{}.And(tenant.FieldFranchiseCode, "FR1")
	events, err := s.ListRevenueEvents(ctx, scope, revenue.ListOpts{})
	if err != nil {
		t.Fatalf("ListRevenueEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("franchise scope: got %d events, want 2", len(events))
	}
	// Newest first.
	if events[0].BranchCode != "BR2" {
		t.Errorf("expected newest event first, got branch %q", events[0].BranchCode)
	}

	// The empty filter fails closed.
	events, err = s.ListRevenueEvents(ctx, tenant.Filter{}, revenue.ListOpts{})
	if err != nil {
		t.Fatalf("ListRevenueEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("empty filter matched %d events, want 0", len(events))
	}

	// Time window is [start, end).
	events, err = s.ListRevenueEvents(ctx, tenant.All(), revenue.ListOpts{
		Start: base,
		End:   base.Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ListRevenueEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("window: got %d events, want 2", len(events))
	}

	// Offset/limit pagination.
	events, err = s.ListRevenueEvents(ctx, tenant.All(), revenue.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListRevenueEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("pagination: got %d events, want 1", len(events))
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Ping(ctx); !errors.Is(err, settle.ErrStoreNotReady) {
		t.Fatalf("Ping before Migrate: got %v, want ErrStoreNotReady", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping after Migrate failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); !errors.Is(err, settle.ErrStoreClosed) {
		t.Fatalf("second Close: got %v, want ErrStoreClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, settle.ErrStoreClosed) {
		t.Fatalf("Ping after Close: got %v, want ErrStoreClosed", err)
	}
	if err := s.Migrate(ctx); !errors.Is(err, settle.ErrStoreClosed) {
		t.Fatalf("Migrate after Close: got %v, want ErrStoreClosed", err)
	}
}

func TestStoreCopiesOnReadAndWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	ev := seedEvent(t, s, "FR1", "BR1", at)

	// Mutating the caller's struct after create must not leak in.
	ev.GrossAmount = types.INR(1)

	got, err := s.GetRevenueEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetRevenueEvent failed: %v", err)
	}
	if !got.GrossAmount.Equal(types.INR(100000)) {
		t.Errorf("store leaked caller mutation: %v", got.GrossAmount)
	}

	// Mutating a read result must not leak back.
	got.Status = revenue.StatusSettled
	again, err := s.GetRevenueEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("GetRevenueEvent failed: %v", err)
	}
	if again.Status != revenue.StatusUnsettled {
		t.Errorf("store leaked read mutation: %q", again.Status)
	}
}
