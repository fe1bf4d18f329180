package settle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/plugin"
	"github.com/campuskit/settle/report"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	"github.com/campuskit/settle/store"
	"github.com/campuskit/settle/tenant"
	"github.com/campuskit/settle/types"
)

// DefaultCurrency is the minor-unit currency the engine settles in unless
// configured otherwise.
const DefaultCurrency = "inr"

// DefaultSequenceRetries bounds the allocation retry loop for drivers that
// report counter conflicts instead of resolving them natively.
const DefaultSequenceRetries = 5

// Engine is the multi-tenant settlement engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	resolver *tenant.Resolver
	policy   tenant.Policy

	// Configuration
	shares          settlement.SharePolicy
	currency        string
	sequenceRetries int
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		policy:          tenant.NewPolicy(),
		shares:          settlement.DefaultSharePolicy(),
		currency:        DefaultCurrency,
		sequenceRetries: DefaultSequenceRetries,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.resolver = tenant.NewResolver(s).WithLogger(e.logger)
	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSharePolicy overrides the default revenue split rates.
func WithSharePolicy(p settlement.SharePolicy) Option {
	return func(e *Engine) {
		e.shares = p
	}
}

// WithCurrency sets the deployment currency. All recorded revenue must
// carry it.
func WithCurrency(currency string) Option {
	return func(e *Engine) {
		e.currency = currency
	}
}

// WithSequenceRetries sets the allocation retry budget.
func WithSequenceRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sequenceRetries = n
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.shares.Validate(); err != nil {
		return err
	}

	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("settlement engine started",
		"currency", e.currency,
		"sequence_retries", e.sequenceRetries,
	)
	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	e.plugins.EmitShutdown(context.Background())
	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Tenant resolution
// ──────────────────────────────────────────────────

// ResolveTenant resolves an authenticated principal into a tenant context.
// branchOverride, when non-empty, narrows a franchise-level principal to
// one of its branches.
func (e *Engine) ResolveTenant(ctx context.Context, p tenant.Principal, branchOverride string) (tenant.Context, error) {
	tc, err := e.resolver.Resolve(ctx, p, branchOverride)
	if err != nil {
		if errors.Is(err, ErrIsolationViolation) {
			e.plugins.EmitIsolationDenied(ctx, p.UserID, branchOverride)
		}
		return tenant.Context{}, err
	}

	e.plugins.EmitTenantResolved(ctx, tc)
	return tc, nil
}

// RegisterAdmin creates the canonical admin binding linking a user to their
// franchise/branch. Only a global operator, or an admin of the same
// franchise, may create bindings.
func (e *Engine) RegisterAdmin(ctx context.Context, tc tenant.Context, b *tenant.AdminBinding) error {
	if b.UserID == "" {
		return ValidationError{Field: "user_id", Message: "missing user reference"}
	}
	if b.FranchiseCode == "" {
		return ValidationError{Field: "franchise_code", Message: "missing franchise code"}
	}
	if b.BranchCode == "" {
		b.BranchCode = b.FranchiseCode
	}
	if !tc.IsGlobal() && b.FranchiseCode != tc.FranchiseCode {
		e.plugins.EmitIsolationDenied(ctx, tc.UserID, b.FranchiseCode)
		return ErrIsolationViolation
	}

	if b.ID.IsNil() {
		b.ID = id.NewBindingID()
	}
	b.Entity = types.NewEntity()

	return e.store.CreateAdminBinding(ctx, b)
}

// ──────────────────────────────────────────────────
// Revenue recognition
// ──────────────────────────────────────────────────

// RecordRevenue persists a revenue event attributed to the context's
// tenant. The event enters the unsettled state; a later settlement run
// transitions it exactly once.
func (e *Engine) RecordRevenue(ctx context.Context, tc tenant.Context, ev *revenue.Event) error {
	if ev.ID.IsNil() {
		ev.ID = id.NewEventID()
	}
	ev.Entity = types.NewEntity()
	// Lifecycle fields belong to the settlement run, not the caller. An
	// event pre-stamped as settled would count toward revenue while never
	// producing a payout, so the stamps are reset unconditionally.
	ev.Status = revenue.StatusUnsettled
	ev.SettledAt = nil
	ev.SettlementID = id.Nil
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	if ev.GrossAmount.Currency != e.currency {
		return ValidationError{
			Field:   "gross_amount",
			Message: fmt.Sprintf("currency %q does not match deployment currency %q", ev.GrossAmount.Currency, e.currency),
		}
	}
	if ferr := ev.Validate(); ferr != nil {
		return ValidationError{Field: ferr.Field, Message: ferr.Message}
	}

	if err := e.policy.ScopeForWrite(tc, ev); err != nil {
		return err
	}

	if err := e.store.CreateRevenueEvent(ctx, ev); err != nil {
		return err
	}

	e.plugins.EmitRevenueRecorded(ctx, ev)

	e.logger.Debug("revenue recorded",
		"event_id", ev.ID.String(),
		"source_type", ev.SourceType,
		"franchise_code", ev.FranchiseCode,
		"branch_code", ev.BranchCode,
		"gross", ev.GrossAmount.String(),
	)
	return nil
}

// GetRevenueEvent retrieves one event, enforcing tenant isolation.
func (e *Engine) GetRevenueEvent(ctx context.Context, tc tenant.Context, eventID id.EventID) (*revenue.Event, error) {
	ev, err := e.store.GetRevenueEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := e.policy.AssertInTenant(tc, ev); err != nil {
		e.plugins.EmitIsolationDenied(ctx, tc.UserID, tc.TenantCode())
		return nil, err
	}
	return ev, nil
}

// ListRevenueEvents lists events visible to the context.
func (e *Engine) ListRevenueEvents(ctx context.Context, tc tenant.Context, opts revenue.ListOpts) ([]*revenue.Event, error) {
	return e.store.ListRevenueEvents(ctx, e.policy.FilterFor(tc), opts)
}

// EventsForTenantCode lists events stamped with a bare tenant code in
// either tenant field, still bounded by the context's scope. Hosts use this
// for lookups keyed by historical codes that predate the franchise/branch
// split, where the field the code landed in is not known.
func (e *Engine) EventsForTenantCode(ctx context.Context, tc tenant.Context, code string, opts revenue.ListOpts) ([]*revenue.Event, error) {
	if code == "" {
		return nil, ValidationError{Field: "tenant_code", Message: "missing tenant code"}
	}
	return e.store.ListRevenueEvents(ctx, e.policy.FilterFor(tc).AndCode(code), opts)
}

// ──────────────────────────────────────────────────
// Registration numbers
// ──────────────────────────────────────────────────

// AllocateRegistration mints the next registration number for the
// context's tenant in the given two-digit period. Allocation retries
// bounded on counter conflicts; issued numbers are unique per scope, gaps
// after failures are tolerated.
func (e *Engine) AllocateRegistration(ctx context.Context, tc tenant.Context, period string) (sequence.RegistrationNumber, error) {
	code := tc.TenantCode()
	if code == "" {
		return sequence.RegistrationNumber{}, ValidationError{Field: "tenant_code", Message: "context carries no tenant code"}
	}
	if _, _, err := report.PeriodRange(period); err != nil {
		return sequence.RegistrationNumber{}, ValidationError{Field: "period", Message: "want a two-digit admission year"}
	}

	scope := sequence.Scope{TenantCode: code, Period: period}

	var value int64
	var err error
	for attempt := 1; attempt <= e.sequenceRetries; attempt++ {
		value, err = e.store.NextSequence(ctx, scope)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSequenceConflict) {
			return sequence.RegistrationNumber{}, err
		}
		e.logger.Debug("sequence conflict, retrying",
			"scope", scope.Key(),
			"attempt", attempt,
		)
	}
	if err != nil {
		return sequence.RegistrationNumber{}, fmt.Errorf("%w: scope %s after %d attempts", ErrSequenceExhausted, scope.Key(), e.sequenceRetries)
	}

	reg := sequence.RegistrationNumber{
		TenantCode: code,
		Period:     period,
		Sequence:   value,
	}

	e.plugins.EmitSequenceAllocated(ctx, code, period, value)
	e.plugins.EmitRegistrationIssued(ctx, reg.Format())

	e.logger.Debug("registration allocated",
		"registration", reg.Format(),
	)
	return reg, nil
}

// CurrentSequence reports the last value issued for the context's tenant
// and period, zero when nothing was allocated yet.
func (e *Engine) CurrentSequence(ctx context.Context, tc tenant.Context, period string) (int64, error) {
	code := tc.TenantCode()
	if code == "" {
		return 0, ValidationError{Field: "tenant_code", Message: "context carries no tenant code"}
	}
	return e.store.CurrentSequence(ctx, sequence.Scope{TenantCode: code, Period: period})
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// ProcessSettlement settles every unsettled event visible to the context.
// Each event is claimed with a single conditional write: an event another
// run settled concurrently is skipped, never double-counted. The returned
// record is persisted only when at least one event was settled; running
// again with no new events settles zero and stores nothing.
func (e *Engine) ProcessSettlement(ctx context.Context, tc tenant.Context) (*settlement.Record, error) {
	scope := e.policy.FilterFor(tc)

	events, err := e.store.ListRevenueEvents(ctx, scope, revenue.ListOpts{Status: revenue.StatusUnsettled})
	if err != nil {
		return nil, fmt.Errorf("settle: list unsettled events: %w", err)
	}

	rec := settlement.NewRecord(e.currency)
	skipped := 0

	for _, ev := range events {
		company, tax, franchise, err := e.shares.Split(ev.SourceType, ev.GrossAmount)
		if err != nil {
			e.logger.Error("unsplittable event skipped",
				"event_id", ev.ID.String(),
				"error", err,
			)
			continue
		}

		err = e.store.MarkEventSettled(ctx, ev.ID, rec.ID, rec.ProcessedAt)
		if err != nil {
			if errors.Is(err, ErrSettlementConflict) {
				skipped++
				e.plugins.EmitSettlementConflict(ctx, ev.ID.String())
				e.logger.Debug("event claimed by concurrent run",
					"event_id", ev.ID.String(),
				)
				continue
			}
			e.logger.Warn("event settle failed",
				"event_id", ev.ID.String(),
				"error", err,
			)
			continue
		}

		line := settlement.Line{
			EventID:        ev.ID,
			SourceType:     ev.SourceType,
			FranchiseCode:  ev.FranchiseCode,
			BranchCode:     ev.BranchCode,
			Gross:          ev.GrossAmount,
			CompanyShare:   company,
			TaxShare:       tax,
			FranchiseShare: franchise,
		}
		rec.Append(line)
		e.plugins.EmitEventSettled(ctx, line)
	}

	if rec.Empty() {
		e.logger.Info("settlement run settled nothing",
			"candidates", len(events),
			"skipped", skipped,
		)
		return rec, nil
	}

	if err := e.store.CreateSettlementRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("settle: persist settlement record: %w", err)
	}

	e.plugins.EmitSettlementCompleted(ctx, rec)

	e.logger.Info("settlement run completed",
		"record_id", rec.ID.String(),
		"settled", len(rec.Lines),
		"skipped", skipped,
		"total_gross", rec.TotalGross.String(),
		"total_franchise_share", rec.TotalFranchiseShare.String(),
	)
	return rec, nil
}

// GetSettlement retrieves one settlement record, enforcing tenant
// isolation: a non-global context sees a record only when at least one of
// its lines belongs to the tenant.
func (e *Engine) GetSettlement(ctx context.Context, tc tenant.Context, recordID id.RecordID) (*settlement.Record, error) {
	rec, err := e.store.GetSettlementRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if !recordVisible(e.policy.FilterFor(tc), rec) {
		e.plugins.EmitIsolationDenied(ctx, tc.UserID, tc.TenantCode())
		return nil, ErrIsolationViolation
	}
	return rec, nil
}

// SettlementHistory lists settlement records visible to the context, most
// recent first.
func (e *Engine) SettlementHistory(ctx context.Context, tc tenant.Context, opts settlement.ListOpts) ([]*settlement.Record, error) {
	return e.store.ListSettlementRecords(ctx, e.policy.FilterFor(tc), opts)
}

// ──────────────────────────────────────────────────
// Reporting
// ──────────────────────────────────────────────────

// Metrics computes the dashboard metrics for a two-digit period over the
// events and records visible to the context.
func (e *Engine) Metrics(ctx context.Context, tc tenant.Context, period string) (report.Metrics, error) {
	start, end, err := report.PeriodRange(period)
	if err != nil {
		return report.Metrics{}, ValidationError{Field: "period", Message: "want a two-digit admission year"}
	}

	scope := e.policy.FilterFor(tc)

	events, err := e.store.ListRevenueEvents(ctx, scope, revenue.ListOpts{Start: start, End: end})
	if err != nil {
		return report.Metrics{}, fmt.Errorf("settle: list period events: %w", err)
	}

	records, err := e.store.ListSettlementRecords(ctx, scope, settlement.ListOpts{})
	if err != nil {
		return report.Metrics{}, fmt.Errorf("settle: list settlement records: %w", err)
	}

	return report.ComputeMetrics(period, e.currency, events, records), nil
}

// Transactions returns the time-descending ledger view for a period,
// limited to at most limit rows (unlimited when zero).
func (e *Engine) Transactions(ctx context.Context, tc tenant.Context, period string, limit int) ([]report.Transaction, error) {
	start, end, err := report.PeriodRange(period)
	if err != nil {
		return nil, ValidationError{Field: "period", Message: "want a two-digit admission year"}
	}

	events, err := e.store.ListRevenueEvents(ctx, e.policy.FilterFor(tc), revenue.ListOpts{Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("settle: list period events: %w", err)
	}

	return report.Transactions(events, limit), nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// recordVisible reports whether any line of the record matches the scope.
func recordVisible(scope tenant.Filter, rec *settlement.Record) bool {
	if scope.IsUnrestricted() {
		return true
	}
	for i := range rec.Lines {
		l := &rec.Lines[i]
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
