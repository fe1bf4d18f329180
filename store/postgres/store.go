// Package postgres implements the settlement store on PostgreSQL via
// Grove ORM.
//
// The two concurrency-sensitive operations are expressed as single
// statements: MarkEventSettled is a conditional UPDATE guarded on the
// unsettled status, and NextSequence is an upserting increment with
// ON CONFLICT ... DO UPDATE ... RETURNING. Postgres serializes both on the
// row, so no driver-level retry signalling is needed.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	settle "github.com/campuskit/settle"
	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	settlestore "github.com/campuskit/settle/store"
	"github.com/campuskit/settle/tenant"
)

// compile-time interface check
var _ settlestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("settle/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("settle/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Revenue event store ====================

func (s *Store) CreateRevenueEvent(ctx context.Context, e *revenue.Event) error {
	m := toRevenueEventModel(e)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/postgres: create revenue event: %w", err)
	}
	return nil
}

func (s *Store) GetRevenueEvent(ctx context.Context, eventID id.EventID) (*revenue.Event, error) {
	m := new(revenueEventModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", eventID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, settle.ErrEventNotFound
		}
		return nil, err
	}
	return fromRevenueEventModel(m)
}

func (s *Store) ListRevenueEvents(ctx context.Context, scope tenant.Filter, opts revenue.ListOpts) ([]*revenue.Event, error) {
	var models []revenueEventModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if expr, args := scopeExpr(scope, eventColumn, &argIdx); expr != "" {
		q = q.Where(expr, args...)
	}
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Source != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("source_type = $%d", argIdx), string(opts.Source))
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("occurred_at >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("occurred_at < $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*revenue.Event, len(models))
	for i := range models {
		e, err := fromRevenueEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// MarkEventSettled performs the conditional unsettled → settled transition
// as one guarded UPDATE. Zero rows affected means the event was either
// claimed concurrently or never existed; a follow-up point read
// disambiguates.
func (s *Store) MarkEventSettled(ctx context.Context, eventID id.EventID, recordID id.RecordID, settledAt time.Time) error {
	res, err := s.pg.NewUpdate((*revenueEventModel)(nil)).
		Set("status = $1", string(revenue.StatusSettled)).
		Set("settled_at = $2", settledAt).
		Set("settlement_id = $3", recordID.String()).
		Set("updated_at = $4", now()).
		Where("id = $5", eventID.String()).
		Where("status = $6", string(revenue.StatusUnsettled)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/postgres: mark event settled: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	var count int64
	err = s.pg.NewRaw(`SELECT COUNT(*) FROM settle_revenue_events WHERE id = $1`, eventID.String()).Scan(ctx, &count)
	if err != nil {
		return fmt.Errorf("settle/postgres: mark event settled: %w", err)
	}
	if count == 0 {
		return settle.ErrEventNotFound
	}
	return settle.ErrSettlementConflict
}

// ==================== Settlement record store ====================

func (s *Store) CreateSettlementRecord(ctx context.Context, r *settlement.Record) error {
	m := toSettlementRecordModel(r)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/postgres: create settlement record: %w", err)
	}
	return nil
}

func (s *Store) GetSettlementRecord(ctx context.Context, recordID id.RecordID) (*settlement.Record, error) {
	m := new(settlementRecordModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", recordID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, settle.ErrRecordNotFound
		}
		return nil, err
	}
	return fromSettlementRecordModel(m)
}

func (s *Store) ListSettlementRecords(ctx context.Context, scope tenant.Filter, opts settlement.ListOpts) ([]*settlement.Record, error) {
	var models []settlementRecordModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if expr, args := recordScopeExpr(scope, &argIdx); expr != "" {
		q = q.Where(expr, args...)
	}
	if !opts.Start.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("processed_at >= $%d", argIdx), opts.Start)
	}
	if !opts.End.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("processed_at < $%d", argIdx), opts.End)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("processed_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*settlement.Record, len(models))
	for i := range models {
		r, err := fromSettlementRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Sequence counter store ====================

// NextSequence increments the scoped counter in one upserting statement.
func (s *Store) NextSequence(ctx context.Context, scope sequence.Scope) (int64, error) {
	var last int64
	err := s.pg.NewRaw(`
		INSERT INTO settle_sequence_counters (scope_key, tenant_code, period, last_value, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $4)
		ON CONFLICT (scope_key) DO UPDATE
		SET last_value = settle_sequence_counters.last_value + 1, updated_at = $4
		RETURNING last_value
	`, scope.Key(), scope.TenantCode, scope.Period, now()).Scan(ctx, &last)
	if err != nil {
		return 0, fmt.Errorf("settle/postgres: next sequence: %w", err)
	}
	return last, nil
}

func (s *Store) CurrentSequence(ctx context.Context, scope sequence.Scope) (int64, error) {
	m := new(sequenceCounterModel)
	err := s.pg.NewSelect(m).
		Where("scope_key = $1", scope.Key()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return fromSequenceCounterModel(m).LastValue, nil
}

// ==================== Admin directory store ====================

func (s *Store) CreateAdminBinding(ctx context.Context, b *tenant.AdminBinding) error {
	m := toAdminBindingModel(b)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/postgres: create admin binding: %w", err)
	}
	return nil
}

func (s *Store) AdminBindingByUser(ctx context.Context, userID string) (*tenant.AdminBinding, error) {
	m := new(adminBindingModel)
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tenant.ErrBindingNotFound
		}
		return nil, err
	}
	return fromAdminBindingModel(m)
}

func (s *Store) AdminBindingByEmail(ctx context.Context, email string) (*tenant.AdminBinding, error) {
	m := new(adminBindingModel)
	err := s.pg.NewSelect(m).
		Where("email = $1", email).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tenant.ErrBindingNotFound
		}
		return nil, err
	}
	return fromAdminBindingModel(m)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks if an error wraps sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// eventColumn maps canonical filter field names onto event table columns.
func eventColumn(field string) string {
	return field
}

// lineColumn maps canonical filter field names onto JSONB line extraction
// expressions used inside the EXISTS subquery over a record's lines.
func lineColumn(field string) string {
	return fmt.Sprintf("l->>'%s'", field)
}

// scopeExpr renders the tenant filter as one SQL condition with $n
// placeholders numbered from *argIdx+1. It returns the empty string for an
// unrestricted filter and a contradiction for an empty one, so contexts
// without tenant codes fail closed.
func scopeExpr(scope tenant.Filter, col func(string) string, argIdx *int) (string, []any) {
	if scope.IsUnrestricted() {
		return "", nil
	}
	if scope.IsEmpty() {
		return "1 = 0", nil
	}

	var conds []string
	var args []any

	for _, c := range scope.Equals {
		*argIdx++
		conds = append(conds, fmt.Sprintf("%s = $%d", col(c.Field), *argIdx))
		args = append(args, c.Value)
	}

	for _, group := range scope.AnyOf {
		parts := make([]string, len(group))
		for i, c := range group {
			*argIdx++
			parts[i] = fmt.Sprintf("%s = $%d", col(c.Field), *argIdx)
			args = append(args, c.Value)
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}

	return "(" + strings.Join(conds, " AND ") + ")", args
}

// recordScopeExpr renders the tenant filter against the embedded settlement
// lines: a record is visible when at least one of its lines matches.
func recordScopeExpr(scope tenant.Filter, argIdx *int) (string, []any) {
	inner, args := scopeExpr(scope, lineColumn, argIdx)
	switch inner {
	case "", "1 = 0":
		return inner, args
	}
	return "EXISTS (SELECT 1 FROM jsonb_array_elements(lines) AS l WHERE " + inner + ")", args
}
