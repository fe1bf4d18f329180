// Package mongo implements the settlement store on MongoDB via Grove ORM.
//
// The two concurrency-sensitive operations bypass the ORM query builder and
// use the raw collection handle: MarkEventSettled is a single conditional
// FindOneAndUpdate filtered on the unsettled status, and NextSequence is an
// atomic $inc upsert. Neither ever reads before writing.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	settle "github.com/campuskit/settle"
	"github.com/campuskit/settle/id"
	"github.com/campuskit/settle/revenue"
	"github.com/campuskit/settle/sequence"
	"github.com/campuskit/settle/settlement"
	settlestore "github.com/campuskit/settle/store"
	"github.com/campuskit/settle/tenant"
)

// Collection name constants.
const (
	colRevenueEvents     = "settle_revenue_events"
	colSettlementRecords = "settle_settlement_records"
	colSequenceCounters  = "settle_sequence_counters"
	colAdminBindings     = "settle_admin_bindings"
)

// compile-time interface check
var _ settlestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all settlement collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("settle/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/mongo: create revenue event: %w", err)
	}
	return nil
}

func (s *Store) GetRevenueEvent(ctx context.Context, eventID id.EventID) (*revenue.Event, error) {
	var m revenueEventModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": eventID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settle.ErrEventNotFound
		}
		return nil, fmt.Errorf("settle/mongo: get revenue event: %w", err)
	}
	return fromRevenueEventModel(&m)
}

func (s *Store) ListRevenueEvents(ctx context.Context, scope tenant.Filter, opts revenue.ListOpts) ([]*revenue.Event, error) {
	var models []revenueEventModel

	filter := scopeFilter(scope)
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if opts.Source != "" {
		filter["source_type"] = string(opts.Source)
	}
	if rng := timeRange(opts.Start, opts.End); rng != nil {
		filter["occurred_at"] = rng
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("settle/mongo: list revenue events: %w", err)
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
// as one FindOneAndUpdate. When the filter matches nothing the event was
// either claimed by a concurrent run or never existed; a follow-up point
// read disambiguates the two.
func (s *Store) MarkEventSettled(ctx context.Context, eventID id.EventID, recordID id.RecordID, settledAt time.Time) error {
	res := s.mdb.Collection(colRevenueEvents).FindOneAndUpdate(ctx,
		bson.M{
			"_id":    eventID.String(),
			"status": string(revenue.StatusUnsettled),
		},
		bson.M{"$set": bson.M{
			"status":        string(revenue.StatusSettled),
			"settled_at":    settledAt,
			"settlement_id": recordID.String(),
			"updated_at":    now(),
		}})

	err := res.Err()
	if err == nil {
		return nil
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("settle/mongo: mark event settled: %w", err)
	}

	count, cerr := s.mdb.Collection(colRevenueEvents).CountDocuments(ctx, bson.M{"_id": eventID.String()})
	if cerr != nil {
		return fmt.Errorf("settle/mongo: mark event settled: %w", cerr)
	}
	if count == 0 {
		return settle.ErrEventNotFound
	}
	return settle.ErrSettlementConflict
}

// ==================== Settlement record store ====================

func (s *Store) CreateSettlementRecord(ctx context.Context, r *settlement.Record) error {
	m := toSettlementRecordModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/mongo: create settlement record: %w", err)
	}
	return nil
}

func (s *Store) GetSettlementRecord(ctx context.Context, recordID id.RecordID) (*settlement.Record, error) {
	var m settlementRecordModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": recordID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, settle.ErrRecordNotFound
		}
		return nil, fmt.Errorf("settle/mongo: get settlement record: %w", err)
	}
	return fromSettlementRecordModel(&m)
}

func (s *Store) ListSettlementRecords(ctx context.Context, scope tenant.Filter, opts settlement.ListOpts) ([]*settlement.Record, error) {
	var models []settlementRecordModel

	filter := recordScopeFilter(scope)
	if rng := timeRange(opts.Start, opts.End); rng != nil {
		filter["processed_at"] = rng
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "processed_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("settle/mongo: list settlement records: %w", err)
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

// NextSequence atomically increments the scoped counter with an upserting
// $inc and returns the post-increment value. Mongo serializes the
// increments, so no retry path is needed here.
func (s *Store) NextSequence(ctx context.Context, scope sequence.Scope) (int64, error) {
	t := now()
	res := s.mdb.Collection(colSequenceCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": scope.Key()},
		bson.M{
			"$inc": bson.M{"last_value": 1},
			"$set": bson.M{"updated_at": t},
			"$setOnInsert": bson.M{
				"tenant_code": scope.TenantCode,
				"period":      scope.Period,
				"created_at":  t,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After))

	var m sequenceCounterModel
	if err := res.Decode(&m); err != nil {
		// A concurrent upsert of the same scope can race on the unique _id;
		// the engine retries on this signal.
		if mongo.IsDuplicateKeyError(err) {
			return 0, settle.ErrSequenceConflict
		}
		return 0, fmt.Errorf("settle/mongo: next sequence: %w", err)
	}
	return m.LastValue, nil
}

func (s *Store) CurrentSequence(ctx context.Context, scope sequence.Scope) (int64, error) {
	var m sequenceCounterModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": scope.Key()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("settle/mongo: current sequence: %w", err)
	}
	return fromSequenceCounterModel(&m).LastValue, nil
}

// ==================== Admin directory store ====================

func (s *Store) CreateAdminBinding(ctx context.Context, b *tenant.AdminBinding) error {
	m := toAdminBindingModel(b)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settle/mongo: create admin binding: %w", err)
	}
	return nil
}

func (s *Store) AdminBindingByUser(ctx context.Context, userID string) (*tenant.AdminBinding, error) {
	var m adminBindingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"user_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tenant.ErrBindingNotFound
		}
		return nil, fmt.Errorf("settle/mongo: admin binding by user: %w", err)
	}
	return fromAdminBindingModel(&m)
}

func (s *Store) AdminBindingByEmail(ctx context.Context, email string) (*tenant.AdminBinding, error) {
	var m adminBindingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"email": email}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tenant.ErrBindingNotFound
		}
		return nil, fmt.Errorf("settle/mongo: admin binding by email: %w", err)
	}
	return fromAdminBindingModel(&m)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// matchNone is a filter no document satisfies. Rendered for empty tenant
// filters so a context without tenant codes fails closed.
func matchNone() bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{}}}
}

// scopeFilter renders a tenant filter into a bson predicate over the
// top-level tenant code fields.
func scopeFilter(scope tenant.Filter) bson.M {
	if scope.IsUnrestricted() {
		return bson.M{}
	}
	if scope.IsEmpty() {
		return matchNone()
	}

	filter := bson.M{}
	for _, c := range scope.Equals {
		filter[c.Field] = c.Value
	}

	if len(scope.AnyOf) == 1 {
		filter["$or"] = orClauses(scope.AnyOf[0], "")
	} else if len(scope.AnyOf) > 1 {
		groups := make(bson.A, len(scope.AnyOf))
		for i, group := range scope.AnyOf {
			groups[i] = bson.M{"$or": orClauses(group, "")}
		}
		filter["$and"] = groups
	}
	return filter
}

// recordScopeFilter renders a tenant filter against the embedded settlement
// lines: a record is visible when at least one of its lines matches.
func recordScopeFilter(scope tenant.Filter) bson.M {
	if scope.IsUnrestricted() {
		return bson.M{}
	}
	if scope.IsEmpty() {
		return matchNone()
	}

	inner := bson.M{}
	for _, c := range scope.Equals {
		inner[c.Field] = c.Value
	}

	if len(scope.AnyOf) == 1 {
		inner["$or"] = orClauses(scope.AnyOf[0], "")
	} else if len(scope.AnyOf) > 1 {
		groups := make(bson.A, len(scope.AnyOf))
		for i, group := range scope.AnyOf {
			groups[i] = bson.M{"$or": orClauses(group, "")}
		}
		inner["$and"] = groups
	}

	return bson.M{"lines": bson.M{"$elemMatch": inner}}
}

func orClauses(group []tenant.Clause, prefix string) bson.A {
	clauses := make(bson.A, len(group))
	for i, c := range group {
		clauses[i] = bson.M{prefix + c.Field: c.Value}
	}
	return clauses
}

// timeRange builds an [start, end) predicate, or nil when both are zero.
func timeRange(start, end time.Time) bson.M {
	if start.IsZero() && end.IsZero() {
		return nil
	}
	rng := bson.M{}
	if !start.IsZero() {
		rng["$gte"] = start
	}
	if !end.IsZero() {
		rng["$lt"] = end
	}
	return rng
}

// migrationIndexes returns the index definitions for all settlement collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colRevenueEvents: {
			{Keys: bson.D{{Key: "franchise_code", Value: 1}, {Key: "status", Value: 1}, {Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "branch_code", Value: 1}, {Key: "status", Value: 1}, {Key: "occurred_at", Value: -1}}},
			{Keys: bson.D{{Key: "occurred_at", Value: -1}}},
			{
				Keys:    bson.D{{Key: "source_type", Value: 1}, {Key: "source_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colSettlementRecords: {
			{Keys: bson.D{{Key: "processed_at", Value: -1}}},
			{Keys: bson.D{{Key: "lines.franchise_code", Value: 1}}},
			{Keys: bson.D{{Key: "lines.branch_code", Value: 1}}},
		},
		colSequenceCounters: {
			{Keys: bson.D{{Key: "tenant_code", Value: 1}, {Key: "period", Value: 1}}},
		},
		colAdminBindings: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
}
