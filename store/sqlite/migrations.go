package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the settlement store.
var Migrations = migrate.NewGroup("settle")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_settle_revenue_events",
			Version: "20240301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settle_revenue_events (
    id             TEXT PRIMARY KEY,
    source_type    TEXT NOT NULL DEFAULT '',
    source_id      TEXT NOT NULL DEFAULT '',
    franchise_code TEXT NOT NULL DEFAULT '',
    branch_code    TEXT NOT NULL DEFAULT '',
    gross_cents    INTEGER NOT NULL DEFAULT 0,
    gross_currency TEXT NOT NULL DEFAULT '',
    occurred_at    TIMESTAMP NOT NULL,
    status         TEXT NOT NULL DEFAULT 'unsettled',
    settled_at     TIMESTAMP,
    settlement_id  TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settle_events_franchise ON settle_revenue_events (franchise_code, status, occurred_at);
CREATE INDEX IF NOT EXISTS idx_settle_events_branch ON settle_revenue_events (branch_code, status, occurred_at);
CREATE INDEX IF NOT EXISTS idx_settle_events_occurred ON settle_revenue_events (occurred_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_settle_events_source ON settle_revenue_events (source_type, source_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS settle_revenue_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_settle_settlement_records",
			Version: "20240301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settle_settlement_records (
    id                          TEXT PRIMARY KEY,
    currency                    TEXT NOT NULL DEFAULT '',
    lines                       TEXT NOT NULL DEFAULT '[]',
    total_gross_cents           INTEGER NOT NULL DEFAULT 0,
    total_company_share_cents   INTEGER NOT NULL DEFAULT 0,
    total_tax_share_cents       INTEGER NOT NULL DEFAULT 0,
    total_franchise_share_cents INTEGER NOT NULL DEFAULT 0,
    processed_at                TIMESTAMP NOT NULL,
    created_at                  TIMESTAMP NOT NULL,
    updated_at                  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settle_records_processed ON settle_settlement_records (processed_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS settle_settlement_records`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_settle_sequence_counters",
			Version: "20240301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settle_sequence_counters (
    scope_key   TEXT PRIMARY KEY,
    tenant_code TEXT NOT NULL DEFAULT '',
    period      TEXT NOT NULL DEFAULT '',
    last_value  INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_settle_counters_scope ON settle_sequence_counters (tenant_code, period);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS settle_sequence_counters`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_settle_admin_bindings",
			Version: "20240301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settle_admin_bindings (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    franchise_code TEXT NOT NULL DEFAULT '',
    branch_code    TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMP NOT NULL,
    updated_at     TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_settle_bindings_user ON settle_admin_bindings (user_id);
CREATE INDEX IF NOT EXISTS idx_settle_bindings_email ON settle_admin_bindings (email);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS settle_admin_bindings`)
				return err
			},
		},
	)
}
