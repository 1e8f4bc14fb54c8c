package database

import (
	"context"
	"fmt"
)

// Schema creates every table the rota needs. It is safe to apply twice.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL DEFAULT 'staff' CHECK (role IN ('manager', 'staff')),
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS staff (
	id              BIGSERIAL PRIMARY KEY,
	name            TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT '',
	terminal        INTEGER NOT NULL,
	display_order   INTEGER,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sunday          TEXT,
	monday          TEXT,
	tuesday         TEXT,
	wednesday       TEXT,
	thursday        TEXT,
	friday          TEXT,
	saturday        TEXT,
	draft_sunday    TEXT,
	draft_monday    TEXT,
	draft_tuesday   TEXT,
	draft_wednesday TEXT,
	draft_thursday  TEXT,
	draft_friday    TEXT,
	draft_saturday  TEXT
);

CREATE INDEX IF NOT EXISTS idx_staff_terminal ON staff (terminal);

CREATE TABLE IF NOT EXISTS weekly_schedules (
	staff_id           BIGINT NOT NULL,
	week_starting_date DATE NOT NULL,
	sunday             TEXT,
	monday             TEXT,
	tuesday            TEXT,
	wednesday          TEXT,
	thursday           TEXT,
	friday             TEXT,
	saturday           TEXT,
	draft_sunday       TEXT,
	draft_monday       TEXT,
	draft_tuesday      TEXT,
	draft_wednesday    TEXT,
	draft_thursday     TEXT,
	draft_friday       TEXT,
	draft_saturday     TEXT,
	CONSTRAINT weekly_schedules_staff_week_key UNIQUE (staff_id, week_starting_date)
);

CREATE INDEX IF NOT EXISTS idx_weekly_schedules_week ON weekly_schedules (week_starting_date);

CREATE TABLE IF NOT EXISTS weekly_migrations (
	promoted_week        DATE PRIMARY KEY,
	archived_week        DATE NOT NULL,
	staff_count          INTEGER NOT NULL,
	next_week_data_count INTEGER NOT NULL,
	ran_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
