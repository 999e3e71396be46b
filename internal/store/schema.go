package store

import (
	"context"
	"fmt"

	"basegraph.app/intake/core/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
    id                  TEXT PRIMARY KEY,
    session_id          TEXT NOT NULL,
    title               TEXT NOT NULL,
    description         TEXT NOT NULL,
    severity            TEXT NOT NULL,
    reproducibility     TEXT NOT NULL,
    evidence            JSONB NOT NULL,
    affected_components TEXT[] NOT NULL DEFAULT '{}',
    status              TEXT NOT NULL DEFAULT 'pending',
    assigned_to         TEXT,
    topic               TEXT,
    topic_cluster       TEXT,
    tracker             TEXT,
    external_id         TEXT,
    external_url        TEXT,
    notified_at         TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
);

ALTER TABLE tickets ADD COLUMN IF NOT EXISTS assigned_to TEXT;

CREATE INDEX IF NOT EXISTS tickets_status_created_at_idx ON tickets (status, created_at DESC);
CREATE INDEX IF NOT EXISTS tickets_topic_cluster_idx ON tickets (topic_cluster);
`

// Migrate creates the tables the service needs. Statements are idempotent.
func Migrate(ctx context.Context, conn db.DBTX) error {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
