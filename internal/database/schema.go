package database

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analyses (
    id                  UUID PRIMARY KEY,
    source_name         TEXT NOT NULL,
    provider            TEXT NOT NULL,
    model               TEXT NOT NULL DEFAULT '',
    total_speakers      INT NOT NULL,
    total_interruptions INT NOT NULL,
    speaking_times      JSONB NOT NULL,
    interruptions       JSONB NOT NULL,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC);
`

// InitSchema applies the schema on a fresh database. It checks whether
// the "analyses" table exists as a proxy for whether the schema has been
// loaded. If present, it's a no-op.
func (db *DB) InitSchema(ctx context.Context) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'analyses')`,
	).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	db.log.Info().Msg("fresh database detected — applying schema")
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	db.log.Info().Msg("schema applied successfully")
	return nil
}
