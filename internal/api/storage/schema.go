package storage

import "context"

// extractionsSchema defines the table both services operate on. The
// worker columns (worker_id, heartbeat, retry bookkeeping) live here
// too so a claim is a single UPDATE.
const extractionsSchema = `
CREATE TABLE IF NOT EXISTS extractions (
	extraction_id     UUID PRIMARY KEY,
	idempotency_key   TEXT NOT NULL UNIQUE,
	source_url        TEXT NOT NULL DEFAULT '',
	file_path         TEXT NOT NULL DEFAULT '',
	mode              TEXT NOT NULL DEFAULT '',
	output_mode       TEXT NOT NULL DEFAULT '',
	pages_to_extract  TEXT NOT NULL DEFAULT '',
	tag               TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'PENDING',
	whisper_hash      TEXT NOT NULL DEFAULT '',
	result_text       TEXT NOT NULL DEFAULT '',
	failure_reason    TEXT NOT NULL DEFAULT '',
	worker_id         TEXT,
	retry_count       INT NOT NULL DEFAULT 0,
	max_retries       INT NOT NULL DEFAULT 3,
	timeout_seconds   INT NOT NULL DEFAULT 0,
	started_at        TIMESTAMPTZ,
	completed_at      TIMESTAMPTZ,
	last_heartbeat_at TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_extractions_status_created
	ON extractions (status, created_at DESC);
`

// EnsureSchema creates the extractions table if it does not exist yet
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, extractionsSchema)
	return err
}
