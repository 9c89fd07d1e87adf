package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the evidence database schema.
// Timestamps are stored as Unix nanoseconds and slot dates as YYYY-MM-DD.
const Schema = `
-- Evidence records table
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    trace_id TEXT NOT NULL,

    -- Timestamps
    decided_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL,

    -- Policy
    policy_id TEXT NOT NULL,
    policy_version TEXT,

    -- Slot identity
    date TEXT NOT NULL,
    period INTEGER NOT NULL,
    absent_id TEXT NOT NULL,
    class_id TEXT,
    subject TEXT,

    -- Outcome
    candidate_id TEXT NOT NULL,
    allowed BOOLEAN NOT NULL,
    score REAL NOT NULL,
    rejection TEXT,
    blocked_by TEXT,
    overridable BOOLEAN NOT NULL DEFAULT 0,

    rules_applied TEXT,
    rules_suppressed TEXT,
    steps_matched TEXT,
    audit_required TEXT,
    breakdown TEXT,
    draws TEXT,

    elapsed_ns INTEGER,

    -- Full trace
    trace TEXT NOT NULL,
    trace_hash TEXT NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_evidence_decided_at ON evidence(decided_at);
CREATE INDEX IF NOT EXISTS idx_evidence_trace_id ON evidence(trace_id);
CREATE INDEX IF NOT EXISTS idx_evidence_policy_id ON evidence(policy_id);
CREATE INDEX IF NOT EXISTS idx_evidence_candidate_id ON evidence(candidate_id, date);
CREATE INDEX IF NOT EXISTS idx_evidence_slot ON evidence(date, period, absent_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const columns = `id, trace_id, decided_at, recorded_at, policy_id, policy_version,
	date, period, absent_id, class_id, subject,
	candidate_id, allowed, score, rejection, blocked_by, overridable,
	rules_applied, rules_suppressed, steps_matched, audit_required, breakdown, draws,
	elapsed_ns, trace, trace_hash`

const insertRecord = `INSERT INTO evidence (` + columns + `) VALUES (
	?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
)`
