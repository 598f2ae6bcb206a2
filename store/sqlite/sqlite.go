/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every collaborator contract the punch engine depends on
  (punch.Store, punch.EvidenceStore, punch.AuditSink, punch.Directory)
  using SQLite. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  Punches and audit entries are append-only:
  - No UPDATE statements on the punches or audit_log tables
  - No DELETE statements either
  - Corrections are an external adjustment workflow, not edits

KEY TABLES:
  punches:       Immutable clock events, one row per punch
  evidence:      Opaque selfie payloads, addressed by reference
  audit_log:     One record per accepted punch
  workers:       Worker identities with bcrypt password hashes
  organizations: Tenant records carrying the day-boundary timezone

RACE GUARD:
  idx_punches_unique_ordinal enforces at most one punch per ordinal per
  (org, worker, day). When two submissions race, the second INSERT fails
  and is translated to punch.ErrStateChanged so the caller re-reads the
  day and resubmits - never a raw storage error, never a silent duplicate.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers, a single writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/punch.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - punch/store.go: Interface definitions
  - punch/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/punch-engine/punch"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// timeLayout is fixed-width so stored timestamps compare lexicographically
// in time order. RFC3339Nano trims trailing fractional zeros, and a
// whole-second "...T23:59:59Z" string sorts AFTER "...T23:59:59.999Z"
// ('Z' > '.'), which would drop day-end punches from closed range queries
// and misorder same-second punches.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Organizations (tenants). timezone drives day boundary resolution.
	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		timezone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Workers (authenticated identities)
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_org ON workers(org_id);

	-- Punches (append-only clock events)
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		day TEXT NOT NULL,
		type TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		accuracy_m REAL NOT NULL DEFAULT 0,
		evidence_ref TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one punch per ordinal per (org, worker, day).
	-- Two racing submissions cannot both claim an ordinal; the loser's
	-- INSERT fails and is surfaced as a retry signal.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_punches_unique_ordinal
		ON punches(org_id, worker_id, day, ordinal);

	-- Day fetch (hot path: every submission and today view)
	CREATE INDEX IF NOT EXISTS idx_punches_scope_day
		ON punches(org_id, worker_id, day, ordinal);

	-- Period queries
	CREATE INDEX IF NOT EXISTS idx_punches_scope_occurred
		ON punches(org_id, worker_id, occurred_at);

	-- Evidence payloads (opaque blobs)
	CREATE TABLE IF NOT EXISTS evidence (
		ref TEXT PRIMARY KEY,
		mime TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		action TEXT NOT NULL,
		punch_id TEXT NOT NULL,
		punch_type TEXT NOT NULL,
		ordinal INTEGER NOT NULL,
		occurred_at TEXT NOT NULL,
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		accuracy_m REAL NOT NULL DEFAULT 0,
		has_evidence BOOLEAN NOT NULL DEFAULT FALSE,
		metadata_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_org_created
		ON audit_log(org_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE (punch.Store interface)
// =============================================================================

// Insert adds a punch. The unique ordinal index settles concurrent
// submissions; the loser gets punch.ErrStateChanged.
func (s *Store) Insert(ctx context.Context, day string, p punch.Punch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO punches
		(id, org_id, worker_id, day, type, ordinal, occurred_at,
		 latitude, longitude, accuracy_m, evidence_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.Scope.OrgID,
		p.Scope.WorkerID,
		day,
		p.Type,
		p.Ordinal,
		formatTime(p.OccurredAt),
		p.Location.Latitude,
		p.Location.Longitude,
		p.Location.AccuracyM,
		nullString(p.EvidenceRef),
		formatTime(time.Now()),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return punch.ErrStateChanged
		}
		return fmt.Errorf("failed to insert punch: %w", err)
	}

	return nil
}

// FindDay returns one worker's punches for a day key, ordered by ordinal.
func (s *Store) FindDay(ctx context.Context, scope punch.ScopeKey, day string) ([]punch.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, worker_id, type, ordinal, occurred_at,
		       latitude, longitude, accuracy_m, evidence_ref
		FROM punches
		WHERE org_id = ? AND worker_id = ? AND day = ?
		ORDER BY ordinal ASC
	`

	return s.queryPunches(ctx, query, scope.OrgID, scope.WorkerID, day)
}

// FindRange returns punches inside the closed window, ordered by
// occurred_at then ordinal.
func (s *Store) FindRange(ctx context.Context, scope punch.ScopeKey, window punch.DayWindow) ([]punch.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, worker_id, type, ordinal, occurred_at,
		       latitude, longitude, accuracy_m, evidence_ref
		FROM punches
		WHERE org_id = ? AND worker_id = ?
		  AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at ASC, ordinal ASC
	`

	return s.queryPunches(ctx, query, scope.OrgID, scope.WorkerID,
		formatTime(window.Start),
		formatTime(window.End))
}

// FindPunch returns a single punch by id, scoped to (org, worker).
func (s *Store) FindPunch(ctx context.Context, scope punch.ScopeKey, id punch.PunchID) (punch.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, org_id, worker_id, type, ordinal, occurred_at,
		       latitude, longitude, accuracy_m, evidence_ref
		FROM punches
		WHERE id = ? AND org_id = ? AND worker_id = ?
	`

	punches, err := s.queryPunches(ctx, query, id, scope.OrgID, scope.WorkerID)
	if err != nil {
		return punch.Punch{}, err
	}
	if len(punches) == 0 {
		return punch.Punch{}, punch.ErrNotFound
	}
	return punches[0], nil
}

func (s *Store) queryPunches(ctx context.Context, query string, args ...any) ([]punch.Punch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, err
		}
		punches = append(punches, p)
	}

	return punches, rows.Err()
}

func scanPunch(rows *sql.Rows) (punch.Punch, error) {
	var (
		p           punch.Punch
		occurredAt  string
		evidenceRef sql.NullString
	)

	err := rows.Scan(
		&p.ID, &p.Scope.OrgID, &p.Scope.WorkerID, &p.Type, &p.Ordinal,
		&occurredAt,
		&p.Location.Latitude, &p.Location.Longitude, &p.Location.AccuracyM,
		&evidenceRef,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan punch: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, occurredAt)
	if err != nil {
		return p, fmt.Errorf("failed to parse occurred_at: %w", err)
	}
	p.OccurredAt = t
	p.EvidenceRef = evidenceRef.String

	return p, nil
}

// =============================================================================
// EVIDENCE STORE (punch.EvidenceStore interface)
// =============================================================================

// Save stores an evidence payload under its reference.
func (s *Store) Save(ctx context.Context, ev punch.Evidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evidence (ref, mime, payload, created_at) VALUES (?, ?, ?, ?)`,
		ev.Ref, ev.MIME, ev.Payload, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save evidence: %w", err)
	}
	return nil
}

// Load returns the evidence payload for a reference.
func (s *Store) Load(ctx context.Context, ref string) (punch.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev := punch.Evidence{Ref: ref}
	err := s.db.QueryRowContext(ctx,
		`SELECT mime, payload FROM evidence WHERE ref = ?`, ref,
	).Scan(&ev.MIME, &ev.Payload)

	if errors.Is(err, sql.ErrNoRows) {
		return punch.Evidence{}, punch.ErrNotFound
	}
	if err != nil {
		return punch.Evidence{}, fmt.Errorf("failed to load evidence: %w", err)
	}
	return ev, nil
}

// Delete removes an evidence payload whose punch was never persisted.
func (s *Store) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM evidence WHERE ref = ?`, ref)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	return nil
}

// =============================================================================
// AUDIT SINK (punch.AuditSink interface)
// =============================================================================

// Record appends one audit entry.
func (s *Store) Record(ctx context.Context, entry punch.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataJSON, _ := json.Marshal(entry.Metadata)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log
		(id, org_id, worker_id, action, punch_id, punch_type, ordinal,
		 occurred_at, latitude, longitude, accuracy_m, has_evidence,
		 metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Scope.OrgID,
		entry.Scope.WorkerID,
		entry.Action,
		entry.PunchID,
		entry.Type,
		entry.Ordinal,
		formatTime(entry.OccurredAt),
		entry.Location.Latitude,
		entry.Location.Longitude,
		entry.Location.AccuracyM,
		entry.HasEvidence,
		string(metadataJSON),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// =============================================================================
// DIRECTORY (punch.Directory interface)
// =============================================================================

// FindWorkerByEmail resolves a worker for login.
func (s *Store) FindWorkerByEmail(ctx context.Context, email string) (punch.Worker, error) {
	return s.queryWorker(ctx, `
		SELECT w.id, w.org_id, w.name, w.email, w.password_hash, o.timezone
		FROM workers w
		JOIN organizations o ON o.id = w.org_id
		WHERE w.email = ?`, email)
}

// FindWorker resolves a worker by scope key.
func (s *Store) FindWorker(ctx context.Context, scope punch.ScopeKey) (punch.Worker, error) {
	return s.queryWorker(ctx, `
		SELECT w.id, w.org_id, w.name, w.email, w.password_hash, o.timezone
		FROM workers w
		JOIN organizations o ON o.id = w.org_id
		WHERE w.id = ? AND w.org_id = ?`, scope.WorkerID, scope.OrgID)
}

func (s *Store) queryWorker(ctx context.Context, query string, args ...any) (punch.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w punch.Worker
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&w.ID, &w.OrgID, &w.Name, &w.Email, &w.PasswordHash, &w.OrgTimezone,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return punch.Worker{}, punch.ErrNotFound
	}
	if err != nil {
		return punch.Worker{}, fmt.Errorf("failed to query worker: %w", err)
	}
	return w, nil
}

// =============================================================================
// SEEDING - Organizations and workers are managed out-of-band
// =============================================================================

// Organization is a tenant record.
type Organization struct {
	ID       string
	Name     string
	Timezone string
}

// SaveOrganization upserts a tenant record.
func (s *Store) SaveOrganization(ctx context.Context, org Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, timezone, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, timezone = excluded.timezone`,
		org.ID, org.Name, org.Timezone, formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}
	return nil
}

// SaveWorker upserts a worker record.
func (s *Store) SaveWorker(ctx context.Context, w punch.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, org_id, name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			password_hash = excluded.password_hash`,
		w.ID, w.OrgID, w.Name, w.Email, w.PasswordHash,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
