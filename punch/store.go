/*
store.go - Collaborator interfaces for persistence, evidence, and audit

PURPOSE:
  Defines the narrow contracts between the punch engine and its external
  collaborators. The engine itself has no network surface and no storage;
  everything it needs from the outside world passes through these
  interfaces.

KEY INTERFACES:
  Store:         Punch persistence (insert, day fetch, range fetch)
  EvidenceStore: Opaque selfie payloads, addressed by reference
  AuditSink:     Append-only record of accepted punches
  Directory:     Worker identity lookups for the authentication layer

APPEND-ONLY CONTRACT:
  Store has exactly one write operation: Insert. There is no Update and no
  Delete. Corrections are an external adjustment workflow, out of scope.

RACE GUARD:
  Insert must enforce uniqueness on (scope, day, ordinal). When two
  submissions race for the same ordinal, the second Insert fails with
  ErrStateChanged so the caller re-reads the day and resubmits, instead of
  surfacing a raw storage error or a spurious duplicate.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - punch/store:  In-memory store for tests and development

SEE ALSO:
  - timeclock/recorder.go: The accept path using Store and AuditSink
  - store/sqlite/sqlite.go: Concrete implementation
*/
package punch

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Punch persistence
// =============================================================================

// Store handles punch persistence. Insert is the ONLY write operation.
type Store interface {
	// Insert persists a punch. Fails with ErrStateChanged when the
	// (scope, day, ordinal) slot was claimed by a concurrent submission.
	Insert(ctx context.Context, day string, p Punch) error

	// FindDay returns one worker's punches for a day key (YYYY-MM-DD),
	// ordered by ordinal ascending.
	FindDay(ctx context.Context, scope ScopeKey, day string) ([]Punch, error)

	// FindRange returns punches with OccurredAt inside the closed window,
	// ordered by OccurredAt ascending then ordinal ascending.
	FindRange(ctx context.Context, scope ScopeKey, window DayWindow) ([]Punch, error)

	// FindPunch returns a single punch by id, scoped to (org, worker) so a
	// reference can never cross a tenant boundary. ErrNotFound if missing.
	FindPunch(ctx context.Context, scope ScopeKey, id PunchID) (Punch, error)
}

// =============================================================================
// EVIDENCE STORE - Opaque photo payloads
// =============================================================================

// Evidence is one stored selfie payload.
type Evidence struct {
	Ref     string
	MIME    string
	Payload []byte
}

// EvidenceStore persists and serves evidence payloads. The engine treats
// refs and payloads as opaque; it never inspects or decodes content.
// Delete exists only so the accept path can discard a payload whose punch
// lost the ordinal race and was never persisted.
type EvidenceStore interface {
	Save(ctx context.Context, ev Evidence) error
	Load(ctx context.Context, ref string) (Evidence, error)
	Delete(ctx context.Context, ref string) error
}

// =============================================================================
// AUDIT SINK - One record per accepted punch
// =============================================================================

// AuditEntry records an accepted punch for the audit trail.
type AuditEntry struct {
	ID          string
	Scope       ScopeKey
	Action      string
	PunchID     PunchID
	Type        Type
	Ordinal     int
	OccurredAt  time.Time
	Location    Location
	HasEvidence bool
	Metadata    map[string]any
}

// AuditActionPunchAccepted is emitted once per accepted punch.
const AuditActionPunchAccepted = "PUNCH_ACCEPTED"

// AuditSink receives audit entries. Delivery and ordering are the sink's
// concern: the accept path never blocks or fails on a sink error.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// =============================================================================
// DIRECTORY - Worker identity for the authentication collaborator
// =============================================================================

// Worker is an authenticated identity within one organization.
type Worker struct {
	ID           string
	OrgID        string
	Name         string
	Email        string
	PasswordHash string

	// OrgTimezone is the organization's IANA zone name used for day
	// boundary resolution. Empty means UTC.
	OrgTimezone string
}

// Scope returns the ScopeKey all of this worker's punches live under.
func (w Worker) Scope() ScopeKey { return ScopeKey{OrgID: w.OrgID, WorkerID: w.ID} }

// Directory resolves workers for login and scope resolution. The engine
// never verifies credentials itself; that is the auth layer's job.
type Directory interface {
	FindWorkerByEmail(ctx context.Context, email string) (Worker, error)
	FindWorker(ctx context.Context, scope ScopeKey) (Worker, error)
}
