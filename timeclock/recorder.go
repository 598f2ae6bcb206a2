/*
recorder.go - The punch accept path

PURPOSE:
  Turns a submission into a persisted punch:
    1. Capture "now" once.
    2. Resolve the worker's organization timezone for day grouping.
    3. Load today's punches and run the sequencer.
    4. Store the photo evidence, then the punch.
    5. Emit one audit record, fire-and-forget.

RACE HANDLING:
  The read-validate-insert flow is not atomic. The store's uniqueness
  constraint on (scope, day, ordinal) settles concurrent submissions: the
  losing insert comes back as ErrStateChanged, which the client resolves by
  re-fetching the day and resubmitting. The engine never retries on its own.
  A payload saved for the losing punch is deleted again so no orphaned
  evidence accumulates.

SEE ALSO:
  - punch/sequencer.go: Validation and ordinal assignment
  - store/sqlite/sqlite.go: The uniqueness constraint
*/
package timeclock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/punch-engine/punch"
)

// Submission is one punch attempt from a client.
type Submission struct {
	Type     punch.Type
	Location punch.Location

	// Photo is the raw selfie payload, optional. The engine stores it as
	// an opaque blob and keeps only a reference on the punch.
	Photo     []byte
	PhotoMIME string

	// Source labels where the submission came from, e.g. "MOBILE".
	Source string
}

// Submit validates and persists one punch for scope's current day.
func (s *Service) Submit(ctx context.Context, scope punch.ScopeKey, sub Submission) (punch.Punch, error) {
	now := s.now()

	worker, err := s.directory.FindWorker(ctx, scope)
	if err != nil {
		return punch.Punch{}, fmt.Errorf("resolve worker: %w", err)
	}
	loc := punch.ResolveLocation(worker.OrgTimezone)
	day := punch.DayKey(now, loc)

	existing, err := s.store.FindDay(ctx, scope, day)
	if err != nil {
		return punch.Punch{}, fmt.Errorf("load day: %w", err)
	}

	ordinal, err := punch.ProposeNext(existing, sub.Type)
	if err != nil {
		return punch.Punch{}, err
	}

	var evidenceRef string
	if len(sub.Photo) > 0 {
		evidenceRef = uuid.NewString()
		ev := punch.Evidence{Ref: evidenceRef, MIME: sub.PhotoMIME, Payload: sub.Photo}
		if err := s.evidence.Save(ctx, ev); err != nil {
			return punch.Punch{}, fmt.Errorf("save evidence: %w", err)
		}
	}

	p := punch.Punch{
		ID:          punch.PunchID(uuid.NewString()),
		Scope:       scope,
		Type:        sub.Type,
		Ordinal:     ordinal,
		OccurredAt:  now,
		Location:    sub.Location,
		EvidenceRef: evidenceRef,
	}

	if err := s.store.Insert(ctx, day, p); err != nil {
		s.discardEvidence(ctx, evidenceRef)
		return punch.Punch{}, err
	}

	s.recordAudit(ctx, p, sub)
	return p, nil
}

// discardEvidence removes a payload stored for a punch that never landed,
// typically because a concurrent submission claimed the ordinal first.
func (s *Service) discardEvidence(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.evidence.Delete(ctx, ref); err != nil {
		s.log.Warn("evidence cleanup failed", "ref", ref, "err", err)
	}
}

// recordAudit emits one audit entry per accepted punch. Sink failures are
// logged and swallowed: the worker already has an accepted punch and must
// not lose it to an audit outage.
func (s *Service) recordAudit(ctx context.Context, p punch.Punch, sub Submission) {
	entry := punch.AuditEntry{
		ID:          uuid.NewString(),
		Scope:       p.Scope,
		Action:      punch.AuditActionPunchAccepted,
		PunchID:     p.ID,
		Type:        p.Type,
		Ordinal:     p.Ordinal,
		OccurredAt:  p.OccurredAt,
		Location:    p.Location,
		HasEvidence: p.HasEvidence(),
		Metadata: map[string]any{
			"source":     sub.Source,
			"photo_mime": sub.PhotoMIME,
		},
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("audit record failed",
			"punch_id", p.ID,
			"worker_id", p.Scope.WorkerID,
			"err", err)
	}
}
