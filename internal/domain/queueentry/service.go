package queueentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/concept"
	"github.com/clinicq/clinicq/internal/platform/auth"
)

// Service is the entry lifecycle engine: admission, transition, undo, void
// and close. All multi-step mutations go through conditional updates on
// DateChanged so concurrent writers surface as ErrConcurrencyConflict instead
// of silently clobbering each other.
type Service struct {
	repo               Repository
	queues             QueueLookup
	concepts           concept.Resolver
	policy             WeightPolicy
	defaultPrioritySet uuid.UUID
	defaultStatusSet   uuid.UUID
	log                zerolog.Logger
}

func NewService(repo Repository, queues QueueLookup, concepts concept.Resolver, policy WeightPolicy, defaultPrioritySet, defaultStatusSet uuid.UUID, log zerolog.Logger) *Service {
	return &Service{
		repo:               repo,
		queues:             queues,
		concepts:           concepts,
		policy:             policy,
		defaultPrioritySet: defaultPrioritySet,
		defaultStatusSet:   defaultStatusSet,
		log:                log,
	}
}

// Admit creates a new entry after checking the target queue, reference-set
// membership and the one-active-entry-per-patient-per-queue rule. The sort
// weight is always recomputed by the configured policy.
func (s *Service) Admit(ctx context.Context, e *QueueEntry) (*QueueEntry, error) {
	if e.QueueID == uuid.Nil {
		return nil, validationf("queue_id is required")
	}
	if e.PatientID == uuid.Nil {
		return nil, validationf("patient_id is required")
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now().UTC()
	}
	if e.EndedAt != nil && e.EndedAt.Before(e.StartedAt) {
		return nil, validationf("ended_at %s before started_at %s", e.EndedAt, e.StartedAt)
	}
	q, err := s.queues.GetQueue(ctx, e.QueueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, validationf("queue %s does not exist", e.QueueID)
		}
		return nil, err
	}
	if q.Retired {
		return nil, validationf("queue %s is retired", e.QueueID)
	}
	if err := s.checkMembership(ctx, q.AllowedPrioritiesSetID, s.defaultPrioritySet, e.PriorityConceptID, "priority"); err != nil {
		return nil, err
	}
	if err := s.checkMembership(ctx, q.AllowedStatusesSetID, s.defaultStatusSet, e.StatusConceptID, "status"); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, e); err != nil {
		return nil, err
	}
	weight, err := s.policy.Generate(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("generate sort weight: %w", err)
	}
	e.SortWeight = weight
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	if e.VisitID != nil {
		link := &VisitQueueEntry{VisitID: *e.VisitID, QueueEntryID: e.ID}
		if err := s.repo.CreateVisitLink(ctx, link); err != nil {
			return nil, err
		}
	}
	s.log.Info().
		Str("entry_id", e.ID.String()).
		Str("queue_id", e.QueueID.String()).
		Str("patient_id", e.PatientID.String()).
		Float64("sort_weight", e.SortWeight).
		Msg("queue entry admitted")
	return e, nil
}

// Transition closes the entry and admits its successor in the next queue. The
// close is conditional on the stamp the caller read; if admitting the
// successor fails the predecessor is reopened so the patient never vanishes
// from the board.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*QueueEntry, error) {
	pred, err := s.Get(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	if pred.Voided {
		return nil, stateViolationf("entry %s is voided", pred.ID)
	}
	if pred.EndedAt != nil {
		return nil, stateViolationf("entry %s already ended at %s", pred.ID, pred.EndedAt)
	}
	at := time.Now().UTC()
	if req.TransitionAt != nil {
		at = *req.TransitionAt
	}
	if at.Before(pred.StartedAt) {
		return nil, validationf("transition time %s before entry start %s", at, pred.StartedAt)
	}
	targetQueue := pred.QueueID
	if req.NewQueueID != nil {
		targetQueue = *req.NewQueueID
	}
	// Transitioning at the entry's own start into the same queue would
	// recreate the identical window. Refuse before touching the row so the
	// predecessor stays open.
	if targetQueue == pred.QueueID && at.Equal(pred.StartedAt) {
		return nil, &DuplicateError{PatientID: pred.PatientID, QueueID: pred.QueueID}
	}

	stamp := pred.DateChanged
	pred.EndedAt = &at
	ok, err := s.repo.UpdateIfUnmodified(ctx, pred, stamp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: entry %s", ErrConcurrencyConflict, pred.ID)
	}

	succ := &QueueEntry{
		QueueID:            targetQueue,
		PatientID:          pred.PatientID,
		VisitID:            pred.VisitID,
		PriorityConceptID:  pred.PriorityConceptID,
		PriorityComment:    pred.PriorityComment,
		StatusConceptID:    pred.StatusConceptID,
		LocationWaitingFor: pred.LocationWaitingFor,
		ProviderWaitingFor: pred.ProviderWaitingFor,
		QueueComingFrom:    &pred.QueueID,
		StartedAt:          at,
	}
	if req.NewStatusID != nil {
		succ.StatusConceptID = req.NewStatusID
	}
	if req.NewPriorityID != nil {
		succ.PriorityConceptID = req.NewPriorityID
	}
	if req.PriorityComment != nil {
		succ.PriorityComment = req.PriorityComment
	}
	if req.LocationWaitingFor != nil {
		succ.LocationWaitingFor = req.LocationWaitingFor
	}
	if req.ProviderWaitingFor != nil {
		succ.ProviderWaitingFor = req.ProviderWaitingFor
	}

	succ, err = s.Admit(ctx, succ)
	if err != nil {
		s.reopen(ctx, pred.ID)
		return nil, err
	}
	s.log.Info().
		Str("from_entry", pred.ID.String()).
		Str("to_entry", succ.ID.String()).
		Str("to_queue", succ.QueueID.String()).
		Time("at", at).
		Msg("queue entry transitioned")
	return succ, nil
}

// reopen clears EndedAt on a just-closed predecessor after a failed
// transition. Best effort: if someone else has touched the row in the interim
// we log and leave it to them.
func (s *Service) reopen(ctx context.Context, id uuid.UUID) {
	pred, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("entry_id", id.String()).Msg("reopen after failed transition: reload failed")
		return
	}
	stamp := pred.DateChanged
	pred.EndedAt = nil
	ok, err := s.repo.UpdateIfUnmodified(ctx, pred, stamp)
	if err != nil || !ok {
		s.log.Error().Err(err).Bool("won", ok).Str("entry_id", id.String()).
			Msg("reopen after failed transition: conditional update lost")
	}
}

// UndoTransition voids the entry produced by a transition and reopens the
// entry it came from. The predecessor is matched on patient, visit, the
// successor's coming-from queue, and an end time equal to the successor's
// start. No match is ErrNotFound; more than one means the chain is ambiguous
// and nothing is touched.
func (s *Service) UndoTransition(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	succ, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if succ.Voided {
		return nil, stateViolationf("entry %s is voided", succ.ID)
	}
	if succ.EndedAt != nil {
		return nil, stateViolationf("entry %s already ended at %s", succ.ID, succ.EndedAt)
	}
	if succ.QueueComingFrom == nil {
		return nil, stateViolationf("entry %s was not created by a transition", succ.ID)
	}

	crit := SearchCriteria{
		PatientID: &succ.PatientID,
		QueueIDs:  []uuid.UUID{*succ.QueueComingFrom},
		EndedAt:   &succ.StartedAt,
	}
	if succ.VisitID != nil {
		crit.VisitID = succ.VisitID
	} else {
		noVisit := false
		crit.HasVisit = &noVisit
	}
	preds, err := s.repo.Search(ctx, crit, 10, 0)
	if err != nil {
		return nil, err
	}
	switch {
	case len(preds) == 0:
		return nil, fmt.Errorf("%w: no predecessor for entry %s", ErrNotFound, succ.ID)
	case len(preds) > 1:
		return nil, stateViolationf("entry %s has %d candidate predecessors", succ.ID, len(preds))
	}
	pred := preds[0]

	stamp := pred.DateChanged
	pred.EndedAt = nil
	ok, err := s.repo.UpdateIfUnmodified(ctx, pred, stamp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: entry %s", ErrConcurrencyConflict, pred.ID)
	}

	reason := "Transition undone"
	succ.Voided = true
	succ.VoidReason = &reason
	now := time.Now().UTC()
	succ.VoidedAt = &now
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		succ.VoidedBy = &uid
	}
	if err := s.repo.Update(ctx, succ); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("voided_entry", succ.ID.String()).
		Str("reopened_entry", pred.ID.String()).
		Msg("transition undone")
	return pred, nil
}

// Void retires an entry without a successor. Voiding an already-voided entry
// is a no-op.
func (s *Service) Void(ctx context.Context, id uuid.UUID, reason string) (*QueueEntry, error) {
	if reason == "" {
		return nil, validationf("void reason is required")
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Voided {
		return e, nil
	}
	now := time.Now().UTC()
	e.Voided = true
	e.VoidReason = &reason
	e.VoidedAt = &now
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		e.VoidedBy = &uid
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// End closes a single active entry at the given time without admitting a
// successor (patient served, left, or was discharged).
func (s *Service) End(ctx context.Context, id uuid.UUID, at time.Time) (*QueueEntry, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Voided {
		return nil, stateViolationf("entry %s is voided", e.ID)
	}
	if e.EndedAt != nil {
		return nil, stateViolationf("entry %s already ended at %s", e.ID, e.EndedAt)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.Before(e.StartedAt) {
		return nil, validationf("end time %s before entry start %s", at, e.StartedAt)
	}
	stamp := e.DateChanged
	e.EndedAt = &at
	ok, err := s.repo.UpdateIfUnmodified(ctx, e, stamp)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: entry %s", ErrConcurrencyConflict, e.ID)
	}
	return e, nil
}

// CloseActive ends every active entry in the queue at the given time. Best
// effort: an entry that fails to close (lost race, window violation) is logged
// and skipped, and the count of entries actually closed is returned.
func (s *Service) CloseActive(ctx context.Context, queueID uuid.UUID, at time.Time) (int, error) {
	notEnded := false
	return s.closeMatching(ctx, SearchCriteria{
		QueueIDs: []uuid.UUID{queueID},
		IsEnded:  &notEnded,
	}, at)
}

// CloseAllActive ends every active entry in every queue at the given time,
// with the same best-effort semantics as CloseActive.
func (s *Service) CloseAllActive(ctx context.Context, at time.Time) (int, error) {
	notEnded := false
	return s.closeMatching(ctx, SearchCriteria{IsEnded: &notEnded}, at)
}

func (s *Service) closeMatching(ctx context.Context, c SearchCriteria, at time.Time) (int, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	const pageSize = 500
	closed := 0
	// Closed entries drop out of the active result set, so each page is
	// fetched past only the entries that failed to close.
	skipped := 0
	for {
		entries, err := s.repo.Search(ctx, c, pageSize, skipped)
		if err != nil {
			return closed, err
		}
		if len(entries) == 0 {
			break
		}
		for _, e := range entries {
			if _, err := s.End(ctx, e.ID, at); err != nil {
				s.log.Warn().Err(err).Str("entry_id", e.ID.String()).Msg("close active: entry skipped")
				skipped++
				continue
			}
			closed++
		}
		if len(entries) < pageSize {
			break
		}
	}
	return closed, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*QueueEntry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return e, nil
}

// VisitLinks lists the active links recorded for a visit.
func (s *Service) VisitLinks(ctx context.Context, visitID uuid.UUID) ([]*VisitQueueEntry, error) {
	return s.repo.ListVisitLinks(ctx, visitID)
}

// VoidVisitLink retires the link itself; the entry it wraps keeps its own
// lifecycle.
func (s *Service) VoidVisitLink(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.VoidVisitLink(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: visit link %s", ErrNotFound, id)
		}
		return err
	}
	s.log.Info().Str("link_id", id.String()).Msg("visit link voided")
	return nil
}

func (s *Service) Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*QueueEntry, error) {
	return s.repo.Search(ctx, c, limit, offset)
}

func (s *Service) Count(ctx context.Context, c SearchCriteria) (int64, error) {
	return s.repo.Count(ctx, c)
}

// checkOverlap enforces at most one active entry per patient per queue over
// any instant of the candidate's window.
func (s *Service) checkOverlap(ctx context.Context, e *QueueEntry) error {
	notEnded := false
	active, err := s.repo.Search(ctx, SearchCriteria{
		PatientID: &e.PatientID,
		QueueIDs:  []uuid.UUID{e.QueueID},
		IsEnded:   &notEnded,
	}, 100, 0)
	if err != nil {
		return err
	}
	for _, other := range active {
		if other.ID == e.ID {
			continue
		}
		if Overlaps(&e.StartedAt, e.EndedAt, &other.StartedAt, other.EndedAt) {
			return &DuplicateError{PatientID: e.PatientID, QueueID: e.QueueID}
		}
	}
	return nil
}

// checkMembership validates a priority or status concept against the queue's
// allowed set, falling back to the global default set. No applicable set means
// any concept is accepted.
func (s *Service) checkMembership(ctx context.Context, queueSet *uuid.UUID, defaultSet uuid.UUID, conceptID *uuid.UUID, field string) error {
	if conceptID == nil {
		return nil
	}
	setID := defaultSet
	if queueSet != nil {
		setID = *queueSet
	}
	if setID == uuid.Nil {
		return nil
	}
	ok, err := s.concepts.IsMember(ctx, setID, *conceptID)
	if err != nil {
		return fmt.Errorf("resolve %s set: %w", field, err)
	}
	if !ok {
		return validationf("%s concept %s is not in allowed set %s", field, conceptID, setID)
	}
	return nil
}
