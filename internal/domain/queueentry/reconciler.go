package queueentry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/visit"
)

// VisitLookup is the slice of the visit service the reconciler needs.
type VisitLookup interface {
	GetVisit(ctx context.Context, id uuid.UUID) (*visit.Visit, error)
}

// Reconciler closes entries whose visit has ended but whose queue entry is
// still open, typically because the visit was stopped by another system. It
// runs on a fixed interval and each pass is single-flight: a tick that fires
// while the previous pass is still running is skipped, never queued.
type Reconciler struct {
	entries  *Service
	visits   VisitLookup
	interval time.Duration
	log      zerolog.Logger
	running  atomic.Bool
}

func NewReconciler(entries *Service, visits VisitLookup, interval time.Duration, log zerolog.Logger) *Reconciler {
	return &Reconciler{entries: entries, visits: visits, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, executing one pass per interval.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.log.Info().Dur("interval", r.interval).Msg("auto-close reconciler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("auto-close reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("auto-close pass failed")
			}
		}
	}
}

// RunOnce executes a single pass and returns how many entries it closed. A
// pass already in flight makes this call a no-op. Per-entry failures are
// logged and skipped so one bad row never stalls the rest; only failing to
// list candidates at all is returned as an error.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.log.Debug().Msg("auto-close pass still running, skipping tick")
		return 0, nil
	}
	defer r.running.Store(false)

	notEnded := false
	hasVisit := true
	crit := SearchCriteria{
		IsEnded:  &notEnded,
		HasVisit: &hasVisit,
	}

	const pageSize = 500
	closed := 0
	seen := 0
	// Closing an entry removes it from the active set, so each page is
	// fetched past only the candidates that stayed open.
	skipped := 0
	for {
		candidates, err := r.entries.Search(ctx, crit, pageSize, skipped)
		if err != nil {
			return closed, err
		}
		if len(candidates) == 0 {
			break
		}
		seen += len(candidates)
		for _, e := range candidates {
			if r.closeIfVisitEnded(ctx, e) {
				closed++
			} else {
				skipped++
			}
		}
		if len(candidates) < pageSize {
			break
		}
	}
	if closed > 0 {
		r.log.Info().Int("closed", closed).Int("candidates", seen).Msg("auto-close pass complete")
	}
	return closed, nil
}

// closeIfVisitEnded closes one candidate entry at its visit's stop time. It
// reports whether the entry was closed; every skip is logged or deliberate.
func (r *Reconciler) closeIfVisitEnded(ctx context.Context, e *QueueEntry) bool {
	v, err := r.visits.GetVisit(ctx, *e.VisitID)
	if err != nil {
		r.log.Warn().Err(err).Str("entry_id", e.ID.String()).Msg("auto-close: visit lookup failed")
		return false
	}
	if v.Open() {
		return false
	}
	if v.StoppedAt.Before(e.StartedAt) {
		// The visit stop predates the entry; closing would break the
		// entry window. Needs a human.
		r.log.Warn().
			Str("entry_id", e.ID.String()).
			Str("visit_id", v.ID.String()).
			Time("visit_stopped", *v.StoppedAt).
			Time("entry_started", e.StartedAt).
			Msg("auto-close: visit stopped before entry started, skipping")
		return false
	}
	if _, err := r.entries.End(ctx, e.ID, *v.StoppedAt); err != nil {
		r.log.Warn().Err(err).Str("entry_id", e.ID.String()).Msg("auto-close: close failed, skipping")
		return false
	}
	return true
}
