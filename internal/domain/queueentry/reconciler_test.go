package queueentry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/clinicq/clinicq/internal/domain/visit"
)

type mockVisitLookup struct {
	visits map[uuid.UUID]*visit.Visit
}

func (m *mockVisitLookup) GetVisit(_ context.Context, id uuid.UUID) (*visit.Visit, error) {
	v, ok := m.visits[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return v, nil
}

func TestReconciler_ClosesEntriesOfStoppedVisits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stoppedAt := ts(4)
	openVisit := &visit.Visit{ID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1)}
	doneVisit := &visit.Visit{ID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), StoppedAt: &stoppedAt}
	visits := &mockVisitLookup{visits: map[uuid.UUID]*visit.Visit{
		openVisit.ID: openVisit,
		doneVisit.ID: doneVisit,
	}}

	stillWaiting, err := f.svc.Admit(ctx, &QueueEntry{QueueID: f.queueA, PatientID: openVisit.PatientID, VisitID: &openVisit.ID, StartedAt: ts(2)})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	wentHome, err := f.svc.Admit(ctx, &QueueEntry{QueueID: f.queueA, PatientID: doneVisit.PatientID, VisitID: &doneVisit.ID, StartedAt: ts(2)})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	r := NewReconciler(f.svc, visits, time.Minute, zerolog.Nop())
	closed, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1", closed)
	}

	e, err := f.svc.Get(ctx, wentHome.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if e.EndedAt == nil || !e.EndedAt.Equal(stoppedAt) {
		t.Errorf("entry ended = %v, want visit stop time %s", e.EndedAt, stoppedAt)
	}

	e, err = f.svc.Get(ctx, stillWaiting.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if e.EndedAt != nil {
		t.Errorf("entry of open visit was closed at %v", e.EndedAt)
	}
}

func TestReconciler_SecondPassIsNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stoppedAt := ts(4)
	v := &visit.Visit{ID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), StoppedAt: &stoppedAt}
	visits := &mockVisitLookup{visits: map[uuid.UUID]*visit.Visit{v.ID: v}}

	if _, err := f.svc.Admit(ctx, &QueueEntry{QueueID: f.queueA, PatientID: v.PatientID, VisitID: &v.ID, StartedAt: ts(2)}); err != nil {
		t.Fatalf("admit: %v", err)
	}

	r := NewReconciler(f.svc, visits, time.Minute, zerolog.Nop())
	if closed, err := r.RunOnce(ctx); err != nil || closed != 1 {
		t.Fatalf("first pass: closed = %d, err = %v", closed, err)
	}
	if closed, err := r.RunOnce(ctx); err != nil || closed != 0 {
		t.Errorf("second pass: closed = %d, err = %v, want 0 and nil", closed, err)
	}
}

func TestReconciler_SkipsVisitStoppedBeforeEntryStarted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stoppedAt := ts(1)
	v := &visit.Visit{ID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(0), StoppedAt: &stoppedAt}
	visits := &mockVisitLookup{visits: map[uuid.UUID]*visit.Visit{v.ID: v}}

	e := &QueueEntry{QueueID: f.queueA, PatientID: v.PatientID, VisitID: &v.ID, StartedAt: ts(2)}
	if err := f.repo.Create(ctx, e); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := NewReconciler(f.svc, visits, time.Minute, zerolog.Nop())
	closed, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0", closed)
	}
	reloaded, err := f.svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.EndedAt != nil {
		t.Errorf("entry was closed at %v despite inconsistent visit stop", reloaded.EndedAt)
	}
}

func TestReconciler_SingleFlight(t *testing.T) {
	f := newFixture()
	r := NewReconciler(f.svc, &mockVisitLookup{}, time.Minute, zerolog.Nop())

	// Simulate a pass still in flight; the next tick must skip, not queue.
	r.running.Store(true)
	closed, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if closed != 0 {
		t.Errorf("closed = %d, want 0 while another pass is running", closed)
	}
	r.running.Store(false)
}
