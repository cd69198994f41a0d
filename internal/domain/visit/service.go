package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateVisit(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if v.StartedAt.IsZero() {
		v.StartedAt = time.Now().UTC()
	}
	if v.StoppedAt != nil && v.StoppedAt.Before(v.StartedAt) {
		return fmt.Errorf("stopped_at before started_at")
	}
	return s.repo.Create(ctx, v)
}

func (s *Service) GetVisit(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// StopVisit ends an open visit at the given time (now when zero).
func (s *Service) StopVisit(ctx context.Context, id uuid.UUID, at time.Time) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("visit not found: %w", err)
	}
	if !v.Open() {
		return nil, fmt.Errorf("visit %s is already stopped", id)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if at.Before(v.StartedAt) {
		return nil, fmt.Errorf("stop time before visit start")
	}
	v.StoppedAt = &at
	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ListOpenVisits(ctx context.Context, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListOpen(ctx, limit, offset)
}

func (s *Service) ListVisitsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
