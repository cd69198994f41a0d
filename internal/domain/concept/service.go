package concept

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Resolver is the narrow read interface other packages depend on for
// reference-set resolution.
type Resolver interface {
	SetMembers(ctx context.Context, setID uuid.UUID) ([]*Concept, error)
	IsMember(ctx context.Context, setID, conceptID uuid.UUID) (bool, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateConcept(ctx context.Context, c *Concept) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.CreateConcept(ctx, c)
}

func (s *Service) GetConcept(ctx context.Context, id uuid.UUID) (*Concept, error) {
	return s.repo.GetConcept(ctx, id)
}

func (s *Service) CreateSet(ctx context.Context, set *Set) error {
	if set.Name == "" {
		return fmt.Errorf("name is required")
	}
	return s.repo.CreateSet(ctx, set)
}

func (s *Service) GetSet(ctx context.Context, id uuid.UUID) (*Set, error) {
	return s.repo.GetSet(ctx, id)
}

// AddMember appends a concept to a set. When SortOrder is negative the
// concept goes to the end of the current ordering.
func (s *Service) AddMember(ctx context.Context, m *SetMember) error {
	if m.SetID == uuid.Nil {
		return fmt.Errorf("set_id is required")
	}
	if m.ConceptID == uuid.Nil {
		return fmt.Errorf("concept_id is required")
	}
	if m.SortOrder < 0 {
		members, err := s.repo.SetMembers(ctx, m.SetID)
		if err != nil {
			return err
		}
		m.SortOrder = len(members)
	}
	return s.repo.AddMember(ctx, m)
}

func (s *Service) SetMembers(ctx context.Context, setID uuid.UUID) ([]*Concept, error) {
	return s.repo.SetMembers(ctx, setID)
}

// IsMember reports whether conceptID belongs to the given set.
func (s *Service) IsMember(ctx context.Context, setID, conceptID uuid.UUID) (bool, error) {
	members, err := s.repo.SetMembers(ctx, setID)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m.ID == conceptID {
			return true, nil
		}
	}
	return false, nil
}
