package concept

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateConcept(ctx context.Context, c *Concept) error
	GetConcept(ctx context.Context, id uuid.UUID) (*Concept, error)
	CreateSet(ctx context.Context, s *Set) error
	GetSet(ctx context.Context, id uuid.UUID) (*Set, error)
	AddMember(ctx context.Context, m *SetMember) error
	// SetMembers returns the member concepts of a set ordered by sort_order.
	SetMembers(ctx context.Context, setID uuid.UUID) ([]*Concept, error)
}
