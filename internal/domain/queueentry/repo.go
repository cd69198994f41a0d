package queueentry

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence surface for queue entries. Implementations
// return pgx.ErrNoRows (or an equivalent) from GetByID when absent; the
// service translates that to ErrNotFound.
type Repository interface {
	Create(ctx context.Context, e *QueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error)
	// Update persists the entry unconditionally and refreshes DateChanged.
	Update(ctx context.Context, e *QueueEntry) error
	// UpdateIfUnmodified persists the entry only if the stored row's
	// DateChanged still equals expected. It reports whether the write won;
	// false with a nil error means another writer got there first.
	UpdateIfUnmodified(ctx context.Context, e *QueueEntry, expected time.Time) (bool, error)
	Search(ctx context.Context, c SearchCriteria, limit, offset int) ([]*QueueEntry, error)
	Count(ctx context.Context, c SearchCriteria) (int64, error)
	CreateVisitLink(ctx context.Context, link *VisitQueueEntry) error
	ListVisitLinks(ctx context.Context, visitID uuid.UUID) ([]*VisitQueueEntry, error)
	// VoidVisitLink retires a link without touching the entry it wraps.
	// An unknown id yields pgx.ErrNoRows.
	VoidVisitLink(ctx context.Context, id uuid.UUID) error
}
