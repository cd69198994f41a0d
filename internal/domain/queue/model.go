package queue

import (
	"time"

	"github.com/google/uuid"
)

// Queue maps to the queue table. A queue is a named service line at a
// location. Allowed priorities and statuses are concept sets; when unset the
// globally configured sets apply.
type Queue struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	Name                   string     `db:"name" json:"name"`
	Description            *string    `db:"description" json:"description,omitempty"`
	LocationID             uuid.UUID  `db:"location_id" json:"location_id"`
	ServiceConceptID       *uuid.UUID `db:"service_concept_id" json:"service_concept_id,omitempty"`
	AllowedPrioritiesSetID *uuid.UUID `db:"allowed_priorities_set_id" json:"allowed_priorities_set_id,omitempty"`
	AllowedStatusesSetID   *uuid.UUID `db:"allowed_statuses_set_id" json:"allowed_statuses_set_id,omitempty"`
	Retired                bool       `db:"retired" json:"retired"`
	RetireReason           *string    `db:"retire_reason" json:"retire_reason,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
}

// Room maps to the queue_room table. A room belongs to exactly one queue.
type Room struct {
	ID          uuid.UUID `db:"id" json:"id"`
	QueueID     uuid.UUID `db:"queue_id" json:"queue_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Retired     bool      `db:"retired" json:"retired"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RoomProviderMap maps to the room_provider_map table. A provider has at most
// one active mapping; assigning a new room retires earlier mappings.
type RoomProviderMap struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RoomID     uuid.UUID `db:"room_id" json:"room_id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	Retired    bool      `db:"retired" json:"retired"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
