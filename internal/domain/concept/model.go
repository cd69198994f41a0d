package concept

import (
	"time"

	"github.com/google/uuid"
)

// Concept maps to the concept table. Concepts name priorities, statuses,
// and services referenced by queues and queue entries.
type Concept struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Set maps to the concept_set table. A set holds an ordered list of member
// concepts; ordering is significant for priority sets, where position
// determines sort weight.
type Set struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SetMember maps to the concept_set_member table.
type SetMember struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SetID     uuid.UUID `db:"set_id" json:"set_id"`
	ConceptID uuid.UUID `db:"concept_id" json:"concept_id"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
}
