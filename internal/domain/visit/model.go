package visit

import (
	"time"

	"github.com/google/uuid"
)

// Visit maps to the visit table. A visit brackets all queue activity for one
// patient attendance; queue entries auto-close when it stops.
type Visit struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	LocationID *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	StoppedAt  *time.Time `db:"stopped_at" json:"stopped_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// Open reports whether the visit is still in progress.
func (v *Visit) Open() bool { return v.StoppedAt == nil }
