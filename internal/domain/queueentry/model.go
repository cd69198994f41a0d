package queueentry

import (
	"time"

	"github.com/google/uuid"
)

// QueueEntry is one patient's stay in one queue. The entry is active while
// EndedAt is nil and the row is not voided; ending or transitioning it sets
// EndedAt and admits a successor in the next queue.
//
// DateChanged is the optimistic-concurrency stamp. Every persisted write
// refreshes it, and conditional updates compare against the value the caller
// last read.
type QueueEntry struct {
	ID                 uuid.UUID  `json:"id"`
	QueueID            uuid.UUID  `json:"queue_id"`
	PatientID          uuid.UUID  `json:"patient_id"`
	VisitID            *uuid.UUID `json:"visit_id,omitempty"`
	PriorityConceptID  *uuid.UUID `json:"priority_concept_id,omitempty"`
	PriorityComment    *string    `json:"priority_comment,omitempty"`
	StatusConceptID    *uuid.UUID `json:"status_concept_id,omitempty"`
	SortWeight         float64    `json:"sort_weight"`
	LocationWaitingFor *uuid.UUID `json:"location_waiting_for,omitempty"`
	ProviderWaitingFor *uuid.UUID `json:"provider_waiting_for,omitempty"`
	QueueComingFrom    *uuid.UUID `json:"queue_coming_from,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	Voided             bool       `json:"voided"`
	VoidReason         *string    `json:"void_reason,omitempty"`
	VoidedBy           *string    `json:"voided_by,omitempty"`
	VoidedAt           *time.Time `json:"voided_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	DateChanged        time.Time  `json:"date_changed"`
}

// Active reports whether the entry still occupies its queue.
func (e *QueueEntry) Active() bool {
	return !e.Voided && e.EndedAt == nil
}

// VisitQueueEntry links a queue entry to the visit it was admitted under.
// The link carries its own voided flag and can be retired without touching
// the entry it wraps.
type VisitQueueEntry struct {
	ID           uuid.UUID `json:"id"`
	VisitID      uuid.UUID `json:"visit_id"`
	QueueEntryID uuid.UUID `json:"queue_entry_id"`
	Voided       bool      `json:"voided"`
	CreatedAt    time.Time `json:"created_at"`
}

// TransitionRequest describes how to move an active entry to its next stop.
// Unset optional fields fall back to the predecessor's values; NewQueueID nil
// keeps the patient in the same queue (a status-only transition).
type TransitionRequest struct {
	EntryID            uuid.UUID  `json:"entry_id"`
	TransitionAt       *time.Time `json:"transition_at,omitempty"`
	NewQueueID         *uuid.UUID `json:"new_queue_id,omitempty"`
	NewStatusID        *uuid.UUID `json:"new_status_id,omitempty"`
	NewPriorityID      *uuid.UUID `json:"new_priority_id,omitempty"`
	PriorityComment    *string    `json:"priority_comment,omitempty"`
	LocationWaitingFor *uuid.UUID `json:"location_waiting_for,omitempty"`
	ProviderWaitingFor *uuid.UUID `json:"provider_waiting_for,omitempty"`
}
