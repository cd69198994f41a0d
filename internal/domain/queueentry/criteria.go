package queueentry

import (
	"time"

	"github.com/google/uuid"
)

// SearchCriteria is a declarative filter over queue entries. Every field is
// optional and unset fields do not constrain the result.
//
// Collection fields distinguish nil from empty: a nil slice means "no filter
// on this column", while an explicitly empty slice means "the column must be
// null". This lets callers ask for entries with no queue-coming-from, no
// waiting location, and so on.
type SearchCriteria struct {
	PatientID          *uuid.UUID
	VisitID            *uuid.UUID
	HasVisit           *bool
	QueueIDs           []uuid.UUID
	LocationIDs        []uuid.UUID
	ServiceConceptIDs  []uuid.UUID
	StatusConceptIDs   []uuid.UUID
	PriorityConceptIDs []uuid.UUID
	ComingFromQueueIDs []uuid.UUID
	WaitingForLocation []uuid.UUID
	WaitingForProvider []uuid.UUID
	StartedOnOrAfter   *time.Time
	StartedOnOrBefore  *time.Time
	StartedAt          *time.Time
	EndedOnOrAfter     *time.Time
	EndedOnOrBefore    *time.Time
	EndedAt            *time.Time
	IsEnded            *bool
	IncludeVoided      bool
}

// Matches reports whether a single entry satisfies the criteria. The Postgres
// repository compiles the same semantics to SQL; this form serves in-memory
// stores and tests. LocationIDs and ServiceConceptIDs constrain the owning
// queue rather than the entry itself, so only the repository applies them;
// Matches treats them as unset.
func (c SearchCriteria) Matches(e *QueueEntry) bool {
	if e.Voided && !c.IncludeVoided {
		return false
	}
	if c.PatientID != nil && e.PatientID != *c.PatientID {
		return false
	}
	if c.VisitID != nil && (e.VisitID == nil || *e.VisitID != *c.VisitID) {
		return false
	}
	if c.HasVisit != nil && *c.HasVisit != (e.VisitID != nil) {
		return false
	}
	qid := e.QueueID
	if !matchIDSet(c.QueueIDs, &qid) {
		return false
	}
	if !matchIDSet(c.StatusConceptIDs, e.StatusConceptID) {
		return false
	}
	if !matchIDSet(c.PriorityConceptIDs, e.PriorityConceptID) {
		return false
	}
	if !matchIDSet(c.ComingFromQueueIDs, e.QueueComingFrom) {
		return false
	}
	if !matchIDSet(c.WaitingForLocation, e.LocationWaitingFor) {
		return false
	}
	if !matchIDSet(c.WaitingForProvider, e.ProviderWaitingFor) {
		return false
	}
	if c.StartedOnOrAfter != nil && e.StartedAt.Before(*c.StartedOnOrAfter) {
		return false
	}
	if c.StartedOnOrBefore != nil && e.StartedAt.After(*c.StartedOnOrBefore) {
		return false
	}
	if c.StartedAt != nil && !e.StartedAt.Equal(*c.StartedAt) {
		return false
	}
	if c.EndedOnOrAfter != nil && (e.EndedAt == nil || e.EndedAt.Before(*c.EndedOnOrAfter)) {
		return false
	}
	if c.EndedOnOrBefore != nil && (e.EndedAt == nil || e.EndedAt.After(*c.EndedOnOrBefore)) {
		return false
	}
	if c.EndedAt != nil && (e.EndedAt == nil || !e.EndedAt.Equal(*c.EndedAt)) {
		return false
	}
	if c.IsEnded != nil && *c.IsEnded != (e.EndedAt != nil) {
		return false
	}
	return true
}

// matchIDSet applies the nil/empty collection convention to one column value.
func matchIDSet(filter []uuid.UUID, value *uuid.UUID) bool {
	if filter == nil {
		return true
	}
	if len(filter) == 0 {
		return value == nil
	}
	if value == nil {
		return false
	}
	for _, id := range filter {
		if id == *value {
			return true
		}
	}
	return false
}
