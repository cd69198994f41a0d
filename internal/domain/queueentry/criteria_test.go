package queueentry

import (
	"testing"

	"github.com/google/uuid"
)

func TestCriteria_NilSliceMatchesEverything(t *testing.T) {
	from := uuid.New()
	withSource := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), QueueComingFrom: &from}
	withoutSource := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1)}

	crit := SearchCriteria{}
	if !crit.Matches(withSource) || !crit.Matches(withoutSource) {
		t.Fatal("empty criteria should match every non-voided entry")
	}
}

func TestCriteria_EmptySliceMeansColumnNull(t *testing.T) {
	from := uuid.New()
	withSource := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), QueueComingFrom: &from}
	withoutSource := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1)}

	crit := SearchCriteria{ComingFromQueueIDs: []uuid.UUID{}}
	if crit.Matches(withSource) {
		t.Error("empty coming-from filter matched an entry with a source queue")
	}
	if !crit.Matches(withoutSource) {
		t.Error("empty coming-from filter should match entries with no source queue")
	}
}

func TestCriteria_PopulatedSlice(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	e := &QueueEntry{ID: uuid.New(), QueueID: q1, PatientID: uuid.New(), StartedAt: ts(1)}

	if !(SearchCriteria{QueueIDs: []uuid.UUID{q1, q2}}).Matches(e) {
		t.Error("entry in listed queue should match")
	}
	if (SearchCriteria{QueueIDs: []uuid.UUID{q2}}).Matches(e) {
		t.Error("entry outside listed queues should not match")
	}
}

func TestCriteria_VoidedExcludedByDefault(t *testing.T) {
	e := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), Voided: true}

	if (SearchCriteria{}).Matches(e) {
		t.Error("voided entry matched without include_voided")
	}
	if !(SearchCriteria{IncludeVoided: true}).Matches(e) {
		t.Error("voided entry should match with include_voided")
	}
}

func TestCriteria_TimeBounds(t *testing.T) {
	e := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(3), EndedAt: tsp(5)}

	if !(SearchCriteria{StartedOnOrAfter: tsp(3)}).Matches(e) {
		t.Error("on-or-after bound should be inclusive")
	}
	if (SearchCriteria{StartedOnOrAfter: tsp(4)}).Matches(e) {
		t.Error("entry started before the bound matched")
	}
	if !(SearchCriteria{EndedAt: tsp(5)}).Matches(e) {
		t.Error("exact end time should match")
	}
	open := &QueueEntry{ID: uuid.New(), QueueID: e.QueueID, PatientID: e.PatientID, StartedAt: ts(3)}
	if (SearchCriteria{EndedOnOrAfter: tsp(1)}).Matches(open) {
		t.Error("open entry matched an ended-at bound")
	}
}

func TestCriteria_IsEndedAndVisit(t *testing.T) {
	vid := uuid.New()
	open := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), VisitID: &vid}
	done := &QueueEntry{ID: uuid.New(), QueueID: uuid.New(), PatientID: uuid.New(), StartedAt: ts(1), EndedAt: tsp(2)}

	ended := true
	if (SearchCriteria{IsEnded: &ended}).Matches(open) {
		t.Error("open entry matched is_ended=true")
	}
	if !(SearchCriteria{IsEnded: &ended}).Matches(done) {
		t.Error("ended entry should match is_ended=true")
	}

	hasVisit := true
	if !(SearchCriteria{HasVisit: &hasVisit}).Matches(open) {
		t.Error("entry with visit should match has_visit=true")
	}
	if (SearchCriteria{HasVisit: &hasVisit}).Matches(done) {
		t.Error("entry without visit matched has_visit=true")
	}
}
