package queueentry

import "time"

// Overlaps reports whether two half-open time windows [startA, endA) and
// [startB, endB) intersect. A nil start extends the window indefinitely
// into the past and a nil end means the window is still open. Two fully
// unbounded windows always overlap. Windows that merely touch at a
// boundary do not overlap, so back-to-back entries are legal.
func Overlaps(startA, endA, startB, endB *time.Time) bool {
	if endA != nil && startB != nil && !startB.Before(*endA) {
		return false
	}
	if endB != nil && startA != nil && !startA.Before(*endB) {
		return false
	}
	return true
}
