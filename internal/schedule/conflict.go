// Package schedule implements the scheduling logic of HopeLink: detection
// and classification of overlapping care appointments, and generation of
// preparation reminders with merged checklists.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"hopelink/internal/models"
)

// ErrInvalidAppointment is returned when an appointment with start >= end
// reaches a batch operation. The whole batch is rejected rather than the bad
// entry being skipped, since silently dropping one could hide a real conflict.
var ErrInvalidAppointment = errors.New("invalid appointment: start must be before end")

// ConflictType classifies how two appointments overlap.
type ConflictType string

const (
	// FullOverlap means both appointments share identical start and end.
	FullOverlap ConflictType = "full_overlap"
	// Contains means one interval is a non-strict superset of the other.
	Contains ConflictType = "contains"
	// PartialOverlap covers every other overlapping case.
	PartialOverlap ConflictType = "partial_overlap"
)

// ConflictRecord describes one detected overlap between two appointments.
// A is always the appointment with the earlier start, ties broken by ID
// ascending, so the pair is canonical regardless of input order.
type ConflictRecord struct {
	AID            string       `json:"schedule_a_id"`
	ATitle         string       `json:"schedule_a_title"`
	BID            string       `json:"schedule_b_id"`
	BTitle         string       `json:"schedule_b_title"`
	OverlapStart   time.Time    `json:"overlap_start"`
	OverlapEnd     time.Time    `json:"overlap_end"`
	OverlapMinutes int          `json:"overlap_minutes"`
	Type           ConflictType `json:"conflict_type"`
}

// Warning renders the caregiver-facing warning text. Callers that need to
// localize should use the record fields directly instead.
func (r ConflictRecord) Warning() string {
	return fmt.Sprintf("Schedule conflict: '%s' and '%s' overlap for %d minutes starting %s",
		r.ATitle, r.BTitle, r.OverlapMinutes, r.OverlapStart.Format("2006-01-02 15:04"))
}

// Overlap returns the intersection of the two appointment intervals.
// Appointments that merely touch at an endpoint do not overlap.
func Overlap(x, y models.Appointment) (start, end time.Time, ok bool) {
	if !x.Start.Before(y.End) || !y.Start.Before(x.End) {
		return time.Time{}, time.Time{}, false
	}
	start = x.Start
	if y.Start.After(start) {
		start = y.Start
	}
	end = x.End
	if y.End.Before(end) {
		end = y.End
	}
	return start, end, true
}

// classify tags a detected overlap. full_overlap would also satisfy contains
// in both directions, so it must be checked first.
func classify(x, y models.Appointment) ConflictType {
	switch {
	case x.Start.Equal(y.Start) && x.End.Equal(y.End):
		return FullOverlap
	case !x.Start.After(y.Start) && !x.End.Before(y.End):
		return Contains
	case !y.Start.After(x.Start) && !y.End.Before(x.End):
		return Contains
	default:
		return PartialOverlap
	}
}

// checkPair returns a canonical conflict record for the pair, or ok=false if
// the two appointments do not overlap.
func checkPair(x, y models.Appointment) (ConflictRecord, bool) {
	start, end, ok := Overlap(x, y)
	if !ok {
		return ConflictRecord{}, false
	}

	a, b := x, y
	if b.Start.Before(a.Start) || (b.Start.Equal(a.Start) && b.ID < a.ID) {
		a, b = b, a
	}

	return ConflictRecord{
		AID:            a.ID,
		ATitle:         a.Title,
		BID:            b.ID,
		BTitle:         b.Title,
		OverlapStart:   start,
		OverlapEnd:     end,
		OverlapMinutes: int(end.Sub(start) / time.Minute),
		Type:           classify(x, y),
	}, true
}

// FindConflicts examines every unordered pair of appointments exactly once
// and returns one record per overlapping pair, sorted by overlap start and
// then by the canonical pair ids. The appointment set is one caregiver's
// calendar, so the quadratic scan is intentional.
//
// If any appointment fails IsValid the whole batch is rejected with
// ErrInvalidAppointment.
func FindConflicts(appointments []models.Appointment) ([]ConflictRecord, error) {
	for _, a := range appointments {
		if !a.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAppointment, a.ID)
		}
	}

	var conflicts []ConflictRecord
	for i := 0; i < len(appointments); i++ {
		for j := i + 1; j < len(appointments); j++ {
			if rec, ok := checkPair(appointments[i], appointments[j]); ok {
				conflicts = append(conflicts, rec)
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if !conflicts[i].OverlapStart.Equal(conflicts[j].OverlapStart) {
			return conflicts[i].OverlapStart.Before(conflicts[j].OverlapStart)
		}
		if conflicts[i].AID != conflicts[j].AID {
			return conflicts[i].AID < conflicts[j].AID
		}
		return conflicts[i].BID < conflicts[j].BID
	})

	return conflicts, nil
}
