package schedule

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"hopelink/internal/models"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 1, 10, hour, min, 0, 0, time.UTC)
}

func appt(id, title string, start, end time.Time) models.Appointment {
	return models.Appointment{ID: id, Title: title, Kind: models.KindHospital, Start: start, End: end}
}

func TestFindConflictsPartialOverlap(t *testing.T) {
	appointments := []models.Appointment{
		appt("schedule_1", "Neurology", at(14, 0), at(15, 30)),
		appt("schedule_2", "Rehab", at(15, 0), at(16, 0)),
	}

	conflicts, err := FindConflicts(appointments)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.Type != PartialOverlap {
		t.Errorf("Expected partial_overlap, got %s", c.Type)
	}
	if c.OverlapMinutes != 30 {
		t.Errorf("Expected 30 overlap minutes, got %d", c.OverlapMinutes)
	}
	if !c.OverlapStart.Equal(at(15, 0)) {
		t.Errorf("Expected overlap start 15:00, got %v", c.OverlapStart)
	}
	if !c.OverlapEnd.Equal(at(15, 30)) {
		t.Errorf("Expected overlap end 15:30, got %v", c.OverlapEnd)
	}
	if c.AID != "schedule_1" || c.BID != "schedule_2" {
		t.Errorf("Expected canonical pair (schedule_1, schedule_2), got (%s, %s)", c.AID, c.BID)
	}
}

func TestFindConflictsDisjoint(t *testing.T) {
	appointments := []models.Appointment{
		appt("a", "Neurology", at(14, 0), at(15, 30)),
		appt("b", "Speech therapy", at(17, 0), at(18, 0)),
	}

	conflicts, err := FindConflicts(appointments)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Expected no conflicts, got %d", len(conflicts))
	}
}

func TestFindConflictsTouchingBoundariesDoNotConflict(t *testing.T) {
	appointments := []models.Appointment{
		appt("a", "Checkup", at(14, 0), at(15, 0)),
		appt("b", "Rehab", at(15, 0), at(16, 0)),
	}

	conflicts, err := FindConflicts(appointments)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("Touching appointments must not conflict, got %d conflicts", len(conflicts))
	}
}

func TestClassifyFullOverlap(t *testing.T) {
	appointments := []models.Appointment{
		appt("a", "One", at(14, 0), at(15, 0)),
		appt("b", "Two", at(14, 0), at(15, 0)),
	}

	conflicts, err := FindConflicts(appointments)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].Type != FullOverlap {
		t.Errorf("Expected full_overlap, got %s", conflicts[0].Type)
	}
	// Identical starts tie-break on id ascending.
	if conflicts[0].AID != "a" {
		t.Errorf("Expected a first in canonical pair, got %s", conflicts[0].AID)
	}
}

func TestClassifyContains(t *testing.T) {
	tests := []struct {
		name string
		x, y models.Appointment
	}{
		{"outer first", appt("a", "Outer", at(13, 0), at(17, 0)), appt("b", "Inner", at(14, 0), at(15, 0))},
		{"inner first", appt("a", "Inner", at(14, 0), at(15, 0)), appt("b", "Outer", at(13, 0), at(17, 0))},
		{"shared start", appt("a", "Outer", at(14, 0), at(17, 0)), appt("b", "Inner", at(14, 0), at(15, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts, err := FindConflicts([]models.Appointment{tt.x, tt.y})
			if err != nil {
				t.Fatalf("FindConflicts failed: %v", err)
			}
			if len(conflicts) != 1 {
				t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
			}
			if conflicts[0].Type != Contains {
				t.Errorf("Expected contains, got %s", conflicts[0].Type)
			}
		})
	}
}

func TestOverlapMinutesFloor(t *testing.T) {
	a := appt("a", "One", at(14, 0), at(14, 0).Add(90*time.Second))
	b := appt("b", "Two", at(14, 0), at(15, 0))

	conflicts, err := FindConflicts([]models.Appointment{a, b})
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("Expected 1 conflict, got %d", len(conflicts))
	}
	if conflicts[0].OverlapMinutes != 1 {
		t.Errorf("Expected floor to 1 minute, got %d", conflicts[0].OverlapMinutes)
	}
}

func TestFindConflictsOrderIndependent(t *testing.T) {
	appointments := []models.Appointment{
		appt("s1", "Neurology", at(14, 0), at(15, 30)),
		appt("s2", "Rehab", at(15, 0), at(16, 0)),
		appt("s3", "Therapy", at(15, 15), at(15, 45)),
		appt("s4", "Checkup", at(18, 0), at(19, 0)),
	}
	reversed := []models.Appointment{appointments[3], appointments[2], appointments[1], appointments[0]}

	first, err := FindConflicts(appointments)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}
	second, err := FindConflicts(reversed)
	if err != nil {
		t.Fatalf("FindConflicts failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Results differ between permutations:\n%v\n%v", first, second)
	}

	// Running twice on the same input yields identical results.
	again, _ := FindConflicts(appointments)
	if !reflect.DeepEqual(first, again) {
		t.Errorf("FindConflicts is not idempotent")
	}
}

func TestFindConflictsRejectsInvalidBatch(t *testing.T) {
	appointments := []models.Appointment{
		appt("good", "Neurology", at(14, 0), at(15, 0)),
		appt("bad", "Rehab", at(16, 0), at(16, 0)), // zero-length
	}

	if _, err := FindConflicts(appointments); !errors.Is(err, ErrInvalidAppointment) {
		t.Errorf("Expected ErrInvalidAppointment, got %v", err)
	}
}

func TestFindConflictsSmallInputs(t *testing.T) {
	if conflicts, err := FindConflicts(nil); err != nil || len(conflicts) != 0 {
		t.Errorf("Empty input: expected no conflicts and no error, got %v, %v", conflicts, err)
	}
	one := []models.Appointment{appt("a", "Solo", at(14, 0), at(15, 0))}
	if conflicts, err := FindConflicts(one); err != nil || len(conflicts) != 0 {
		t.Errorf("Single input: expected no conflicts and no error, got %v, %v", conflicts, err)
	}
}

func TestBuildReportWarnings(t *testing.T) {
	appointments := []models.Appointment{
		appt("s1", "Neurology", at(14, 0), at(15, 30)),
		appt("s2", "Rehab", at(15, 0), at(16, 0)),
	}

	report, err := BuildReport(appointments)
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}
	if report.Total != 1 {
		t.Fatalf("Expected total 1, got %d", report.Total)
	}

	want := "Schedule conflict: 'Neurology' and 'Rehab' overlap for 30 minutes starting 2026-01-10 15:00"
	if got := report.Warnings()[0]; got != want {
		t.Errorf("Warning mismatch:\n got: %s\nwant: %s", got, want)
	}
}
