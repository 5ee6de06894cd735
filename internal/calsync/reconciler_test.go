package calsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"hopelink/internal/models"
)

// fakeCalendar implements CalendarService in memory.
type fakeCalendar struct {
	nextID      string
	failCreate  bool
	failUpdate  bool
	created     int
	updated     int
	deleted     []string
	lastUpdated string
}

func (f *fakeCalendar) CreateEvent(_ context.Context, _ *models.Appointment) (string, error) {
	if f.failCreate {
		return "", errors.New("remote rejected create")
	}
	f.created++
	return f.nextID, nil
}

func (f *fakeCalendar) UpdateEvent(_ context.Context, externalID string, _ *models.Appointment) error {
	if f.failUpdate {
		return errors.New("remote rejected update")
	}
	f.updated++
	f.lastUpdated = externalID
	return nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, externalID string) error {
	f.deleted = append(f.deleted, externalID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAppointment(externalID string) *models.Appointment {
	return &models.Appointment{
		ID:         "s1",
		Title:      "Neurology visit",
		Kind:       models.KindHospital,
		Start:      time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC),
		End:        time.Date(2026, 1, 10, 15, 30, 0, 0, time.UTC),
		ExternalID: externalID,
	}
}

func TestReconcileCreatesWhenUnsynced(t *testing.T) {
	fake := &fakeCalendar{nextID: "ext-42"}
	r := NewReconciler(fake, testLogger(), false)

	d := r.Reconcile(context.Background(), testAppointment(""))

	if d.Action != ActionCreate {
		t.Errorf("Expected create, got %s", d.Action)
	}
	if d.State != StateSynced {
		t.Errorf("Expected synced state, got %s", d.State)
	}
	if d.ExternalID != "ext-42" {
		t.Errorf("Expected externalID ext-42, got %q", d.ExternalID)
	}
	if fake.created != 1 {
		t.Errorf("Expected one create call, got %d", fake.created)
	}
}

func TestReconcileCreateFailure(t *testing.T) {
	fake := &fakeCalendar{failCreate: true}
	r := NewReconciler(fake, testLogger(), false)

	d := r.Reconcile(context.Background(), testAppointment(""))

	if d.Action != ActionFail || d.State != StateSyncFailed {
		t.Errorf("Expected fail/sync_failed, got %s/%s", d.Action, d.State)
	}
	if d.ExternalID != "" {
		t.Errorf("Failed create must not produce an external id, got %q", d.ExternalID)
	}
	if d.Err == nil {
		t.Error("Expected the opaque error to be carried on the decision")
	}
}

func TestReconcileUpdatesWhenSynced(t *testing.T) {
	fake := &fakeCalendar{}
	r := NewReconciler(fake, testLogger(), false)

	d := r.Reconcile(context.Background(), testAppointment("ext-42"))

	if d.Action != ActionUpdate || d.State != StateSynced {
		t.Errorf("Expected update/synced, got %s/%s", d.Action, d.State)
	}
	if d.ExternalID != "ext-42" {
		t.Errorf("Expected unchanged externalID, got %q", d.ExternalID)
	}
	if fake.lastUpdated != "ext-42" {
		t.Errorf("Update was sent to %q", fake.lastUpdated)
	}
}

func TestReconcileUpdateFailureRetainsID(t *testing.T) {
	fake := &fakeCalendar{failUpdate: true}
	r := NewReconciler(fake, testLogger(), false)

	d := r.Reconcile(context.Background(), testAppointment("ext-42"))

	if d.Action != ActionFail || d.State != StateSyncFailed {
		t.Errorf("Expected fail/sync_failed, got %s/%s", d.Action, d.State)
	}
	if d.ExternalID != "ext-42" {
		t.Errorf("Failed update must retain the external id, got %q", d.ExternalID)
	}
}

func TestReconcileAllContinuesPastFailures(t *testing.T) {
	fake := &fakeCalendar{nextID: "ext-1", failUpdate: true}
	r := NewReconciler(fake, testLogger(), false)

	appointments := []*models.Appointment{
		testAppointment("ext-old"), // update, will fail
		testAppointment(""),        // create, will succeed
	}

	decisions := r.ReconcileAll(context.Background(), appointments)
	if len(decisions) != 2 {
		t.Fatalf("Expected 2 decisions, got %d", len(decisions))
	}
	if !decisions[0].Failed() {
		t.Errorf("Expected first decision to fail")
	}
	if decisions[1].Action != ActionCreate || decisions[1].ExternalID != "ext-1" {
		t.Errorf("Expected second decision to create ext-1, got %+v", decisions[1])
	}
}

func TestReconcileDryRunSkips(t *testing.T) {
	fake := &fakeCalendar{nextID: "ext-42"}
	r := NewReconciler(fake, testLogger(), true)

	d := r.Reconcile(context.Background(), testAppointment(""))
	if d.Action != ActionSkip {
		t.Errorf("Expected skip, got %s", d.Action)
	}
	if fake.created != 0 {
		t.Error("Dry run must not call the collaborator")
	}
}

func TestDelete(t *testing.T) {
	fake := &fakeCalendar{}
	r := NewReconciler(fake, testLogger(), false)

	if err := r.Delete(context.Background(), "ext-42"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "ext-42" {
		t.Errorf("Expected delete of ext-42, got %v", fake.deleted)
	}
}

func TestRenderDescriptionOrder(t *testing.T) {
	appt := testAppointment("")
	appt.LocationName = "University Hospital"
	appt.Department = "Pediatric Neurology"
	appt.Provider = "Dr. Kim"
	appt.Checklist = []models.ChecklistItem{
		{Label: "MRI results", Checked: true},
		{Label: "Observation diary", Checked: false},
	}
	appt.Notes = "Bring the seizure log."

	desc := RenderDescription(appt)

	sections := []string{
		"Type: hospital",
		"Location: University Hospital",
		"Department: Pediatric Neurology",
		"Provider: Dr. Kim",
		"[x] MRI results",
		"[ ] Observation diary",
		"Notes: Bring the seizure log.",
	}
	last := -1
	for _, section := range sections {
		pos := strings.Index(desc, section)
		if pos < 0 {
			t.Fatalf("Description missing %q:\n%s", section, desc)
		}
		if pos < last {
			t.Errorf("Description sections out of order at %q:\n%s", section, desc)
		}
		last = pos
	}
}

func TestRenderDescriptionOmitsEmptySections(t *testing.T) {
	desc := RenderDescription(testAppointment(""))

	for _, unwanted := range []string{"Location:", "Department:", "Provider:", "checklist", "Notes:"} {
		if strings.Contains(desc, unwanted) {
			t.Errorf("Description should omit %q when empty:\n%s", unwanted, desc)
		}
	}
}
