package schedule

import (
	"fmt"
	"strings"
	"time"

	"hopelink/internal/models"
)

// DefaultLeadTime is how far ahead of the appointment a reminder fires when
// the caller does not override it.
const DefaultLeadTime = 24 * time.Hour

// DefaultsTable maps an appointment kind to the checklist items every
// appointment of that kind should carry. Kinds missing from the table simply
// contribute no defaults.
type DefaultsTable map[models.Kind][]models.ChecklistItem

// DefaultChecklists returns the built-in preparation items per appointment
// kind. The table is passed explicitly so deployments can customize it.
func DefaultChecklists() DefaultsTable {
	return DefaultsTable{
		models.KindHospital: {
			{Label: "ID card"},
			{Label: "Health insurance card"},
			{Label: "Referral letter (if any)"},
			{Label: "Previous test results"},
			{Label: "List of current medications"},
		},
		models.KindRehabilitation: {
			{Label: "Comfortable exercise clothes"},
			{Label: "Indoor shoes"},
			{Label: "Rehabilitation journal"},
			{Label: "Assistive devices (if any)"},
		},
		models.KindTherapy: {
			{Label: "Therapy records"},
			{Label: "Observation diary"},
			{Label: "Child's favorite toy"},
		},
		models.KindCheckup: {
			{Label: "Fasting confirmation"},
			{Label: "Previous checkup results"},
			{Label: "Rare-disease coverage certificate"},
		},
	}
}

// Reminder is a scheduled pre-appointment notification carrying the merged
// preparation checklist.
type Reminder struct {
	Appointment models.Appointment     `json:"appointment"`
	FireAt      time.Time              `json:"fire_at"`
	Checklist   []models.ChecklistItem `json:"checklist"`
	Message     string                 `json:"message"`
}

// MergeChecklist combines the appointment's own checklist with the defaults
// for its kind. Existing items keep their order and checked state; defaults
// are appended in table order, unchecked, and only when no existing item has
// the exact same label. Merging the same table twice adds nothing.
func MergeChecklist(items []models.ChecklistItem, kind models.Kind, table DefaultsTable) []models.ChecklistItem {
	merged := make([]models.ChecklistItem, len(items))
	copy(merged, items)

	seen := make(map[string]bool, len(merged))
	for _, item := range merged {
		seen[item.Label] = true
	}

	for _, def := range table[kind] {
		if seen[def.Label] {
			continue
		}
		merged = append(merged, models.ChecklistItem{Label: def.Label})
		seen[def.Label] = true
	}
	return merged
}

// BuildReminder produces the reminder for one appointment. The lead time is
// caller-supplied; pass DefaultLeadTime for the standard day-ahead reminder.
func BuildReminder(appt models.Appointment, lead time.Duration, table DefaultsTable) Reminder {
	checklist := MergeChecklist(appt.Checklist, appt.Kind, table)

	location := appt.LocationName
	if location == "" {
		location = "location to be confirmed"
	}

	lines := []string{
		"Upcoming appointment reminder",
		"",
		fmt.Sprintf("'%s'", appt.Title),
		location,
		appt.Start.Format("Jan 2 at 15:04"),
	}
	if len(checklist) > 0 {
		lines = append(lines, "", "Things to prepare:")
		for _, item := range checklist {
			lines = append(lines, fmt.Sprintf("  - %s", item.Label))
		}
	}

	return Reminder{
		Appointment: appt,
		FireAt:      appt.Start.Add(-lead),
		Checklist:   checklist,
		Message:     strings.Join(lines, "\n"),
	}
}
