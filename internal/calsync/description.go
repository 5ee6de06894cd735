package calsync

import (
	"fmt"
	"strings"

	"hopelink/internal/models"
)

// RenderDescription projects an appointment into the description body sent
// to the external calendar. Order is fixed: kind, location, department,
// provider, checklist, notes.
func RenderDescription(appt *models.Appointment) string {
	lines := []string{fmt.Sprintf("Type: %s", appt.Kind)}

	if appt.LocationName != "" {
		lines = append(lines, fmt.Sprintf("Location: %s", appt.LocationName))
	}
	if appt.Department != "" {
		lines = append(lines, fmt.Sprintf("Department: %s", appt.Department))
	}
	if appt.Provider != "" {
		lines = append(lines, fmt.Sprintf("Provider: %s", appt.Provider))
	}

	if len(appt.Checklist) > 0 {
		lines = append(lines, "", "Preparation checklist:")
		for _, item := range appt.Checklist {
			mark := "[ ]"
			if item.Checked {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("  %s %s", mark, item.Label))
		}
	}

	if appt.Notes != "" {
		lines = append(lines, "", fmt.Sprintf("Notes: %s", appt.Notes))
	}

	lines = append(lines, "", "---", "Created by the HopeLink app.")
	return strings.Join(lines, "\n")
}
