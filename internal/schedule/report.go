package schedule

import "hopelink/internal/models"

// ConflictReport aggregates the conflicts of one appointment set for the
// presentation layer. It holds no state of its own and can be re-derived at
// any time from the current appointments.
type ConflictReport struct {
	Conflicts []ConflictRecord `json:"conflicts"`
	Total     int              `json:"total_conflicts"`
}

// BuildReport runs conflict detection over the appointment set and wraps the
// result. Each unordered pair appears at most once regardless of input order.
func BuildReport(appointments []models.Appointment) (*ConflictReport, error) {
	conflicts, err := FindConflicts(appointments)
	if err != nil {
		return nil, err
	}
	return &ConflictReport{Conflicts: conflicts, Total: len(conflicts)}, nil
}

// Warnings returns the rendered warning line for every conflict in order.
func (r *ConflictReport) Warnings() []string {
	warnings := make([]string, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		warnings = append(warnings, c.Warning())
	}
	return warnings
}
