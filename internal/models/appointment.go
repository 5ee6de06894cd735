package models

import "time"

// Kind categorizes a care appointment. It is deliberately an open string
// type: unknown values are legal and simply have no default checklist.
type Kind string

const (
	KindHospital       Kind = "hospital"
	KindRehabilitation Kind = "rehabilitation"
	KindTherapy        Kind = "therapy"
	KindCheckup        Kind = "checkup"
)

// ChecklistItem is one entry of an appointment's preparation checklist.
type ChecklistItem struct {
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// Appointment represents a single scheduled care event for a child.
// Times are assumed to already be normalized to the deployment's primary
// timezone before they reach any of the scheduling logic.
type Appointment struct {
	ID              string          `json:"id"`
	ChildID         string          `json:"child_id,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	Title           string          `json:"title"`
	Kind            Kind            `json:"schedule_type"`
	Start           time.Time       `json:"start_time"`
	End             time.Time       `json:"end_time"`
	LocationName    string          `json:"location_name,omitempty"`
	LocationAddress string          `json:"location_address,omitempty"`
	Department      string          `json:"department,omitempty"`
	Provider        string          `json:"doctor_name,omitempty"`
	Checklist       []ChecklistItem `json:"checklist"`
	Notes           string          `json:"notes,omitempty"`

	// ExternalID is the identifier of the mirrored event in the external
	// calendar. Its presence is the sole signal of "already synced".
	ExternalID string `json:"google_event_id,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// IsValid reports whether the appointment spans a positive interval.
// Zero-length and inverted intervals are not valid inputs anywhere.
func (a Appointment) IsValid() bool {
	return a.Start.Before(a.End)
}

// Synced reports whether the appointment has ever been mirrored to the
// external calendar.
func (a Appointment) Synced() bool {
	return a.ExternalID != ""
}
