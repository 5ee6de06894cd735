package models

import "time"

// Child holds the profile of a child whose care is being coordinated.
type Child struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	BirthDate       string    `json:"birth_date"` // YYYY-MM-DD
	DiseaseCode     string    `json:"disease_code"`
	DiseaseName     string    `json:"disease_name,omitempty"`
	CurrentHospital string    `json:"current_hospital,omitempty"`
	AttendingDoctor string    `json:"attending_doctor,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
