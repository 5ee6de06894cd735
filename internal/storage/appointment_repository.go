package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hopelink/internal/models"
)

// AppointmentRepository provides data access for care appointments.
type AppointmentRepository struct {
	db *DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, user_id, child_id, title, kind, start_time, end_time,
	location_name, location_address, department, doctor_name, checklist, notes,
	google_event_id, created_at, updated_at`

// Create inserts a new appointment, assigning it an id and timestamps.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	appt.ID = GenerateID()
	appt.CreatedAt = Now()
	appt.UpdatedAt = appt.CreatedAt

	checklist, err := marshalChecklist(appt.Checklist)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO appointments (
			id, user_id, child_id, title, kind, start_time, end_time,
			location_name, location_address, department, doctor_name,
			checklist, notes, google_event_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		appt.ID, appt.UserID, appt.ChildID, appt.Title, string(appt.Kind),
		appt.Start, appt.End, appt.LocationName, appt.LocationAddress,
		appt.Department, appt.Provider, checklist, appt.Notes,
		appt.ExternalID, appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

// GetByID retrieves one appointment owned by the given user. Returns nil
// without error when no row matches.
func (r *AppointmentRepository) GetByID(ctx context.Context, userID, id string) (*models.Appointment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments WHERE id = ? AND user_id = ?
	`, id, userID)

	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying appointment: %w", err)
	}
	return appt, nil
}

// List retrieves a user's appointments ordered by start time, optionally
// filtered by child and by time window.
func (r *AppointmentRepository) List(ctx context.Context, userID, childID string, from, to *time.Time) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE user_id = ?`
	args := []any{userID}

	if childID != "" {
		query += " AND child_id = ?"
		args = append(args, childID)
	}
	if from != nil {
		query += " AND start_time >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND end_time <= ?"
		args = append(args, *to)
	}
	query += " ORDER BY start_time"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	defer rows.Close()

	var appointments []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		appointments = append(appointments, *appt)
	}
	return appointments, rows.Err()
}

// Update rewrites the mutable fields of an appointment.
func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	appt.UpdatedAt = Now()

	checklist, err := marshalChecklist(appt.Checklist)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			title = ?, kind = ?, start_time = ?, end_time = ?,
			location_name = ?, location_address = ?, department = ?,
			doctor_name = ?, checklist = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		appt.Title, string(appt.Kind), appt.Start, appt.End,
		appt.LocationName, appt.LocationAddress, appt.Department,
		appt.Provider, checklist, appt.Notes, appt.UpdatedAt,
		appt.ID, appt.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating appointment: %w", err)
	}
	return requireRow(res)
}

// SetExternalID persists the external calendar linkage after a successful
// reconciliation. An empty id clears the linkage.
func (r *AppointmentRepository) SetExternalID(ctx context.Context, id, externalID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET google_event_id = ?, updated_at = ? WHERE id = ?
	`, externalID, Now(), id)
	if err != nil {
		return fmt.Errorf("updating external id: %w", err)
	}
	return requireRow(res)
}

// Delete removes an appointment owned by the given user.
func (r *AppointmentRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM appointments WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting appointment: %w", err)
	}
	return requireRow(res)
}

// ListPendingSync returns upcoming appointments that have never been
// mirrored to the external calendar, across all users.
func (r *AppointmentRepository) ListPendingSync(ctx context.Context, now time.Time) ([]models.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE google_event_id = '' AND end_time > ?
		ORDER BY start_time
	`, now)
	if err != nil {
		return nil, fmt.Errorf("querying pending sync: %w", err)
	}
	defer rows.Close()

	var pending []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		pending = append(pending, *appt)
	}
	return pending, rows.Err()
}

// ListDueReminders returns appointments whose reminder window has opened
// (start time within lead from now) and that have not been reminded yet.
func (r *AppointmentRepository) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]models.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE reminded_at IS NULL AND start_time > ? AND start_time <= ?
		ORDER BY start_time
	`, now, now.Add(lead))
	if err != nil {
		return nil, fmt.Errorf("querying due reminders: %w", err)
	}
	defer rows.Close()

	var due []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		due = append(due, *appt)
	}
	return due, rows.Err()
}

// MarkReminded records that the reminder for an appointment has been fired.
func (r *AppointmentRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET reminded_at = ? WHERE id = ?
	`, at, id)
	if err != nil {
		return fmt.Errorf("marking reminded: %w", err)
	}
	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAppointment(s scanner) (*models.Appointment, error) {
	var appt models.Appointment
	var kind, checklist string

	err := s.Scan(
		&appt.ID, &appt.UserID, &appt.ChildID, &appt.Title, &kind,
		&appt.Start, &appt.End, &appt.LocationName, &appt.LocationAddress,
		&appt.Department, &appt.Provider, &checklist, &appt.Notes,
		&appt.ExternalID, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.Kind = models.Kind(kind)
	if err := json.Unmarshal([]byte(checklist), &appt.Checklist); err != nil {
		return nil, fmt.Errorf("decoding checklist: %w", err)
	}
	return &appt, nil
}

func marshalChecklist(items []models.ChecklistItem) (string, error) {
	if items == nil {
		items = []models.ChecklistItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding checklist: %w", err)
	}
	return string(data), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
