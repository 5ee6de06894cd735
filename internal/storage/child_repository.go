package storage

import (
	"context"
	"database/sql"
	"fmt"

	"hopelink/internal/models"
)

// ChildRepository provides data access for child profiles.
type ChildRepository struct {
	db *DB
}

// NewChildRepository creates a new child repository.
func NewChildRepository(db *DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// Create inserts a new child profile.
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	child.ID = GenerateID()
	child.CreatedAt = Now()
	child.UpdatedAt = child.CreatedAt

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO children (
			id, user_id, name, birth_date, disease_code, disease_name,
			current_hospital, attending_doctor, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		child.ID, child.UserID, child.Name, child.BirthDate, child.DiseaseCode,
		child.DiseaseName, child.CurrentHospital, child.AttendingDoctor,
		child.Notes, child.CreatedAt, child.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting child: %w", err)
	}
	return nil
}

// GetByID retrieves one child owned by the given user. Returns nil without
// error when no row matches.
func (r *ChildRepository) GetByID(ctx context.Context, userID, id string) (*models.Child, error) {
	child := &models.Child{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, birth_date, disease_code, disease_name,
		       current_hospital, attending_doctor, notes, created_at, updated_at
		FROM children WHERE id = ? AND user_id = ?
	`, id, userID).Scan(
		&child.ID, &child.UserID, &child.Name, &child.BirthDate,
		&child.DiseaseCode, &child.DiseaseName, &child.CurrentHospital,
		&child.AttendingDoctor, &child.Notes, &child.CreatedAt, &child.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying child: %w", err)
	}
	return child, nil
}

// List retrieves all children of one user ordered by name.
func (r *ChildRepository) List(ctx context.Context, userID string) ([]models.Child, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, birth_date, disease_code, disease_name,
		       current_hospital, attending_doctor, notes, created_at, updated_at
		FROM children WHERE user_id = ? ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(
			&child.ID, &child.UserID, &child.Name, &child.BirthDate,
			&child.DiseaseCode, &child.DiseaseName, &child.CurrentHospital,
			&child.AttendingDoctor, &child.Notes, &child.CreatedAt, &child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning child: %w", err)
		}
		children = append(children, child)
	}
	return children, rows.Err()
}

// Update rewrites a child profile.
func (r *ChildRepository) Update(ctx context.Context, child *models.Child) error {
	child.UpdatedAt = Now()

	res, err := r.db.ExecContext(ctx, `
		UPDATE children SET
			name = ?, birth_date = ?, disease_code = ?, disease_name = ?,
			current_hospital = ?, attending_doctor = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		child.Name, child.BirthDate, child.DiseaseCode, child.DiseaseName,
		child.CurrentHospital, child.AttendingDoctor, child.Notes,
		child.UpdatedAt, child.ID, child.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating child: %w", err)
	}
	return requireRow(res)
}

// Delete removes a child profile and, via foreign keys, its appointments.
func (r *ChildRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM children WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting child: %w", err)
	}
	return requireRow(res)
}
