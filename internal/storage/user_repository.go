package storage

import (
	"context"
	"database/sql"
	"fmt"

	"hopelink/internal/models"
)

// UserRepository provides data access for caregiver accounts.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user account.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = GenerateID()
	user.CreatedAt = Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, phone, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.Email, user.Name, user.Phone, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by email. Returns nil without error when no
// row matches.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.get(ctx, "email", email)
}

// GetByID retrieves a user by id. Returns nil without error when no row
// matches.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.get(ctx, "id", id)
}

func (r *UserRepository) get(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, name, phone, password_hash, created_at
		FROM users WHERE `+column+` = ?
	`, value).Scan(
		&user.ID, &user.Email, &user.Name, &user.Phone,
		&user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}
