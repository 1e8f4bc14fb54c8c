package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/terminalrota/rota-backend/internal/models"
)

// ProfileRepository handles profile (login account) operations
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID returns nil without error when the profile does not exist.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT id, email, role, password_hash, created_at FROM profiles WHERE id = $1`
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}
	return &profile, nil
}

// GetByEmail matches case-insensitively and returns nil when absent.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT id, email, role, password_hash, created_at FROM profiles WHERE LOWER(email) = $1`
	if err := r.db.GetContext(ctx, &profile, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return &profile, nil
}

// GetRole returns ErrNotFound for an unknown profile.
func (r *ProfileRepository) GetRole(ctx context.Context, id uuid.UUID) (models.Role, error) {
	var role models.Role
	if err := r.db.GetContext(ctx, &role, `SELECT role FROM profiles WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// Create inserts a profile. ID is generated when unset.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))

	query := `
		INSERT INTO profiles (id, email, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.GetContext(ctx, &profile.CreatedAt, query, profile.ID, profile.Email, profile.Role, profile.PasswordHash); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}
