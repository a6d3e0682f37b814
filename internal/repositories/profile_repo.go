package repositories

import (
	"context"

	"billhive/internal/models"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.UserProfile) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Update(ctx context.Context, profile *models.UserProfile) error
}

type profileRepo struct {
	db Database
}

func NewProfileRepo(db Database) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *models.UserProfile) error {
	query := `
		INSERT INTO user_profiles (user_id, first_name, last_name, company_name, address, tax_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.UserID, profile.FirstName, profile.LastName, profile.CompanyName, profile.Address, profile.TaxID)
	return err
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	profile := &models.UserProfile{}
	query := `
		SELECT user_id, first_name, last_name, company_name, address, tax_id, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(&profile.UserID, &profile.FirstName, &profile.LastName, &profile.CompanyName, &profile.Address, &profile.TaxID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *profileRepo) Update(ctx context.Context, profile *models.UserProfile) error {
	query := `
		UPDATE user_profiles
		SET first_name = $1, last_name = $2, company_name = $3, address = $4, tax_id = $5, updated_at = NOW()
		WHERE user_id = $6
	`
	_, err := r.db.Exec(ctx, query, profile.FirstName, profile.LastName, profile.CompanyName, profile.Address, profile.TaxID, profile.UserID)
	return err
}
