package repositories

import (
	"context"

	"billhive/internal/models"

	"github.com/google/uuid"
)

type TaxRateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TaxRate, error)
	List(ctx context.Context, limit, offset int) ([]*models.TaxRate, error)
}

type taxRateRepo struct {
	db Database
}

func NewTaxRateRepo(db Database) TaxRateRepository {
	return &taxRateRepo{db: db}
}

func (r *taxRateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TaxRate, error) {
	rate := &models.TaxRate{}
	query := `
		SELECT id, name, percent_basis_point, jurisdiction, created_at, updated_at
		FROM tax_rates
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&rate.ID, &rate.Name, &rate.PercentBasisPoint, &rate.Jurisdiction, &rate.CreatedAt, &rate.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rate, nil
}

func (r *taxRateRepo) List(ctx context.Context, limit, offset int) ([]*models.TaxRate, error) {
	query := `
		SELECT id, name, percent_basis_point, jurisdiction, created_at, updated_at
		FROM tax_rates
		ORDER BY name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []*models.TaxRate
	for rows.Next() {
		rate := &models.TaxRate{}
		if err := rows.Scan(&rate.ID, &rate.Name, &rate.PercentBasisPoint, &rate.Jurisdiction, &rate.CreatedAt, &rate.UpdatedAt); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

type ServiceRateRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRate, error)
}

type serviceRateRepo struct {
	db Database
}

func NewServiceRateRepo(db Database) ServiceRateRepository {
	return &serviceRateRepo{db: db}
}

func (r *serviceRateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ServiceRate, error) {
	rate := &models.ServiceRate{}
	query := `
		SELECT id, name, hourly_cents, currency, created_at, updated_at
		FROM service_rates
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&rate.ID, &rate.Name, &rate.HourlyCents, &rate.Currency, &rate.CreatedAt, &rate.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rate, nil
}
