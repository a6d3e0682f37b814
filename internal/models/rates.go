package models

import (
	"time"

	"github.com/google/uuid"
)

// TaxRate is a jurisdiction tax rate. Percent is stored in basis points so tax
// arithmetic stays in integers (8% = 800).
type TaxRate struct {
	ID                uuid.UUID `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	PercentBasisPoint int64     `json:"percent_basis_point" db:"percent_basis_point"`
	Jurisdiction      string    `json:"jurisdiction" db:"jurisdiction"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// ServiceRate is an hourly billing rate for a service.
type ServiceRate struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	HourlyCents int64     `json:"hourly_cents" db:"hourly_cents"`
	Currency    string    `json:"currency" db:"currency"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
