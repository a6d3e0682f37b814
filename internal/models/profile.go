package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile holds the billing identity attached to a user. One profile per user.
type UserProfile struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	FirstName   string    `json:"first_name" db:"first_name"`
	LastName    string    `json:"last_name" db:"last_name"`
	CompanyName *string   `json:"company_name" db:"company_name"`
	Address     string    `json:"address" db:"address"`
	TaxID       *string   `json:"tax_id" db:"tax_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
