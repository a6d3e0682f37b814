package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses as tracked locally. The provider's own status vocabulary is
// mapped onto these by the payment service.
const (
	PaymentStatusInitiated = "initiated"
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	ID            uuid.UUID `json:"id" db:"id"`
	InvoiceID     uuid.UUID `json:"invoice_id" db:"invoice_id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	Method        string    `json:"method" db:"method"`
	Status        string    `json:"status" db:"status"`
	AmountCents   int64     `json:"amount_cents" db:"amount_cents"`
	Currency      string    `json:"currency" db:"currency"`
	ProviderRef   *string   `json:"provider_ref" db:"provider_ref"`
	RedirectURL   *string   `json:"redirect_url" db:"redirect_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
