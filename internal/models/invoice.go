package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice statuses. Transitions between them are enforced by the invoice service.
const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusCancelled = "cancelled"
	InvoiceStatusFailed    = "failed"
)

type Invoice struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	InvoiceNumber string     `json:"invoice_number" db:"invoice_number"`
	Status        string     `json:"status" db:"status"`
	TaxRateID     uuid.UUID  `json:"tax_rate_id" db:"tax_rate_id"`
	SubtotalCents int64      `json:"subtotal_cents" db:"subtotal_cents"`
	TaxCents      int64      `json:"tax_cents" db:"tax_cents"`
	TotalCents    int64      `json:"total_cents" db:"total_cents"`
	Currency      string     `json:"currency" db:"currency"`
	IssuedDate    time.Time  `json:"issued_date" db:"issued_date"`
	DueDate       time.Time  `json:"due_date" db:"due_date"`
	PaidDate      *time.Time `json:"paid_date" db:"paid_date"`
	// Version is bumped on every mutation; lifecycle updates are guarded by it.
	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Terminal reports whether no further lifecycle transition is possible.
func (i *Invoice) Terminal() bool {
	switch i.Status {
	case InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusFailed:
		return true
	}
	return false
}
