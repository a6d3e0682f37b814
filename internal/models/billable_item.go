package models

import (
	"time"

	"github.com/google/uuid"
)

// Billable item kinds. A service line bills hours against an hourly rate, a part
// line bills a quantity of units at a unit cost.
const (
	BillableItemKindService = "service"
	BillableItemKindPart    = "part"
)

type BillableItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	InvoiceID uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Kind      string    `json:"kind" db:"kind"`

	// Service lines. Hours are stored in hundredths of an hour.
	ServiceID      *uuid.UUID `json:"service_id" db:"service_id"`
	HoursHundredth *int64     `json:"hours_hundredth" db:"hours_hundredth"`
	RateID         *uuid.UUID `json:"rate_id" db:"rate_id"`

	// Part lines.
	PartID        *uuid.UUID `json:"part_id" db:"part_id"`
	Quantity      *int64     `json:"quantity" db:"quantity"`
	UnitCostCents *int64     `json:"unit_cost_cents" db:"unit_cost_cents"`

	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
