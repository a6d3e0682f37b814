package repositories

import (
	"context"
	"fmt"
	"time"

	"billhive/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type InvoiceRepository interface {
	CreateWithItems(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.BillableItem, error)

	// ReplaceItems swaps the invoice's line items and totals in one transaction,
	// guarded by the invoice version. Returns false without mutating anything if
	// the version check fails.
	ReplaceItems(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem, fromVersion int) (bool, error)

	// UpdateStatusVersioned transitions the status, guarded by the invoice
	// version. Returns false if the version check fails.
	UpdateStatusVersioned(ctx context.Context, invoiceID uuid.UUID, fromVersion int, status string, paidDate *time.Time) (bool, error)

	GenerateInvoiceNumber(ctx context.Context, issuedDate time.Time) (string, error)
}

type invoiceRepo struct {
	db Database
}

func NewInvoiceRepo(db Database) InvoiceRepository {
	return &invoiceRepo{db: db}
}

const invoiceColumns = `id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(&invoice.ID, &invoice.UserID, &invoice.InvoiceNumber, &invoice.Status, &invoice.TaxRateID, &invoice.SubtotalCents, &invoice.TaxCents, &invoice.TotalCents, &invoice.Currency, &invoice.IssuedDate, &invoice.DueDate, &invoice.PaidDate, &invoice.Version, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) CreateWithItems(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO invoices (id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`
	_, err = tx.Exec(ctx, query, invoice.ID, invoice.UserID, invoice.InvoiceNumber, invoice.Status, invoice.TaxRateID, invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents, invoice.Currency, invoice.IssuedDate, invoice.DueDate, invoice.PaidDate, invoice.Version)
	if err != nil {
		return err
	}

	if err := insertItems(ctx, tx, items); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertItems(ctx context.Context, tx pgx.Tx, items []*models.BillableItem) error {
	query := `
		INSERT INTO billable_items (id, invoice_id, kind, service_id, hours_hundredth, rate_id, part_id, quantity, unit_cost_cents, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	`
	for _, item := range items {
		_, err := tx.Exec(ctx, query, item.ID, item.InvoiceID, item.Kind, item.ServiceID, item.HoursHundredth, item.RateID, item.PartID, item.Quantity, item.UnitCostCents, item.AmountCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`
	return scanInvoice(r.db.QueryRow(ctx, query, id))
}

func (r *invoiceRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1
		ORDER BY issued_date DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*models.BillableItem, error) {
	query := `
		SELECT id, invoice_id, kind, service_id, hours_hundredth, rate_id, part_id, quantity, unit_cost_cents, amount_cents, created_at
		FROM billable_items
		WHERE invoice_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.BillableItem
	for rows.Next() {
		item := &models.BillableItem{}
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Kind, &item.ServiceID, &item.HoursHundredth, &item.RateID, &item.PartID, &item.Quantity, &item.UnitCostCents, &item.AmountCents, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *invoiceRepo) ReplaceItems(ctx context.Context, invoice *models.Invoice, items []*models.BillableItem, fromVersion int) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE invoices
		SET tax_rate_id = $1, subtotal_cents = $2, tax_cents = $3, total_cents = $4, due_date = $5, version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7 AND status IN ('draft', 'sent')
	`
	tag, err := tx.Exec(ctx, query, invoice.TaxRateID, invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents, invoice.DueDate, invoice.ID, fromVersion)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM billable_items WHERE invoice_id = $1`, invoice.ID); err != nil {
		return false, err
	}
	if err := insertItems(ctx, tx, items); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

func (r *invoiceRepo) UpdateStatusVersioned(ctx context.Context, invoiceID uuid.UUID, fromVersion int, status string, paidDate *time.Time) (bool, error) {
	query := `
		UPDATE invoices
		SET status = $1, paid_date = COALESCE($2, paid_date), version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
	`
	tag, err := r.db.Exec(ctx, query, status, paidDate, invoiceID, fromVersion)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GenerateInvoiceNumber generates a unique monthly-sequenced invoice number.
func (r *invoiceRepo) GenerateInvoiceNumber(ctx context.Context, issuedDate time.Time) (string, error) {
	yearMonth := issuedDate.Format("2006-01")

	query := `
		WITH upsert AS (
			INSERT INTO invoice_sequences (year_month, last_number)
			VALUES ($1, 1)
			ON CONFLICT (year_month)
			DO UPDATE SET
				last_number = invoice_sequences.last_number + 1,
				updated_at = NOW()
			RETURNING last_number
		)
		SELECT last_number FROM upsert;
	`

	var sequenceNum int
	err := r.db.QueryRow(ctx, query, yearMonth).Scan(&sequenceNum)
	if err != nil {
		return "", fmt.Errorf("failed to generate invoice sequence: %w", err)
	}

	return fmt.Sprintf("INV-%s-%06d", yearMonth, sequenceNum), nil
}
