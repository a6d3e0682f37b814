package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"billhive/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	CreateAttempt(ctx context.Context, payment *models.Payment) (string, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	HasSucceededForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, status string) error
	SetProviderResult(ctx context.Context, paymentID uuid.UUID, providerRef, redirectURL *string, status string) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error)
}

type paymentRepo struct {
	db Database
}

func NewPaymentRepo(db Database) PaymentRepository {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, invoice_id, transaction_id, method, status, amount_cents, currency, provider_ref, redirect_url, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	payment := &models.Payment{}
	err := row.Scan(&payment.ID, &payment.InvoiceID, &payment.TransactionID, &payment.Method, &payment.Status, &payment.AmountCents, &payment.Currency, &payment.ProviderRef, &payment.RedirectURL, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// CreateAttempt inserts a payment attempt inside a transaction that locks the
// invoice row, so concurrent initiations against one invoice serialize. When a
// live attempt (initiated, pending or succeeded) already exists, nothing is
// inserted and its status is returned; an empty string means the insert won.
func (r *paymentRepo) CreateAttempt(ctx context.Context, payment *models.Payment) (string, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var invoiceID uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM invoices WHERE id = $1 FOR UPDATE`, payment.InvoiceID).Scan(&invoiceID); err != nil {
		return "", err
	}

	var blocking string
	err = tx.QueryRow(ctx, `
		SELECT status FROM payments
		WHERE invoice_id = $1 AND status IN ('initiated', 'pending', 'succeeded')
		ORDER BY created_at DESC
		LIMIT 1
	`, payment.InvoiceID).Scan(&blocking)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if blocking != "" {
		return blocking, nil
	}

	query := `
		INSERT INTO payments (id, invoice_id, transaction_id, method, status, amount_cents, currency, provider_ref, redirect_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query, payment.ID, payment.InvoiceID, payment.TransactionID, payment.Method, payment.Status, payment.AmountCents, payment.Currency, payment.ProviderRef, payment.RedirectURL); err != nil {
		return "", err
	}
	return "", tx.Commit(ctx)
}

func (r *paymentRepo) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE transaction_id = $1
	`
	return scanPayment(r.db.QueryRow(ctx, query, transactionID))
}

func (r *paymentRepo) GetByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE provider_ref = $1
	`
	return scanPayment(r.db.QueryRow(ctx, query, providerRef))
}

func (r *paymentRepo) HasSucceededForInvoice(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM payments WHERE invoice_id = $1 AND status = 'succeeded'`
	if err := r.db.QueryRow(ctx, query, invoiceID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, paymentID uuid.UUID, status string) error {
	query := `
		UPDATE payments
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.db.Exec(ctx, query, status, paymentID)
	return err
}

func (r *paymentRepo) SetProviderResult(ctx context.Context, paymentID uuid.UUID, providerRef, redirectURL *string, status string) error {
	query := `
		UPDATE payments
		SET provider_ref = $1, redirect_url = $2, status = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, providerRef, redirectURL, status, paymentID)
	return err
}

// ListPendingOlderThan returns pending payments last touched before cutoff.
// The reconciliation job polls the provider for these.
func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}
