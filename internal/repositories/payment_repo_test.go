package repositories

import (
	"context"
	"testing"
	"time"

	"billhive/internal/models"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type PaymentRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      PaymentRepository
	invoiceID uuid.UUID
	context   context.Context
}

func (suite *PaymentRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewPaymentRepo(mock)
	suite.invoiceID = uuid.New()
	suite.context = context.Background()
}

func (suite *PaymentRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestPaymentRepoTestSuite(t *testing.T) {
	suite.Run(t, new(PaymentRepoTestSuite))
}

func (suite *PaymentRepoTestSuite) newAttempt() *models.Payment {
	return &models.Payment{
		ID:            uuid.New(),
		InvoiceID:     suite.invoiceID,
		TransactionID: uuid.NewString(),
		Method:        "online",
		Status:        models.PaymentStatusInitiated,
		AmountCents:   14040,
		Currency:      "USD",
	}
}

func (suite *PaymentRepoTestSuite) TestCreateAttempt_InsertsWhenNoLiveAttempt() {
	payment := suite.newAttempt()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id FROM invoices WHERE id = \$1 FOR UPDATE`).
		WithArgs(suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.invoiceID))
	suite.mock.ExpectQuery(`
		SELECT status FROM payments
		WHERE invoice_id = \$1 AND status IN \('initiated', 'pending', 'succeeded'\)
		ORDER BY created_at DESC
		LIMIT 1
	`).WithArgs(suite.invoiceID).
		WillReturnError(pgx.ErrNoRows)
	suite.mock.ExpectExec(`
		INSERT INTO payments \(id, invoice_id, transaction_id, method, status, amount_cents, currency, provider_ref, redirect_url, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, NOW\(\), NOW\(\)\)
	`).WithArgs(payment.ID, payment.InvoiceID, payment.TransactionID, payment.Method, payment.Status, payment.AmountCents, payment.Currency, payment.ProviderRef, payment.RedirectURL).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	blocking, err := suite.repo.CreateAttempt(suite.context, payment)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), blocking)
}

func (suite *PaymentRepoTestSuite) TestCreateAttempt_LiveAttemptBlocksInsert() {
	payment := suite.newAttempt()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id FROM invoices WHERE id = \$1 FOR UPDATE`).
		WithArgs(suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.invoiceID))
	suite.mock.ExpectQuery(`
		SELECT status FROM payments
		WHERE invoice_id = \$1 AND status IN \('initiated', 'pending', 'succeeded'\)
		ORDER BY created_at DESC
		LIMIT 1
	`).WithArgs(suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.PaymentStatusPending))
	suite.mock.ExpectRollback()

	blocking, err := suite.repo.CreateAttempt(suite.context, payment)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PaymentStatusPending, blocking)
}

func (suite *PaymentRepoTestSuite) TestCreateAttempt_SucceededAttemptBlocksInsert() {
	payment := suite.newAttempt()

	suite.mock.ExpectBegin()
	suite.mock.ExpectQuery(`SELECT id FROM invoices WHERE id = \$1 FOR UPDATE`).
		WithArgs(suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(suite.invoiceID))
	suite.mock.ExpectQuery(`
		SELECT status FROM payments
		WHERE invoice_id = \$1 AND status IN \('initiated', 'pending', 'succeeded'\)
		ORDER BY created_at DESC
		LIMIT 1
	`).WithArgs(suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(models.PaymentStatusSucceeded))
	suite.mock.ExpectRollback()

	blocking, err := suite.repo.CreateAttempt(suite.context, payment)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.PaymentStatusSucceeded, blocking)
}

func (suite *PaymentRepoTestSuite) TestListPendingOlderThan() {
	now := time.Now()
	cutoff := now.Add(-10 * time.Second)
	ref := "prov-a"
	rows := pgxmock.NewRows([]string{"id", "invoice_id", "transaction_id", "method", "status", "amount_cents", "currency", "provider_ref", "redirect_url", "created_at", "updated_at"}).
		AddRow(uuid.New(), suite.invoiceID, uuid.NewString(), "online", models.PaymentStatusPending, int64(14040), "USD", &ref, (*string)(nil), now, now).
		AddRow(uuid.New(), suite.invoiceID, uuid.NewString(), "online", models.PaymentStatusPending, int64(14040), "USD", (*string)(nil), (*string)(nil), now, now)

	suite.mock.ExpectQuery(`
		SELECT id, invoice_id, transaction_id, method, status, amount_cents, currency, provider_ref, redirect_url, created_at, updated_at
		FROM payments
		WHERE status = 'pending' AND updated_at < \$1
		ORDER BY updated_at ASC
		LIMIT \$2
	`).WithArgs(cutoff, 100).
		WillReturnRows(rows)

	payments, err := suite.repo.ListPendingOlderThan(suite.context, cutoff, 100)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), payments, 2)
	assert.NotNil(suite.T(), payments[0].ProviderRef)
	assert.Nil(suite.T(), payments[1].ProviderRef)
}
