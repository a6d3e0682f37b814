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

type InvoiceRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      InvoiceRepository
	userID    uuid.UUID
	invoiceID uuid.UUID
	taxRateID uuid.UUID
	context   context.Context
}

func (suite *InvoiceRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewInvoiceRepo(mock)
	suite.userID = uuid.New()
	suite.invoiceID = uuid.New()
	suite.taxRateID = uuid.New()
	suite.context = context.Background()
}

func (suite *InvoiceRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestInvoiceRepoTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceRepoTestSuite))
}

func (suite *InvoiceRepoTestSuite) invoiceRow(status string, version int) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{"id", "user_id", "invoice_number", "status", "tax_rate_id", "subtotal_cents", "tax_cents", "total_cents", "currency", "issued_date", "due_date", "paid_date", "version", "created_at", "updated_at"}).
		AddRow(suite.invoiceID, suite.userID, "INV-2026-09-000001", status, suite.taxRateID, int64(13000), int64(1040), int64(14040), "USD", now, now.AddDate(0, 0, 30), (*time.Time)(nil), version, now, now)
}

func (suite *InvoiceRepoTestSuite) TestGetByID_Success() {
	suite.mock.ExpectQuery(`
		SELECT id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at
		FROM invoices
		WHERE id = \$1
	`).WithArgs(suite.invoiceID).
		WillReturnRows(suite.invoiceRow("draft", 1))

	invoice, err := suite.repo.GetByID(suite.context, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.invoiceID, invoice.ID)
	assert.Equal(suite.T(), "INV-2026-09-000001", invoice.InvoiceNumber)
	assert.Equal(suite.T(), int64(14040), invoice.TotalCents)
	assert.Equal(suite.T(), 1, invoice.Version)
}

func (suite *InvoiceRepoTestSuite) TestGetByID_NotFound() {
	suite.mock.ExpectQuery(`
		SELECT id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at
		FROM invoices
		WHERE id = \$1
	`).WithArgs(suite.invoiceID).
		WillReturnError(pgx.ErrNoRows)

	invoice, err := suite.repo.GetByID(suite.context, suite.invoiceID)
	assert.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, pgx.ErrNoRows)
	assert.Nil(suite.T(), invoice)
}

func (suite *InvoiceRepoTestSuite) TestCreateWithItems_Success() {
	now := time.Now()
	invoice := &models.Invoice{
		ID:            suite.invoiceID,
		UserID:        suite.userID,
		InvoiceNumber: "INV-2026-09-000001",
		Status:        models.InvoiceStatusDraft,
		TaxRateID:     suite.taxRateID,
		SubtotalCents: 13000,
		TaxCents:      1040,
		TotalCents:    14040,
		Currency:      "USD",
		IssuedDate:    now,
		DueDate:       now.AddDate(0, 0, 30),
		Version:       1,
	}
	partID := uuid.New()
	quantity := int64(3)
	unitCost := int64(1000)
	items := []*models.BillableItem{
		{ID: uuid.New(), InvoiceID: suite.invoiceID, Kind: models.BillableItemKindPart, PartID: &partID, Quantity: &quantity, UnitCostCents: &unitCost, AmountCents: 3000},
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
		INSERT INTO invoices \(id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13, NOW\(\), NOW\(\)\)
	`).WithArgs(invoice.ID, invoice.UserID, invoice.InvoiceNumber, invoice.Status, invoice.TaxRateID, invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents, invoice.Currency, invoice.IssuedDate, invoice.DueDate, invoice.PaidDate, invoice.Version).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectExec(`
		INSERT INTO billable_items \(id, invoice_id, kind, service_id, hours_hundredth, rate_id, part_id, quantity, unit_cost_cents, amount_cents, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, NOW\(\)\)
	`).WithArgs(items[0].ID, items[0].InvoiceID, items[0].Kind, items[0].ServiceID, items[0].HoursHundredth, items[0].RateID, items[0].PartID, items[0].Quantity, items[0].UnitCostCents, items[0].AmountCents).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	suite.mock.ExpectCommit()

	err := suite.repo.CreateWithItems(suite.context, invoice, items)
	assert.NoError(suite.T(), err)
}

func (suite *InvoiceRepoTestSuite) TestUpdateStatusVersioned_Success() {
	suite.mock.ExpectExec(`
		UPDATE invoices
		SET status = \$1, paid_date = COALESCE\(\$2, paid_date\), version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$3 AND version = \$4
	`).WithArgs(models.InvoiceStatusSent, (*time.Time)(nil), suite.invoiceID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := suite.repo.UpdateStatusVersioned(suite.context, suite.invoiceID, 1, models.InvoiceStatusSent, nil)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *InvoiceRepoTestSuite) TestUpdateStatusVersioned_StaleVersion() {
	suite.mock.ExpectExec(`
		UPDATE invoices
		SET status = \$1, paid_date = COALESCE\(\$2, paid_date\), version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$3 AND version = \$4
	`).WithArgs(models.InvoiceStatusSent, (*time.Time)(nil), suite.invoiceID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := suite.repo.UpdateStatusVersioned(suite.context, suite.invoiceID, 1, models.InvoiceStatusSent, nil)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *InvoiceRepoTestSuite) TestReplaceItems_StaleVersionLeavesItemsUntouched() {
	invoice := &models.Invoice{
		ID:            suite.invoiceID,
		TaxRateID:     suite.taxRateID,
		SubtotalCents: 5000,
		TaxCents:      400,
		TotalCents:    5400,
		DueDate:       time.Now().AddDate(0, 0, 30),
	}

	suite.mock.ExpectBegin()
	suite.mock.ExpectExec(`
		UPDATE invoices
		SET tax_rate_id = \$1, subtotal_cents = \$2, tax_cents = \$3, total_cents = \$4, due_date = \$5, version = version \+ 1, updated_at = NOW\(\)
		WHERE id = \$6 AND version = \$7 AND status IN \('draft', 'sent'\)
	`).WithArgs(invoice.TaxRateID, invoice.SubtotalCents, invoice.TaxCents, invoice.TotalCents, invoice.DueDate, invoice.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	suite.mock.ExpectRollback()

	ok, err := suite.repo.ReplaceItems(suite.context, invoice, nil, 1)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *InvoiceRepoTestSuite) TestGetItems_PreservesInsertionOrder() {
	serviceID := uuid.New()
	hours := int64(200)
	rateID := uuid.New()
	partID := uuid.New()
	quantity := int64(3)
	unitCost := int64(1000)
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "invoice_id", "kind", "service_id", "hours_hundredth", "rate_id", "part_id", "quantity", "unit_cost_cents", "amount_cents", "created_at"}).
		AddRow(uuid.New(), suite.invoiceID, models.BillableItemKindService, &serviceID, &hours, &rateID, (*uuid.UUID)(nil), (*int64)(nil), (*int64)(nil), int64(10000), now).
		AddRow(uuid.New(), suite.invoiceID, models.BillableItemKindPart, (*uuid.UUID)(nil), (*int64)(nil), (*uuid.UUID)(nil), &partID, &quantity, &unitCost, int64(3000), now)

	suite.mock.ExpectQuery(`
		SELECT id, invoice_id, kind, service_id, hours_hundredth, rate_id, part_id, quantity, unit_cost_cents, amount_cents, created_at
		FROM billable_items
		WHERE invoice_id = \$1
		ORDER BY created_at ASC, id ASC
	`).WithArgs(suite.invoiceID).
		WillReturnRows(rows)

	items, err := suite.repo.GetItems(suite.context, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), items, 2)
	assert.Equal(suite.T(), models.BillableItemKindService, items[0].Kind)
	assert.Equal(suite.T(), models.BillableItemKindPart, items[1].Kind)
	assert.Equal(suite.T(), int64(10000), items[0].AmountCents)
}

func (suite *InvoiceRepoTestSuite) TestGenerateInvoiceNumber() {
	issued := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	suite.mock.ExpectQuery(`
		WITH upsert AS \(
			INSERT INTO invoice_sequences \(year_month, last_number\)
			VALUES \(\$1, 1\)
			ON CONFLICT \(year_month\)
			DO UPDATE SET
				last_number = invoice_sequences\.last_number \+ 1,
				updated_at = NOW\(\)
			RETURNING last_number
		\)
		SELECT last_number FROM upsert;
	`).WithArgs("2026-09").
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(7))

	number, err := suite.repo.GenerateInvoiceNumber(suite.context, issued)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "INV-2026-09-000007", number)
}

func (suite *InvoiceRepoTestSuite) TestListByUser() {
	suite.mock.ExpectQuery(`
		SELECT id, user_id, invoice_number, status, tax_rate_id, subtotal_cents, tax_cents, total_cents, currency, issued_date, due_date, paid_date, version, created_at, updated_at
		FROM invoices
		WHERE user_id = \$1
		ORDER BY issued_date DESC
		LIMIT \$2 OFFSET \$3
	`).WithArgs(suite.userID, 50, 0).
		WillReturnRows(suite.invoiceRow("sent", 2))

	invoices, err := suite.repo.ListByUser(suite.context, suite.userID, 50, 0)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), invoices, 1)
	assert.Equal(suite.T(), "sent", invoices[0].Status)
}
