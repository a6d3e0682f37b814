package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"billhive/internal/billing"
	"billhive/internal/models"
	"billhive/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// maxTransitionRetries bounds optimistic-lock retries before giving up with
// billing.ErrConflict.
const maxTransitionRetries = 3

// valid lifecycle transitions; anything absent is rejected
var invoiceTransitions = map[string][]string{
	models.InvoiceStatusDraft:     {models.InvoiceStatusSent, models.InvoiceStatusCancelled},
	models.InvoiceStatusSent:      {models.InvoiceStatusPaid, models.InvoiceStatusFailed, models.InvoiceStatusCancelled},
	models.InvoiceStatusPaid:      {},
	models.InvoiceStatusCancelled: {},
	models.InvoiceStatusFailed:    {},
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range invoiceTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ServiceLineInput is a service line after boundary conversion: hours in
// hundredths of an hour, the rate resolved by id at compute time.
type ServiceLineInput struct {
	ServiceID      uuid.UUID
	HoursHundredth int64
	RateID         uuid.UUID
}

// PartLineInput is a part line after boundary conversion.
type PartLineInput struct {
	PartID        uuid.UUID
	Quantity      int64
	UnitCostCents billing.Cents
}

type CreateInvoiceRequest struct {
	Services  []ServiceLineInput
	Parts     []PartLineInput
	TaxRateID uuid.UUID
	Currency  string
	DueDate   time.Time
}

type UpdateInvoiceRequest struct {
	Services  []ServiceLineInput
	Parts     []PartLineInput
	TaxRateID uuid.UUID
	DueDate   time.Time
}

// InvoiceService owns the invoice state machine. Every transition is guarded
// by the adjacency table above and persisted under an optimistic version
// check, so concurrent transitions cannot both win.
type InvoiceService interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreateInvoiceRequest) (*models.Invoice, error)
	Update(ctx context.Context, userID, invoiceID uuid.UUID, req *UpdateInvoiceRequest) (*models.Invoice, error)
	Finalize(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error)
	Cancel(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error)
	MarkPaid(ctx context.Context, invoiceID uuid.UUID, payment *models.Payment) error
	MarkFailed(ctx context.Context, invoiceID uuid.UUID) error
	GetByID(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, []*models.BillableItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Invoice, error)
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	paymentRepo repositories.PaymentRepository
	rateLookup  RateLookupService
	archiveSvc  ArchiveService
}

func NewInvoiceService(invoiceRepo repositories.InvoiceRepository, paymentRepo repositories.PaymentRepository, rateLookup RateLookupService, archiveSvc ArchiveService) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		rateLookup:  rateLookup,
		archiveSvc:  archiveSvc,
	}
}

// buildItems resolves rates, validates lines and computes totals. Pure apart
// from the rate lookups; nothing is persisted here.
func (s *invoiceService) buildItems(ctx context.Context, invoiceID uuid.UUID, currency string, services []ServiceLineInput, parts []PartLineInput, taxRateID uuid.UUID) ([]*models.BillableItem, billing.Totals, error) {
	taxRate, err := s.rateLookup.GetTaxRate(ctx, taxRateID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.Totals{}, fmt.Errorf("%w: tax rate %s not found", billing.ErrInvalidLineItem, taxRateID)
		}
		return nil, billing.Totals{}, err
	}

	var serviceLines []billing.ServiceLine
	var partLines []billing.PartLine
	var items []*models.BillableItem

	for _, in := range services {
		rate, err := s.rateLookup.GetServiceRate(ctx, in.RateID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, billing.Totals{}, fmt.Errorf("%w: service rate %s not found", billing.ErrInvalidLineItem, in.RateID)
			}
			return nil, billing.Totals{}, err
		}
		if rate.Currency != currency {
			return nil, billing.Totals{}, fmt.Errorf("%w: service rate %s is in %s, invoice is in %s", billing.ErrInvalidLineItem, in.RateID, rate.Currency, currency)
		}

		serviceLines = append(serviceLines, billing.ServiceLine{
			HoursHundredth:  in.HoursHundredth,
			HourlyRateCents: billing.Cents(rate.HourlyCents),
		})

		in := in
		items = append(items, &models.BillableItem{
			ID:             uuid.New(),
			InvoiceID:      invoiceID,
			Kind:           models.BillableItemKindService,
			ServiceID:      &in.ServiceID,
			HoursHundredth: &in.HoursHundredth,
			RateID:         &in.RateID,
		})
	}

	for _, in := range parts {
		partLines = append(partLines, billing.PartLine{
			Quantity:      in.Quantity,
			UnitCostCents: in.UnitCostCents,
		})

		in := in
		cost := int64(in.UnitCostCents)
		items = append(items, &models.BillableItem{
			ID:            uuid.New(),
			InvoiceID:     invoiceID,
			Kind:          models.BillableItemKindPart,
			PartID:        &in.PartID,
			Quantity:      &in.Quantity,
			UnitCostCents: &cost,
		})
	}

	totals, err := billing.ComputeTotals(serviceLines, partLines, taxRate.PercentBasisPoint)
	if err != nil {
		return nil, billing.Totals{}, err
	}

	for i, item := range items {
		item.AmountCents = int64(totals.LineAmounts[i])
	}

	return items, totals, nil
}

func (s *invoiceService) Create(ctx context.Context, userID uuid.UUID, req *CreateInvoiceRequest) (*models.Invoice, error) {
	invoiceID := uuid.New()

	items, totals, err := s.buildItems(ctx, invoiceID, req.Currency, req.Services, req.Parts, req.TaxRateID)
	if err != nil {
		return nil, err
	}

	issuedDate := time.Now()
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = issuedDate.AddDate(0, 0, 30) // 30 days from issued date
	}

	invoiceNumber, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, issuedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := &models.Invoice{
		ID:            invoiceID,
		UserID:        userID,
		InvoiceNumber: invoiceNumber,
		Status:        models.InvoiceStatusDraft,
		TaxRateID:     req.TaxRateID,
		SubtotalCents: int64(totals.SubtotalCents),
		TaxCents:      int64(totals.TaxCents),
		TotalCents:    int64(totals.TotalCents),
		Currency:      req.Currency,
		IssuedDate:    issuedDate,
		DueDate:       dueDate,
		Version:       1,
	}

	if err := s.invoiceRepo.CreateWithItems(ctx, invoice, items); err != nil {
		return nil, err
	}

	return invoice, nil
}

func (s *invoiceService) Update(ctx context.Context, userID, invoiceID uuid.UUID, req *UpdateInvoiceRequest) (*models.Invoice, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		invoice, err := s.loadOwned(ctx, userID, invoiceID)
		if err != nil {
			return nil, err
		}

		// Line items are mutable only before the invoice settles
		if invoice.Terminal() {
			return nil, fmt.Errorf("%w: cannot update a %s invoice", billing.ErrInvalidTransition, invoice.Status)
		}

		items, totals, err := s.buildItems(ctx, invoiceID, invoice.Currency, req.Services, req.Parts, req.TaxRateID)
		if err != nil {
			return nil, err
		}

		invoice.TaxRateID = req.TaxRateID
		invoice.SubtotalCents = int64(totals.SubtotalCents)
		invoice.TaxCents = int64(totals.TaxCents)
		invoice.TotalCents = int64(totals.TotalCents)
		if !req.DueDate.IsZero() {
			invoice.DueDate = req.DueDate
		}

		ok, err := s.invoiceRepo.ReplaceItems(ctx, invoice, items, invoice.Version)
		if err != nil {
			return nil, err
		}
		if ok {
			invoice.Version++
			return invoice, nil
		}
		// version moved under us; reload and retry
	}
	return nil, billing.ErrConflict
}

func (s *invoiceService) Finalize(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.transition(ctx, invoiceID, models.InvoiceStatusSent, nil, func(inv *models.Invoice) error {
		if inv.UserID != userID {
			return billing.ErrOwnerMismatch
		}
		items, err := s.invoiceRepo.GetItems(ctx, inv.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return billing.ErrEmptyInvoice
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.archiveSnapshot(invoice)
	return invoice, nil
}

func (s *invoiceService) Cancel(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	return s.transition(ctx, invoiceID, models.InvoiceStatusCancelled, nil, func(inv *models.Invoice) error {
		if inv.UserID != userID {
			return billing.ErrOwnerMismatch
		}
		paid, err := s.paymentRepo.HasSucceededForInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if paid {
			return billing.ErrAlreadyPaid
		}
		return nil
	})
}

func (s *invoiceService) MarkPaid(ctx context.Context, invoiceID uuid.UUID, payment *models.Payment) error {
	if payment == nil || payment.Status != models.PaymentStatusSucceeded {
		return fmt.Errorf("%w: invoice can only be marked paid by a succeeded payment", billing.ErrInvalidTransition)
	}
	if payment.InvoiceID != invoiceID {
		return fmt.Errorf("%w: payment %s does not reference invoice %s", billing.ErrInvalidTransition, payment.TransactionID, invoiceID)
	}

	now := time.Now()
	_, err := s.transition(ctx, invoiceID, models.InvoiceStatusPaid, &now, func(inv *models.Invoice) error {
		if payment.AmountCents != inv.TotalCents {
			return fmt.Errorf("%w: payment is %d, invoice total is %d", billing.ErrAmountMismatch, payment.AmountCents, inv.TotalCents)
		}
		return nil
	})
	return err
}

func (s *invoiceService) MarkFailed(ctx context.Context, invoiceID uuid.UUID) error {
	_, err := s.transition(ctx, invoiceID, models.InvoiceStatusFailed, nil, nil)
	return err
}

// transition performs one guarded state change. The guard runs against the
// freshly loaded invoice on each attempt; a losing version check reloads and
// retries so a guard never validates stale state.
func (s *invoiceService) transition(ctx context.Context, invoiceID uuid.UUID, target string, paidDate *time.Time, guard func(*models.Invoice) error) (*models.Invoice, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, billing.ErrInvoiceNotFound
			}
			return nil, err
		}

		if guard != nil {
			if err := guard(invoice); err != nil {
				return nil, err
			}
		}

		if !transitionAllowed(invoice.Status, target) {
			return nil, fmt.Errorf("%w: %s -> %s", billing.ErrInvalidTransition, invoice.Status, target)
		}

		ok, err := s.invoiceRepo.UpdateStatusVersioned(ctx, invoiceID, invoice.Version, target, paidDate)
		if err != nil {
			return nil, err
		}
		if ok {
			invoice.Status = target
			invoice.Version++
			if paidDate != nil {
				invoice.PaidDate = paidDate
			}
			return invoice, nil
		}
	}
	return nil, billing.ErrConflict
}

func (s *invoiceService) GetByID(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, []*models.BillableItem, error) {
	invoice, err := s.loadOwned(ctx, userID, invoiceID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.invoiceRepo.GetItems(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, items, nil
}

func (s *invoiceService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Invoice, error) {
	return s.invoiceRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *invoiceService) loadOwned(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, err
	}
	if invoice.UserID != userID {
		return nil, billing.ErrOwnerMismatch
	}
	return invoice, nil
}

// archiveSnapshot ships the frozen invoice to object storage asynchronously.
// Archival is best-effort; the transition has already committed.
func (s *invoiceService) archiveSnapshot(invoice *models.Invoice) {
	if s.archiveSvc == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in invoice snapshot archival: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		items, err := s.invoiceRepo.GetItems(ctx, invoice.ID)
		if err != nil {
			log.Printf("Failed to load items for invoice snapshot %s: %v", invoice.ID, err)
			return
		}
		if err := s.archiveSvc.StoreInvoiceSnapshot(ctx, invoice, items); err != nil {
			log.Printf("Failed to archive invoice snapshot %s: %v", invoice.ID, err)
		}
	}()
}
