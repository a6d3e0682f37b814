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

// Reported payment statuses as exposed to callers of Verify.
const (
	ReportedStatusCompleted = "Completed"
	ReportedStatusPending   = "Pending"
	ReportedStatusFailed    = "Failed"
)

type InitiatePaymentResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Message       string  `json:"message"`
	PaymentURL    *string `json:"payment_url,omitempty"`
}

type VerifyPaymentResponse struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	ErrorMessage  *string `json:"error_message,omitempty"`
}

// PaymentService initiates and verifies payment attempts and reconciles
// provider outcomes with the invoice lifecycle.
type PaymentService interface {
	Initiate(ctx context.Context, userID, invoiceID uuid.UUID, method string, amountCents billing.Cents, currency string) (*InitiatePaymentResponse, error)
	Verify(ctx context.Context, transactionID string) (*VerifyPaymentResponse, error)
	HandleProviderCallback(ctx context.Context, providerRef, referenceID, providerStatus string) error
	ReconcilePendingPayments(ctx context.Context) error
}

type paymentService struct {
	paymentRepo         repositories.PaymentRepository
	invoiceRepo         repositories.InvoiceRepository
	invoiceSvc          InvoiceService
	provider            PaymentProvider
	providerTimeout     time.Duration
	supportedCurrencies map[string]bool
}

func NewPaymentService(paymentRepo repositories.PaymentRepository, invoiceRepo repositories.InvoiceRepository, invoiceSvc InvoiceService, provider PaymentProvider, providerTimeout time.Duration, supportedCurrencies []string) PaymentService {
	supported := make(map[string]bool, len(supportedCurrencies))
	for _, c := range supportedCurrencies {
		supported[c] = true
	}
	return &paymentService{
		paymentRepo:         paymentRepo,
		invoiceRepo:         invoiceRepo,
		invoiceSvc:          invoiceSvc,
		provider:            provider,
		providerTimeout:     providerTimeout,
		supportedCurrencies: supported,
	}
}

// methodRequiresRedirect reports whether the payment method needs off-band
// confirmation through a provider-hosted page.
func methodRequiresRedirect(method string) bool {
	return method == "online" || method == "credit_card"
}

func (s *paymentService) Initiate(ctx context.Context, userID, invoiceID uuid.UUID, method string, amountCents billing.Cents, currency string) (*InitiatePaymentResponse, error) {
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

	// Payments are only taken against finalized invoices
	if invoice.Status != models.InvoiceStatusSent {
		return nil, fmt.Errorf("%w: invoice is %s, payment requires sent", billing.ErrInvalidTransition, invoice.Status)
	}

	if int64(amountCents) != invoice.TotalCents {
		return nil, fmt.Errorf("%w: payment is %s, invoice total is %s", billing.ErrAmountMismatch,
			billing.FormatAmount(amountCents), billing.FormatAmount(billing.Cents(invoice.TotalCents)))
	}
	if !s.supportedCurrencies[currency] || currency != invoice.Currency {
		return nil, fmt.Errorf("%w: currency %s not accepted for this invoice", billing.ErrAmountMismatch, currency)
	}

	payment := &models.Payment{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		TransactionID: uuid.NewString(),
		Method:        method,
		Status:        models.PaymentStatusInitiated,
		AmountCents:   int64(amountCents),
		Currency:      currency,
	}

	// The insert and the live-attempt check run in one invoice-locked
	// transaction, so concurrent initiations cannot both open a provider
	// transaction for the same invoice.
	blocking, err := s.paymentRepo.CreateAttempt(ctx, payment)
	if err != nil {
		return nil, err
	}
	switch blocking {
	case "":
	case models.PaymentStatusSucceeded:
		return nil, billing.ErrAlreadyPaid
	default:
		return nil, fmt.Errorf("%w: a %s payment attempt already exists for this invoice", billing.ErrConflict, blocking)
	}

	// The one external call; bounded so a slow provider cannot hold the request
	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	resp, err := s.provider.BeginTransaction(providerCtx, &BeginTransactionRequest{
		ReferenceID: payment.TransactionID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Method:      payment.Method,
	})
	if err != nil {
		if errors.Is(err, billing.ErrProviderTimeout) || errors.Is(err, context.DeadlineExceeded) {
			// Not assumed failed: the provider may have accepted the
			// transaction. Park it pending for later reconciliation.
			if updErr := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusPending); updErr != nil {
				log.Printf("Failed to park payment %s as pending: %v", payment.TransactionID, updErr)
			}
			return &InitiatePaymentResponse{
				TransactionID: payment.TransactionID,
				Status:        ReportedStatusPending,
				Message:       "Payment provider timed out; transaction is pending verification.",
			}, nil
		}
		if updErr := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusFailed); updErr != nil {
			log.Printf("Failed to mark payment %s failed: %v", payment.TransactionID, updErr)
		}
		return nil, fmt.Errorf("provider begin transaction: %w", err)
	}

	var redirectURL *string
	if methodRequiresRedirect(method) {
		redirectURL = resp.RedirectURL
	}
	if err := s.paymentRepo.SetProviderResult(ctx, payment.ID, &resp.ProviderRef, redirectURL, models.PaymentStatusPending); err != nil {
		return nil, err
	}

	return &InitiatePaymentResponse{
		TransactionID: payment.TransactionID,
		Status:        "Initiated",
		Message:       "Payment initiated successfully.",
		PaymentURL:    redirectURL,
	}, nil
}

// Verify reports the state of a payment attempt derived from its invoice.
// Read-only and idempotent: the provider callback path is what moves the
// invoice, never this.
func (s *paymentService) Verify(ctx context.Context, transactionID string) (*VerifyPaymentResponse, error) {
	payment, err := s.paymentRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, err
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, payment.InvoiceID)
	if err != nil {
		return nil, err
	}

	resp := &VerifyPaymentResponse{TransactionID: transactionID}
	switch invoice.Status {
	case models.InvoiceStatusPaid:
		resp.Status = ReportedStatusCompleted
	case models.InvoiceStatusDraft, models.InvoiceStatusSent:
		resp.Status = ReportedStatusPending
	default:
		resp.Status = ReportedStatusFailed
		msg := "Payment failed or cancelled."
		resp.ErrorMessage = &msg
	}
	return resp, nil
}

// HandleProviderCallback applies a provider-reported terminal status: the
// payment record is settled and the invoice transitioned through the
// lifecycle manager. Repeated deliveries of the same status are no-ops.
//
// A payment parked after a begin-transaction timeout has no provider ref
// stored, so when the ref lookup misses the payment is resolved through the
// reference id the provider echoes back, and the ref is attached then.
func (s *paymentService) HandleProviderCallback(ctx context.Context, providerRef, referenceID, providerStatus string) error {
	payment, err := s.resolvePayment(ctx, providerRef, referenceID)
	if err != nil {
		return err
	}

	if payment.Status == models.PaymentStatusSucceeded || payment.Status == models.PaymentStatusFailed {
		return nil
	}

	switch providerStatus {
	case ProviderStatusSucceeded:
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusSucceeded); err != nil {
			return err
		}
		payment.Status = models.PaymentStatusSucceeded
		return s.invoiceSvc.MarkPaid(ctx, payment.InvoiceID, payment)
	case ProviderStatusFailed:
		if err := s.paymentRepo.UpdateStatus(ctx, payment.ID, models.PaymentStatusFailed); err != nil {
			return err
		}
		return s.invoiceSvc.MarkFailed(ctx, payment.InvoiceID)
	default:
		// Non-terminal status; leave the payment pending
		return nil
	}
}

// resolvePayment finds the payment a provider notification refers to, by
// provider ref first and by our reference id when the ref is not yet stored.
// A ref learned through the reference-id path is persisted so later callbacks
// hit the direct lookup.
func (s *paymentService) resolvePayment(ctx context.Context, providerRef, referenceID string) (*models.Payment, error) {
	if providerRef != "" {
		payment, err := s.paymentRepo.GetByProviderRef(ctx, providerRef)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	if referenceID == "" {
		return nil, billing.ErrTransactionNotFound
	}
	payment, err := s.paymentRepo.GetByTransactionID(ctx, referenceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, billing.ErrTransactionNotFound
		}
		return nil, err
	}

	if payment.ProviderRef == nil && providerRef != "" {
		if err := s.paymentRepo.SetProviderResult(ctx, payment.ID, &providerRef, payment.RedirectURL, payment.Status); err != nil {
			return nil, err
		}
		payment.ProviderRef = &providerRef
	}
	return payment, nil
}

// ReconcilePendingPayments polls the provider for payments stuck pending past
// the provider timeout and applies any terminal outcome.
func (s *paymentService) ReconcilePendingPayments(ctx context.Context) error {
	cutoff := time.Now().Add(-s.providerTimeout)
	payments, err := s.paymentRepo.ListPendingOlderThan(ctx, cutoff, 100)
	if err != nil {
		return fmt.Errorf("failed to list pending payments: %w", err)
	}

	for _, payment := range payments {
		pollCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		providerRef, status, err := s.pollPayment(pollCtx, payment)
		cancel()
		if err != nil {
			log.Printf("Failed to poll provider for payment %s: %v", payment.TransactionID, err)
			continue
		}

		if err := s.HandleProviderCallback(ctx, providerRef, payment.TransactionID, status); err != nil {
			log.Printf("Failed to reconcile payment %s: %v", payment.TransactionID, err)
		}
	}

	return nil
}

// pollPayment asks the provider for a payment's current state. Payments parked
// before a provider ref was received are looked up by the reference id sent
// with the original begin call.
func (s *paymentService) pollPayment(ctx context.Context, payment *models.Payment) (string, string, error) {
	if payment.ProviderRef != nil {
		status, err := s.provider.GetTransactionStatus(ctx, *payment.ProviderRef)
		return *payment.ProviderRef, status, err
	}
	return s.provider.GetTransactionByReference(ctx, payment.TransactionID)
}
