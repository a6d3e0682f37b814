package handlers

import (
	"net/http"

	"billhive/internal/billing"
	"billhive/internal/common"
	"billhive/internal/services"

	"github.com/labstack/echo/v4"
)

type PaymentHandlers struct {
	paymentSvc services.PaymentService
}

func NewPaymentHandlers(paymentSvc services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{paymentSvc: paymentSvc}
}

// InitiatePaymentRequest carries the payment attempt; the amount is echoed
// back by the caller as a decimal string so it can be checked against the
// invoice total.
type InitiatePaymentRequest struct {
	InvoiceID     string `json:"invoice_id"`
	PaymentMethod string `json:"payment_method"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// Initiate handles POST /payments/initiate
func (h *PaymentHandlers) Initiate(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	invoiceID, err := common.ValidateUUID(req.InvoiceID, "invoice_id")
	if err != nil {
		return common.SendValidationError(c, "invoice_id", err.Error())
	}
	if err := common.ValidateRequiredString(req.PaymentMethod, "payment_method"); err != nil {
		return common.SendValidationError(c, "payment_method", err.Error())
	}
	if err := common.ValidateRequiredString(req.Currency, "currency"); err != nil {
		return common.SendValidationError(c, "currency", err.Error())
	}

	amountCents, err := billing.ParseAmount(req.Amount)
	if err != nil {
		return common.SendValidationError(c, "amount", err.Error())
	}

	resp, err := h.paymentSvc.Initiate(ctx, userID, invoiceID, req.PaymentMethod, amountCents, req.Currency)
	if err != nil {
		return httpError("initiate payment", err)
	}

	// A provider timeout is not a failure; the caller re-polls via verify
	if resp.Status == services.ReportedStatusPending {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// Verify handles GET /payments/:transaction_id/verify
func (h *PaymentHandlers) Verify(c echo.Context) error {
	ctx := c.Request().Context()

	if _, ok := common.GetUserIDFromContext(ctx); !ok {
		return common.SendUnauthorizedError(c)
	}

	transactionID := c.Param("transaction_id")
	if err := common.ValidateRequiredString(transactionID, "transaction_id"); err != nil {
		return common.SendValidationError(c, "transaction_id", err.Error())
	}

	resp, err := h.paymentSvc.Verify(ctx, transactionID)
	if err != nil {
		return httpError("verify payment", err)
	}

	return c.JSON(http.StatusOK, resp)
}

// ProviderCallbackRequest is the provider's asynchronous notification. The
// reference id is the transaction id we supplied when the transaction was
// opened; it identifies payments whose provider ref was never stored.
type ProviderCallbackRequest struct {
	ProviderRef string `json:"provider_ref"`
	ReferenceID string `json:"reference_id"`
	Status      string `json:"status"`
}

// ProviderCallback handles POST /webhooks/payments
func (h *PaymentHandlers) ProviderCallback(c echo.Context) error {
	ctx := c.Request().Context()

	var req ProviderCallbackRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Status == "" || (req.ProviderRef == "" && req.ReferenceID == "") {
		return echo.NewHTTPError(http.StatusBadRequest, "status and a provider_ref or reference_id are required")
	}

	if err := h.paymentSvc.HandleProviderCallback(ctx, req.ProviderRef, req.ReferenceID, req.Status); err != nil {
		return httpError("handle provider callback", err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
