package handlers

import (
	"net/http"
	"strconv"

	"billhive/internal/billing"
	"billhive/internal/common"
	"billhive/internal/models"
	"billhive/internal/services"

	"github.com/labstack/echo/v4"
)

type InvoiceHandlers struct {
	invoiceSvc services.InvoiceService
}

func NewInvoiceHandlers(invoiceSvc services.InvoiceService) *InvoiceHandlers {
	return &InvoiceHandlers{invoiceSvc: invoiceSvc}
}

// ServiceDetail is a service line on the wire: hours as a decimal string.
type ServiceDetail struct {
	ServiceID string `json:"service_id"`
	Hours     string `json:"hours"`
	RateID    string `json:"rate_id"`
}

// PartDetail is a part line on the wire: unit cost as a decimal string.
type PartDetail struct {
	PartID   string `json:"part_id"`
	Quantity int64  `json:"quantity"`
	Cost     string `json:"cost"`
}

type CreateInvoiceRequest struct {
	Services  []ServiceDetail `json:"services"`
	Parts     []PartDetail    `json:"parts"`
	TaxRateID string          `json:"tax_rate_id"`
	Currency  string          `json:"currency"`
	DueDate   string          `json:"due_date"`
}

type UpdateInvoiceRequest struct {
	Services  []ServiceDetail `json:"services"`
	Parts     []PartDetail    `json:"parts"`
	TaxRateID string          `json:"tax_rate_id"`
	DueDate   string          `json:"due_date"`
}

// InvoiceResponse renders an invoice with amounts as decimal strings and
// dates as YYYY-MM-DD.
type InvoiceResponse struct {
	ID            string                 `json:"id"`
	InvoiceNumber string                 `json:"invoice_number"`
	Status        string                 `json:"status"`
	Subtotal      string                 `json:"subtotal"`
	Tax           string                 `json:"tax"`
	Total         string                 `json:"total"`
	Currency      string                 `json:"currency"`
	IssuedDate    string                 `json:"issued_date"`
	DueDate       string                 `json:"due_date"`
	PaidDate      *string                `json:"paid_date,omitempty"`
	Items         []*models.BillableItem `json:"items,omitempty"`
}

func invoiceResponse(invoice *models.Invoice, items []*models.BillableItem) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:            invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		Status:        invoice.Status,
		Subtotal:      billing.FormatAmount(billing.Cents(invoice.SubtotalCents)),
		Tax:           billing.FormatAmount(billing.Cents(invoice.TaxCents)),
		Total:         billing.FormatAmount(billing.Cents(invoice.TotalCents)),
		Currency:      invoice.Currency,
		IssuedDate:    invoice.IssuedDate.Format("2006-01-02"),
		DueDate:       invoice.DueDate.Format("2006-01-02"),
		Items:         items,
	}
	if invoice.PaidDate != nil {
		paid := invoice.PaidDate.Format("2006-01-02")
		resp.PaidDate = &paid
	}
	return resp
}

// parseLines converts wire line items to service inputs, rejecting malformed
// decimals and ids before anything touches the store.
func parseLines(serviceDetails []ServiceDetail, partDetails []PartDetail) ([]services.ServiceLineInput, []services.PartLineInput, error) {
	var serviceLines []services.ServiceLineInput
	for _, s := range serviceDetails {
		serviceID, err := common.ValidateUUID(s.ServiceID, "service_id")
		if err != nil {
			return nil, nil, err
		}
		rateID, err := common.ValidateUUID(s.RateID, "rate_id")
		if err != nil {
			return nil, nil, err
		}
		hours, err := billing.ParseHours(s.Hours)
		if err != nil {
			return nil, nil, err
		}
		serviceLines = append(serviceLines, services.ServiceLineInput{
			ServiceID:      serviceID,
			HoursHundredth: hours,
			RateID:         rateID,
		})
	}

	var partLines []services.PartLineInput
	for _, p := range partDetails {
		partID, err := common.ValidateUUID(p.PartID, "part_id")
		if err != nil {
			return nil, nil, err
		}
		cost, err := billing.ParseAmount(p.Cost)
		if err != nil {
			return nil, nil, err
		}
		partLines = append(partLines, services.PartLineInput{
			PartID:        partID,
			Quantity:      p.Quantity,
			UnitCostCents: cost,
		})
	}

	return serviceLines, partLines, nil
}

// Create handles POST /invoices
func (h *InvoiceHandlers) Create(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req CreateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	taxRateID, err := common.ValidateUUID(req.TaxRateID, "tax_rate_id")
	if err != nil {
		return common.SendValidationError(c, "tax_rate_id", err.Error())
	}
	if err := common.ValidateRequiredString(req.Currency, "currency"); err != nil {
		return common.SendValidationError(c, "currency", err.Error())
	}

	createReq := &services.CreateInvoiceRequest{
		TaxRateID: taxRateID,
		Currency:  req.Currency,
	}
	if req.DueDate != "" {
		dueDate, err := common.ValidateDateFormat(req.DueDate, "due_date")
		if err != nil {
			return common.SendValidationError(c, "due_date", err.Error())
		}
		createReq.DueDate = dueDate
	}

	createReq.Services, createReq.Parts, err = parseLines(req.Services, req.Parts)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceSvc.Create(ctx, userID, createReq)
	if err != nil {
		return httpError("create invoice", err)
	}

	return c.JSON(http.StatusCreated, invoiceResponse(invoice, nil))
}

// Update handles PUT /invoices/:id
func (h *InvoiceHandlers) Update(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	var req UpdateInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	taxRateID, err := common.ValidateUUID(req.TaxRateID, "tax_rate_id")
	if err != nil {
		return common.SendValidationError(c, "tax_rate_id", err.Error())
	}

	updateReq := &services.UpdateInvoiceRequest{TaxRateID: taxRateID}
	if req.DueDate != "" {
		dueDate, err := common.ValidateDateFormat(req.DueDate, "due_date")
		if err != nil {
			return common.SendValidationError(c, "due_date", err.Error())
		}
		updateReq.DueDate = dueDate
	}

	updateReq.Services, updateReq.Parts, err = parseLines(req.Services, req.Parts)
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceSvc.Update(ctx, userID, invoiceID, updateReq)
	if err != nil {
		return httpError("update invoice", err)
	}

	return c.JSON(http.StatusOK, invoiceResponse(invoice, nil))
}

// Finalize handles POST /invoices/:id/finalize
func (h *InvoiceHandlers) Finalize(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, err := h.invoiceSvc.Finalize(ctx, userID, invoiceID)
	if err != nil {
		return httpError("finalize invoice", err)
	}

	return c.JSON(http.StatusOK, invoiceResponse(invoice, nil))
}

// Cancel handles POST /invoices/:id/cancel
func (h *InvoiceHandlers) Cancel(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, err := h.invoiceSvc.Cancel(ctx, userID, invoiceID)
	if err != nil {
		return httpError("cancel invoice", err)
	}

	return c.JSON(http.StatusOK, invoiceResponse(invoice, nil))
}

// Get handles GET /invoices/:id
func (h *InvoiceHandlers) Get(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "invoice id")
	if err != nil {
		return common.SendValidationError(c, "id", err.Error())
	}

	invoice, items, err := h.invoiceSvc.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return httpError("get invoice", err)
	}

	return c.JSON(http.StatusOK, invoiceResponse(invoice, items))
}

// List handles GET /invoices
func (h *InvoiceHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	limit := 50
	offset := 0
	if l := c.QueryParam("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if o := c.QueryParam("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	invoices, err := h.invoiceSvc.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return httpError("list invoices", err)
	}

	responses := make([]*InvoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		responses = append(responses, invoiceResponse(invoice, nil))
	}
	return c.JSON(http.StatusOK, responses)
}
