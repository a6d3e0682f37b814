package billing

import "errors"

// Closed error taxonomy for the invoice/payment lifecycle. Callers branch on
// these with errors.Is; the HTTP layer maps them to status codes. Anything not
// in this list surfaces as a generic internal error.
var (
	ErrInvalidLineItem     = errors.New("invalid line item")
	ErrEmptyInvoice        = errors.New("invoice has no line items")
	ErrInvalidTransition   = errors.New("invalid invoice status transition")
	ErrAmountMismatch      = errors.New("payment amount does not match invoice total")
	ErrAlreadyPaid         = errors.New("invoice already has a succeeded payment")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrOwnerMismatch       = errors.New("invoice does not belong to caller")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrProviderTimeout     = errors.New("payment provider timed out")
)
