package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"billhive/internal/billing"
)

// PaymentProvider is the external payment gateway. BeginTransaction opens a
// transaction for an amount; GetTransactionStatus polls for terminal state.
// GetTransactionByReference resolves a transaction by the reference id we
// supplied at begin time, for attempts whose provider ref was never received.
type PaymentProvider interface {
	BeginTransaction(ctx context.Context, req *BeginTransactionRequest) (*BeginTransactionResponse, error)
	GetTransactionStatus(ctx context.Context, providerRef string) (string, error)
	GetTransactionByReference(ctx context.Context, referenceID string) (providerRef, status string, err error)
}

// Provider-reported transaction statuses.
const (
	ProviderStatusCreated   = "created"
	ProviderStatusSucceeded = "succeeded"
	ProviderStatusFailed    = "failed"
)

type BeginTransactionRequest struct {
	ReferenceID string `json:"reference_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
}

type BeginTransactionResponse struct {
	ProviderRef string  `json:"provider_ref"`
	Status      string  `json:"status"`
	RedirectURL *string `json:"redirect_url,omitempty"`
}

type httpPaymentProvider struct {
	apiKey    string
	apiSecret string
	baseURL   string
	http      *http.Client
}

// NewHTTPPaymentProvider creates a provider client backed by the gateway's
// REST API. Credentials and base URL come from configuration.
func NewHTTPPaymentProvider(baseURL, apiKey, apiSecret string) PaymentProvider {
	return &httpPaymentProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		http:      &http.Client{},
	}
}

func (p *httpPaymentProvider) BeginTransaction(ctx context.Context, req *BeginTransactionRequest) (*BeginTransactionResponse, error) {
	body, err := p.makeRequest(ctx, http.MethodPost, "/transactions", req)
	if err != nil {
		return nil, err
	}

	var resp BeginTransactionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}
	if resp.ProviderRef == "" {
		return nil, fmt.Errorf("provider returned no transaction reference")
	}
	return &resp, nil
}

func (p *httpPaymentProvider) GetTransactionStatus(ctx context.Context, providerRef string) (string, error) {
	body, err := p.makeRequest(ctx, http.MethodGet, "/transactions/"+providerRef, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse provider response: %w", err)
	}
	return resp.Status, nil
}

func (p *httpPaymentProvider) GetTransactionByReference(ctx context.Context, referenceID string) (string, string, error) {
	body, err := p.makeRequest(ctx, http.MethodGet, "/transactions/by-reference/"+referenceID, nil)
	if err != nil {
		return "", "", err
	}

	var resp struct {
		ProviderRef string `json:"provider_ref"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", fmt.Errorf("failed to parse provider response: %w", err)
	}
	if resp.ProviderRef == "" {
		return "", "", fmt.Errorf("provider returned no transaction reference")
	}
	return resp.ProviderRef, resp.Status, nil
}

func (p *httpPaymentProvider) makeRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(p.apiKey, p.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", billing.ErrProviderTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
