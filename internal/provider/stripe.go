package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"beleg/internal/config"
)

// StripeClient lists paid invoices on the Stripe API and downloads their
// PDFs. The per-organisation API key is resolved by the credential lookup
// the client is constructed with.
type StripeClient struct {
	baseURL    string
	keyLookup  func(ctx context.Context, organisationID string) (string, error)
	httpClient *http.Client
}

var _ PaymentProvider = (*StripeClient)(nil)

func NewStripeClient(cfg config.PaymentProviderConfig, keyLookup func(ctx context.Context, organisationID string) (string, error)) *StripeClient {
	return &StripeClient{
		baseURL:   cfg.BaseURL,
		keyLookup: keyLookup,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetAccessToken resolves the organisation's API key. ErrNoCredentials means
// the organisation has not connected the payment platform.
func (c *StripeClient) GetAccessToken(ctx context.Context, organisationID string) (string, error) {
	if c.keyLookup == nil {
		return "", ErrNoCredentials
	}
	key, err := c.keyLookup(ctx, organisationID)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrNoCredentials
	}
	return key, nil
}

// ListPaidInvoices pages through paid invoices, newest first as the API
// returns them.
func (c *StripeClient) ListPaidInvoices(ctx context.Context, apiKey string) ([]PaidInvoice, error) {
	invoices := make([]PaidInvoice, 0)
	params := url.Values{"status": {"paid"}, "limit": {"100"}}

	for {
		var page struct {
			Data []struct {
				ID         string `json:"id"`
				InvoicePDF string `json:"invoice_pdf"`
			} `json:"data"`
			HasMore bool `json:"has_more"`
		}
		if err := c.get(ctx, apiKey, "/v1/invoices?"+params.Encode(), &page); err != nil {
			return nil, err
		}
		for _, inv := range page.Data {
			invoices = append(invoices, PaidInvoice{ID: inv.ID, PDFURL: inv.InvoicePDF})
		}
		if !page.HasMore || len(page.Data) == 0 {
			return invoices, nil
		}
		params.Set("starting_after", page.Data[len(page.Data)-1].ID)
	}
}

// FetchInvoicePDF downloads the PDF for one invoice.
func (c *StripeClient) FetchInvoicePDF(ctx context.Context, apiKey, invoiceID string) ([]byte, error) {
	var inv struct {
		InvoicePDF string `json:"invoice_pdf"`
	}
	if err := c.get(ctx, apiKey, "/v1/invoices/"+invoiceID, &inv); err != nil {
		return nil, err
	}
	if inv.InvoicePDF == "" {
		return nil, fmt.Errorf("invoice %s has no pdf", invoiceID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, inv.InvoicePDF, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch invoice pdf %s: status %d", invoiceID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *StripeClient) get(ctx context.Context, apiKey, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("payment provider GET %s: status %d: %s", path, resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
