package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"beleg/internal/config"
)

// ExtractionClient calls the document extraction HTTP service, which turns a
// PDF into structured invoice fields.
type ExtractionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ ExtractionService = (*ExtractionClient)(nil)

func NewExtractionClient(cfg config.ExtractionConfig) *ExtractionClient {
	return &ExtractionClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			// Extraction runs models server-side and can be slow.
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// ExtractFields posts the PDF and decodes the structured result. Dates come
// back as YYYY-MM-DD; unparseable dates are dropped rather than failing the
// whole extraction.
func (c *ExtractionClient) ExtractFields(ctx context.Context, pdf []byte) (*ExtractedFields, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("extraction service not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(pdf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/pdf")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
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
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction POST /v1/extract: status %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Date          string `json:"date"`
		DueDate       string `json:"due_date"`
		SenderName    string `json:"sender_name"`
		RecipientName string `json:"recipient_name"`
		Number        string `json:"number"`
		TotalAmount   string `json:"total_amount"`
		CurrencyCode  string `json:"currency_code"`
		ShortNote     string `json:"short_note"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	fields := &ExtractedFields{
		SenderName:    out.SenderName,
		RecipientName: out.RecipientName,
		Number:        out.Number,
		TotalAmount:   out.TotalAmount,
		CurrencyCode:  out.CurrencyCode,
		ShortNote:     out.ShortNote,
	}
	fields.Date = parseISODate(out.Date)
	fields.DueDate = parseISODate(out.DueDate)
	return fields, nil
}

func parseISODate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
