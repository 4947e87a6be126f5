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

// GoCardlessClient talks to the GoCardless Bank Account Data API.
type GoCardlessClient struct {
	baseURL    string
	secretID   string
	secretKey  string
	recentDays int
	httpClient *http.Client
}

var _ BankDataProvider = (*GoCardlessClient)(nil)

func NewGoCardlessClient(cfg config.BankProviderConfig, recentDays int) *GoCardlessClient {
	return &GoCardlessClient{
		baseURL:    cfg.BaseURL,
		secretID:   cfg.SecretID,
		secretKey:  cfg.SecretKey,
		recentDays: recentDays,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// GetAccessToken exchanges the secret pair for a short-lived access token.
func (c *GoCardlessClient) GetAccessToken(ctx context.Context) (string, error) {
	if c.secretID == "" || c.secretKey == "" {
		return "", ErrNoCredentials
	}
	body := map[string]string{"secret_id": c.secretID, "secret_key": c.secretKey}
	var out struct {
		Access string `json:"access"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v2/token/new/", "", body, &out); err != nil {
		return "", err
	}
	return out.Access, nil
}

func (c *GoCardlessClient) ListInstitutions(ctx context.Context, token, country string) ([]Institution, error) {
	var out []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Logo string `json:"logo"`
	}
	path := fmt.Sprintf("/api/v2/institutions/?country=%s", country)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	institutions := make([]Institution, 0, len(out))
	for _, i := range out {
		institutions = append(institutions, Institution{ID: i.ID, Name: i.Name, Logo: i.Logo})
	}
	return institutions, nil
}

func (c *GoCardlessClient) CreateRequisition(ctx context.Context, token, institutionID, redirectURL string) (*Requisition, error) {
	body := map[string]string{"institution_id": institutionID, "redirect": redirectURL}
	var out requisitionPayload
	if err := c.do(ctx, http.MethodPost, "/api/v2/requisitions/", token, body, &out); err != nil {
		return nil, err
	}
	return out.toRequisition(), nil
}

func (c *GoCardlessClient) GetRequisition(ctx context.Context, token, requisitionID string) (*Requisition, error) {
	var out requisitionPayload
	path := fmt.Sprintf("/api/v2/requisitions/%s/", requisitionID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return out.toRequisition(), nil
}

func (c *GoCardlessClient) GetAccount(ctx context.Context, token, accountID string) (*Account, error) {
	var out struct {
		Account struct {
			IBAN      string `json:"iban"`
			OwnerName string `json:"ownerName"`
		} `json:"account"`
	}
	path := fmt.Sprintf("/api/v2/accounts/%s/details/", accountID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &Account{ID: accountID, IBAN: out.Account.IBAN, OwnerName: out.Account.OwnerName}, nil
}

// ListTransactions returns the booked transactions for the account. With
// recentOnly set, only the trailing recent-window days are requested to bound
// provider cost. A throttled response surfaces as ErrRateLimited.
func (c *GoCardlessClient) ListTransactions(ctx context.Context, token, accountID string, recentOnly bool) ([]RawTransaction, error) {
	path := fmt.Sprintf("/api/v2/accounts/%s/transactions/", accountID)
	if recentOnly {
		from := time.Now().AddDate(0, 0, -c.recentDays).Format("2006-01-02")
		path += "?date_from=" + from
	}
	var out struct {
		Transactions struct {
			Booked []struct {
				InternalTransactionID string `json:"internalTransactionId"`
				TransactionID         string `json:"transactionId"`
				BookingDate           string `json:"bookingDate"`
				TransactionAmount     struct {
					Amount   string `json:"amount"`
					Currency string `json:"currency"`
				} `json:"transactionAmount"`
				RemittanceInformationUnstructured string `json:"remittanceInformationUnstructured"`
				CreditorName                      string `json:"creditorName"`
				DebtorName                        string `json:"debtorName"`
			} `json:"booked"`
		} `json:"transactions"`
	}
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}

	txs := make([]RawTransaction, 0, len(out.Transactions.Booked))
	for _, b := range out.Transactions.Booked {
		counterparty := b.CreditorName
		if counterparty == "" {
			counterparty = b.DebtorName
		}
		txs = append(txs, RawTransaction{
			InternalTransactionID: b.InternalTransactionID,
			TransactionID:         b.TransactionID,
			Amount:                b.TransactionAmount.Amount,
			Currency:              b.TransactionAmount.Currency,
			BookingDate:           b.BookingDate,
			RemittanceText:        b.RemittanceInformationUnstructured,
			CounterpartyName:      counterparty,
		})
	}
	return txs, nil
}

type requisitionPayload struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Link     string   `json:"link"`
	Accounts []string `json:"accounts"`
}

func (p *requisitionPayload) toRequisition() *Requisition {
	return &Requisition{ID: p.ID, Status: p.Status, Link: p.Link, AccountIDs: p.Accounts}
}

func (c *GoCardlessClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bank provider %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
