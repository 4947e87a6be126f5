// Package provider defines the external data-source contracts: bank account
// data, inbox mail, payment platform invoices, and PDF field extraction.
// Implementations live next to the interfaces; the sync layer only sees these
// types.
package provider

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited reports that the external source throttled the request.
// Callers treat it as "no new items this cycle", not as a hard failure.
var ErrRateLimited = errors.New("provider rate limited")

// ErrNoCredentials reports that the organisation has no credentials for the
// source, so the source is skipped.
var ErrNoCredentials = errors.New("no provider credentials")

// RawTransaction is one booked bank transaction as delivered by the bank
// data provider, before canonicalization.
type RawTransaction struct {
	InternalTransactionID string
	TransactionID         string
	Amount                string
	Currency              string
	BookingDate           string
	RemittanceText        string
	CounterpartyName      string
}

// Institution is a bank selectable for a new connection.
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

// Requisition is a bank connection authorization flow. It is returned to API
// clients, who follow Link to authorize the connection at the bank.
type Requisition struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Link       string   `json:"link"`
	AccountIDs []string `json:"account_ids,omitempty"`
}

// Account is a connected bank account. It is returned to API clients when a
// bank connection completes.
type Account struct {
	ID        string `json:"id"`
	IBAN      string `json:"iban,omitempty"`
	OwnerName string `json:"owner_name,omitempty"`
}

// BankDataProvider serves account data for connected banks. ListTransactions
// must return ErrRateLimited when throttled so callers can distinguish it
// from a hard failure.
type BankDataProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
	ListInstitutions(ctx context.Context, token, country string) ([]Institution, error)
	CreateRequisition(ctx context.Context, token, institutionID, redirectURL string) (*Requisition, error)
	GetRequisition(ctx context.Context, token, requisitionID string) (*Requisition, error)
	GetAccount(ctx context.Context, token, accountID string) (*Account, error)
	ListTransactions(ctx context.Context, token, accountID string, recentOnly bool) ([]RawTransaction, error)
}

// MailAttachment is one file pulled out of an email.
type MailAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MailMessage is a processed email with its attachments decoded.
type MailMessage struct {
	ID          string
	Subject     string
	From        string
	Date        time.Time
	Attachments []MailAttachment
}

// MailPage is one page of an inbox listing.
type MailPage struct {
	MessageIDs    []string
	NextPageToken string
}

// MailProvider lists and fetches emails carrying document attachments.
type MailProvider interface {
	GetAccessToken(ctx context.Context, organisationID string) (string, error)
	ListEmailsWithAttachments(ctx context.Context, token string, maxResults int, pageToken string) (*MailPage, error)
	ProcessEmail(ctx context.Context, token, emailID string) (*MailMessage, error)
}

// PaidInvoice is an invoice reference from the payment platform.
type PaidInvoice struct {
	ID     string
	PDFURL string
}

// PaymentProvider lists paid invoices from the payment platform and fetches
// their PDFs.
type PaymentProvider interface {
	GetAccessToken(ctx context.Context, organisationID string) (string, error)
	ListPaidInvoices(ctx context.Context, apiKey string) ([]PaidInvoice, error)
	FetchInvoicePDF(ctx context.Context, apiKey, invoiceID string) ([]byte, error)
}

// ExtractedFields is the structured result of PDF field extraction.
type ExtractedFields struct {
	Date          *time.Time
	DueDate       *time.Time
	SenderName    string
	RecipientName string
	Number        string
	TotalAmount   string
	CurrencyCode  string
	ShortNote     string
}

// ExtractionService turns PDF bytes into structured invoice fields.
type ExtractionService interface {
	ExtractFields(ctx context.Context, pdf []byte) (*ExtractedFields, error)
}
