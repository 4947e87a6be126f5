package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType distinguishes invoices/receipts from bank transactions.
type DocumentType string

const (
	TypeInvoice         DocumentType = "invoice"
	TypeBankTransaction DocumentType = "bank-transaction"
)

// CounterpartType returns the complementary document type used when ranking
// match candidates (invoice <-> bank-transaction).
func (t DocumentType) CounterpartType() DocumentType {
	if t == TypeInvoice {
		return TypeBankTransaction
	}
	return TypeInvoice
}

// Status is the lifecycle state of a document.
type Status string

const (
	StatusLoading   Status = "loading"
	StatusUnmatched Status = "unmatched"
	StatusMatched   Status = "matched"
	StatusIgnore    Status = "ignore"
	StatusError     Status = "error"
)

// Document represents an invoice/receipt or a bank transaction.
// This is a pure domain model with no database-specific dependencies or tags.
// Amount uses a fixed-point decimal; DocumentID is the per-organisation
// sequential number, distinct from the globally unique ID.
type Document struct {
	ID             string          `json:"id"`
	OrganisationID string          `json:"organisation_id"`
	Type           DocumentType    `json:"type"`
	Status         Status          `json:"status"`
	DocumentID     int             `json:"document_id"`
	Date           *time.Time      `json:"date,omitempty"`
	SenderName     string          `json:"sender_name,omitempty"`
	RecipientName  string          `json:"recipient_name,omitempty"`
	Number         string          `json:"number,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
	Description    string          `json:"description,omitempty"`
	Note           string          `json:"note,omitempty"`
	ExternalID     string          `json:"external_id,omitempty"`
	FileHash       string          `json:"file_hash,omitempty"`
	FileRef        string          `json:"file_ref,omitempty"`
	LaterAt        *time.Time      `json:"later_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// Deleted reports whether the document carries a soft-delete tombstone.
func (d *Document) Deleted() bool {
	return d.DeletedAt != nil
}
