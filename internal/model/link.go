package model

import "time"

// DocumentLink associates a matched pair of documents within one
// organisation. It always references two distinct documents and is created
// and removed as a unit with the status transitions on both sides.
type DocumentLink struct {
	ID               string    `json:"id"`
	OrganisationID   string    `json:"organisation_id"`
	Type             string    `json:"type"`
	DocumentID       string    `json:"document_id"`
	LinkedDocumentID string    `json:"linked_document_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// LinkTypeBankTransaction is the link type for invoice/bank-transaction pairs.
const LinkTypeBankTransaction = "bank-transaction"
