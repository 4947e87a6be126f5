package repository

import (
	"context"

	"beleg/internal/model"
)

// LinkRepository defines data access for document links. Link and Unlink
// mutate the link row and both documents' statuses in one transaction so a
// matched pair can never be half-written.
type LinkRepository interface {
	// Link inserts the link row and sets both documents to matched.
	Link(ctx context.Context, link *model.DocumentLink) (*model.DocumentLink, error)

	// Unlink removes the link row(s) between the pair (in either direction)
	// and resets both documents to unmatched.
	Unlink(ctx context.Context, organisationID, documentID, linkedDocumentID string) error

	// FindByDocument returns the active links touching a document.
	FindByDocument(ctx context.Context, organisationID, documentID string) ([]model.DocumentLink, error)
}
