package repository

import (
	"context"
	"time"

	"beleg/internal/model"
)

// DocumentPatch carries optional field updates; nil means "keep".
type DocumentPatch struct {
	Note          *string
	RecipientName *string
	Amount        *string
}

// DocumentQuery is an explicit query specification for document listings.
// Filters are combined with AND; zero values mean "no filter". Soft-deleted
// documents are always excluded.
type DocumentQuery struct {
	Status model.Status
	Type   model.DocumentType
	Search string
	PageQuery
}

// DocumentRepository defines data access for documents.
//
// CreateWithSequence is the single write path for new documents: it runs the
// per-organisation sequential id allocation and the insert inside one
// transaction, taking an exclusive row lock on the organisation counter.
type DocumentRepository interface {
	// CreateWithSequence allocates the next per-organisation document number
	// and inserts the document in the same transaction. The caller provides
	// ID, OrganisationID, Type, Status and payload fields; DocumentID,
	// CreatedAt and UpdatedAt are set by the repository. A uniqueness
	// violation on external_id or file_hash returns ErrConflict and leaves
	// no durable side effect (the counter increment rolls back too).
	CreateWithSequence(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a non-deleted document scoped to the organisation.
	FindByID(ctx context.Context, organisationID, id string) (*model.Document, error)

	// FindByExternalID resolves the pulled-record natural key.
	FindByExternalID(ctx context.Context, organisationID string, t model.DocumentType, externalID string) (*model.Document, error)

	// FindByFileHash resolves the uploaded-content natural key.
	FindByFileHash(ctx context.Context, organisationID string, t model.DocumentType, fileHash string) (*model.Document, error)

	// ListCandidates returns non-deleted unmatched documents of the given
	// type, excluding excludeID, in insertion order. Used by the match
	// scorer; insertion order is the tie-break order.
	ListCandidates(ctx context.Context, organisationID string, t model.DocumentType, excludeID string) ([]model.Document, error)

	// List returns a filtered page of non-deleted documents plus a total count.
	List(ctx context.Context, organisationID string, q DocumentQuery) (*PageResult[model.Document], error)

	// Exists reports whether the organisation has any non-deleted document of
	// the given type.
	Exists(ctx context.Context, organisationID string, t model.DocumentType) (bool, error)

	// UpdateExtractedFields writes the structured fields produced by
	// extraction together with the new status.
	UpdateExtractedFields(ctx context.Context, doc *model.Document) error

	// UpdateFields patches note/amount/recipient on a document; nil fields
	// are left untouched.
	UpdateFields(ctx context.Context, organisationID, id string, patch DocumentPatch) error

	// UpdateStatus moves a document to the given status.
	UpdateStatus(ctx context.Context, organisationID, id string, status model.Status) error

	// SetLaterAt stamps the deferral timestamp.
	SetLaterAt(ctx context.Context, organisationID, id string, at time.Time) error

	// SoftDelete sets the tombstone; returns model-not-found semantics
	// (sql.ErrNoRows) when the document does not exist or is already deleted.
	SoftDelete(ctx context.Context, organisationID, id string) error
}
