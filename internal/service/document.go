package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"beleg/internal/match"
	"beleg/internal/metrics"
	"beleg/internal/model"
	"beleg/internal/repository"
	"beleg/internal/storage"
)

// ExtractionQueue accepts documents for asynchronous field extraction.
type ExtractionQueue interface {
	Enqueue(organisationID, documentID string)
}

// UploadMeta carries the client-supplied attributes of an uploaded file.
type UploadMeta struct {
	Filename    string
	ContentType string
}

// DocumentService is the core application surface for documents: upload,
// lookup, candidate ranking, linking, and lifecycle actions.
type DocumentService interface {
	CreateFromUpload(ctx context.Context, organisationID string, data []byte, meta UploadMeta) (*model.Document, error)
	Get(ctx context.Context, organisationID, id string) (*model.Document, error)
	List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error)
	DownloadURL(ctx context.Context, organisationID, id string) (string, error)
	RankCandidates(ctx context.Context, organisationID, id string, limit int) ([]match.Candidate, error)
	Link(ctx context.Context, organisationID, aID, bID string) error
	Unlink(ctx context.Context, organisationID, aID, bID string) error
	Ignore(ctx context.Context, organisationID, id string) error
	Defer(ctx context.Context, organisationID, id string) error
	Update(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error
	RetryExtraction(ctx context.Context, organisationID, id string) error
	SoftDelete(ctx context.Context, organisationID, id string) error
}

type documentService struct {
	documents      repository.DocumentRepository
	links          repository.LinkRepository
	store          storage.Storage
	scorer         *match.Scorer
	queue          ExtractionQueue
	metrics        *metrics.Metrics
	candidateLimit int
	now            func() time.Time
}

func NewDocumentService(
	documents repository.DocumentRepository,
	links repository.LinkRepository,
	store storage.Storage,
	scorer *match.Scorer,
	queue ExtractionQueue,
	m *metrics.Metrics,
	candidateLimit int,
) DocumentService {
	return &documentService{
		documents:      documents,
		links:          links,
		store:          store,
		scorer:         scorer,
		queue:          queue,
		metrics:        m,
		candidateLimit: candidateLimit,
		now:            time.Now,
	}
}

// CreateFromUpload stores the file, creates the document with the next
// sequential number, and queues field extraction. Byte-identical re-uploads
// are rejected as duplicates before anything is written.
func (s *documentService) CreateFromUpload(ctx context.Context, organisationID string, data []byte, meta UploadMeta) (*model.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}

	sum := sha256.Sum256(data)
	fileHash := hex.EncodeToString(sum[:])

	if _, err := s.documents.FindByFileHash(ctx, organisationID, model.TypeInvoice, fileHash); err == nil {
		return nil, ErrDuplicate
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	id := uuid.NewString()
	fileRef := fmt.Sprintf("documents/%s/%s.pdf", organisationID, id)

	if _, err := s.store.Put(ctx, fileRef, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: meta.ContentType,
		Metadata:    map[string]string{"filename": meta.Filename},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	doc := &model.Document{
		ID:             id,
		OrganisationID: organisationID,
		Type:           model.TypeInvoice,
		Status:         model.StatusLoading,
		FileHash:       fileHash,
		FileRef:        fileRef,
	}
	created, err := createWithSequenceRetry(ctx, s.documents, doc)
	if err != nil {
		// the document row never landed, so the object must not linger
		_ = s.store.Delete(ctx, fileRef)
		return nil, err
	}

	s.metrics.DocumentsIngested.WithLabelValues("upload").Inc()
	s.queue.Enqueue(organisationID, created.ID)
	return created, nil
}

// createWithSequenceRetry runs the allocation+insert transaction, retrying
// once on lock contention before giving up.
func createWithSequenceRetry(ctx context.Context, documents repository.DocumentRepository, doc *model.Document) (*model.Document, error) {
	created, err := documents.CreateWithSequence(ctx, doc)
	if errors.Is(err, repository.ErrAllocation) {
		created, err = documents.CreateWithSequence(ctx, doc)
	}
	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, repository.ErrConflict):
		return nil, ErrDuplicate
	case errors.Is(err, repository.ErrAllocation):
		return nil, ErrAllocationConflict
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: organisation %s", ErrNotFound, doc.OrganisationID)
	default:
		return nil, err
	}
}

func (s *documentService) Get(ctx context.Context, organisationID, id string) (*model.Document, error) {
	doc, err := s.documents.FindByID(ctx, organisationID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *documentService) List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	return s.documents.List(ctx, organisationID, q)
}

// DownloadURL returns a time-limited URL for the document's stored file.
func (s *documentService) DownloadURL(ctx context.Context, organisationID, id string) (string, error) {
	doc, err := s.Get(ctx, organisationID, id)
	if err != nil {
		return "", err
	}
	if doc.FileRef == "" {
		return "", fmt.Errorf("%w: document has no stored file", ErrValidation)
	}
	url, err := s.store.PresignGet(ctx, doc.FileRef, 15*time.Minute)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return url, nil
}

// RankCandidates scores the unmatched documents of the complementary type
// against the target and returns the top matches.
func (s *documentService) RankCandidates(ctx context.Context, organisationID, id string, limit int) ([]match.Candidate, error) {
	target, err := s.Get(ctx, organisationID, id)
	if err != nil {
		return nil, err
	}
	candidates, err := s.documents.ListCandidates(ctx, organisationID, target.Type.CounterpartType(), target.ID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.candidateLimit
	}
	return s.scorer.Rank(target, candidates, limit), nil
}

// Link pairs two documents of complementary types and marks both matched.
// A document holds at most one active link, so a side that is already
// matched rejects the request.
func (s *documentService) Link(ctx context.Context, organisationID, aID, bID string) error {
	if aID == bID {
		return fmt.Errorf("%w: cannot link a document to itself", ErrValidation)
	}
	a, err := s.Get(ctx, organisationID, aID)
	if err != nil {
		return err
	}
	b, err := s.Get(ctx, organisationID, bID)
	if err != nil {
		return err
	}
	if a.Type == b.Type {
		return fmt.Errorf("%w: can only link an invoice with a bank transaction", ErrValidation)
	}
	if a.Status == model.StatusMatched || b.Status == model.StatusMatched {
		return ErrAlreadyMatched
	}
	if !model.CanTransition(a.Status, model.StatusMatched) || !model.CanTransition(b.Status, model.StatusMatched) {
		return fmt.Errorf("%w: documents must be unmatched to link", ErrValidation)
	}

	_, err = s.links.Link(ctx, &model.DocumentLink{
		ID:               uuid.NewString(),
		OrganisationID:   organisationID,
		Type:             model.LinkTypeBankTransaction,
		DocumentID:       aID,
		LinkedDocumentID: bID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		// both sides existed and were unmatched at the pre-check, so the
		// transaction came up short because a concurrent link claimed one
		// of them first
		return ErrAlreadyMatched
	}
	return err
}

// Unlink removes the pair's link and resets both sides to unmatched,
// regardless of how the link came to be.
func (s *documentService) Unlink(ctx context.Context, organisationID, aID, bID string) error {
	err := s.links.Unlink(ctx, organisationID, aID, bID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotMatched
	}
	return err
}

// Ignore excludes a document from matching. Matched documents must be
// unlinked first.
func (s *documentService) Ignore(ctx context.Context, organisationID, id string) error {
	doc, err := s.Get(ctx, organisationID, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(doc.Status, model.StatusIgnore) {
		return fmt.Errorf("%w: cannot ignore a %s document", ErrValidation, doc.Status)
	}
	return s.documents.UpdateStatus(ctx, organisationID, id, model.StatusIgnore)
}

// Defer stamps the document for later handling without changing its status.
func (s *documentService) Defer(ctx context.Context, organisationID, id string) error {
	err := s.documents.SetLaterAt(ctx, organisationID, id, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Update patches user-editable fields.
func (s *documentService) Update(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error {
	if patch.Amount != nil {
		if _, err := decimal.NewFromString(*patch.Amount); err != nil {
			return fmt.Errorf("%w: invalid amount %q", ErrValidation, *patch.Amount)
		}
	}
	err := s.documents.UpdateFields(ctx, organisationID, id, patch)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// RetryExtraction re-queues extraction for a document whose previous attempt
// failed.
func (s *documentService) RetryExtraction(ctx context.Context, organisationID, id string) error {
	doc, err := s.Get(ctx, organisationID, id)
	if err != nil {
		return err
	}
	if !model.CanTransition(doc.Status, model.StatusLoading) {
		return fmt.Errorf("%w: only errored documents can retry extraction", ErrValidation)
	}
	if doc.FileRef == "" {
		return fmt.Errorf("%w: document has no stored file", ErrValidation)
	}
	if err := s.documents.UpdateStatus(ctx, organisationID, id, model.StatusLoading); err != nil {
		return err
	}
	s.queue.Enqueue(organisationID, id)
	return nil
}

// SoftDelete tombstones the document; it disappears from listings and
// candidate ranking immediately.
func (s *documentService) SoftDelete(ctx context.Context, organisationID, id string) error {
	err := s.documents.SoftDelete(ctx, organisationID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
