package service

// In-memory repository fakes with real transactional semantics, used where
// mocks are too coarse: sequential number allocation under concurrency and
// end-to-end sync runs.

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"beleg/internal/model"
	"beleg/internal/repository"
)

type memDocumentRepo struct {
	mu     sync.Mutex
	nextID map[string]int
	docs   []*model.Document
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{nextID: map[string]int{}}
}

var _ repository.DocumentRepository = (*memDocumentRepo)(nil)

func (r *memDocumentRepo) CreateWithSequence(ctx context.Context, doc *model.Document) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.docs {
		if d.OrganisationID != doc.OrganisationID || d.DeletedAt != nil {
			continue
		}
		if doc.ExternalID != "" && d.Type == doc.Type && d.ExternalID == doc.ExternalID {
			return nil, repository.ErrConflict
		}
		if doc.FileHash != "" && doc.Type == model.TypeInvoice && d.Type == model.TypeInvoice && d.FileHash == doc.FileHash {
			return nil, repository.ErrConflict
		}
	}

	n := r.nextID[doc.OrganisationID]
	if n == 0 {
		n = 1
	}
	r.nextID[doc.OrganisationID] = n + 1

	out := *doc
	out.DocumentID = n
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	r.docs = append(r.docs, &out)
	copied := out
	return &copied, nil
}

func (r *memDocumentRepo) FindByID(ctx context.Context, organisationID, id string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.ID == id && d.DeletedAt == nil {
			copied := *d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memDocumentRepo) FindByExternalID(ctx context.Context, organisationID string, t model.DocumentType, externalID string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.Type == t && d.ExternalID == externalID && d.DeletedAt == nil {
			copied := *d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memDocumentRepo) FindByFileHash(ctx context.Context, organisationID string, t model.DocumentType, fileHash string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.Type == t && d.FileHash == fileHash && d.DeletedAt == nil {
			copied := *d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memDocumentRepo) ListCandidates(ctx context.Context, organisationID string, t model.DocumentType, excludeID string) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.Type == t && d.Status == model.StatusUnmatched &&
			d.ID != excludeID && d.DeletedAt == nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *memDocumentRepo) List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range r.docs {
		if d.OrganisationID != organisationID || d.DeletedAt != nil {
			continue
		}
		if q.Status != "" && d.Status != q.Status {
			continue
		}
		if q.Type != "" && d.Type != q.Type {
			continue
		}
		out = append(out, *d)
	}
	return &repository.PageResult[model.Document]{Items: out, Total: len(out)}, nil
}

func (r *memDocumentRepo) Exists(ctx context.Context, organisationID string, t model.DocumentType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.Type == t && d.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (r *memDocumentRepo) UpdateExtractedFields(ctx context.Context, doc *model.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == doc.OrganisationID && d.ID == doc.ID && d.DeletedAt == nil {
			d.Status = doc.Status
			d.Date = doc.Date
			d.SenderName = doc.SenderName
			d.RecipientName = doc.RecipientName
			d.Number = doc.Number
			d.Amount = doc.Amount
			d.Currency = doc.Currency
			d.Note = doc.Note
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memDocumentRepo) UpdateFields(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error {
	return nil
}

func (r *memDocumentRepo) UpdateStatus(ctx context.Context, organisationID, id string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.ID == id && d.DeletedAt == nil {
			d.Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memDocumentRepo) SetLaterAt(ctx context.Context, organisationID, id string, at time.Time) error {
	return nil
}

func (r *memDocumentRepo) SoftDelete(ctx context.Context, organisationID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.OrganisationID == organisationID && d.ID == id && d.DeletedAt == nil {
			now := time.Now()
			d.DeletedAt = &now
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memDocumentRepo) byType(t model.DocumentType) []model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, 0)
	for _, d := range r.docs {
		if d.Type == t {
			out = append(out, *d)
		}
	}
	return out
}

// memLinkRepo mirrors the postgres link transaction: the status flip only
// moves unmatched rows, and a short flip aborts the whole link.
type memLinkRepo struct {
	mu    sync.Mutex
	docs  *memDocumentRepo
	links []model.DocumentLink

	// beforeLink, when set, runs before the transaction takes effect; tests
	// use it to line up overlapping calls.
	beforeLink func()
}

func newMemLinkRepo(docs *memDocumentRepo) *memLinkRepo {
	return &memLinkRepo{docs: docs}
}

var _ repository.LinkRepository = (*memLinkRepo)(nil)

func (r *memLinkRepo) Link(ctx context.Context, link *model.DocumentLink) (*model.DocumentLink, error) {
	if r.beforeLink != nil {
		r.beforeLink()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pair := []string{link.DocumentID, link.LinkedDocumentID}
	for _, id := range pair {
		doc, err := r.docs.FindByID(ctx, link.OrganisationID, id)
		if err != nil {
			return nil, err
		}
		if doc.Status != model.StatusUnmatched {
			return nil, sql.ErrNoRows
		}
	}
	for _, id := range pair {
		if err := r.docs.UpdateStatus(ctx, link.OrganisationID, id, model.StatusMatched); err != nil {
			return nil, err
		}
	}
	out := *link
	out.CreatedAt = time.Now()
	r.links = append(r.links, out)
	copied := out
	return &copied, nil
}

func (r *memLinkRepo) Unlink(ctx context.Context, organisationID, documentID, linkedDocumentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.links {
		if l.OrganisationID != organisationID {
			continue
		}
		if (l.DocumentID == documentID && l.LinkedDocumentID == linkedDocumentID) ||
			(l.DocumentID == linkedDocumentID && l.LinkedDocumentID == documentID) {
			r.links = append(r.links[:i], r.links[i+1:]...)
			_ = r.docs.UpdateStatus(ctx, organisationID, documentID, model.StatusUnmatched)
			_ = r.docs.UpdateStatus(ctx, organisationID, linkedDocumentID, model.StatusUnmatched)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *memLinkRepo) FindByDocument(ctx context.Context, organisationID, documentID string) ([]model.DocumentLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.DocumentLink, 0)
	for _, l := range r.links {
		if l.OrganisationID == organisationID && (l.DocumentID == documentID || l.LinkedDocumentID == documentID) {
			out = append(out, l)
		}
	}
	return out, nil
}

type memCacheRepo struct {
	mu      sync.Mutex
	entries map[string]model.CacheEntry
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: map[string]model.CacheEntry{}}
}

var _ repository.CacheRepository = (*memCacheRepo)(nil)

func (r *memCacheRepo) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := e
	return &copied, nil
}

func (r *memCacheRepo) Set(ctx context.Context, entry *model.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Key] = *entry
	return nil
}

func (r *memCacheRepo) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}
