package postgres

import (
	"context"
	"database/sql"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// LinkPostgres is a PostgreSQL implementation of repository.LinkRepository.
type LinkPostgres struct {
	db *sql.DB
}

// NewLinkPostgres creates a new LinkPostgres repository.
func NewLinkPostgres(db *sql.DB) *LinkPostgres {
	return &LinkPostgres{db: db}
}

var _ repository.LinkRepository = (*LinkPostgres)(nil)

// Link inserts the link row and moves both documents to matched inside one
// transaction. The status update only touches unmatched rows, so when a
// concurrent link has already claimed a side fewer than two rows change and
// the whole transaction rolls back.
func (r *LinkPostgres) Link(ctx context.Context, link *model.DocumentLink) (*model.DocumentLink, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(err)
	}
	defer tx.Rollback()

	const qInsert = `
		INSERT INTO document_links (id, organisation_id, type, document_id, linked_document_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, organisation_id, type, document_id, linked_document_id, created_at
	`
	var out model.DocumentLink
	err = tx.QueryRowContext(ctx, qInsert,
		link.ID, link.OrganisationID, link.Type, link.DocumentID, link.LinkedDocumentID,
	).Scan(&out.ID, &out.OrganisationID, &out.Type, &out.DocumentID, &out.LinkedDocumentID, &out.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}

	const qStatus = `
		UPDATE documents SET status = $4, updated_at = now()
		WHERE organisation_id = $1 AND id IN ($2, $3) AND status = $5 AND deleted_at IS NULL
	`
	res, err := tx.ExecContext(ctx, qStatus, link.OrganisationID,
		link.DocumentID, link.LinkedDocumentID, model.StatusMatched, model.StatusUnmatched)
	if err != nil {
		return nil, translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err)
	}
	return &out, nil
}

// Unlink removes the link in either direction and resets both documents to
// unmatched, all in one transaction.
func (r *LinkPostgres) Unlink(ctx context.Context, organisationID, documentID, linkedDocumentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback()

	const qDelete = `
		DELETE FROM document_links
		WHERE organisation_id = $1
		  AND ((document_id = $2 AND linked_document_id = $3)
		    OR (document_id = $3 AND linked_document_id = $2))
	`
	res, err := tx.ExecContext(ctx, qDelete, organisationID, documentID, linkedDocumentID)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	const qStatus = `
		UPDATE documents SET status = $4, updated_at = now()
		WHERE organisation_id = $1 AND id IN ($2, $3) AND deleted_at IS NULL
	`
	if _, err := tx.ExecContext(ctx, qStatus, organisationID,
		documentID, linkedDocumentID, model.StatusUnmatched); err != nil {
		return translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// FindByDocument returns links where the document appears on either side.
func (r *LinkPostgres) FindByDocument(ctx context.Context, organisationID, documentID string) ([]model.DocumentLink, error) {
	const q = `
		SELECT id, organisation_id, type, document_id, linked_document_id, created_at
		FROM document_links
		WHERE organisation_id = $1 AND (document_id = $2 OR linked_document_id = $2)
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, q, organisationID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := make([]model.DocumentLink, 0)
	for rows.Next() {
		var l model.DocumentLink
		if err := rows.Scan(&l.ID, &l.OrganisationID, &l.Type, &l.DocumentID, &l.LinkedDocumentID, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
