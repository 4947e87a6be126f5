package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, organisation_id, type, status, document_id, date,
	sender_name, recipient_name, number, amount, currency, description, note,
	external_id, file_hash, file_ref, later_at, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d                             model.Document
		date, laterAt, deletedAt      sql.NullTime
		sender, recipient, number     sql.NullString
		amount, currency, description sql.NullString
		note, externalID              sql.NullString
		fileHash, fileRef             sql.NullString
	)
	if err := row.Scan(
		&d.ID,
		&d.OrganisationID,
		&d.Type,
		&d.Status,
		&d.DocumentID,
		&date,
		&sender,
		&recipient,
		&number,
		&amount,
		&currency,
		&description,
		&note,
		&externalID,
		&fileHash,
		&fileRef,
		&laterAt,
		&d.CreatedAt,
		&d.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}
	d.Date = timeOrNil(date)
	d.SenderName = stringOrEmpty(sender)
	d.RecipientName = stringOrEmpty(recipient)
	d.Number = stringOrEmpty(number)
	d.Amount = decimalOrZero(amount)
	d.Currency = stringOrEmpty(currency)
	d.Description = stringOrEmpty(description)
	d.Note = stringOrEmpty(note)
	d.ExternalID = stringOrEmpty(externalID)
	d.FileHash = stringOrEmpty(fileHash)
	d.FileRef = stringOrEmpty(fileRef)
	d.LaterAt = timeOrNil(laterAt)
	d.DeletedAt = timeOrNil(deletedAt)
	return &d, nil
}

// CreateWithSequence allocates the next per-organisation document number and
// inserts the row in one transaction. The counter UPDATE takes an exclusive
// row lock on the organisation, serializing concurrent allocations; if the
// insert fails, the increment rolls back with it and no number is burned.
func (r *DocumentPostgres) CreateWithSequence(ctx context.Context, doc *model.Document) (*model.Document, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateError(err)
	}
	defer tx.Rollback()

	const qAlloc = `
		UPDATE organisations
		SET document_next_id = document_next_id + 1, updated_at = now()
		WHERE id = $1
		RETURNING document_next_id - 1
	`
	var nextID int
	if err := tx.QueryRowContext(ctx, qAlloc, doc.OrganisationID).Scan(&nextID); err != nil {
		return nil, translateError(err)
	}

	const qInsert = `
		INSERT INTO documents (id, organisation_id, type, status, document_id, date,
			sender_name, recipient_name, number, amount, currency, description, note,
			external_id, file_hash, file_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
		RETURNING ` + documentColumns
	row := tx.QueryRowContext(ctx, qInsert,
		doc.ID,
		doc.OrganisationID,
		doc.Type,
		doc.Status,
		nextID,
		nullTime(doc.Date),
		nullString(doc.SenderName),
		nullString(doc.RecipientName),
		nullString(doc.Number),
		doc.Amount.StringFixed(2),
		nullString(doc.Currency),
		nullString(doc.Description),
		nullString(doc.Note),
		nullString(doc.ExternalID),
		nullString(doc.FileHash),
		nullString(doc.FileRef),
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, translateError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

// FindByID fetches a non-deleted document scoped to the organisation.
func (r *DocumentPostgres) FindByID(ctx context.Context, organisationID, id string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE id = $1 AND organisation_id = $2 AND ` + activeDocuments
	return scanDocument(r.db.QueryRowContext(ctx, q, id, organisationID))
}

// FindByExternalID resolves the pulled-record natural key within (organisation, type).
func (r *DocumentPostgres) FindByExternalID(ctx context.Context, organisationID string, t model.DocumentType, externalID string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE organisation_id = $1 AND type = $2 AND external_id = $3 AND ` + activeDocuments + `
		LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, organisationID, t, externalID))
}

// FindByFileHash resolves the uploaded-content natural key within (organisation, type).
func (r *DocumentPostgres) FindByFileHash(ctx context.Context, organisationID string, t model.DocumentType, fileHash string) (*model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE organisation_id = $1 AND type = $2 AND file_hash = $3 AND ` + activeDocuments + `
		LIMIT 1`
	return scanDocument(r.db.QueryRowContext(ctx, q, organisationID, t, fileHash))
}

// ListCandidates returns unmatched documents of the given type in insertion
// order, excluding the target document itself.
func (r *DocumentPostgres) ListCandidates(ctx context.Context, organisationID string, t model.DocumentType, excludeID string) ([]model.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents
		WHERE organisation_id = $1 AND type = $2 AND status = $3 AND id <> $4 AND ` + activeDocuments + `
		ORDER BY document_id ASC`
	rows, err := r.db.QueryContext(ctx, q, organisationID, t, model.StatusUnmatched, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// searchClauses is the per-type strategy for the free-text filter: invoices
// match on extracted fields, bank transactions on the remittance text.
var searchClauses = map[model.DocumentType]string{
	model.TypeInvoice:         "(number ILIKE %[1]s OR sender_name ILIKE %[1]s OR note ILIKE %[1]s)",
	model.TypeBankTransaction: "(description ILIKE %[1]s OR CAST(amount AS TEXT) LIKE %[1]s)",
}

// List returns documents matching the query specification plus a total count.
func (r *DocumentPostgres) List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	where := []string{"organisation_id = $1", activeDocuments}
	args := []any{organisationID}

	if q.Status != "" {
		args = append(args, q.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q.Type != "" {
		args = append(args, q.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if q.Search != "" {
		clause, ok := searchClauses[q.Type]
		if !ok {
			clause = "(description ILIKE %[1]s OR number ILIKE %[1]s OR sender_name ILIKE %[1]s)"
		}
		args = append(args, "%"+q.Search+"%")
		where = append(where, fmt.Sprintf(clause, fmt.Sprintf("$%d", len(args))))
	}

	cond := strings.Join(where, " AND ")

	var total int
	qCount := `SELECT COUNT(*) FROM documents WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, qCount, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	qList := fmt.Sprintf(`SELECT %s FROM documents WHERE %s
		ORDER BY document_id DESC
		LIMIT $%d OFFSET $%d`, documentColumns, cond, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{Items: items, Total: total}, nil
}

// Exists reports whether the organisation has any non-deleted document of the type.
func (r *DocumentPostgres) Exists(ctx context.Context, organisationID string, t model.DocumentType) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM documents WHERE organisation_id = $1 AND type = $2 AND ` + activeDocuments + `
	)`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, organisationID, t).Scan(&exists)
	return exists, err
}

// UpdateExtractedFields writes the structured fields produced by extraction
// together with the new status.
func (r *DocumentPostgres) UpdateExtractedFields(ctx context.Context, doc *model.Document) error {
	const q = `
		UPDATE documents
		SET status = $3, date = $4, sender_name = $5, recipient_name = $6,
			number = $7, amount = $8, currency = $9, note = $10, updated_at = now()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q,
		doc.ID,
		doc.OrganisationID,
		doc.Status,
		nullTime(doc.Date),
		nullString(doc.SenderName),
		nullString(doc.RecipientName),
		nullString(doc.Number),
		doc.Amount.StringFixed(2),
		nullString(doc.Currency),
		nullString(doc.Note),
	)
	if err != nil {
		return translateError(err)
	}
	return requireRow(res)
}

// UpdateFields patches note/amount/recipient; nil patch fields keep the
// current value via COALESCE.
func (r *DocumentPostgres) UpdateFields(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error {
	const q = `
		UPDATE documents
		SET note = COALESCE($3, note),
			recipient_name = COALESCE($4, recipient_name),
			amount = COALESCE(CAST($5 AS NUMERIC), amount),
			updated_at = now()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, organisationID, patch.Note, patch.RecipientName, patch.Amount)
	if err != nil {
		return translateError(err)
	}
	return requireRow(res)
}

// UpdateStatus moves a document to the given status.
func (r *DocumentPostgres) UpdateStatus(ctx context.Context, organisationID, id string, status model.Status) error {
	const q = `
		UPDATE documents SET status = $3, updated_at = now()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, organisationID, status)
	if err != nil {
		return translateError(err)
	}
	return requireRow(res)
}

// SetLaterAt stamps the deferral timestamp.
func (r *DocumentPostgres) SetLaterAt(ctx context.Context, organisationID, id string, at time.Time) error {
	const q = `
		UPDATE documents SET later_at = $3, updated_at = now()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, organisationID, at)
	if err != nil {
		return translateError(err)
	}
	return requireRow(res)
}

// SoftDelete sets the tombstone. Only rows not already deleted are touched.
func (r *DocumentPostgres) SoftDelete(ctx context.Context, organisationID, id string) error {
	const q = `
		UPDATE documents SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, id, organisationID)
	if err != nil {
		return translateError(err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
