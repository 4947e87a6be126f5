package postgres

import (
	"context"
	"database/sql"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// OrganisationPostgres is a PostgreSQL implementation of repository.OrganisationRepository.
type OrganisationPostgres struct {
	db *sql.DB
}

// NewOrganisationPostgres creates a new OrganisationPostgres repository.
func NewOrganisationPostgres(db *sql.DB) *OrganisationPostgres {
	return &OrganisationPostgres{db: db}
}

var _ repository.OrganisationRepository = (*OrganisationPostgres)(nil)

// Create inserts an organisation with its counter at the initial value.
func (r *OrganisationPostgres) Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error) {
	const q = `
		INSERT INTO organisations (id, name, document_next_id, created_at, updated_at)
		VALUES ($1, $2, 1, now(), now())
		RETURNING id, name, document_next_id, created_at, updated_at
	`
	var out model.Organisation
	err := r.db.QueryRowContext(ctx, q, org.ID, org.Name).Scan(
		&out.ID, &out.Name, &out.DocumentNextID, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &out, nil
}

// FindByID fetches an organisation by id.
func (r *OrganisationPostgres) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	const q = `
		SELECT id, name, document_next_id, created_at, updated_at
		FROM organisations WHERE id = $1
	`
	var out model.Organisation
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&out.ID, &out.Name, &out.DocumentNextID, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
