package repository

import (
	"context"

	"beleg/internal/model"
)

// OrganisationRepository defines data access for organisations. The
// sequential counter column is never written through this interface; only
// DocumentRepository.CreateWithSequence advances it.
type OrganisationRepository interface {
	Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error)
	FindByID(ctx context.Context, id string) (*model.Organisation, error)
}
