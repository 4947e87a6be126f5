package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"beleg/internal/model"
	"beleg/internal/repository"
)

// OrganisationService manages the tenant records that own documents.
type OrganisationService interface {
	Create(ctx context.Context, name string) (*model.Organisation, error)
	Get(ctx context.Context, id string) (*model.Organisation, error)
}

type organisationService struct {
	organisations repository.OrganisationRepository
}

func NewOrganisationService(organisations repository.OrganisationRepository) OrganisationService {
	return &organisationService{organisations: organisations}
}

func (s *organisationService) Create(ctx context.Context, name string) (*model.Organisation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: organisation name is required", ErrValidation)
	}
	return s.organisations.Create(ctx, &model.Organisation{ID: uuid.NewString(), Name: name})
}

func (s *organisationService) Get(ctx context.Context, id string) (*model.Organisation, error) {
	org, err := s.organisations.FindByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return org, err
}
