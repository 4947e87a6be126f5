package mocks

import (
	"context"

	"beleg/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockOrganisationRepository struct {
	mock.Mock
}

func (m *MockOrganisationRepository) Create(ctx context.Context, org *model.Organisation) (*model.Organisation, error) {
	args := m.Called(ctx, org)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}

func (m *MockOrganisationRepository) FindByID(ctx context.Context, id string) (*model.Organisation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}
