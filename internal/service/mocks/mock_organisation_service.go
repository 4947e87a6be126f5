package mocks

import (
	"context"

	"beleg/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockOrganisationService struct {
	mock.Mock
}

func (m *MockOrganisationService) Create(ctx context.Context, name string) (*model.Organisation, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}

func (m *MockOrganisationService) Get(ctx context.Context, id string) (*model.Organisation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Organisation), args.Error(1)
}
