package mocks

import (
	"context"

	"beleg/internal/model"
	"beleg/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) SyncOrganisation(ctx context.Context, organisationID string) (*model.SyncSummary, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncSummary), args.Error(1)
}

func (m *MockSyncService) ListInstitutions(ctx context.Context, country string) ([]provider.Institution, error) {
	args := m.Called(ctx, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Institution), args.Error(1)
}

func (m *MockSyncService) ConnectBank(ctx context.Context, organisationID, institutionID, redirectURL string) (*provider.Requisition, error) {
	args := m.Called(ctx, organisationID, institutionID, redirectURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Requisition), args.Error(1)
}

func (m *MockSyncService) CompleteBankConnection(ctx context.Context, organisationID, requisitionID string) ([]provider.Account, error) {
	args := m.Called(ctx, organisationID, requisitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Account), args.Error(1)
}
