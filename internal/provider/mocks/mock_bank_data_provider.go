package mocks

import (
	"context"

	"beleg/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockBankDataProvider struct {
	mock.Mock
}

func (m *MockBankDataProvider) GetAccessToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBankDataProvider) ListInstitutions(ctx context.Context, token, country string) ([]provider.Institution, error) {
	args := m.Called(ctx, token, country)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Institution), args.Error(1)
}

func (m *MockBankDataProvider) CreateRequisition(ctx context.Context, token, institutionID, redirectURL string) (*provider.Requisition, error) {
	args := m.Called(ctx, token, institutionID, redirectURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Requisition), args.Error(1)
}

func (m *MockBankDataProvider) GetRequisition(ctx context.Context, token, requisitionID string) (*provider.Requisition, error) {
	args := m.Called(ctx, token, requisitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Requisition), args.Error(1)
}

func (m *MockBankDataProvider) GetAccount(ctx context.Context, token, accountID string) (*provider.Account, error) {
	args := m.Called(ctx, token, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Account), args.Error(1)
}

func (m *MockBankDataProvider) ListTransactions(ctx context.Context, token, accountID string, recentOnly bool) ([]provider.RawTransaction, error) {
	args := m.Called(ctx, token, accountID, recentOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.RawTransaction), args.Error(1)
}
