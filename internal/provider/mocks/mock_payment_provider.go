package mocks

import (
	"context"

	"beleg/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) GetAccessToken(ctx context.Context, organisationID string) (string, error) {
	args := m.Called(ctx, organisationID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) ListPaidInvoices(ctx context.Context, apiKey string) ([]provider.PaidInvoice, error) {
	args := m.Called(ctx, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.PaidInvoice), args.Error(1)
}

func (m *MockPaymentProvider) FetchInvoicePDF(ctx context.Context, apiKey, invoiceID string) ([]byte, error) {
	args := m.Called(ctx, apiKey, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
