package mocks

import (
	"context"

	"beleg/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) ExtractFields(ctx context.Context, pdf []byte) (*provider.ExtractedFields, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ExtractedFields), args.Error(1)
}
