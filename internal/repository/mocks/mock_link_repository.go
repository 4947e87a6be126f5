package mocks

import (
	"context"

	"beleg/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Link(ctx context.Context, link *model.DocumentLink) (*model.DocumentLink, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentLink), args.Error(1)
}

func (m *MockLinkRepository) Unlink(ctx context.Context, organisationID, documentID, linkedDocumentID string) error {
	args := m.Called(ctx, organisationID, documentID, linkedDocumentID)
	return args.Error(0)
}

func (m *MockLinkRepository) FindByDocument(ctx context.Context, organisationID, documentID string) ([]model.DocumentLink, error) {
	args := m.Called(ctx, organisationID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentLink), args.Error(1)
}
