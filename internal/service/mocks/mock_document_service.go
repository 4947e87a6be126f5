package mocks

import (
	"context"

	"beleg/internal/match"
	"beleg/internal/model"
	"beleg/internal/repository"
	"beleg/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) CreateFromUpload(ctx context.Context, organisationID string, data []byte, meta service.UploadMeta) (*model.Document, error) {
	args := m.Called(ctx, organisationID, data, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, organisationID, id string) (*model.Document, error) {
	args := m.Called(ctx, organisationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, organisationID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentService) DownloadURL(ctx context.Context, organisationID, id string) (string, error) {
	args := m.Called(ctx, organisationID, id)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) RankCandidates(ctx context.Context, organisationID, id string, limit int) ([]match.Candidate, error) {
	args := m.Called(ctx, organisationID, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]match.Candidate), args.Error(1)
}

func (m *MockDocumentService) Link(ctx context.Context, organisationID, aID, bID string) error {
	args := m.Called(ctx, organisationID, aID, bID)
	return args.Error(0)
}

func (m *MockDocumentService) Unlink(ctx context.Context, organisationID, aID, bID string) error {
	args := m.Called(ctx, organisationID, aID, bID)
	return args.Error(0)
}

func (m *MockDocumentService) Ignore(ctx context.Context, organisationID, id string) error {
	args := m.Called(ctx, organisationID, id)
	return args.Error(0)
}

func (m *MockDocumentService) Defer(ctx context.Context, organisationID, id string) error {
	args := m.Called(ctx, organisationID, id)
	return args.Error(0)
}

func (m *MockDocumentService) Update(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error {
	args := m.Called(ctx, organisationID, id, patch)
	return args.Error(0)
}

func (m *MockDocumentService) RetryExtraction(ctx context.Context, organisationID, id string) error {
	args := m.Called(ctx, organisationID, id)
	return args.Error(0)
}

func (m *MockDocumentService) SoftDelete(ctx context.Context, organisationID, id string) error {
	args := m.Called(ctx, organisationID, id)
	return args.Error(0)
}
