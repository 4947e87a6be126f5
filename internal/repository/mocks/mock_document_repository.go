package mocks

import (
	"context"
	"time"

	"beleg/internal/model"
	"beleg/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) CreateWithSequence(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, organisationID, id string) (*model.Document, error) {
	args := m.Called(ctx, organisationID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByExternalID(ctx context.Context, organisationID string, t model.DocumentType, externalID string) (*model.Document, error) {
	args := m.Called(ctx, organisationID, t, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByFileHash(ctx context.Context, organisationID string, t model.DocumentType, fileHash string) (*model.Document, error) {
	args := m.Called(ctx, organisationID, t, fileHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListCandidates(ctx context.Context, organisationID string, t model.DocumentType, excludeID string) ([]model.Document, error) {
	args := m.Called(ctx, organisationID, t, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, organisationID string, q repository.DocumentQuery) (*repository.PageResult[model.Document], error) {
	args := m.Called(ctx, organisationID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Document]), args.Error(1)
}

func (m *MockDocumentRepository) Exists(ctx context.Context, organisationID string, t model.DocumentType) (bool, error) {
	args := m.Called(ctx, organisationID, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepository) UpdateExtractedFields(ctx context.Context, doc *model.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateFields(ctx context.Context, organisationID, id string, patch repository.DocumentPatch) error {
	args := m.Called(ctx, organisationID, id, patch)
	return args.Error(0)
}

func (m *MockDocumentRepository) UpdateStatus(ctx context.Context, organisationID, id string, status model.Status) error {
	args := m.Called(ctx, organisationID, id, status)
	return args.Error(0)
}

func (m *MockDocumentRepository) SetLaterAt(ctx context.Context, organisationID, id string, at time.Time) error {
	args := m.Called(ctx, organisationID, id, at)
	return args.Error(0)
}

func (m *MockDocumentRepository) SoftDelete(ctx context.Context, organisationID, id string) error {
	args := m.Called(ctx, organisationID, id)
	return args.Error(0)
}
