package mocks

import (
	"context"

	"beleg/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockMailProvider struct {
	mock.Mock
}

func (m *MockMailProvider) GetAccessToken(ctx context.Context, organisationID string) (string, error) {
	args := m.Called(ctx, organisationID)
	return args.String(0), args.Error(1)
}

func (m *MockMailProvider) ListEmailsWithAttachments(ctx context.Context, token string, maxResults int, pageToken string) (*provider.MailPage, error) {
	args := m.Called(ctx, token, maxResults, pageToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.MailPage), args.Error(1)
}

func (m *MockMailProvider) ProcessEmail(ctx context.Context, token, emailID string) (*provider.MailMessage, error) {
	args := m.Called(ctx, token, emailID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.MailMessage), args.Error(1)
}
