package chathub_test

import (
	"context"

	"fadechat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
// It uses testify/mock to allow flexible expectation setting in tests.
type MockStorage struct {
	mock.Mock
}

// User operations
func (m *MockStorage) SaveUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockStorage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Chat operations
func (m *MockStorage) CreateChat(ctx context.Context, memberIDs ...string) (*models.Chat, error) {
	args := m.Called(ctx, memberIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

// Message operations
func (m *MockStorage) SaveMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) FindMessageByGuid(ctx context.Context, guid string) (*models.ChatMessage, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) UpdateMessageState(ctx context.Context, guid string, state models.MessageState) error {
	args := m.Called(ctx, guid, state)
	return args.Error(0)
}

func (m *MockStorage) UpdateChatSummary(ctx context.Context, chatID int, senderID, lastMessage string) error {
	args := m.Called(ctx, chatID, senderID, lastMessage)
	return args.Error(0)
}

func (m *MockStorage) RecountUnread(ctx context.Context, chatID int, viewerID string) error {
	args := m.Called(ctx, chatID, viewerID)
	return args.Error(0)
}

// Pending cache operations
func (m *MockStorage) StagePending(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStorage) GetPending(ctx context.Context, guid string) (*models.ChatMessage, error) {
	args := m.Called(ctx, guid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockStorage) EvictPending(ctx context.Context, guid string) error {
	args := m.Called(ctx, guid)
	return args.Error(0)
}
