package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
	"github.com/unifiedui/mentalbot-service/internal/services/assistant"
)

// MockClassifier is a mock implementation of orchestrator.Classifier.
type MockClassifier struct {
	mock.Mock
}

// Classify classifies the user text.
func (m *MockClassifier) Classify(ctx context.Context, text string) (*assistant.Classification, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.Classification), args.Error(1)
}

// MockGenerator is a mock implementation of orchestrator.Generator.
type MockGenerator struct {
	mock.Mock
}

// Generate produces a reply.
func (m *MockGenerator) Generate(ctx context.Context, text string, history []models.Turn) (string, error) {
	args := m.Called(ctx, text, history)
	return args.String(0), args.Error(1)
}

// MockStore is a mock implementation of session.Store.
type MockStore struct {
	mock.Mock
}

// ResolveOrCreate resolves or creates a session.
func (m *MockStore) ResolveOrCreate(ctx context.Context, id string) (*models.Session, bool) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Session), args.Bool(1)
}

// Append appends a turn.
func (m *MockStore) Append(ctx context.Context, id string, role models.MessageRole, content string) error {
	args := m.Called(ctx, id, role, content)
	return args.Error(0)
}

// History returns the session history.
func (m *MockStore) History(ctx context.Context, id string) ([]models.Turn, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Turn), args.Error(1)
}

// Get returns a live session.
func (m *MockStore) Get(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

// Ping checks the store.
func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the store.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockChatService is a mock implementation of handlers.ChatService.
type MockChatService struct {
	mock.Mock
}

// SendMessage answers a message.
func (m *MockChatService) SendMessage(ctx context.Context, text, sessionID string) *models.OrchestrationResult {
	args := m.Called(ctx, text, sessionID)
	return args.Get(0).(*models.OrchestrationResult)
}

// Session returns a live session.
func (m *MockChatService) Session(ctx context.Context, id string) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
