package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTokenSource is a mock implementation of generation.TokenSource.
type MockTokenSource struct {
	mock.Mock
}

// Token returns the cached token.
func (m *MockTokenSource) Token() string {
	args := m.Called()
	return args.String(0)
}

// Refresh forces a new token.
func (m *MockTokenSource) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}
