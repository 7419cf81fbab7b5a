package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/engage_ai/internal/llm"
)

// MockBackend is a mock implementation of a language-model backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Name() string {
	return "mock"
}

func (m *MockBackend) Family() llm.Family {
	return llm.FamilyChat
}

func (m *MockBackend) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}
