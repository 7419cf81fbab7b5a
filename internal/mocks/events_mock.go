package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/omriShneor/engage_ai/internal/analysis"
	"github.com/omriShneor/engage_ai/internal/events"
)

// MockPublisher is a mock implementation of an event sink
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Envelope) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockRecorder is a mock implementation of the analysis result ledger
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, result *analysis.Result, rctx analysis.RequestContext) error {
	args := m.Called(ctx, result, rctx)
	return args.Error(0)
}
