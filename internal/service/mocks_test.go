package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/intel"
)

// MockBackend mocks the assistant.Backend interface
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) PostMessage(ctx context.Context, threadID string, role assistant.Role, text string) (*assistant.Message, error) {
	args := m.Called(ctx, threadID, role, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.Message), args.Error(1)
}

func (m *MockBackend) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	args := m.Called(ctx, threadID, assistantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.Run), args.Error(1)
}

func (m *MockBackend) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	args := m.Called(ctx, threadID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*assistant.Run), args.Error(1)
}

func (m *MockBackend) ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]assistant.Message), args.Error(1)
}

// MockGatherer mocks the IntelGatherer interface
type MockGatherer struct {
	mock.Mock
}

func (m *MockGatherer) Gather(ctx context.Context, query string) intel.Result {
	args := m.Called(ctx, query)
	return args.Get(0).(intel.Result)
}
