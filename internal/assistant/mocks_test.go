package assistant

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockBackend mocks the Backend and Canceler interfaces
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) PostMessage(ctx context.Context, threadID string, role Role, text string) (*Message, error) {
	args := m.Called(ctx, threadID, role, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Message), args.Error(1)
}

func (m *MockBackend) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	args := m.Called(ctx, threadID, assistantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Run), args.Error(1)
}

func (m *MockBackend) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	args := m.Called(ctx, threadID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Run), args.Error(1)
}

func (m *MockBackend) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Message), args.Error(1)
}

func (m *MockBackend) CancelRun(ctx context.Context, threadID, runID string) error {
	args := m.Called(ctx, threadID, runID)
	return args.Error(0)
}

func run(id string, status RunStatus) *Run {
	return &Run{ID: id, ThreadID: "thread_1", Status: status}
}

func userMsg(id, text string) Message {
	return Message{ID: id, Role: RoleUser, Parts: []string{text}}
}

func assistantMsg(id, text string) Message {
	return Message{ID: id, Role: RoleAssistant, Parts: []string{text}, RunID: "run_1"}
}
