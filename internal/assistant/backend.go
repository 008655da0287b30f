package assistant

import (
	"context"
	"strings"
	"time"
)

// Role represents the author of a message or turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RunStatus is the lifecycle state of a run as reported by the backend
type RunStatus string

const (
	RunCreated        RunStatus = "created"
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
	RunIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether the run can no longer change state.
// Unknown statuses are treated as still pending.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired, RunIncomplete:
		return true
	}
	return false
}

// Succeeded reports whether the run finished with output
func (s RunStatus) Succeeded() bool {
	return s == RunCompleted
}

var runTransitions = map[RunStatus]map[RunStatus]struct{}{
	RunCreated: {
		RunQueued:     {},
		RunInProgress: {},
		RunFailed:     {},
		RunCompleted:  {},
	},
	RunQueued: {
		RunInProgress: {},
		RunCancelling: {},
		RunCancelled:  {},
		RunFailed:     {},
		RunExpired:    {},
		RunCompleted:  {},
	},
	RunInProgress: {
		RunRequiresAction: {},
		RunCancelling:     {},
		RunCompleted:      {},
		RunFailed:         {},
		RunExpired:        {},
		RunIncomplete:     {},
	},
	RunRequiresAction: {
		RunInProgress: {},
		RunCancelling: {},
		RunExpired:    {},
		RunFailed:     {},
	},
	RunCancelling: {
		RunCancelled: {},
		RunCompleted: {},
		RunFailed:    {},
	},
}

// CanTransition reports whether a run may move from one observed status to another.
// Observing the same status twice is always allowed.
func CanTransition(from, to RunStatus) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	next, ok := runTransitions[from]
	if !ok {
		return true
	}
	_, ok = next[to]
	return ok
}

// RunError carries the backend's diagnostic for a failed run
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is one asynchronous processing cycle on a thread
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Message is a single record stored on a backend thread
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []string  `json:"parts"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Text joins the text parts of the message
func (m Message) Text() string {
	return strings.TrimSpace(strings.Join(m.Parts, "\n"))
}

// Backend is the remote conversation service a Session drives
type Backend interface {
	// CreateThread opens a new conversation thread and returns its id
	CreateThread(ctx context.Context) (string, error)

	// PostMessage appends a message to the thread
	PostMessage(ctx context.Context, threadID string, role Role, text string) (*Message, error)

	// CreateRun asks the assistant to process the thread
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)

	// GetRun returns the current state of a run
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)

	// ListMessages returns the thread's messages, most recent first
	ListMessages(ctx context.Context, threadID string) ([]Message, error)
}

// Canceler is implemented by backends that can abort an in-flight run
type Canceler interface {
	CancelRun(ctx context.Context, threadID, runID string) error
}

// ThreadDeleter is implemented by backends that hold thread state which must be
// released once a session lets go of the thread
type ThreadDeleter interface {
	DeleteThread(ctx context.Context, threadID string) error
}
