// Package chat emulates assistant threads and runs on top of a chat-completion provider.
package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/llm"
)

// DefaultRunTimeout bounds one provider call
const DefaultRunTimeout = 2 * time.Minute

// Resolver finds the provider serving an assistant identifier
type Resolver interface {
	GetProvider(name string) (llm.Provider, error)
}

// Options tune the completions issued for each run
type Options struct {
	System      string
	Model       string
	Temperature *float64
	MaxTokens   int
	RunTimeout  time.Duration
}

// Backend implements assistant.Backend, assistant.Canceler and
// assistant.ThreadDeleter in memory
type Backend struct {
	resolver Resolver
	opts     Options

	mu      sync.Mutex
	threads map[string]*thread
	wg      sync.WaitGroup
}

type thread struct {
	messages []assistant.Message
	runs     map[string]*assistant.Run
	cancels  map[string]context.CancelFunc
	active   string
}

// NewBackend creates a chat backend
func NewBackend(resolver Resolver, opts Options) *Backend {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	return &Backend{
		resolver: resolver,
		opts:     opts,
		threads:  make(map[string]*thread),
	}
}

// CreateThread opens a new in-memory thread
func (b *Backend) CreateThread(ctx context.Context) (string, error) {
	id := "thread_" + uuid.NewString()

	b.mu.Lock()
	b.threads[id] = &thread{
		runs:    make(map[string]*assistant.Run),
		cancels: make(map[string]context.CancelFunc),
	}
	b.mu.Unlock()

	return id, nil
}

// PostMessage appends a message to a thread
func (b *Backend) PostMessage(ctx context.Context, threadID string, role assistant.Role, text string) (*assistant.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("post_message", threadID)
	if err != nil {
		return nil, err
	}
	if th.active != "" {
		return nil, &assistant.BackendError{
			Op:         "post_message",
			StatusCode: http.StatusBadRequest,
			Code:       "run_active",
			Message:    "thread has an active run",
		}
	}

	msg := assistant.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Parts:     []string{text},
		CreatedAt: time.Now(),
	}
	th.messages = append(th.messages, msg)
	return &msg, nil
}

// CreateRun resolves the provider named by assistantID and starts the completion
func (b *Backend) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	provider, err := b.resolver.GetProvider(assistantID)
	if err != nil {
		return nil, &assistant.BackendError{Op: "create_run", StatusCode: http.StatusNotFound, Code: "unknown_assistant", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("create_run", threadID)
	if err != nil {
		return nil, err
	}
	if th.active != "" {
		return nil, &assistant.BackendError{
			Op:         "create_run",
			StatusCode: http.StatusBadRequest,
			Code:       "run_active",
			Message:    "thread already has an active run",
		}
	}

	run := &assistant.Run{
		ID:          "run_" + uuid.NewString(),
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      assistant.RunQueued,
		CreatedAt:   time.Now(),
	}

	runCtx, cancel := context.WithTimeout(context.Background(), b.opts.RunTimeout)
	th.runs[run.ID] = run
	th.cancels[run.ID] = cancel
	th.active = run.ID

	req := llm.Request{
		System:      b.opts.System,
		Messages:    toConversation(th.messages),
		Temperature: b.opts.Temperature,
		MaxTokens:   b.opts.MaxTokens,
	}

	b.wg.Add(1)
	go b.execute(runCtx, provider, threadID, run.ID, req)

	snapshot := *run
	return &snapshot, nil
}

// GetRun returns a snapshot of a run
func (b *Backend) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("get_run", threadID)
	if err != nil {
		return nil, err
	}
	run, ok := th.runs[runID]
	if !ok {
		return nil, notFound("get_run", "run "+runID)
	}

	snapshot := *run
	if run.LastError != nil {
		lastErr := *run.LastError
		snapshot.LastError = &lastErr
	}
	return &snapshot, nil
}

// ListMessages returns the thread messages, newest first
func (b *Backend) ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("list_messages", threadID)
	if err != nil {
		return nil, err
	}

	messages := make([]assistant.Message, 0, len(th.messages))
	for i := len(th.messages) - 1; i >= 0; i-- {
		messages = append(messages, th.messages[i])
	}
	return messages, nil
}

// CancelRun aborts the provider call of an in-flight run
func (b *Backend) CancelRun(ctx context.Context, threadID, runID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("cancel_run", threadID)
	if err != nil {
		return err
	}
	run, ok := th.runs[runID]
	if !ok {
		return notFound("cancel_run", "run "+runID)
	}
	if run.Status.Terminal() {
		return nil
	}

	run.Status = assistant.RunCancelling
	if cancel, ok := th.cancels[runID]; ok {
		cancel()
	}
	return nil
}

// DeleteThread drops a thread and its history, aborting any in-flight run
func (b *Backend) DeleteThread(ctx context.Context, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, err := b.thread("delete_thread", threadID)
	if err != nil {
		return err
	}
	th.cancelAll()
	delete(b.threads, threadID)
	return nil
}

// Close cancels in-flight runs, waits for them to settle and drops every thread
func (b *Backend) Close() {
	b.mu.Lock()
	for _, th := range b.threads {
		th.cancelAll()
	}
	b.mu.Unlock()

	b.wg.Wait()

	b.mu.Lock()
	b.threads = make(map[string]*thread)
	b.mu.Unlock()
}

func (th *thread) cancelAll() {
	for _, cancel := range th.cancels {
		cancel()
	}
}

func (b *Backend) execute(ctx context.Context, provider llm.Provider, threadID, runID string, req llm.Request) {
	defer b.wg.Done()

	b.transition(threadID, runID, assistant.RunInProgress, nil, nil)

	resp, err := provider.Complete(ctx, req, b.opts.Model)
	if err == nil && resp.Content == "" {
		err = errors.New("provider returned no content")
	}

	if err != nil {
		status := assistant.RunFailed
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			status = assistant.RunCancelled
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			status = assistant.RunExpired
		}
		log.Warn().Err(err).
			Str("thread_id", threadID).
			Str("run_id", runID).
			Str("provider", provider.Name()).
			Str("status", string(status)).
			Msg("Chat run did not complete")
		b.transition(threadID, runID, status, runError(err), nil)
		return
	}

	log.Debug().
		Str("thread_id", threadID).
		Str("run_id", runID).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Int64("latency_ms", resp.LatencyMs).
		Msg("Chat run completed")

	reply := &assistant.Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      assistant.RoleAssistant,
		Parts:     []string{resp.Content},
		RunID:     runID,
		CreatedAt: time.Now(),
	}
	b.transition(threadID, runID, assistant.RunCompleted, nil, reply)
}

func (b *Backend) transition(threadID, runID string, status assistant.RunStatus, runErr *assistant.RunError, reply *assistant.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	th, ok := b.threads[threadID]
	if !ok {
		return
	}
	run, ok := th.runs[runID]
	if !ok || !assistant.CanTransition(run.Status, status) {
		return
	}

	run.Status = status
	run.LastError = runErr
	if reply != nil {
		th.messages = append(th.messages, *reply)
	}
	if status.Terminal() {
		if cancel, ok := th.cancels[runID]; ok {
			cancel()
			delete(th.cancels, runID)
		}
		if th.active == runID {
			th.active = ""
		}
	}
}

// thread must be called with b.mu held
func (b *Backend) thread(op, threadID string) (*thread, error) {
	th, ok := b.threads[threadID]
	if !ok {
		return nil, notFound(op, "thread "+threadID)
	}
	return th, nil
}

func notFound(op, what string) *assistant.BackendError {
	return &assistant.BackendError{
		Op:         op,
		StatusCode: http.StatusNotFound,
		Code:       "not_found",
		Message:    "no such " + what,
	}
}

func runError(err error) *assistant.RunError {
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) {
		code := "server_error"
		if statusErr.StatusCode == http.StatusTooManyRequests {
			code = "rate_limit_exceeded"
		} else if statusErr.StatusCode < 500 {
			code = "invalid_request"
		}
		return &assistant.RunError{Code: code, Message: err.Error()}
	}
	return &assistant.RunError{Code: "provider_error", Message: err.Error()}
}

func toConversation(messages []assistant.Message) []llm.Message {
	conversation := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := llm.RoleUser
		if m.Role == assistant.RoleAssistant {
			role = llm.RoleAssistant
		}
		conversation = append(conversation, llm.Message{Role: role, Content: m.Text()})
	}
	return conversation
}
