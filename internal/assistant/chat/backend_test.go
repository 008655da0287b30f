package chat

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/llm"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []llm.Request
	reply    func(ctx context.Context, req llm.Request) (*llm.Response, error)
}

func (f *fakeProvider) Name() string              { return "fake" }
func (f *fakeProvider) AvailableModels() []string { return []string{"fake-1"} }
func (f *fakeProvider) DefaultModel() string      { return "fake-1" }
func (f *fakeProvider) IsConfigured() bool        { return true }

func (f *fakeProvider) Complete(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.reply(ctx, req)
}

func (f *fakeProvider) lastRequest() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newRouter(p llm.Provider) *llm.Router {
	r := llm.NewRouter(p.Name())
	r.RegisterProvider(p)
	return r
}

func fastSession(t *testing.T, backend assistant.Backend, assistantID string) *assistant.Session {
	t.Helper()
	s, err := assistant.NewSession(backend, assistantID,
		assistant.WithPoller(assistant.Poller{Interval: time.Millisecond, Timeout: 2 * time.Second}),
	)
	require.NoError(t, err)
	return s
}

func TestBackend_SessionRoundTrip(t *testing.T) {
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		last := req.Messages[len(req.Messages)-1].Content
		return &llm.Response{Content: "respuesta a " + last, Model: "fake-1"}, nil
	}}
	temperature := 0.0
	backend := NewBackend(newRouter(provider), Options{System: "Eres GLADIUS", Temperature: &temperature})
	defer backend.Close()

	s := fastSession(t, backend, "fake")

	reply, err := s.Start(context.Background(), "primer prompt")
	require.NoError(t, err)
	assert.Equal(t, "respuesta a primer prompt", reply.Content)

	reply, err = s.Send(context.Background(), "sigue")
	require.NoError(t, err)
	assert.Equal(t, "respuesta a sigue", reply.Content)
	assert.Len(t, s.Turns(), 4)

	req := provider.lastRequest()
	assert.Equal(t, "Eres GLADIUS", req.System)
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.0, llm.Temperature(req))
	require.Len(t, req.Messages, 3)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, llm.RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, "sigue", req.Messages[2].Content)
}

func TestBackend_ProviderFailureFailsRun(t *testing.T) {
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, &llm.StatusError{Provider: "fake", StatusCode: http.StatusTooManyRequests}
	}}
	backend := NewBackend(newRouter(provider), Options{})
	defer backend.Close()

	s := fastSession(t, backend, "fake")
	_, err := s.Start(context.Background(), "hola")

	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, assistant.RunFailed, be.RunStatus)
	assert.Equal(t, "rate_limit_exceeded", be.Code)
	assert.False(t, s.Active())
}

func TestBackend_UnknownAssistant(t *testing.T) {
	backend := NewBackend(llm.NewRouter("none"), Options{})
	defer backend.Close()

	threadID, err := backend.CreateThread(context.Background())
	require.NoError(t, err)

	_, err = backend.CreateRun(context.Background(), threadID, "missing")

	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "unknown_assistant", be.Code)
	assert.False(t, be.Retryable())
}

func TestBackend_UnknownThread(t *testing.T) {
	backend := NewBackend(llm.NewRouter("none"), Options{})

	_, err := backend.ListMessages(context.Background(), "thread_missing")

	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
}

func TestBackend_CancelRun(t *testing.T) {
	started := make(chan struct{})
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	backend := NewBackend(newRouter(provider), Options{})
	defer backend.Close()

	ctx := context.Background()
	threadID, err := backend.CreateThread(ctx)
	require.NoError(t, err)
	_, err = backend.PostMessage(ctx, threadID, assistant.RoleUser, "hola")
	require.NoError(t, err)

	run, err := backend.CreateRun(ctx, threadID, "fake")
	require.NoError(t, err)
	assert.Equal(t, assistant.RunQueued, run.Status)

	<-started
	_, err = backend.PostMessage(ctx, threadID, assistant.RoleUser, "otra")
	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "run_active", be.Code)

	require.NoError(t, backend.CancelRun(ctx, threadID, run.ID))

	require.Eventually(t, func() bool {
		got, err := backend.GetRun(ctx, threadID, run.ID)
		return err == nil && got.Status == assistant.RunCancelled
	}, time.Second, 5*time.Millisecond)

	messages, err := backend.ListMessages(ctx, threadID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestBackend_RunTimeoutExpires(t *testing.T) {
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		<-ctx.Done()
		return nil, errors.New("provider gave up")
	}}
	backend := NewBackend(newRouter(provider), Options{RunTimeout: 10 * time.Millisecond})
	defer backend.Close()

	s := fastSession(t, backend, "fake")
	_, err := s.Start(context.Background(), "hola")

	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, assistant.RunExpired, be.RunStatus)
}

func TestBackend_EmptyContentFailsRun(t *testing.T) {
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return &llm.Response{}, nil
	}}
	backend := NewBackend(newRouter(provider), Options{})
	defer backend.Close()

	_, err := fastSession(t, backend, "fake").Start(context.Background(), "hola")

	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "provider_error", be.Code)
}

func (b *Backend) threadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.threads)
}

func TestBackend_SessionResetDeletesThread(t *testing.T) {
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: "OK"}, nil
	}}
	backend := NewBackend(newRouter(provider), Options{})
	defer backend.Close()

	s := fastSession(t, backend, "fake")
	_, err := s.Start(context.Background(), "hola")
	require.NoError(t, err)
	threadID := s.ThreadID()
	assert.Equal(t, 1, backend.threadCount())

	s.Reset()
	assert.Zero(t, backend.threadCount())

	_, err = backend.ListMessages(context.Background(), threadID)
	var be *assistant.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, http.StatusNotFound, be.StatusCode)
}

func TestBackend_DeleteThreadAbortsRun(t *testing.T) {
	started := make(chan struct{})
	provider := &fakeProvider{reply: func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	backend := NewBackend(newRouter(provider), Options{})
	ctx := context.Background()

	threadID, err := backend.CreateThread(ctx)
	require.NoError(t, err)
	_, err = backend.PostMessage(ctx, threadID, assistant.RoleUser, "hola")
	require.NoError(t, err)
	_, err = backend.CreateRun(ctx, threadID, "fake")
	require.NoError(t, err)
	<-started

	require.NoError(t, backend.DeleteThread(ctx, threadID))

	// Close returns only once the aborted run has settled
	backend.Close()
	assert.Zero(t, backend.threadCount())

	var be *assistant.BackendError
	require.ErrorAs(t, backend.DeleteThread(ctx, threadID), &be)
	assert.Equal(t, "not_found", be.Code)
}

func TestBackend_CloseDropsThreads(t *testing.T) {
	backend := NewBackend(llm.NewRouter("none"), Options{})
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_, err := backend.CreateThread(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1000, backend.threadCount())

	backend.Close()
	assert.Zero(t, backend.threadCount())
}
