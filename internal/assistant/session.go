package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const cancelTimeout = 10 * time.Second

// Option configures a Session
type Option func(*Session)

// WithPoller sets how run completion is awaited
func WithPoller(p Poller) Option {
	return func(s *Session) {
		s.poller = p
	}
}

// WithRetryPolicy sets the retry policy for idempotent backend calls
func WithRetryPolicy(r RetryPolicy) Option {
	return func(s *Session) {
		s.retry = r
	}
}

// Session owns one remote conversation thread and its transcript
type Session struct {
	backend     Backend
	assistantID string
	poller      Poller
	retry       RetryPolicy

	busy atomic.Bool

	mu       sync.RWMutex
	threadID string
	turns    []Turn
}

// NewSession creates an unbound session. It fails with a ConfigurationError
// when the backend or the assistant identifier is missing.
func NewSession(backend Backend, assistantID string, opts ...Option) (*Session, error) {
	s := &Session{
		backend:     backend,
		assistantID: strings.TrimSpace(assistantID),
		poller:      DefaultPoller(),
		retry:       DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) validate() error {
	var missing []string
	if s.backend == nil {
		missing = append(missing, "assistant backend")
	}
	if s.assistantID == "" {
		missing = append(missing, "ASSISTANT_ID")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

// Start opens a new thread, submits prompt as the first user turn and waits
// for the assistant's reply. No thread is bound if it fails.
func (s *Session) Start(ctx context.Context, prompt string) (Turn, error) {
	if err := s.validate(); err != nil {
		return Turn{}, err
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Turn{}, ErrTurnInProgress
	}
	defer s.busy.Store(false)

	if s.Active() {
		return Turn{}, ErrSessionActive
	}

	threadID, err := withRetry(ctx, s.retry, func() (string, error) {
		id, err := s.backend.CreateThread(ctx)
		if err != nil {
			return "", asBackendError("create_thread", err)
		}
		return id, nil
	})
	if err != nil {
		return Turn{}, s.fail(ctx, "failed to create thread", err)
	}

	log.Info().Str("thread_id", threadID).Msg("assistant thread created")

	user, reply, err := s.exchange(ctx, threadID, prompt)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	s.threadID = threadID
	s.turns = []Turn{user, reply}
	s.mu.Unlock()

	return reply, nil
}

// Send appends a follow-up user turn on the bound thread and waits for the reply.
// The transcript is left untouched on failure.
func (s *Session) Send(ctx context.Context, text string) (Turn, error) {
	if err := s.validate(); err != nil {
		return Turn{}, err
	}

	threadID := s.ThreadID()
	if threadID == "" {
		return Turn{}, ErrNoActiveSession
	}

	if !s.busy.CompareAndSwap(false, true) {
		return Turn{}, ErrTurnInProgress
	}
	defer s.busy.Store(false)

	user, reply, err := s.exchange(ctx, threadID, text)
	if err != nil {
		return Turn{}, err
	}

	s.mu.Lock()
	// a Reset during the exchange discards its result
	if s.threadID == threadID {
		s.turns = append(s.turns, user, reply)
	}
	s.mu.Unlock()

	return reply, nil
}

// Reset forgets the bound thread and the transcript. Backends implementing
// ThreadDeleter are asked to release the thread; a failure there is only logged.
func (s *Session) Reset() {
	s.mu.Lock()
	threadID := s.threadID
	s.threadID = ""
	s.turns = nil
	s.mu.Unlock()

	if threadID == "" {
		return
	}
	log.Info().Str("thread_id", threadID).Msg("assistant session reset")
	s.deleteThread(threadID)
}

// Active reports whether a thread is bound
func (s *Session) Active() bool {
	return s.ThreadID() != ""
}

// ThreadID returns the bound thread id, or "" when inactive
func (s *Session) ThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threadID
}

// Turns returns a copy of the transcript in chronological order
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// exchange posts one user message, runs the assistant and returns both turns.
func (s *Session) exchange(ctx context.Context, threadID, text string) (Turn, Turn, error) {
	posted, err := s.backend.PostMessage(ctx, threadID, RoleUser, text)
	if err != nil {
		return Turn{}, Turn{}, s.fail(ctx, "failed to post message", asBackendError("post_message", err))
	}

	run, err := s.backend.CreateRun(ctx, threadID, s.assistantID)
	if err != nil {
		return Turn{}, Turn{}, s.fail(ctx, "failed to create run", asBackendError("create_run", err))
	}

	logger := log.With().Str("thread_id", threadID).Str("run_id", run.ID).Logger()
	logger.Debug().Str("status", string(run.Status)).Msg("run created")

	final, err := s.poller.Wait(ctx, run.ID, func(ctx context.Context) (*Run, error) {
		return withRetry(ctx, s.retry, func() (*Run, error) {
			r, err := s.backend.GetRun(ctx, threadID, run.ID)
			if err != nil {
				return nil, asBackendError("get_run", err)
			}
			return r, nil
		})
	})
	if err != nil {
		var timeout *TimeoutError
		if errors.As(err, &timeout) {
			s.cancelRun(ctx, threadID, run.ID)
		}
		return Turn{}, Turn{}, s.fail(ctx, "failed waiting for run", err)
	}

	if !final.Status.Succeeded() {
		be := &BackendError{Op: "run", RunStatus: final.Status}
		if final.LastError != nil {
			be.Code = final.LastError.Code
			be.Message = final.LastError.Message
		}
		logger.Error().Err(be).Msg("run did not complete")
		return Turn{}, Turn{}, be
	}

	messages, err := withRetry(ctx, s.retry, func() ([]Message, error) {
		m, err := s.backend.ListMessages(ctx, threadID)
		if err != nil {
			return nil, asBackendError("list_messages", err)
		}
		return m, nil
	})
	if err != nil {
		return Turn{}, Turn{}, s.fail(ctx, "failed to list messages", err)
	}

	var boundaryID string
	postedAt := time.Now()
	if posted != nil {
		boundaryID = posted.ID
		if !posted.CreatedAt.IsZero() {
			postedAt = posted.CreatedAt
		}
	}

	reply, err := Normalize(messages, boundaryID)
	if err != nil {
		logger.Error().Err(err).Int("messages", len(messages)).Msg("run produced no assistant content")
		return Turn{}, Turn{}, err
	}
	if reply.RunID == "" {
		reply.RunID = run.ID
	}

	logger.Info().Int("segments", len(reply.Segments)).Msg("assistant reply received")

	return NewUserTurn(text, postedAt), reply, nil
}

func (s *Session) cancelRun(ctx context.Context, threadID, runID string) {
	if !s.poller.CancelOnTimeout {
		return
	}
	canceler, ok := s.backend.(Canceler)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if err := canceler.CancelRun(cctx, threadID, runID); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("failed to cancel timed out run")
		return
	}
	log.Info().Str("run_id", runID).Msg("timed out run cancelled")
}

func (s *Session) deleteThread(threadID string) {
	deleter, ok := s.backend.(ThreadDeleter)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
	defer cancel()

	if err := deleter.DeleteThread(ctx, threadID); err != nil {
		log.Warn().Err(err).Str("thread_id", threadID).Msg("failed to delete thread")
	}
}

// fail logs err and keeps a caller cancellation distinguishable from a backend failure.
func (s *Session) fail(ctx context.Context, msg string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		err = fmt.Errorf("%s: %w", msg, ctxErr)
	}
	log.Error().Err(err).Msg(msg)
	return err
}
