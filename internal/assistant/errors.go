package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNoActiveSession is returned by Send before a successful Start
	ErrNoActiveSession = errors.New("no active session: start an audit first")

	// ErrSessionActive is returned by Start when a thread is already bound
	ErrSessionActive = errors.New("session already active: reset it before starting again")

	// ErrTurnInProgress is returned when a turn is submitted while another is still running
	ErrTurnInProgress = errors.New("a turn is already being processed on this session")

	// ErrEmptyReply is returned when a completed run produced no assistant content
	ErrEmptyReply = errors.New("assistant returned an empty reply")
)

// ConfigurationError reports required settings that are missing
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: missing %s", strings.Join(e.Missing, ", "))
}

// BackendError represents a failure reported by, or while talking to, the remote backend
type BackendError struct {
	Op         string // "create_thread", "post_message", "create_run", "get_run", "list_messages", "run"
	StatusCode int
	Code       string
	Message    string
	RunStatus  RunStatus
	Err        error
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString("backend error [")
	b.WriteString(e.Op)
	b.WriteString("]")
	if e.RunStatus != "" {
		fmt.Fprintf(&b, " run %s", e.RunStatus)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is a transient transport error.
// A run that finished in a failed state is never retryable.
func (e *BackendError) Retryable() bool {
	if e.RunStatus != "" {
		return false
	}
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError {
		return true
	}
	if e.StatusCode != 0 || e.Err == nil {
		return false
	}
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}

// TimeoutError is returned when a run does not reach a terminal state in time
type TimeoutError struct {
	RunID   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("run %s did not finish within %s", e.RunID, e.Elapsed.Round(time.Millisecond))
}

func asBackendError(op string, err error) error {
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Op: op, Err: err}
}

func isRetryable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Retryable()
}
