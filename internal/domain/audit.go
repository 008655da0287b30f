package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/gladius/internal/assistant"
)

var (
	// ErrAuditNotFound is returned for an unknown audit handle
	ErrAuditNotFound = errors.New("audit not found")

	// ErrRegistryFull is returned when registering past the session cap
	ErrRegistryFull = errors.New("too many open audit sessions")
)

// AuditSession binds a local handle to a live assistant session and the deal that opened it
type AuditSession struct {
	ID        uuid.UUID
	Deal      Deal
	Intel     IntelSummary
	Session   *assistant.Session
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IntelSummary describes the market context that was merged into the opening prompt
type IntelSummary struct {
	Source   string   `json:"source"`
	Snippets []string `json:"snippets,omitempty"`
	Fallback bool     `json:"fallback"`
	Cached   bool     `json:"cached"`
}

// Figures are the locally derived numbers shown next to a report
type Figures struct {
	PricePerM2  *float64 `json:"price_per_m2,omitempty"`
	GrossIncome float64  `json:"gross_income"`
}

// AuditReply is returned after each successful exchange
type AuditReply struct {
	ID         uuid.UUID        `json:"id"`
	Reply      assistant.Turn   `json:"reply"`
	Turns      []assistant.Turn `json:"turns"`
	Figures    Figures          `json:"figures"`
	Intel      *IntelSummary    `json:"intel,omitempty"`
	Disclaimer string           `json:"disclaimer"`
}

// AuditView is the transcript of an audit session
type AuditView struct {
	ID         uuid.UUID        `json:"id"`
	Active     bool             `json:"active"`
	ThreadID   string           `json:"thread_id,omitempty"`
	Deal       Deal             `json:"deal"`
	Figures    Figures          `json:"figures"`
	Intel      IntelSummary     `json:"intel"`
	Turns      []assistant.Turn `json:"turns"`
	Disclaimer string           `json:"disclaimer"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// MessageRequest is a follow-up question on an audit
type MessageRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// AuditRepository defines the interface for audit session storage
type AuditRepository interface {
	// CreateIfBelow registers audit unless limit > 0 and limit audits are
	// already registered, in which case it returns ErrRegistryFull
	CreateIfBelow(ctx context.Context, audit *AuditSession, limit int) error

	// Replace swaps the audit registered under oldID for audit
	Replace(ctx context.Context, oldID uuid.UUID, audit *AuditSession) error

	Get(ctx context.Context, id uuid.UUID) (*AuditSession, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)

	// DeleteIdleSince removes audits not updated after cutoff and returns them
	DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]*AuditSession, error)
}
