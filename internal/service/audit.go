package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/audit"
	"github.com/Rrens/gladius/internal/domain"
	"github.com/Rrens/gladius/internal/intel"
)

// ErrTooManySessions is returned by Start when the registry is full
var ErrTooManySessions = domain.ErrRegistryFull

// SessionFactory opens an unbound assistant session
type SessionFactory func() (*assistant.Session, error)

// IntelGatherer collects market context for a deal
type IntelGatherer interface {
	Gather(ctx context.Context, query string) intel.Result
}

// AuditService runs audits: deal form, market intel and assistant session
type AuditService struct {
	repo        domain.AuditRepository
	newSession  SessionFactory
	intel       IntelGatherer
	maxSessions int
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewAuditService creates a new audit service. maxSessions <= 0 disables the cap
// and sessionTTL <= 0 disables sweeping.
func NewAuditService(
	repo domain.AuditRepository,
	newSession SessionFactory,
	gatherer IntelGatherer,
	maxSessions int,
	sessionTTL time.Duration,
) *AuditService {
	return &AuditService{
		repo:        repo,
		newSession:  newSession,
		intel:       gatherer,
		maxSessions: maxSessions,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// Start validates the deal, gathers market intel, opens an assistant thread with
// the audit prompt and registers the session under a new handle.
func (s *AuditService) Start(ctx context.Context, deal domain.Deal) (*domain.AuditReply, error) {
	return s.open(ctx, deal, s.maxSessions, func(entry *domain.AuditSession) error {
		return s.repo.CreateIfBelow(ctx, entry, s.maxSessions)
	})
}

// open runs the opening exchange for deal and hands the new entry to register.
// limit > 0 rejects early when the registry is already full; register has the
// final say. A session that cannot be registered is reset.
func (s *AuditService) open(ctx context.Context, deal domain.Deal, limit int, register func(*domain.AuditSession) error) (*domain.AuditReply, error) {
	deal, err := audit.Prepare(deal)
	if err != nil {
		return nil, err
	}

	sess, err := s.newSession()
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		count, err := s.repo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count audits: %w", err)
		}
		if count >= limit {
			return nil, ErrTooManySessions
		}
	}

	summary, text := s.gather(ctx, deal)

	reply, err := sess.Start(ctx, audit.BuildPrompt(deal, text))
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := &domain.AuditSession{
		ID:        uuid.New(),
		Deal:      deal,
		Intel:     summary,
		Session:   sess,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := register(entry); err != nil {
		sess.Reset()
		if errors.Is(err, domain.ErrRegistryFull) || errors.Is(err, domain.ErrAuditNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to register audit: %w", err)
	}

	log.Info().
		Str("audit_id", entry.ID.String()).
		Str("thread_id", sess.ThreadID()).
		Str("location", deal.Location).
		Bool("intel_fallback", summary.Fallback).
		Msg("Audit started")

	out := s.reply(entry, reply)
	out.Intel = &entry.Intel
	return out, nil
}

// Send submits a follow-up question on an existing audit
func (s *AuditService) Send(ctx context.Context, id uuid.UUID, text string) (*domain.AuditReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &audit.ValidationError{Fields: map[string]string{"text": "is required"}}
	}

	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reply, err := entry.Session.Send(ctx, text)
	if err != nil {
		return nil, err
	}

	s.touch(ctx, id)
	return s.reply(entry, reply), nil
}

// Get returns the transcript of an audit
func (s *AuditService) Get(ctx context.Context, id uuid.UUID) (*domain.AuditView, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.AuditView{
		ID:         entry.ID,
		Active:     entry.Session.Active(),
		ThreadID:   entry.Session.ThreadID(),
		Deal:       entry.Deal,
		Figures:    figures(entry.Deal),
		Intel:      entry.Intel,
		Turns:      entry.Session.Turns(),
		Disclaimer: audit.Disclaimer,
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.UpdatedAt,
	}, nil
}

// Reset drops the audit's thread and transcript. The handle stays registered
// until it is swept, so later messages fail with assistant.ErrNoActiveSession.
func (s *AuditService) Reset(ctx context.Context, id uuid.UUID) error {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	entry.Session.Reset()
	s.touch(ctx, id)
	return nil
}

// Restart opens a new audit for the same deal and then retires the old one.
// The old audit is left untouched when the new one cannot be opened.
func (s *AuditService) Restart(ctx context.Context, id uuid.UUID) (*domain.AuditReply, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := s.open(ctx, entry.Deal, 0, func(next *domain.AuditSession) error {
		return s.repo.Replace(ctx, id, next)
	})
	if err != nil {
		return nil, err
	}

	entry.Session.Reset()
	log.Info().Str("audit_id", id.String()).Str("replaced_by", out.ID.String()).Msg("Audit restarted")
	return out, nil
}

// Sweep removes audits idle for longer than the session TTL and releases their threads
func (s *AuditService) Sweep(ctx context.Context) (int, error) {
	if s.sessionTTL <= 0 {
		return 0, nil
	}

	removed, err := s.repo.DeleteIdleSince(ctx, s.now().Add(-s.sessionTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep audits: %w", err)
	}
	for _, entry := range removed {
		entry.Session.Reset()
	}
	if len(removed) > 0 {
		log.Info().Int("count", len(removed)).Msg("Idle audits swept")
	}
	return len(removed), nil
}

// RunSweeper calls Sweep every interval until ctx is done
func (s *AuditService) RunSweeper(ctx context.Context, interval time.Duration) {
	if s.sessionTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				log.Error().Err(err).Msg("Audit sweep failed")
			}
		}
	}
}

func (s *AuditService) gather(ctx context.Context, deal domain.Deal) (domain.IntelSummary, string) {
	if s.intel == nil {
		return domain.IntelSummary{Source: "none", Fallback: true}, intel.FallbackNotice
	}

	res := s.intel.Gather(ctx, audit.IntelQuery(deal))
	return domain.IntelSummary{
		Source:   res.Source,
		Snippets: res.Snippets,
		Fallback: res.Fallback,
		Cached:   res.Cached,
	}, res.Text
}

func (s *AuditService) touch(ctx context.Context, id uuid.UUID) {
	if err := s.repo.Touch(ctx, id, s.now()); err != nil {
		log.Warn().Err(err).Str("audit_id", id.String()).Msg("Failed to touch audit")
	}
}

func (s *AuditService) reply(entry *domain.AuditSession, turn assistant.Turn) *domain.AuditReply {
	return &domain.AuditReply{
		ID:         entry.ID,
		Reply:      turn,
		Turns:      entry.Session.Turns(),
		Figures:    figures(entry.Deal),
		Disclaimer: audit.Disclaimer,
	}
}

func figures(deal domain.Deal) domain.Figures {
	f := domain.Figures{GrossIncome: audit.GrossIncome(deal)}
	if v, ok := audit.PricePerM2(deal); ok {
		f.PricePerM2 = &v
	}
	return f
}
