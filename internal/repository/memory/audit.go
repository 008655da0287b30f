// Package memory holds process-local repositories. Nothing here outlives the process.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/gladius/internal/domain"
)

// AuditRepository implements domain.AuditRepository
type AuditRepository struct {
	mu     sync.RWMutex
	audits map[uuid.UUID]*domain.AuditSession
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{audits: make(map[uuid.UUID]*domain.AuditSession)}
}

func (r *AuditRepository) CreateIfBelow(ctx context.Context, audit *domain.AuditSession, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.audits[audit.ID]; exists {
		return fmt.Errorf("failed to create audit: id %s already exists", audit.ID)
	}
	if limit > 0 && len(r.audits) >= limit {
		return domain.ErrRegistryFull
	}
	r.audits[audit.ID] = audit
	return nil
}

func (r *AuditRepository) Replace(ctx context.Context, oldID uuid.UUID, audit *domain.AuditSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.audits[oldID]; !ok {
		return domain.ErrAuditNotFound
	}
	if _, exists := r.audits[audit.ID]; exists {
		return fmt.Errorf("failed to replace audit: id %s already exists", audit.ID)
	}
	delete(r.audits, oldID)
	r.audits[audit.ID] = audit
	return nil
}

func (r *AuditRepository) Get(ctx context.Context, id uuid.UUID) (*domain.AuditSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	audit, ok := r.audits[id]
	if !ok {
		return nil, domain.ErrAuditNotFound
	}
	snapshot := *audit
	return &snapshot, nil
}

func (r *AuditRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	audit, ok := r.audits[id]
	if !ok {
		return domain.ErrAuditNotFound
	}
	audit.UpdatedAt = at
	return nil
}

func (r *AuditRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.audits, id)
	return nil
}

func (r *AuditRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.audits), nil
}

// DeleteIdleSince removes audits not updated after cutoff and returns them
func (r *AuditRepository) DeleteIdleSince(ctx context.Context, cutoff time.Time) ([]*domain.AuditSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*domain.AuditSession
	for id, audit := range r.audits {
		if audit.UpdatedAt.Before(cutoff) {
			delete(r.audits, id)
			removed = append(removed, audit)
		}
	}
	return removed, nil
}
