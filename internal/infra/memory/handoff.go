package memory

import (
	"context"
	"sync"

	"edudash-assessment-service/internal/domain"
)

// ResultHandoff mirrors the dashboard's single cross-page handoff slot
// for a just-computed result. Exactly one slot exists; each new attempt
// overwrites it.
type ResultHandoff struct {
	mu   sync.RWMutex
	slot *domain.SessionResult
}

func NewResultHandoff() *ResultHandoff {
	return &ResultHandoff{}
}

func (h *ResultHandoff) Put(_ context.Context, result domain.SessionResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slot = &result
	return nil
}

func (h *ResultHandoff) Get(_ context.Context) (domain.SessionResult, bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.slot == nil {
		return domain.SessionResult{}, false, nil
	}
	return *h.slot, true, nil
}
