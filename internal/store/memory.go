package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"lumina/fraud-sim/internal/domain"
)

// Memory is a thread-safe in-memory Store. Runs are kept until the process
// exits.
type Memory struct {
	mu sync.RWMutex

	runs     map[string]*domain.Run
	order    []string // run IDs in save order
	webhooks map[string]*domain.WebhookConfig
}

// New creates an empty, ready-to-use in-memory store.
func New() *Memory {
	return &Memory{
		runs:     make(map[string]*domain.Run),
		webhooks: make(map[string]*domain.WebhookConfig),
	}
}

// ─── Runs ─────────────────────────────────────────────────────────────────────

// SaveRun stores run. Returns ErrDuplicateRun if the ID already exists.
func (m *Memory) SaveRun(_ context.Context, run *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return ErrDuplicateRun
	}
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (m *Memory) GetRun(_ context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns all runs in the order they were saved.
func (m *Memory) ListRuns(_ context.Context) ([]*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*domain.Run, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, withoutDataset(m.runs[id]))
	}
	return result, nil
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// SaveWebhook upserts a webhook configuration.
func (m *Memory) SaveWebhook(_ context.Context, wh *domain.WebhookConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks[wh.ID] = wh
	return nil
}

// DeleteWebhook removes a webhook by ID.
func (m *Memory) DeleteWebhook(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.webhooks[id]
	delete(m.webhooks, id)
	return exists, nil
}

// ListActiveWebhooks returns active webhooks ordered by creation time.
func (m *Memory) ListActiveWebhooks(_ context.Context) ([]*domain.WebhookConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.WebhookConfig
	for _, wh := range m.webhooks {
		if wh.Active {
			result = append(result, wh)
		}
	}
	sortWebhooks(result)
	return result, nil
}

func sortWebhooks(hooks []*domain.WebhookConfig) {
	slices.SortFunc(hooks, func(a, b *domain.WebhookConfig) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
