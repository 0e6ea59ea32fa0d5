// Package store keeps finished simulation runs and registered webhooks for
// the HTTP service. Two backends are provided: an in-memory store for single
// instances and a Redis store shared between replicas.
package store

import (
	"context"
	"errors"

	"lumina/fraud-sim/internal/domain"
)

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("simulation run not found")
	// ErrDuplicateRun is returned when a run ID is saved twice.
	ErrDuplicateRun = errors.New("simulation run already exists")
)

// Store is the persistence contract of the service.
type Store interface {
	// SaveRun persists a run together with its dataset.
	SaveRun(ctx context.Context, run *domain.Run) error
	// GetRun returns the run with its dataset attached.
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	// ListRuns returns every kept run in creation order. Datasets are not
	// attached.
	ListRuns(ctx context.Context) ([]*domain.Run, error)

	SaveWebhook(ctx context.Context, wh *domain.WebhookConfig) error
	// DeleteWebhook reports whether a webhook with the ID existed.
	DeleteWebhook(ctx context.Context, id string) (bool, error)
	ListActiveWebhooks(ctx context.Context) ([]*domain.WebhookConfig, error)
}

// withoutDataset returns a shallow copy of run that drops the dataset.
func withoutDataset(run *domain.Run) *domain.Run {
	cp := *run
	cp.Dataset = nil
	return &cp
}
