// Package webhook notifies registered URLs when a simulation run completes.
//
// Deliveries run in background goroutines so they never hold up the HTTP
// response. A delivery that fails with a transport error or a 5xx status is
// retried a few times and then logged.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"lumina/fraud-sim/internal/domain"
	"lumina/fraud-sim/internal/store"
)

// EventSimulationCompleted is the only event the service emits.
const EventSimulationCompleted = "simulation_completed"

const (
	deliveryTimeout = 5 * time.Second
	maxAttempts     = 3
)

// Notifier keeps the webhook registry in the run store and delivers payloads
// to every active endpoint.
type Notifier struct {
	store   store.Store
	client  *http.Client
	backoff time.Duration
	wg      sync.WaitGroup
}

// New creates a Notifier with a default HTTP client timeout.
func New(s store.Store) *Notifier {
	return &Notifier{
		store:   s,
		client:  &http.Client{Timeout: deliveryTimeout},
		backoff: 200 * time.Millisecond,
	}
}

// ─── Registry ─────────────────────────────────────────────────────────────────

// Register validates rawURL and stores a new active webhook for it.
func (n *Notifier) Register(ctx context.Context, rawURL string) (*domain.WebhookConfig, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("url must be an absolute http(s) URL, got %q", rawURL)
	}

	wh := &domain.WebhookConfig{
		ID:        uuid.NewString(),
		URL:       u.String(),
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
	if err := n.store.SaveWebhook(ctx, wh); err != nil {
		return nil, err
	}
	return wh, nil
}

// Delete removes a webhook. It reports false if the ID was unknown.
func (n *Notifier) Delete(ctx context.Context, id string) (bool, error) {
	return n.store.DeleteWebhook(ctx, id)
}

// List returns the active webhooks.
func (n *Notifier) List(ctx context.Context) ([]*domain.WebhookConfig, error) {
	return n.store.ListActiveWebhooks(ctx)
}

// ─── Delivery ─────────────────────────────────────────────────────────────────

// NotifyAsync fires a simulation_completed call to every active webhook in
// the background.
func (n *Notifier) NotifyAsync(ctx context.Context, run *domain.Run) {
	hooks, err := n.store.ListActiveWebhooks(ctx)
	if err != nil {
		slog.Error("webhook: failed to list webhooks", "run_id", run.ID, "error", err)
		return
	}

	payload := domain.WebhookPayload{
		Event:       EventSimulationCompleted,
		TriggeredAt: time.Now().UTC(),
		RunID:       run.ID,
		Report:      run.Report,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("webhook: failed to marshal payload", "run_id", run.ID, "error", err)
		return
	}

	for _, wh := range hooks {
		n.wg.Add(1)
		go func(wh *domain.WebhookConfig) {
			defer n.wg.Done()
			n.send(wh, run.ID, body)
		}(wh)
	}
}

// Wait blocks until every delivery started so far has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

type outcome int

const (
	delivered outcome = iota
	rejected
	failed
)

// send delivers one payload, retrying transport errors and 5xx responses,
// and logs the outcome. A 4xx response is final.
func (n *Notifier) send(wh *domain.WebhookConfig, runID string, body []byte) outcome {
	backoff := n.backoff
	for attempt := 1; ; attempt++ {
		status, err := n.post(wh.URL, body)
		switch {
		case err == nil && status < http.StatusBadRequest:
			slog.Info("webhook: delivered",
				"webhook_id", wh.ID,
				"url", wh.URL,
				"status", status,
				"run_id", runID,
			)
			return delivered
		case err == nil && status < http.StatusInternalServerError:
			slog.Warn("webhook: rejected",
				"webhook_id", wh.ID,
				"url", wh.URL,
				"status", status,
				"run_id", runID,
			)
			return rejected
		}
		if attempt == maxAttempts {
			slog.Warn("webhook: delivery failed",
				"webhook_id", wh.ID,
				"url", wh.URL,
				"status", status,
				"attempts", attempt,
				"error", err,
			)
			return failed
		}
		time.Sleep(backoff)
		backoff *= 2
	}
}

func (n *Notifier) post(target string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-FraudSim-Event", EventSimulationCompleted)

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}
