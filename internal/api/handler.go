package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"lumina/fraud-sim/internal/config"
	"lumina/fraud-sim/internal/domain"
	"lumina/fraud-sim/internal/output"
	"lumina/fraud-sim/internal/report"
	"lumina/fraud-sim/internal/simulator"
	"lumina/fraud-sim/internal/store"
	"lumina/fraud-sim/internal/webhook"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	store    store.Store
	notifier *webhook.Notifier
}

// NewHandler creates a Handler wired to the given dependencies.
func NewHandler(s store.Store, n *webhook.Notifier) *Handler {
	return &Handler{store: s, notifier: n}
}

// ─── POST /api/v1/simulations ─────────────────────────────────────────────────

// CreateSimulation runs a simulation synchronously from a params payload,
// stores the run and returns it with its report. Omitted optional fields
// take their defaults.
func (h *Handler) CreateSimulation(w http.ResponseWriter, r *http.Request) {
	var params domain.Params
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&params); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	params = config.WithDefaults(params)

	if err := config.ValidateParams(params); err != nil {
		writeSimError(w, err)
		return
	}
	cfg, err := config.Simulation(params)
	if err != nil {
		writeSimError(w, err)
		return
	}
	sim, err := simulator.New(cfg)
	if err != nil {
		writeSimError(w, err)
		return
	}

	start := time.Now()
	ds, err := sim.SimulateAll(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		writeSimError(w, err)
		return
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Params:    params,
		Report:    report.Summarize(ds),
		Dataset:   ds,
	}
	if err := h.store.SaveRun(r.Context(), run); err != nil {
		slog.Error("failed to save run", "run_id", run.ID, "error", err)
		internalError(w)
		return
	}

	slog.Info("simulation completed",
		"run_id", run.ID,
		"rows", run.Report.TotalTransactions,
		"fraud", run.Report.FraudCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	h.notifier.NotifyAsync(context.WithoutCancel(r.Context()), run)

	created(w, run)
}

// ─── GET /api/v1/simulations ──────────────────────────────────────────────────

// ListSimulations returns every stored run without its rows.
func (h *Handler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		internalError(w)
		return
	}
	if runs == nil {
		runs = []*domain.Run{}
	}
	ok(w, runs)
}

// ─── GET /api/v1/simulations/{id} ─────────────────────────────────────────────

// GetSimulation returns one run with its params and report.
func (h *Handler) GetSimulation(w http.ResponseWriter, r *http.Request) {
	run, found := h.loadRun(w, r)
	if !found {
		return
	}
	ok(w, run)
}

// ─── GET /api/v1/simulations/{id}/transactions ────────────────────────────────

type transactionPage struct {
	Total        int                  `json:"total"`
	Offset       int                  `json:"offset"`
	Limit        int                  `json:"limit"`
	Columns      []string             `json:"columns"`
	Transactions []domain.Transaction `json:"transactions"`
}

// ListTransactions pages through the rows of a run in time order.
//
// Query params:
//
//	offset: first row to return (default: 0)
//	limit:  rows per page (default: 100, max: 1000)
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		badRequest(w, "INVALID_PARAM", "offset must be a non-negative integer")
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > maxLimit {
		badRequest(w, "INVALID_PARAM", fmt.Sprintf("limit must be an integer between 1 and %d", maxLimit))
		return
	}

	run, found := h.loadRun(w, r)
	if !found {
		return
	}
	if run.Dataset == nil {
		notFound(w, fmt.Sprintf("rows of simulation '%s' are no longer available", run.ID))
		return
	}

	ok(w, transactionPage{
		Total:        run.Dataset.Len(),
		Offset:       offset,
		Limit:        limit,
		Columns:      run.Dataset.Header(),
		Transactions: run.Dataset.Slice(offset, limit),
	})
}

// ─── GET /api/v1/simulations/{id}/export ──────────────────────────────────────

// ExportSimulation streams the dataset of a run as a file download.
//
// Query params:
//
//	format:      csv (default) or jsonl
//	compression: none (default) or snappy
func (h *Handler) ExportSimulation(w http.ResponseWriter, r *http.Request) {
	opts := output.Options{
		Format:      output.Format(queryDefault(r, "format", string(output.FormatCSV))),
		Compression: output.Compression(queryDefault(r, "compression", string(output.CompressionNone))),
	}
	if opts.Format != output.FormatCSV && opts.Format != output.FormatJSONL {
		badRequest(w, "INVALID_PARAM", "format must be 'csv' or 'jsonl'")
		return
	}
	if opts.Compression != output.CompressionNone && opts.Compression != output.CompressionSnappy {
		badRequest(w, "INVALID_PARAM", "compression must be 'none' or 'snappy'")
		return
	}

	run, found := h.loadRun(w, r)
	if !found {
		return
	}
	if run.Dataset == nil {
		notFound(w, fmt.Sprintf("rows of simulation '%s' are no longer available", run.ID))
		return
	}

	name := fmt.Sprintf("sim_data_%s_%s.%s", run.Params.TransactionFrom, run.Params.TransactionTo, opts.Format)
	contentType := opts.Format.ContentType()
	if opts.Compression == output.CompressionSnappy {
		name += ".sz"
		contentType = "application/x-snappy-framed"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

	if err := output.Encode(w, run.Dataset, opts); err != nil {
		// Headers are already sent.
		slog.Warn("export: failed to stream dataset", "run_id", run.ID, "error", err)
	}
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// ListWebhooks returns the active webhooks.
func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.notifier.List(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	if hooks == nil {
		hooks = []*domain.WebhookConfig{}
	}
	ok(w, hooks)
}

// RegisterWebhook registers a URL to be called when a simulation completes.
func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		badRequest(w, "INVALID_JSON", "request body must be valid JSON")
		return
	}
	if req.URL == "" {
		badRequest(w, "MISSING_URL", "url is required")
		return
	}

	wh, err := h.notifier.Register(r.Context(), req.URL)
	if err != nil {
		badRequest(w, "INVALID_URL", err.Error())
		return
	}
	created(w, wh)
}

// DeleteWebhook removes a registered webhook.
func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.notifier.Delete(r.Context(), id)
	if err != nil {
		internalError(w)
		return
	}
	if !deleted {
		notFound(w, fmt.Sprintf("webhook '%s' not found", id))
		return
	}
	noContent(w)
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// loadRun resolves the {id} URL parameter. It writes the error response and
// returns false when the run cannot be loaded.
func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*domain.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		notFound(w, fmt.Sprintf("simulation '%s' not found", id))
		return nil, false
	}
	if err != nil {
		slog.Error("failed to load run", "run_id", id, "error", err)
		internalError(w)
		return nil, false
	}
	return run, true
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func queryDefault(r *http.Request, name, def string) string {
	if v := r.URL.Query().Get(name); v != "" {
		return v
	}
	return def
}
