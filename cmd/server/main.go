// Command server starts the fraud simulation HTTP service.
//
// Usage:
//
//	go run ./cmd/server [flags]
//
// Flags:
//
//	-config   Path to a YAML or JSON config file (default: built-in defaults)
//	-env      Path to a .env file with FRAUDSIM_* overrides (default: .env)
//	-port     HTTP port to listen on, overrides server.addr
//	-preload  Run the configured params once at startup and keep the run
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"lumina/fraud-sim/internal/api"
	"lumina/fraud-sim/internal/config"
	"lumina/fraud-sim/internal/domain"
	"lumina/fraud-sim/internal/report"
	"lumina/fraud-sim/internal/simulator"
	"lumina/fraud-sim/internal/store"
	"lumina/fraud-sim/internal/webhook"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML or JSON config file")
	envFile := flag.String("env", ".env", "path to a .env file")
	port := flag.Int("port", 0, "HTTP port (overrides server.addr)")
	preload := flag.Bool("preload", false, "simulate the configured params at startup")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := loadConfig(*configFile, *envFile)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Most PaaS platforms inject PORT as an env var; it beats the flag.
	if envPort := os.Getenv("PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			*port = p
		}
	}
	if *port != 0 {
		cfg.Server.Addr = fmt.Sprintf(":%d", *port)
	}

	// ── Wire dependencies ─────────────────────────────────────────────────────
	s, closeStore, err := newStore(cfg.Store)
	if err != nil {
		slog.Error("store unavailable", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	notifier := webhook.New(s)
	handler := api.NewHandler(s, notifier)
	router := api.NewRouter(handler)

	if *preload {
		if err := preloadRun(context.Background(), s, cfg.Params); err != nil {
			// Non-fatal: the service works fine without a preloaded run.
			slog.Warn("preload skipped", "reason", err.Error())
		}
	}

	// ── Start HTTP server ─────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	notifier.Wait()
	slog.Info("server stopped")
}

func loadConfig(configFile, envFile string) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newStore builds the configured run store and returns a function releasing
// its resources.
func newStore(cfg config.StoreConfig) (store.Store, func(), error) {
	if cfg.Backend != "redis" {
		return store.New(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	rs := store.NewRedis(client, cfg.TTL.Std())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return rs, func() { client.Close() }, nil
}

// preloadRun simulates params and stores the result so the service starts
// with a dataset to browse.
func preloadRun(ctx context.Context, s store.Store, params domain.Params) error {
	simCfg, err := config.Simulation(params)
	if err != nil {
		return err
	}
	sim, err := simulator.New(simCfg)
	if err != nil {
		return err
	}
	ds, err := sim.SimulateAll(ctx)
	if err != nil {
		return err
	}

	run := &domain.Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Params:    params,
		Report:    report.Summarize(ds),
		Dataset:   ds,
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return err
	}
	slog.Info("preloaded run", "run_id", run.ID, "rows", run.Report.TotalTransactions)
	return nil
}
