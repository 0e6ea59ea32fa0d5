// Command simulate generates a synthetic fraud transaction dataset and writes
// it to sim_data_{from}_{to}.{format} in the output directory.
//
// Usage:
//
//	go run ./cmd/simulate [flags]
//
// Flags:
//
//	-config       Path to a YAML or JSON params file (default: built-in defaults)
//	-env          Path to a .env file with FRAUDSIM_* overrides (default: .env)
//	-out          Output directory (overrides output.dir)
//	-format       csv, jsonl or sqlite (overrides output.format)
//	-compression  none or snappy (overrides output.compression)
//	-upload       Upload the written file to the configured storage
//	-v            Debug logging
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"lumina/fraud-sim/internal/config"
	"lumina/fraud-sim/internal/domain"
	"lumina/fraud-sim/internal/output"
	"lumina/fraud-sim/internal/report"
	"lumina/fraud-sim/internal/simulator"
	"lumina/fraud-sim/internal/storage"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML or JSON params file")
	envFile := flag.String("env", ".env", "path to a .env file")
	outDir := flag.String("out", "", "output directory")
	format := flag.String("format", "", "output format: csv, jsonl or sqlite")
	compression := flag.String("compression", "", "output compression: none or snappy")
	upload := flag.Bool("upload", false, "upload the dataset to the configured storage")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *envFile, *outDir, *format, *compression, *upload); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, envFile, outDir, format, compression string, upload bool) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return err
	}

	// Flags take precedence over the file and the environment.
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if compression != "" {
		cfg.Output.Compression = compression
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	simCfg, err := cfg.Simulation()
	if err != nil {
		return err
	}
	sim, err := simulator.New(simCfg)
	if err != nil {
		return err
	}

	slog.Info("simulating",
		"from", cfg.TransactionFrom,
		"to", cfg.TransactionTo,
		"transaction_rate", simCfg.TransactionRate,
		"fraud_rate", simCfg.FraudRate,
		"features", simCfg.NFeatures,
		"seed", simCfg.RandomState,
	)

	start := time.Now()
	ds, err := sim.SimulateAll(ctx)
	if err != nil {
		return err
	}
	logReport(report.Summarize(ds), time.Since(start))

	path := cfg.OutputPath()
	opts := output.Options{
		Format:      output.Format(cfg.Output.Format),
		Compression: output.Compression(cfg.Output.Compression),
	}
	if err := output.WriteFile(ctx, ds, path, opts); err != nil {
		return err
	}
	slog.Info("dataset written", "path", path, "rows", ds.Len())

	if !upload {
		return nil
	}
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("-upload requires storage.type to be local or s3")
	}
	key := storage.ObjectKey(cfg.Storage.Prefix, filepath.Base(path))
	if err := store.Upload(ctx, path, key); err != nil {
		return err
	}
	slog.Info("dataset uploaded", "storage", cfg.Storage.Type, "key", key)
	return nil
}

func logReport(r domain.Report, elapsed time.Duration) {
	slog.Info("simulation complete",
		"rows", r.TotalTransactions,
		"normal", r.NormalCount,
		"fraud", r.FraudCount,
		"fraud_share", fmt.Sprintf("%.4f", r.FraudShare),
		"normal_amount_mean", r.Normal.Mean,
		"fraud_amount_mean", r.Fraudulent.Mean,
		"median_latency_days", fmt.Sprintf("%.2f", r.MedianLatencyDays),
		"identified_within_30_days", fmt.Sprintf("%.3f", r.IdentifiedWithin30),
		"duration_ms", elapsed.Milliseconds(),
	)
}
