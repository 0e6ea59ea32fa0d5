// Package simulator runs the transaction generator for both label classes and
// merges the results into one time-ordered dataset.
//
// A Simulator holds an immutable configuration and nothing else, so it can be
// invoked repeatedly and concurrently with identical results.
package simulator

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/generator"
	"lumina/fraud-sim/internal/sample"
)

// MaxExpectedTransactions bounds the expected dataset size. Everything is
// materialized in memory, so larger windows or rates are rejected up front.
const MaxExpectedTransactions = 50_000_000

// Config is the experiment configuration. FraudRate is an absolute arrival
// rate in events per second, not a share of TransactionRate.
type Config struct {
	DateFrom         time.Time
	DateTo           time.Time
	TransactionRate  float64
	FraudRate        float64
	NFeatures        int
	RandomState      uint64
	OversampleFactor float64
	SeedStrategy     sample.SeedStrategy
	Columns          domain.Columns
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if !c.DateFrom.Before(c.DateTo) {
		return simerrors.NewConfigError("date_from must be before date_to")
	}
	if !(c.TransactionRate > 0) || math.IsInf(c.TransactionRate, 0) {
		return simerrors.NewArgumentError("transaction rate must be a positive number, got %v", c.TransactionRate)
	}
	if !(c.FraudRate > 0) || math.IsInf(c.FraudRate, 0) {
		return simerrors.NewArgumentError("fraud rate must be a positive number, got %v", c.FraudRate)
	}
	if c.NFeatures <= 0 {
		return simerrors.NewArgumentError("feature count must be positive, got %d", c.NFeatures)
	}

	expected := (c.TransactionRate + c.FraudRate) * sample.WindowSeconds(c.DateFrom, c.DateTo)
	if expected > MaxExpectedTransactions {
		return simerrors.NewConfigError("expected transaction count exceeds the in-memory limit").
			WithDetails(map[string]interface{}{
				"expected": expected,
				"limit":    MaxExpectedTransactions,
			})
	}
	return nil
}

// Simulator generates labeled transaction datasets.
type Simulator struct {
	cfg Config
}

// New validates cfg and returns a Simulator bound to it. Empty column names
// fall back to domain.DefaultColumns.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Columns == (domain.Columns{}) {
		cfg.Columns = domain.DefaultColumns()
	}
	return &Simulator{cfg: cfg}, nil
}

// Config returns a copy of the simulator's configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// SimulateTransaction generates one label class: fraud transactions at
// FraudRate, normal ones at TransactionRate.
func (s *Simulator) SimulateTransaction(ctx context.Context, fraud bool) (*domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rate := s.cfg.TransactionRate
	if fraud {
		rate = s.cfg.FraudRate
	}

	batch, err := generator.Generate(generator.Params{
		DateFrom:     s.cfg.DateFrom,
		DateTo:       s.cfg.DateTo,
		Rate:         rate,
		NFeatures:    s.cfg.NFeatures,
		Seed:         s.cfg.RandomState,
		Oversample:   s.cfg.OversampleFactor,
		SeedStrategy: s.cfg.SeedStrategy,
	}, fraud)
	if err != nil {
		return nil, err
	}

	slog.Debug("class generated", "class", batch.Label().String(), "rows", batch.Len())
	return generator.Compile(batch, s.cfg.Columns)
}

// SimulateAll generates both classes, concatenates them and sorts the result
// ascending by transaction date. The two classes are generated concurrently;
// each owns its random streams, so the output matches a sequential run.
func (s *Simulator) SimulateAll(ctx context.Context) (*domain.Dataset, error) {
	var normal, fraud *domain.Dataset

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		normal, err = s.SimulateTransaction(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		fraud, err = s.SimulateTransaction(gctx, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]domain.Transaction, 0, normal.Len()+fraud.Len())
	rows = append(rows, normal.Transactions...)
	rows = append(rows, fraud.Transactions...)
	slices.SortStableFunc(rows, func(a, b domain.Transaction) int {
		return a.TransactionDate.Compare(b.TransactionDate)
	})

	return &domain.Dataset{
		Columns:      s.cfg.Columns,
		NFeatures:    s.cfg.NFeatures,
		Transactions: rows,
	}, nil
}
