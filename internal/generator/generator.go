// Package generator turns the independent samplers into labeled transaction
// tables, one label class at a time.
//
// Generate draws the four parallel arrays (dates, amounts, features and,
// for fraud only, detection latencies). Compile aligns them into rows and
// derives the fraud flag and the identified date.
package generator

import (
	"log/slog"
	"math"
	"time"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/sample"
)

// Params is the part of the simulation configuration a single generation
// call needs. Rate is the arrival rate of the class being generated.
type Params struct {
	DateFrom     time.Time
	DateTo       time.Time
	Rate         float64
	NFeatures    int
	Seed         uint64
	Oversample   float64
	SeedStrategy sample.SeedStrategy
}

// Validate checks the parameters before any sampling happens.
func (p Params) Validate() error {
	if !p.DateFrom.Before(p.DateTo) {
		return simerrors.NewConfigError("date_from must be before date_to").
			WithDetails(map[string]interface{}{"date_from": p.DateFrom, "date_to": p.DateTo})
	}
	if !(p.Rate > 0) || math.IsInf(p.Rate, 0) {
		return simerrors.NewArgumentError("rate must be a positive number, got %v", p.Rate)
	}
	if p.NFeatures <= 0 {
		return simerrors.NewArgumentError("feature count must be positive, got %d", p.NFeatures)
	}
	if p.Oversample != 0 && p.Oversample < 1 {
		return simerrors.NewArgumentError("oversample factor must be at least 1, got %v", p.Oversample)
	}
	switch p.SeedStrategy {
	case "", sample.SplitSeeds, sample.SharedSeed:
	default:
		return simerrors.NewArgumentError("unknown seed strategy %q", p.SeedStrategy)
	}
	return nil
}

func (p Params) oversample() float64 {
	if p.Oversample == 0 {
		return sample.DefaultOversampleFactor
	}
	return p.Oversample
}

func (p Params) strategy() sample.SeedStrategy {
	if p.SeedStrategy == "" {
		return sample.SplitSeeds
	}
	return p.SeedStrategy
}

// Batch holds the raw parallel arrays of one label class.
// Latencies is nil for normal transactions; for fraud it is non-nil even
// when no arrival fell in the window.
type Batch struct {
	NFeatures int
	Dates     []time.Time
	Amounts   []float64
	Features  [][]float64
	Latencies []float64
}

// Label reports which class the batch was generated for.
func (b *Batch) Label() domain.Label {
	return domain.LabelOf(b.Latencies != nil)
}

// Len returns the number of sampled arrivals.
func (b *Batch) Len() int {
	return len(b.Dates)
}

// Generate samples one label class. Arrival times come first; the remaining
// samplers use their length as sample size.
func Generate(p Params, fraud bool) (*Batch, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	class := domain.LabelOf(fraud).String()
	seedFor := func(stream string) uint64 {
		return p.strategy().SeedFor(p.Seed, class, stream)
	}

	arrivals, err := sample.ArrivalTimes(p.Rate, p.DateFrom, p.DateTo, seedFor(sample.StreamArrivals), p.oversample())
	if err != nil {
		return nil, err
	}
	if arrivals.Exhausted {
		slog.Warn("arrival draw exhausted before window end; dataset may be truncated",
			"class", class,
			"rate", p.Rate,
			"oversample_factor", p.oversample(),
			"arrivals", len(arrivals.Times),
		)
	}
	if arrivals.Shifted > 0 || arrivals.Dropped > 0 {
		slog.Warn("arrivals collided at clock resolution",
			"class", class,
			"shifted", arrivals.Shifted,
			"dropped", arrivals.Dropped,
		)
	}

	size := len(arrivals.Times)
	amounts, err := sample.Amounts(size, fraud, seedFor(sample.StreamAmounts))
	if err != nil {
		return nil, err
	}
	features, err := sample.Features(size, p.NFeatures, fraud, seedFor(sample.StreamFeatures))
	if err != nil {
		return nil, err
	}

	b := &Batch{
		NFeatures: p.NFeatures,
		Dates:     arrivals.Times,
		Amounts:   amounts,
		Features:  features,
	}
	if fraud {
		b.Latencies, err = sample.DetectionLatencies(size, seedFor(sample.StreamLatencies))
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Compile assembles a batch into a dataset with the given column names.
// Rows of a batch without latencies are normal and never identified; rows of
// a batch with latencies are fraud, identified latency days after the
// transaction.
func Compile(b *Batch, columns domain.Columns) (*domain.Dataset, error) {
	n := len(b.Dates)
	if len(b.Amounts) != n || len(b.Features) != n || (b.Latencies != nil && len(b.Latencies) != n) {
		return nil, simerrors.NewInternalError("batch arrays are not row-aligned", nil).
			WithDetails(map[string]interface{}{
				"dates":     n,
				"amounts":   len(b.Amounts),
				"features":  len(b.Features),
				"latencies": len(b.Latencies),
			})
	}

	rows := make([]domain.Transaction, n)
	for i := range rows {
		rows[i] = domain.Transaction{
			TransactionDate:   b.Dates[i],
			TransactionAmount: b.Amounts[i],
			Features:          b.Features[i],
		}
		if b.Latencies != nil {
			identified := b.Dates[i].Add(latencyDuration(b.Latencies[i]))
			rows[i].IsFraud = true
			rows[i].FraudIdentifiedDate = &identified
		}
	}

	return &domain.Dataset{
		Columns:      columns,
		NFeatures:    b.NFeatures,
		Transactions: rows,
	}, nil
}

// latencyDuration converts fractional days to a duration of at least one
// nanosecond, so the identified date is always strictly later.
func latencyDuration(days float64) time.Duration {
	d := time.Duration(days * float64(24*time.Hour))
	if d < 1 {
		return 1
	}
	return d
}
