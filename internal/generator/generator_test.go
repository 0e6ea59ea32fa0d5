package generator

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/sample"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func dayParams(rate float64) Params {
	return Params{
		DateFrom:  time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		DateTo:    time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
		Rate:      rate,
		NFeatures: 2,
		Seed:      12321,
	}
}

// ─── Generate ─────────────────────────────────────────────────────────────────

func TestGenerate_Normal_AlignedAndNoLatencies(t *testing.T) {
	b, err := Generate(dayParams(0.01), false)
	require.NoError(t, err)

	assert.NotZero(t, b.Len())
	assert.Len(t, b.Amounts, b.Len())
	assert.Len(t, b.Features, b.Len())
	assert.Nil(t, b.Latencies)
	assert.Equal(t, domain.Normal, b.Label())
}

func TestGenerate_Fraud_FourAlignedArrays(t *testing.T) {
	b, err := Generate(dayParams(0.001), true)
	require.NoError(t, err)

	assert.Len(t, b.Amounts, b.Len())
	assert.Len(t, b.Features, b.Len())
	require.NotNil(t, b.Latencies)
	assert.Len(t, b.Latencies, b.Len())
	assert.Equal(t, domain.Fraud, b.Label())
}

func TestGenerate_FraudWithNoArrivalsStillLabeledFraud(t *testing.T) {
	b, err := Generate(dayParams(1e-9), true)
	require.NoError(t, err)
	assert.Zero(t, b.Len())
	assert.NotNil(t, b.Latencies)
	assert.Equal(t, domain.Fraud, b.Label())
}

func TestGenerate_InvalidRangeFailsFast(t *testing.T) {
	p := dayParams(0.01)
	p.DateFrom, p.DateTo = p.DateTo, p.DateFrom
	_, err := Generate(p, false)
	assert.True(t, errors.Is(err, simerrors.ErrInvalidConfiguration))
}

func TestGenerate_InvalidArguments(t *testing.T) {
	cases := map[string]func(*Params){
		"zero rate":        func(p *Params) { p.Rate = 0 },
		"negative rate":    func(p *Params) { p.Rate = -1 },
		"zero features":    func(p *Params) { p.NFeatures = 0 },
		"small oversample": func(p *Params) { p.Oversample = 0.2 },
		"unknown strategy": func(p *Params) { p.SeedStrategy = "random" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := dayParams(0.01)
			mutate(&p)
			_, err := Generate(p, true)
			assert.True(t, errors.Is(err, simerrors.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, err := Generate(dayParams(0.005), true)
	require.NoError(t, err)
	b, err := Generate(dayParams(0.005), true)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_SharedSeedReusesStreams(t *testing.T) {
	p := dayParams(0.01)
	p.SeedStrategy = sample.SharedSeed
	normal, err := Generate(p, false)
	require.NoError(t, err)
	fraud, err := Generate(p, true)
	require.NoError(t, err)

	// With a shared seed both classes draw arrivals from the raw seed.
	want, err := sample.ArrivalTimes(p.Rate, p.DateFrom, p.DateTo, p.Seed, sample.DefaultOversampleFactor)
	require.NoError(t, err)
	assert.Equal(t, want.Times, normal.Dates)
	assert.Equal(t, want.Times, fraud.Dates)
}

// ─── Compile ──────────────────────────────────────────────────────────────────

func TestCompile_NormalRows(t *testing.T) {
	b, err := Generate(dayParams(0.01), false)
	require.NoError(t, err)

	ds, err := Compile(b, domain.DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, b.Len(), ds.Len())
	assert.Len(t, ds.Header(), 6)
	for i, row := range ds.Transactions {
		assert.False(t, row.IsFraud)
		assert.Nil(t, row.FraudIdentifiedDate)
		assert.Equal(t, b.Dates[i], row.TransactionDate)
		assert.Equal(t, b.Amounts[i], row.TransactionAmount)
		assert.Len(t, row.Features, 2)
	}
}

func TestCompile_FraudRowsIdentifiedAfterTransaction(t *testing.T) {
	b, err := Generate(dayParams(0.001), true)
	require.NoError(t, err)

	ds, err := Compile(b, domain.DefaultColumns())
	require.NoError(t, err)

	for i, row := range ds.Transactions {
		assert.True(t, row.IsFraud)
		require.NotNil(t, row.FraudIdentifiedDate)
		assert.True(t, row.FraudIdentifiedDate.After(row.TransactionDate))
		want := row.TransactionDate.Add(time.Duration(b.Latencies[i] * float64(24*time.Hour)))
		assert.WithinDuration(t, want, *row.FraudIdentifiedDate, time.Nanosecond)
	}
}

func TestCompile_KnownLatency(t *testing.T) {
	ts := time.Date(2022, 1, 1, 12, 0, 0, 0, time.UTC)
	b := &Batch{
		NFeatures: 1,
		Dates:     []time.Time{ts},
		Amounts:   []float64{3.5},
		Features:  [][]float64{{0.1}},
		Latencies: []float64{1.5},
	}
	ds, err := Compile(b, domain.DefaultColumns())
	require.NoError(t, err)
	require.Len(t, ds.Transactions, 1)
	assert.Equal(t, ts.Add(36*time.Hour), *ds.Transactions[0].FraudIdentifiedDate)
}

func TestCompile_SubNanosecondLatencyStillStrictlyLater(t *testing.T) {
	ts := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	b := &Batch{
		NFeatures: 1,
		Dates:     []time.Time{ts},
		Amounts:   []float64{1},
		Features:  [][]float64{{0}},
		Latencies: []float64{1e-20},
	}
	ds, err := Compile(b, domain.DefaultColumns())
	require.NoError(t, err)
	assert.True(t, ds.Transactions[0].FraudIdentifiedDate.After(ts))
}

func TestCompile_MisalignedBatchRejected(t *testing.T) {
	b := &Batch{
		NFeatures: 1,
		Dates:     []time.Time{time.Now(), time.Now()},
		Amounts:   []float64{1},
		Features:  [][]float64{{0}, {0}},
	}
	_, err := Compile(b, domain.DefaultColumns())
	assert.Equal(t, simerrors.ErrCategoryInternal, simerrors.GetCategory(err))
}

func TestProperty_CompiledFraudRowsAreConsistent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("fraud flag and identified date agree on every row", prop.ForAll(
		func(seed uint64, fraud bool) bool {
			p := dayParams(0.002)
			p.Seed = seed
			b, err := Generate(p, fraud)
			if err != nil {
				return false
			}
			ds, err := Compile(b, domain.DefaultColumns())
			if err != nil {
				return false
			}
			for _, row := range ds.Transactions {
				if row.IsFraud != fraud || (row.FraudIdentifiedDate != nil) != fraud {
					return false
				}
				if fraud && !row.FraudIdentifiedDate.After(row.TransactionDate) {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
