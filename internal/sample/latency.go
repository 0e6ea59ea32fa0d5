package sample

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	simerrors "lumina/fraud-sim/internal/errors"
)

// DetectionRate is the exponential rate (per day) of fraud detection latency,
// chosen so that 90% of fraud is identified within 30 days.
const DetectionRate = math.Ln10 / 30

// DetectionLatencies samples size positive detection latencies in days.
func DetectionLatencies(size int, seed uint64) ([]float64, error) {
	if size < 0 {
		return nil, simerrors.NewArgumentError("size must not be negative, got %d", size)
	}

	dist := distuv.Exponential{Rate: DetectionRate, Src: newSource(seed)}
	out := make([]float64, size)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out, nil
}
