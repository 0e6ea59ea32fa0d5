package sample

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	simerrors "lumina/fraud-sim/internal/errors"
)

const (
	normalVariance = 1.1
	fraudVariance  = 2.5

	// fraudShiftProb is the probability that a feature dimension has mean 1
	// instead of 0 for fraudulent transactions.
	fraudShiftProb = 0.7
)

// Features samples size feature vectors of width n.
//
// Normal vectors are N(0, 1.1·I). For fraud, each dimension's mean is set to 1
// with probability 0.7 (else 0) once per call, and vectors are N(mean, 2.5·I).
// The result has shape (size, n).
func Features(size, n int, fraud bool, seed uint64) ([][]float64, error) {
	if size < 0 {
		return nil, simerrors.NewArgumentError("size must not be negative, got %d", size)
	}
	if n <= 0 {
		return nil, simerrors.NewArgumentError("feature count must be positive, got %d", n)
	}

	src := newSource(seed)
	mean := make([]float64, n)
	variance := normalVariance
	if fraud {
		variance = fraudVariance
		rnd := rand.New(src)
		for i := range mean {
			if rnd.Float64() < fraudShiftProb {
				mean[i] = 1
			}
		}
	}

	diag := make([]float64, n)
	for i := range diag {
		diag[i] = variance
	}
	dist, ok := distmv.NewNormal(mean, mat.NewDiagDense(n, diag), src)
	if !ok {
		return nil, simerrors.NewInternalError("feature covariance is not positive definite", nil)
	}

	// Rows share one backing array.
	backing := make([]float64, size*n)
	out := make([][]float64, size)
	for i := range out {
		out[i] = dist.Rand(backing[i*n : (i+1)*n : (i+1)*n])
	}
	return out, nil
}
