package sample

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	simerrors "lumina/fraud-sim/internal/errors"
)

// Amount distribution parameters. Scale is 1 for every branch, so the gonum
// rate parameter (Beta) is 1 as well.
const (
	amountShape      = 2.0
	largeAmountShape = 15.0
	amountRate       = 1.0

	// fraudRegularShare is the probability that a fraudulent charge is drawn
	// from the regular amount distribution instead of the large one.
	fraudRegularShare = 0.8
)

// Amounts samples size transaction amounts.
//
// Normal amounts are Gamma(shape 2, scale 1). Fraud amounts pick, per sample,
// Gamma(2, 1) with probability 0.8 and Gamma(15, 1) otherwise. All values are
// strictly positive.
func Amounts(size int, fraud bool, seed uint64) ([]float64, error) {
	if size < 0 {
		return nil, simerrors.NewArgumentError("size must not be negative, got %d", size)
	}

	src := newSource(seed)
	regular := distuv.Gamma{Alpha: amountShape, Beta: amountRate, Src: src}
	out := make([]float64, size)

	if !fraud {
		for i := range out {
			out[i] = regular.Rand()
		}
		return out, nil
	}

	pick := rand.New(src)
	large := distuv.Gamma{Alpha: largeAmountShape, Beta: amountRate, Src: src}
	for i := range out {
		if pick.Float64() < fraudRegularShare {
			out[i] = regular.Rand()
		} else {
			out[i] = large.Rand()
		}
	}
	return out, nil
}
