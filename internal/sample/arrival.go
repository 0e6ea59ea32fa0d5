package sample

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	simerrors "lumina/fraud-sim/internal/errors"
)

// DefaultOversampleFactor is how many times the expected number of arrivals
// is drawn before truncating at the window end. With a factor of 5 running
// out of draws before the window closes is vanishingly unlikely for any
// window holding more than a handful of expected arrivals.
const DefaultOversampleFactor = 5.0

// Arrivals is the result of sampling a Poisson process over a window.
type Arrivals struct {
	// Times is strictly increasing and lies within [from, to].
	Times []time.Time
	// Exhausted is set when the draw budget ran out while the next gap would
	// still have landed inside the window, so Times may be short.
	Exhausted bool
	// Shifted counts arrivals that collided with the previous instant at
	// nanosecond resolution and were moved one nanosecond later.
	Shifted int
	// Dropped counts arrivals that could not be shifted without passing the
	// window end.
	Dropped int
}

// WindowSeconds returns the length of [from, to] in seconds. Unlike
// to.Sub(from) it does not saturate for windows longer than ~292 years.
func WindowSeconds(from, to time.Time) float64 {
	return float64(to.Unix()-from.Unix()) + float64(to.Nanosecond()-from.Nanosecond())/1e9
}

// offsetTime returns from + secs without going through time.Duration.
func offsetTime(from time.Time, secs float64) time.Time {
	whole := math.Floor(secs)
	nanos := int64((secs - whole) * 1e9)
	return time.Unix(from.Unix()+int64(whole), int64(from.Nanosecond())+nanos).In(from.Location())
}

// ArrivalTimes samples arrivals of a homogeneous Poisson process with the
// given rate (events per second) over [from, to].
//
// Inter-arrival gaps are exponential with mean 1/rate. At most
// int(oversample × rate × seconds) gaps are drawn; their running sum is kept
// while it stays within the window and each kept value becomes
// from + value seconds.
func ArrivalTimes(rate float64, from, to time.Time, seed uint64, oversample float64) (Arrivals, error) {
	if !from.Before(to) {
		return Arrivals{}, simerrors.NewConfigError("date_from must be before date_to")
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return Arrivals{}, simerrors.NewArgumentError("rate must be a positive number, got %v", rate)
	}
	if !(oversample >= 1) || math.IsInf(oversample, 0) {
		return Arrivals{}, simerrors.NewArgumentError("oversample factor must be at least 1, got %v", oversample)
	}

	secondsBetween := WindowSeconds(from, to)
	budget := int(oversample * rate * secondsBetween)

	gaps := distuv.Exponential{Rate: rate, Src: newSource(seed)}

	// The running sum is monotone, so stopping at the first value past the
	// window keeps exactly the prefix a full draw would keep.
	out := Arrivals{Times: make([]time.Time, 0, int(rate*secondsBetween)+1)}
	var (
		cum  float64
		kept int
	)
	for kept < budget {
		cum += gaps.Rand()
		if cum > secondsBetween {
			break
		}
		kept++

		ts := offsetTime(from, cum)
		if ts.After(to) {
			ts = to
		}
		if n := len(out.Times); n > 0 && !ts.After(out.Times[n-1]) {
			ts = out.Times[n-1].Add(time.Nanosecond)
			if ts.After(to) {
				out.Dropped++
				continue
			}
			out.Shifted++
		}
		out.Times = append(out.Times, ts)
	}

	// Only a budget that ran out with the next gap still inside the window
	// means the window was cut short.
	if kept == budget {
		out.Exhausted = cum+gaps.Rand() <= secondsBetween
	}
	return out, nil
}
