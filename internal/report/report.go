// Package report summarises a simulated dataset: class balance, money
// aggregates per class and the distribution of fraud detection latencies.
package report

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"lumina/fraud-sim/internal/domain"
)

const day = 24 * time.Hour

// Summarize computes the report of ds. An empty dataset yields zero counts
// and zero aggregates.
func Summarize(ds *domain.Dataset) domain.Report {
	r := domain.Report{TotalTransactions: ds.Len()}

	var normal, fraud []decimal.Decimal
	latencies := make([]float64, 0)
	for _, tx := range ds.Transactions {
		amount := decimal.NewFromFloat(tx.TransactionAmount)
		if !tx.IsFraud {
			normal = append(normal, amount)
			continue
		}
		fraud = append(fraud, amount)
		if tx.FraudIdentifiedDate != nil {
			latencies = append(latencies, float64(tx.FraudIdentifiedDate.Sub(tx.TransactionDate))/float64(day))
		}
	}

	r.NormalCount = len(normal)
	r.FraudCount = len(fraud)
	if r.TotalTransactions > 0 {
		r.FraudShare = float64(r.FraudCount) / float64(r.TotalTransactions)
		first := ds.Transactions[0].TransactionDate
		last := ds.Transactions[len(ds.Transactions)-1].TransactionDate
		r.FirstTransaction = &first
		r.LastTransaction = &last
	}
	r.Normal = amountStats(normal)
	r.Fraudulent = amountStats(fraud)

	if len(latencies) > 0 {
		slices.Sort(latencies)
		r.MeanLatencyDays = stat.Mean(latencies, nil)
		r.MedianLatencyDays = stat.Quantile(0.5, stat.Empirical, latencies, nil)
		r.P90LatencyDays = stat.Quantile(0.9, stat.Empirical, latencies, nil)

		var within int
		for _, l := range latencies {
			if l <= 30 {
				within++
			}
		}
		r.IdentifiedWithin30 = float64(within) / float64(len(latencies))
	}
	return r
}

// amountStats rounds money aggregates to cents.
func amountStats(amounts []decimal.Decimal) domain.AmountStats {
	if len(amounts) == 0 {
		zero := decimal.Zero.StringFixed(2)
		return domain.AmountStats{Total: zero, Mean: zero, Max: zero}
	}
	total := decimal.Sum(amounts[0], amounts[1:]...)
	mean := total.Div(decimal.NewFromInt(int64(len(amounts))))
	return domain.AmountStats{
		Total: total.StringFixed(2),
		Mean:  mean.StringFixed(2),
		Max:   decimal.Max(amounts[0], amounts[1:]...).StringFixed(2),
	}
}
