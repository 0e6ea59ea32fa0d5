// Package domain contains the core types shared by the simulator, the output
// sinks and the HTTP service. Keeping them in one place makes the dataset
// invariants easy to reason about.
package domain

import (
	"strconv"
	"time"
)

// ─── Labels ───────────────────────────────────────────────────────────────────

// Label identifies which sub-population a transaction was generated for.
type Label int

const (
	Normal Label = iota // legitimate transaction, never identified as fraud
	Fraud               // fraudulent transaction, carries a detection latency
)

// LabelOf maps the boolean fraud flag used across the API to a Label.
func LabelOf(fraud bool) Label {
	if fraud {
		return Fraud
	}
	return Normal
}

func (l Label) String() string {
	if l == Fraud {
		return "fraud"
	}
	return "normal"
}

// ─── Column naming ────────────────────────────────────────────────────────────

// Columns is the naming scheme applied to the dataset's fixed columns.
// Feature columns are always named by their 0-based index.
type Columns struct {
	TransactionDate     string `json:"transaction_date" yaml:"transaction_date" validate:"required"`
	TransactionAmount   string `json:"transaction_amount" yaml:"transaction_amount" validate:"required"`
	Fraud               string `json:"fraud" yaml:"fraud" validate:"required"`
	FraudIdentifiedDate string `json:"fraud_identified_date" yaml:"fraud_identified_date" validate:"required"`
}

// DefaultColumns returns the naming scheme used when none is configured.
func DefaultColumns() Columns {
	return Columns{
		TransactionDate:     "transaction_date",
		TransactionAmount:   "transaction_amount",
		Fraud:               "fraud",
		FraudIdentifiedDate: "fraud_identified_date",
	}
}

// ─── Transactions ─────────────────────────────────────────────────────────────

// Transaction is one row of the generated dataset.
// FraudIdentifiedDate is nil unless IsFraud is set, and when set it is strictly
// after TransactionDate.
type Transaction struct {
	TransactionDate     time.Time  `json:"transaction_date"`
	TransactionAmount   float64    `json:"transaction_amount"`
	Features            []float64  `json:"features"`
	IsFraud             bool       `json:"fraud"`
	FraudIdentifiedDate *time.Time `json:"fraud_identified_date"`
}

// Label returns the sub-population of the row.
func (t Transaction) Label() Label {
	return LabelOf(t.IsFraud)
}

// Dataset is a time-ordered set of transactions with a fixed feature width.
// It is never mutated after the simulator hands it out.
type Dataset struct {
	Columns      Columns       `json:"columns"`
	NFeatures    int           `json:"n_features"`
	Transactions []Transaction `json:"transactions"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Transactions)
}

// Header returns the column names in output order: date, amount, one column
// per feature, fraud flag, identified date. Its length is 4 + NFeatures.
func (d *Dataset) Header() []string {
	header := make([]string, 0, 4+d.NFeatures)
	header = append(header, d.Columns.TransactionDate, d.Columns.TransactionAmount)
	for i := 0; i < d.NFeatures; i++ {
		header = append(header, strconv.Itoa(i))
	}
	return append(header, d.Columns.Fraud, d.Columns.FraudIdentifiedDate)
}

// Slice returns up to limit rows starting at offset. Out-of-range offsets
// yield an empty slice.
func (d *Dataset) Slice(offset, limit int) []Transaction {
	if offset < 0 || offset >= len(d.Transactions) || limit <= 0 {
		return []Transaction{}
	}
	end := offset + limit
	if end > len(d.Transactions) {
		end = len(d.Transactions)
	}
	return d.Transactions[offset:end]
}

// ─── Simulation runs ──────────────────────────────────────────────────────────

// Run is a completed simulation kept by the service.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Params    Params    `json:"params"`
	Report    Report    `json:"report"`
	Dataset   *Dataset  `json:"-"`
}

// Params is the user-facing parameter set of a simulation run, in the shape of
// the params file.
type Params struct {
	TransactionFrom          string  `json:"transaction_from" yaml:"transaction_from" validate:"required,datetime=2006-01-02"`
	TransactionTo            string  `json:"transaction_to" yaml:"transaction_to" validate:"required,datetime=2006-01-02"`
	FeatureCount             int     `json:"feature_count" yaml:"feature_count" validate:"gt=0"`
	TransactionRatePerSecond float64 `json:"transaction_rate_per_second" yaml:"transaction_rate_per_second" validate:"gt=0"`
	FraudRate                float64 `json:"fraud_rate" yaml:"fraud_rate" validate:"gt=0"`
	RandomState              uint64  `json:"random_state" yaml:"random_state"`
	ColumnName               Columns `json:"column_name" yaml:"column_name"`
	OversampleFactor         float64 `json:"oversample_factor,omitempty" yaml:"oversample_factor,omitempty" validate:"omitempty,gte=1"`
	SeedStrategy             string  `json:"seed_strategy,omitempty" yaml:"seed_strategy,omitempty" validate:"omitempty,oneof=split shared"`
}

// ─── Reporting ────────────────────────────────────────────────────────────────

// Report summarises a dataset for operators and webhook consumers.
type Report struct {
	TotalTransactions  int         `json:"total_transactions"`
	NormalCount        int         `json:"normal_count"`
	FraudCount         int         `json:"fraud_count"`
	FraudShare         float64     `json:"fraud_share"`
	Normal             AmountStats `json:"normal_amount"`
	Fraudulent         AmountStats `json:"fraud_amount"`
	MeanLatencyDays    float64     `json:"mean_latency_days"`
	MedianLatencyDays  float64     `json:"median_latency_days"`
	P90LatencyDays     float64     `json:"p90_latency_days"`
	IdentifiedWithin30 float64     `json:"identified_within_30_days"`
	FirstTransaction   *time.Time  `json:"first_transaction,omitempty"`
	LastTransaction    *time.Time  `json:"last_transaction,omitempty"`
}

// AmountStats holds money aggregates rounded to cents.
type AmountStats struct {
	Total string `json:"total"`
	Mean  string `json:"mean"`
	Max   string `json:"max"`
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// WebhookConfig is a registered callback notified when a simulation finishes.
type WebhookConfig struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// WebhookPayload is the body sent to registered webhook URLs.
type WebhookPayload struct {
	Event       string    `json:"event"` // always "simulation_completed"
	TriggeredAt time.Time `json:"triggered_at"`
	RunID       string    `json:"run_id"`
	Report      Report    `json:"report"`
}
