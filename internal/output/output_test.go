package output_test

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
	"lumina/fraud-sim/internal/output"
)

func testDataset() *domain.Dataset {
	t0 := time.Date(2022, 1, 1, 10, 0, 0, 0, time.UTC)
	identified := t0.Add(90 * time.Minute)
	return &domain.Dataset{
		Columns:   domain.DefaultColumns(),
		NFeatures: 2,
		Transactions: []domain.Transaction{
			{TransactionDate: t0, TransactionAmount: 1.25, Features: []float64{0.5, -1}, IsFraud: true, FraudIdentifiedDate: &identified},
			{TransactionDate: t0.Add(time.Minute), TransactionAmount: 3, Features: []float64{0, 2.75}},
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

// ─── Encode ───────────────────────────────────────────────────────────────────

func TestEncode_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Encode(&buf, testDataset(), output.Options{Format: output.FormatCSV}))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 3)
	assert.Equal(t, []string{"transaction_date", "transaction_amount", "0", "1", "fraud", "fraud_identified_date"}, records[0])
	assert.Equal(t, []string{"2022-01-01T10:00:00Z", "1.25", "0.5", "-1", "true", "2022-01-01T11:30:00Z"}, records[1])
	assert.Equal(t, []string{"2022-01-01T10:01:00Z", "3", "0", "2.75", "false", ""}, records[2])
}

func TestEncode_CSVEmptyDatasetHasHeaderOnly(t *testing.T) {
	ds := &domain.Dataset{Columns: domain.DefaultColumns(), NFeatures: 3}
	var buf bytes.Buffer
	require.NoError(t, output.Encode(&buf, ds, output.Options{}))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 1)
	assert.Len(t, records[0], 7)
}

func TestEncode_JSONLKeepsColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, output.Encode(&buf, testDataset(), output.Options{Format: output.FormatJSONL}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t,
		`{"transaction_date":"2022-01-01T10:00:00Z","transaction_amount":1.25,"0":0.5,"1":-1,"fraud":true,"fraud_identified_date":"2022-01-01T11:30:00Z"}`,
		string(lines[0]))

	var row map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &row))
	assert.Equal(t, false, row["fraud"])
	assert.Nil(t, row["fraud_identified_date"])
}

func TestEncode_SnappyRoundTrip(t *testing.T) {
	var plain, compressed bytes.Buffer
	ds := testDataset()
	require.NoError(t, output.Encode(&plain, ds, output.Options{Format: output.FormatCSV}))
	require.NoError(t, output.Encode(&compressed, ds, output.Options{Format: output.FormatCSV, Compression: output.CompressionSnappy}))

	var decoded bytes.Buffer
	_, err := decoded.ReadFrom(snappy.NewReader(&compressed))
	require.NoError(t, err)
	assert.Equal(t, plain.String(), decoded.String())
}

func TestEncode_RejectsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	err := output.Encode(&buf, testDataset(), output.Options{Format: output.FormatSQLite})
	assert.Equal(t, simerrors.CodeUnsupportedFormat, simerrors.GetCode(err))

	err = output.Encode(&buf, testDataset(), output.Options{Format: output.FormatCSV, Compression: "zstd"})
	assert.Equal(t, simerrors.CodeUnsupportedFormat, simerrors.GetCode(err))
}

// ─── WriteFile ────────────────────────────────────────────────────────────────

func TestWriteFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sim_data_2022-01-01_2022-01-02.csv")
	require.NoError(t, output.WriteFile(context.Background(), testDataset(), path, output.Options{Format: output.FormatCSV}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, readCSV(t, data), 3)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestWriteFile_JSONLSnappy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl.sz")
	require.NoError(t, output.WriteFile(context.Background(), testDataset(), path,
		output.Options{Format: output.FormatJSONL, Compression: output.CompressionSnappy}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(snappy.NewReader(f))
	var lines int
	for sc.Scan() {
		lines++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 2, lines)
}

func TestWriteFile_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.sqlite")
	require.NoError(t, output.WriteFile(context.Background(), testDataset(), path, output.Options{Format: output.FormatSQLite}))

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	require.NoError(t, err)
	defer db.Close()

	var total, fraud int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM("fraud") FROM transactions`).Scan(&total, &fraud))
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, fraud)

	var missing int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE "fraud_identified_date" IS NULL`).Scan(&missing))
	assert.Equal(t, 1, missing)

	var amount, feature float64
	require.NoError(t, db.QueryRow(`SELECT "transaction_amount", "1" FROM transactions ORDER BY "transaction_date" LIMIT 1`).Scan(&amount, &feature))
	assert.Equal(t, 1.25, amount)
	assert.Equal(t, -1.0, feature)
}

func TestWriteFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "out.csv")
	assert.ErrorIs(t, output.WriteFile(ctx, testDataset(), path, output.Options{}), context.Canceled)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "text/csv", output.FormatCSV.ContentType())
	assert.Equal(t, "application/x-ndjson", output.FormatJSONL.ContentType())
}
