// Package output writes simulated datasets to disk in the supported formats.
//
// Every format carries the same columns in the same order as
// domain.Dataset.Header: transaction date, amount, one column per feature,
// the fraud flag and the identified date (empty for normal rows).
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang/snappy"

	"lumina/fraud-sim/internal/domain"
	simerrors "lumina/fraud-sim/internal/errors"
)

// Format is an output file format.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

// Compression is a stream compression applied to csv and jsonl output.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
)

// TimeLayout is the layout of both date columns in text formats.
const TimeLayout = time.RFC3339Nano

// Options selects the format and compression of a written dataset.
type Options struct {
	Format      Format
	Compression Compression
}

// ContentType returns the MIME type of a streamed format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSONL:
		return "application/x-ndjson"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "text/csv"
	}
}

// Encode streams ds to w. SQLite cannot be streamed; use WriteFile for it.
func Encode(w io.Writer, ds *domain.Dataset, opts Options) error {
	var sw *snappy.Writer
	switch opts.Compression {
	case "", CompressionNone:
	case CompressionSnappy:
		sw = snappy.NewBufferedWriter(w)
		w = sw
	default:
		return simerrors.NewOutputError(simerrors.CodeUnsupportedFormat, fmt.Sprintf("unknown compression %q", opts.Compression), nil)
	}

	var err error
	switch opts.Format {
	case "", FormatCSV:
		err = writeCSV(w, ds)
	case FormatJSONL:
		err = writeJSONL(w, ds)
	default:
		return simerrors.NewOutputError(simerrors.CodeUnsupportedFormat, fmt.Sprintf("format %q cannot be streamed", opts.Format), nil)
	}
	if err != nil {
		return simerrors.NewOutputError(simerrors.CodeWriteFailed, "encode dataset", err)
	}

	if sw != nil {
		if err := sw.Close(); err != nil {
			return simerrors.NewOutputError(simerrors.CodeWriteFailed, "flush snappy stream", err)
		}
	}
	return nil
}

// WriteFile writes ds to path. The file is first written next to path and
// renamed into place once complete, so readers never observe a partial file.
func WriteFile(ctx context.Context, ds *domain.Dataset, path string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return simerrors.NewOutputError(simerrors.CodeWriteFailed, "create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return simerrors.NewOutputError(simerrors.CodeWriteFailed, "create temporary file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if opts.Format == FormatSQLite {
		tmp.Close()
		if err := writeSQLite(ctx, tmpPath, ds); err != nil {
			return simerrors.NewOutputError(simerrors.CodeWriteFailed, "write sqlite dataset", err)
		}
	} else {
		if err := Encode(tmp, ds, opts); err != nil {
			tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return simerrors.NewOutputError(simerrors.CodeWriteFailed, "close output file", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return simerrors.NewOutputError(simerrors.CodeWriteFailed, "move output file into place", err)
	}
	return nil
}

// ─── Cell formatting ──────────────────────────────────────────────────────────

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatIdentified(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}
