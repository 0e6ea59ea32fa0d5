package output

import (
	"bufio"
	"io"

	json "github.com/goccy/go-json"

	"lumina/fraud-sim/internal/domain"
)

// writeJSONL writes one object per row. Keys follow the header order, so the
// object is assembled by hand instead of through a map.
func writeJSONL(w io.Writer, ds *domain.Dataset) error {
	header := ds.Header()
	keys := make([][]byte, len(header))
	for i, name := range header {
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw := bufio.NewWriter(w)
	values := make([]any, len(header))
	for _, tx := range ds.Transactions {
		values[0] = tx.TransactionDate.UTC().Format(TimeLayout)
		values[1] = tx.TransactionAmount
		for i, v := range tx.Features {
			values[2+i] = v
		}
		values[2+ds.NFeatures] = tx.IsFraud
		if tx.FraudIdentifiedDate != nil {
			values[3+ds.NFeatures] = formatIdentified(tx.FraudIdentifiedDate)
		} else {
			values[3+ds.NFeatures] = nil
		}

		bw.WriteByte('{')
		for i, v := range values {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.Write(keys[i])
			bw.WriteByte(':')
			enc, err := json.Marshal(v)
			if err != nil {
				return err
			}
			bw.Write(enc)
		}
		bw.WriteString("}\n")
	}
	return bw.Flush()
}
