package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"lumina/fraud-sim/internal/domain"
)

func writeCSV(w io.Writer, ds *domain.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header()); err != nil {
		return err
	}

	record := make([]string, 4+ds.NFeatures)
	for _, tx := range ds.Transactions {
		record[0] = tx.TransactionDate.UTC().Format(TimeLayout)
		record[1] = formatFloat(tx.TransactionAmount)
		for i, v := range tx.Features {
			record[2+i] = formatFloat(v)
		}
		record[2+ds.NFeatures] = strconv.FormatBool(tx.IsFraud)
		record[3+ds.NFeatures] = formatIdentified(tx.FraudIdentifiedDate)
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
