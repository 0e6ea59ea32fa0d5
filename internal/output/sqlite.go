package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"lumina/fraud-sim/internal/domain"
)

// TableName is the table the sqlite format writes rows to.
const TableName = "transactions"

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// writeSQLite creates a fresh database at path with one table whose columns
// follow the dataset header. Feature columns are REAL, the fraud flag is an
// INTEGER and the identified date is NULL for normal rows.
func writeSQLite(ctx context.Context, path string, ds *domain.Dataset) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	header := ds.Header()
	cols := make([]string, len(header))
	for i, name := range header {
		typ := "REAL"
		switch i {
		case 0:
			typ = "TEXT NOT NULL"
		case 1:
			typ = "REAL NOT NULL"
		case len(header) - 2:
			typ = "INTEGER NOT NULL"
		case len(header) - 1:
			typ = "TEXT"
		}
		cols[i] = quoteIdent(name) + " " + typ
	}

	create := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(cols, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	quoted := make([]string, len(header))
	for i, name := range header {
		quoted[i] = quoteIdent(name)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", TableName, strings.Join(quoted, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for n, row := range ds.Transactions {
		args[0] = row.TransactionDate.UTC().Format(TimeLayout)
		args[1] = row.TransactionAmount
		for i, v := range row.Features {
			args[2+i] = v
		}
		args[2+ds.NFeatures] = row.IsFraud
		if row.FraudIdentifiedDate != nil {
			args[3+ds.NFeatures] = formatIdentified(row.FraudIdentifiedDate)
		} else {
			args[3+ds.NFeatures] = nil
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return db.Close()
}
