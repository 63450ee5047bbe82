package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// openSource opens the SQLite file read-only. A missing file is an error
// rather than an empty database created on the fly.
func openSource(ctx context.Context, path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open SQLite file: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite file: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite: %w", err)
	}

	return db, nil
}

// SourceTables returns the user tables of the SQLite file, sorted by name
func (m *Migrator) SourceTables(ctx context.Context) ([]string, error) {
	rows, err := m.sourceDB.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(tables)
	return tables, nil
}

func (m *Migrator) sourceColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := m.sourceDB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name       string
			declType   string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &declType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}

	return columns, rows.Err()
}

// eachSourceRow streams every row of table restricted to columns. The unary
// plus strips the declared column type, so the driver hands back the stored
// integer, real, text or blob instead of guessing booleans and timestamps.
func (m *Migrator) eachSourceRow(ctx context.Context, table string, columns []string, fn func([]any) error) error {
	selects := make([]string, len(columns))
	for i, col := range columns {
		selects[i] = fmt.Sprintf("+%s AS %s", quoteIdent(col), quoteIdent(col))
	}

	rows, err := m.sourceDB.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s",
		strings.Join(selects, ", "),
		quoteIdent(table),
	))
	if err != nil {
		return err
	}
	defer rows.Close()

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return err
		}

		row := make([]any, len(values))
		copy(row, values)
		if err := fn(row); err != nil {
			return err
		}
	}

	return rows.Err()
}
