package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lib/pq"
)

// NewMigrator opens the SQLite source and the PostgreSQL target
func NewMigrator(ctx context.Context, config Config) (*Migrator, error) {
	sourceDB, err := openSource(ctx, config.SQLitePath)
	if err != nil {
		return nil, err
	}

	connStr, cleanup, err := targetConnString(config)
	if err != nil {
		sourceDB.Close()
		return nil, err
	}

	m := &Migrator{
		sourceDB: sourceDB,
		schema:   config.Schema,
		out:      os.Stdout,
		cleanup:  cleanup,
	}
	if m.schema == "" {
		m.schema = "public"
	}

	m.targetDB, err = sql.Open("postgres", connStr)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := m.targetDB.PingContext(ctx); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	m.target, err = m.targetDB.Conn(ctx)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to acquire PostgreSQL session: %w", err)
	}

	return m, nil
}

func targetConnString(config Config) (string, func(), error) {
	switch {
	case config.SSHKey != "":
		connStr, cleanup, err := SetupTunnel(config)
		if err != nil {
			return "", nil, fmt.Errorf("failed to setup SSH tunnel: %w", err)
		}
		return connStr, cleanup, nil
	case config.ConnectionString != "":
		return config.ConnectionString, nil, nil
	default:
		return keywordConnString(config.Host, config.Port, config), nil, nil
	}
}

func keywordConnString(host string, port int, config Config) string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s",
		host,
		port,
		config.Database,
		config.User,
	)
	if config.Password != "" {
		connStr += fmt.Sprintf(" password=%s", config.Password)
	}
	return connStr
}

// SetOutput redirects progress output, os.Stdout by default
func (m *Migrator) SetOutput(w io.Writer) {
	m.out = w
}

// Close closes the database connections and cleans up resources
func (m *Migrator) Close() {
	if m.target != nil {
		m.target.Close()
	}
	if m.targetDB != nil {
		m.targetDB.Close()
	}
	if m.sourceDB != nil {
		m.sourceDB.Close()
	}
	if m.cleanup != nil {
		m.cleanup()
	}
}

// TargetTables returns the base tables of the target schema
func (m *Migrator) TargetTables(ctx context.Context) ([]string, error) {
	rows, err := m.target.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		AND table_type = 'BASE TABLE' ORDER BY table_name
	`, m.schema)
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

	return tables, rows.Err()
}

// targetColumns returns the columns of table keyed by name. An empty map
// means the table does not exist in the target schema.
func (m *Migrator) targetColumns(ctx context.Context, table string) (map[string]TargetColumn, error) {
	rows, err := m.target.QueryContext(ctx, `
		SELECT column_name, data_type, udt_name
		FROM information_schema.columns
		WHERE table_schema = $1
		AND table_name = $2
		ORDER BY ordinal_position
	`, m.schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make(map[string]TargetColumn)
	for rows.Next() {
		var col TargetColumn
		if err := rows.Scan(&col.Name, &col.DataType, &col.UDTName); err != nil {
			return nil, err
		}
		columns[col.Name] = col
	}

	return columns, rows.Err()
}

// setForeignKeys toggles trigger-based constraint enforcement, foreign keys
// included, for the migrator's session only.
func (m *Migrator) setForeignKeys(ctx context.Context, enabled bool) error {
	role := "replica"
	if enabled {
		role = "origin"
	}
	_, err := m.target.ExecContext(ctx, fmt.Sprintf("SET session_replication_role = '%s'", role))
	return err
}

// ForeignKeysEnabled reports whether the migrator's session enforces foreign keys
func (m *Migrator) ForeignKeysEnabled(ctx context.Context) (bool, error) {
	var role string
	if err := m.target.QueryRowContext(ctx, "SHOW session_replication_role").Scan(&role); err != nil {
		return false, err
	}
	return role != "replica", nil
}

func insertStatement(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf(
		"INSERT INTO %s.%s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		quoteIdent(schema),
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

// insertRow runs one autocommitted insert. It reports false when the row
// already existed.
func (m *Migrator) insertRow(ctx context.Context, stmt string, values []any) (bool, error) {
	res, err := m.target.ExecContext(ctx, stmt, values...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// describeError adds the server's detail and SQLSTATE when available
func describeError(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := fmt.Sprintf("%s (%s)", pqErr.Message, pqErr.Code)
		if pqErr.Detail != "" {
			msg += ": " + pqErr.Detail
		}
		return msg
	}
	return err.Error()
}

// quoteIdent double-quotes an identifier for both SQLite and PostgreSQL
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
