package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// maxReportedRowErrors caps how many failed rows are printed per table
const maxReportedRowErrors = 3

var (
	okLabel    = color.New(color.FgGreen).SprintFunc()
	skipLabel  = color.New(color.FgYellow).SprintFunc()
	errorLabel = color.New(color.FgRed).SprintFunc()
)

// Migrate copies every source table into the target schema. Row and table
// failures are counted in the report and never stop the run; the returned
// error is reserved for problems with the target session itself.
func (m *Migrator) Migrate(ctx context.Context, opts Options) (report *Report, err error) {
	if !opts.DryRun {
		if err := m.setForeignKeys(ctx, false); err != nil {
			return nil, fmt.Errorf("failed to disable foreign keys: %w", err)
		}
		m.printf("FK constraints disabled for migration session.\n\n")

		defer func() {
			if fkErr := m.setForeignKeys(ctx, true); fkErr != nil {
				m.printf("%s re-enabling FK constraints: %v\n", errorLabel("ERROR"), fkErr)
				if err == nil {
					err = fmt.Errorf("failed to re-enable foreign keys: %w", fkErr)
				}
				return
			}
			m.printf("\nFK constraints re-enabled.\n")
		}()
	}

	sourceTables, err := m.SourceTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list SQLite tables: %w", err)
	}
	m.printf("Tables in SQLite: [%s]\n\n", strings.Join(sourceTables, ", "))

	report = &Report{}
	for _, table := range OrderTables(sourceTables, opts.TableOrder, opts.Skip) {
		tr, err := m.migrateTable(ctx, table, opts.DryRun)
		if err != nil {
			m.printf("  %s in table %s: %v\n", errorLabel("ERROR"), table, err)
			tr = TableReport{Name: table, Inserted: tr.Inserted, Errors: tr.Errors + 1}
		}

		report.Tables = append(report.Tables, tr)
		report.Inserted += tr.Inserted
		report.Errors += tr.Errors
	}

	m.printf("\nMigration complete: %d rows inserted, %d errors.\n", report.Inserted, report.Errors)
	return report, nil
}

func (m *Migrator) migrateTable(ctx context.Context, table string, dryRun bool) (TableReport, error) {
	tr := TableReport{Name: table}

	targetCols, err := m.targetColumns(ctx, table)
	if err != nil {
		return tr, fmt.Errorf("reading PostgreSQL columns: %w", err)
	}
	if len(targetCols) == 0 {
		return m.skip(tr, "table not found in PostgreSQL"), nil
	}

	sourceCols, err := m.sourceColumns(ctx, table)
	if err != nil {
		return tr, fmt.Errorf("reading SQLite columns: %w", err)
	}

	var common []string
	for _, col := range sourceCols {
		if _, ok := targetCols[col]; ok {
			common = append(common, col)
		}
	}
	if len(common) == 0 {
		return m.skip(tr, "no common columns"), nil
	}

	stmt := insertStatement(m.schema, table, common)
	rows := 0
	err = m.eachSourceRow(ctx, table, common, func(row []any) error {
		rows++
		converted := make([]any, len(row))
		for i, v := range row {
			converted[i] = ConvertValue(v, targetCols[common[i]])
		}

		if dryRun {
			tr.Inserted++
			return nil
		}

		inserted, err := m.insertRow(ctx, stmt, converted)
		if err != nil {
			tr.Errors++
			if tr.Errors <= maxReportedRowErrors {
				m.printf("    %s inserting into %s: %s\n", errorLabel("ERROR"), table, describeError(err))
				m.printf("    Row (first 3 cols): %v\n", converted[:min(3, len(converted))])
			}
			return nil
		}
		if inserted {
			tr.Inserted++
		}
		return nil
	})
	if err != nil {
		return tr, fmt.Errorf("reading SQLite rows: %w", err)
	}

	if rows == 0 {
		m.printf("  %s: 0 rows (empty)\n", table)
		return tr, nil
	}

	status := okLabel("OK")
	if tr.Errors > 0 {
		status = errorLabel(fmt.Sprintf("(%d errors)", tr.Errors))
	}
	m.printf("  %s: %d inserted %s\n", table, tr.Inserted, status)

	return tr, nil
}

func (m *Migrator) skip(tr TableReport, reason string) TableReport {
	m.printf("  %s %s: %s\n", skipLabel("SKIP"), tr.Name, reason)
	tr.Skipped = true
	tr.Reason = reason
	return tr
}

func (m *Migrator) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}
