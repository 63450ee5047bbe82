package database

import (
	"database/sql"
	"io"
)

// Config holds all configuration for the source file and the target connection
type Config struct {
	SQLitePath       string
	ConnectionString string
	Host             string
	Port             int
	Database         string
	User             string
	Password         string
	SSHKey           string
	SSHUser          string
	SSHHost          string
	SSHPort          int
	Schema           string
}

// Options controls a single migration run
type Options struct {
	// TableOrder lists tables that must be copied first, parents before children.
	TableOrder []string
	// Skip names source tables that are never copied.
	Skip []string
	// DryRun reads and converts rows without inserting them.
	DryRun bool
}

// TargetColumn describes a PostgreSQL column as reported by information_schema
type TargetColumn struct {
	Name     string
	DataType string
	UDTName  string
}

// TableReport holds the outcome of copying one table
type TableReport struct {
	Name     string
	Inserted int
	Errors   int
	Skipped  bool
	Reason   string
}

// Report summarizes a whole run
type Report struct {
	Tables   []TableReport
	Inserted int
	Errors   int
}

// Migrator copies rows from a SQLite file into an existing PostgreSQL schema
type Migrator struct {
	sourceDB *sql.DB
	targetDB *sql.DB
	// target is the single session every statement runs on, so that
	// session_replication_role applies to all inserts.
	target  *sql.Conn
	schema  string
	out     io.Writer
	cleanup func()
}
