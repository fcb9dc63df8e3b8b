// Package duckdb stores SV calls, copy number events and analysis results in DuckDB.
// Inputs are loaded into queryable tables; every analysis run appends its
// clusters, chains, links and audit rows stamped with the run id.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for inputs and results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sv_calls (
		id BIGINT PRIMARY KEY,
		type VARCHAR,
		chr_start VARCHAR,
		pos_start BIGINT,
		orient_start BIGINT,
		arm_start VARCHAR,
		chr_end VARCHAR,
		pos_end BIGINT,
		orient_end BIGINT,
		arm_end VARCHAR,
		ploidy DOUBLE,
		ploidy_min DOUBLE,
		ploidy_max DOUBLE,
		homology_start BIGINT,
		homology_end BIGINT,
		cn_low_start DOUBLE,
		cn_high_start DOUBLE,
		major_low_start DOUBLE,
		major_high_start DOUBLE,
		cn_low_end DOUBLE,
		cn_high_end DOUBLE,
		major_low_end DOUBLE,
		major_high_end DOUBLE,
		asm_start VARCHAR,
		asm_end VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS cn_events (
		kind VARCHAR,
		chr VARCHAR,
		pos_start BIGINT,
		pos_end BIGINT,
		sv_start BIGINT,
		sv_end BIGINT,
		valid BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS inputs (
		name VARCHAR PRIMARY KEY,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		created_at TIMESTAMP,
		variants BIGINT,
		clusters BIGINT,
		excluded BIGINT,
		invalid BIGINT,
		long_ddi_cutoff BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS clusters (
		run_id VARCHAR,
		cluster_id BIGINT,
		sv_count BIGINT,
		resolved_type VARCHAR,
		reasons VARCHAR,
		status VARCHAR,
		double_minute BOOLEAN
	)`,
	`CREATE TABLE IF NOT EXISTS chains (
		run_id VARCHAR,
		cluster_id BIGINT,
		chain_id BIGINT,
		ploidy DOUBLE,
		closed BOOLEAN,
		item_count BIGINT,
		sequence VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS links (
		run_id VARCHAR,
		cluster_id BIGINT,
		chain_id BIGINT,
		link_id BIGINT,
		first_sv BIGINT,
		first_start BOOLEAN,
		second_sv BIGINT,
		second_start BOOLEAN,
		ploidy DOUBLE,
		assembled BOOLEAN,
		rule VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sv_audit (
		run_id VARCHAR,
		sv_id BIGINT,
		cluster_id BIGINT,
		reasons VARCHAR,
		excluded VARCHAR
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// appendTo batch-inserts rows into a table using the Appender API.
func (s *Store) appendTo(table string, fill func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender for %s: %w", table, err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}
