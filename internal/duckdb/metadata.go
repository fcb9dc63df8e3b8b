package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// RecordInput remembers the fingerprint of the file an input table was loaded from.
func (s *Store) RecordInput(name string, fp FileFingerprint) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO inputs VALUES (?, ?, ?, ?)`,
		name, fp.Path, fp.Size, fp.ModTime.UTC())
	if err != nil {
		return fmt.Errorf("record input %s: %w", name, err)
	}
	return nil
}

// InputCurrent returns true if the named input was loaded from a file with
// the same size and modification time.
func (s *Store) InputCurrent(name string, fp FileFingerprint) (bool, error) {
	var size int64
	var mod time.Time
	err := s.db.QueryRow(`SELECT size, mod_time FROM inputs WHERE name=?`, name).Scan(&size, &mod)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query input %s: %w", name, err)
	}
	return size == fp.Size && mod.Equal(fp.ModTime.UTC().Truncate(time.Microsecond)), nil
}
