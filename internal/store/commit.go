package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Commit replaces everything recorded for e.Path with e in one transaction.
func (s *Store) Commit(e Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: commit: begin: %w", err)
	}
	defer tx.Rollback()

	if err := commitEntryTx(tx, e, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

// CommitBatch commits every buffered entry of b within a single
// transaction. A failing entry aborts the whole batch.
func (s *Store) CommitBatch(b *BatchedStore) error {
	entries := b.Drain()
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, e := range entries {
		if err := commitEntryTx(tx, e, now); err != nil {
			return fmt.Errorf("store: commit batch: %w", err)
		}
	}
	return tx.Commit()
}

// commitEntryTx upserts the file row, keeping its id, then rewrites its
// child rows.
func commitEntryTx(tx *sql.Tx, e Entry, now time.Time) error {
	if e.Path == "" {
		return errors.New("store: commit: empty path")
	}
	fileID, err := upsertFileTx(tx, e, now)
	if err != nil {
		return err
	}
	for _, table := range []string{"definitions", "include_edges", "packages"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE file_id = ?", fileID); err != nil {
			return fmt.Errorf("store: clear %s for %s: %w", table, e.Path, err)
		}
	}
	if e.Summary == nil {
		return nil
	}

	for _, d := range e.Summary.Definitions {
		r := d.Location.Range
		if _, err := tx.Exec(
			`INSERT INTO definitions (file_id, name, kind, start_line, start_col, end_line, end_col)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fileID, d.Name, d.Kind.String(), r.Start.Line, r.Start.Column, r.End.Line, r.End.Column,
		); err != nil {
			return fmt.Errorf("store: insert definition %q: %w", d.Name, err)
		}
	}
	for _, inc := range e.Summary.Includes {
		if _, err := tx.Exec(
			"INSERT INTO include_edges (file_id, target, module) VALUES (?, ?, ?)",
			fileID, inc.Path, inc.Module,
		); err != nil {
			return fmt.Errorf("store: insert include %q: %w", inc.Path, err)
		}
	}
	for _, p := range e.Summary.Packages {
		if _, err := tx.Exec(
			"INSERT INTO packages (file_id, name, components) VALUES (?, ?, ?)",
			fileID, p.Name, marshalComponents(p.Components),
		); err != nil {
			return fmt.Errorf("store: insert package %q: %w", p.Name, err)
		}
	}
	return nil
}

func upsertFileTx(tx *sql.Tx, e Entry, now time.Time) (int64, error) {
	var id int64
	err := tx.QueryRow(
		`INSERT INTO files (path, hash, line_count, last_indexed) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, line_count = excluded.line_count,
		   last_indexed = excluded.last_indexed
		 RETURNING id`,
		e.Path, e.Hash, e.LineCount, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: upsert file %s: %w", e.Path, err)
	}
	return id, nil
}
