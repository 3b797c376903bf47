package store

import (
	"database/sql"
	"fmt"

	"github.com/jward/cmakels/internal/index"
	"github.com/jward/cmakels/internal/syntax"
)

// --- File operations ---

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, hash, line_count, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: file by path: %w", err)
	}
	return f, nil
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, hash, line_count, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("store: files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Unchanged reports whether path is indexed with the given content hash.
func (s *Store) Unchanged(path, hash string) (bool, error) {
	f, err := s.FileByPath(path)
	if err != nil || f == nil {
		return false, err
	}
	return f.Hash == hash, nil
}

// DeleteFile removes a file and everything recorded for it. Deleting an
// unknown path is not an error.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("store: delete file: %w", err)
	}
	return nil
}

// --- Definition queries ---

const definitionColumns = `d.name, d.kind, f.path, d.start_line, d.start_col, d.end_line, d.end_col`

func (s *Store) queryDefinitions(query string, args ...any) ([]index.Definition, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query definitions: %w", err)
	}
	defer rows.Close()
	var defs []index.Definition
	for rows.Next() {
		var (
			d    index.Definition
			kind string
			r    syntax.Range
		)
		if err := rows.Scan(&d.Name, &kind, &d.Location.Path,
			&r.Start.Line, &r.Start.Column, &r.End.Line, &r.End.Column); err != nil {
			return nil, fmt.Errorf("store: scan definition: %w", err)
		}
		d.Kind = parseDefKind(kind)
		d.Location.Range = r
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// DefinitionsByName returns every stored definition of name across the
// workspace.
func (s *Store) DefinitionsByName(name string) ([]index.Definition, error) {
	return s.queryDefinitions(
		`SELECT `+definitionColumns+` FROM definitions d JOIN files f ON f.id = d.file_id
		 WHERE d.name = ? ORDER BY f.path, d.start_line, d.start_col`, name)
}

// DefinitionsByFile returns the definitions recorded for path in source
// order.
func (s *Store) DefinitionsByFile(path string) ([]index.Definition, error) {
	return s.queryDefinitions(
		`SELECT `+definitionColumns+` FROM definitions d JOIN files f ON f.id = d.file_id
		 WHERE f.path = ? ORDER BY d.start_line, d.start_col`, path)
}

// AllDefinitions returns every stored definition ordered by file.
func (s *Store) AllDefinitions() ([]index.Definition, error) {
	return s.queryDefinitions(
		`SELECT ` + definitionColumns + ` FROM definitions d JOIN files f ON f.id = d.file_id
		 ORDER BY f.path, d.start_line, d.start_col`)
}

func parseDefKind(s string) index.DefKind {
	switch s {
	case "function":
		return index.Function
	case "macro":
		return index.Macro
	}
	return index.Variable
}

// --- Include and package queries ---

// IncludesOf returns the recorded include edges of path.
func (s *Store) IncludesOf(path string) ([]index.Include, error) {
	rows, err := s.db.Query(
		`SELECT e.target, e.module FROM include_edges e JOIN files f ON f.id = e.file_id
		 WHERE f.path = ? ORDER BY e.id`, path)
	if err != nil {
		return nil, fmt.Errorf("store: includes of: %w", err)
	}
	defer rows.Close()
	var out []index.Include
	for rows.Next() {
		var inc index.Include
		if err := rows.Scan(&inc.Path, &inc.Module); err != nil {
			return nil, fmt.Errorf("store: scan include: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// PackageUses returns every find_package call of name, or of every package
// when name is empty.
func (s *Store) PackageUses(name string) ([]PackageUse, error) {
	query := `SELECT f.path, p.name, p.components FROM packages p JOIN files f ON f.id = p.file_id`
	var args []any
	if name != "" {
		query += ` WHERE p.name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY f.path, p.id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: package uses: %w", err)
	}
	defer rows.Close()
	var out []PackageUse
	for rows.Next() {
		var (
			u     PackageUse
			comps string
		)
		if err := rows.Scan(&u.Path, &u.Name, &comps); err != nil {
			return nil, fmt.Errorf("store: scan package use: %w", err)
		}
		u.Components = unmarshalComponents(comps)
		out = append(out, u)
	}
	return out, rows.Err()
}
