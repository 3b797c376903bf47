package store

import (
	"fmt"
	"sort"
)

// Includers returns the files with an include edge to any of targets.
func (s *Store) Includers(targets []string) ([]string, error) {
	if len(targets) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT DISTINCT f.path FROM include_edges e JOIN files f ON f.id = e.file_id
		 WHERE e.target IN (`+placeholderList(len(targets))+`) ORDER BY f.path`,
		stringsToArgs(targets)...)
	if err != nil {
		return nil, fmt.Errorf("store: includers: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("store: scan includer: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BlastRadius returns the files whose visible definitions may change when
// the given files change: the files themselves plus everything that
// includes them, transitively. The result is sorted.
func (s *Store) BlastRadius(changed []string) ([]string, error) {
	seen := make(map[string]bool, len(changed))
	frontier := make([]string, 0, len(changed))
	for _, p := range changed {
		if !seen[p] {
			seen[p] = true
			frontier = append(frontier, p)
		}
	}
	for len(frontier) > 0 {
		includers, err := s.Includers(frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, p := range includers {
			if !seen[p] {
				seen[p] = true
				frontier = append(frontier, p)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
