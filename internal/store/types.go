package store

import (
	"time"

	"github.com/jward/cmakels/internal/index"
)

type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Entry is one file's indexed content, ready to commit.
type Entry struct {
	Path      string
	Hash      string
	LineCount int
	Summary   *index.Summary
}

// PackageUse is a find_package call recorded for a file.
type PackageUse struct {
	Path       string
	Name       string
	Components []string
}
