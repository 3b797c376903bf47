// Package workspace locates the project root and discovers the CMake files
// under it.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	ignore "github.com/sabhiram/go-gitignore"
)

// ListFile is the per-directory CMake entry point.
const ListFile = "CMakeLists.txt"

var skipDirs = map[string]bool{
	"build":        true,
	"_build":       true,
	"out":          true,
	"node_modules": true,
	"vcpkg":        true,
}

// IsCMakeFile reports whether path names a CMakeLists.txt or a .cmake file.
func IsCMakeFile(path string) bool {
	base := filepath.Base(path)
	return base == ListFile || strings.EqualFold(filepath.Ext(base), ".cmake")
}

// FindRoot returns the workspace root for start, a file or directory. Inside
// a git repository that is the worktree root. Otherwise it is the outermost
// directory of the unbroken chain of ancestors holding a CMakeLists.txt, or
// start's directory when it has none.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("workspace: find root: %w", err)
	}
	dir := abs
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	switch {
	case err == nil:
		wt, err := repo.Worktree()
		if err == nil {
			return wt.Filesystem.Root(), nil
		}
		if !errors.Is(err, git.ErrIsBareRepository) {
			return "", fmt.Errorf("workspace: worktree: %w", err)
		}
	case !errors.Is(err, git.ErrRepositoryNotExists):
		return "", fmt.Errorf("workspace: open repository: %w", err)
	}

	root := dir
	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, ListFile)); err != nil {
			break
		}
		root = cur
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return root, nil
}

// Discover returns the absolute paths of every CMake file under root,
// sorted. Hidden directories, common build output directories and paths
// matched by root's .gitignore are skipped.
func Discover(root string) ([]string, error) {
	gi := loadGitignore(root)

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || skipDirs[name] || strings.HasPrefix(name, "cmake-build-") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || !IsCMakeFile(name) {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace: discover: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
