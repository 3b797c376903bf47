package packages

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jward/cmakels/internal/syntax"
)

var (
	configFile        = regexp.MustCompile(`(Config|-config)\.cmake$`)
	configVersionFile = regexp.MustCompile(`(ConfigVersion|-config-version)\.cmake$`)
	cmakeFile         = regexp.MustCompile(`^.+\.cmake$|^CMakeLists\.txt$`)
	// boost_system-1.83.0 -> boost_system, 1.83.0
	versionedName = regexp.MustCompile(`^(.+?)-(\d+(?:\.\d+)*)$`)
)

// flatLibDirs are the directories under a prefix whose cmake/ subdirectory
// holds one entry per package.
var flatLibDirs = []string{"lib", "lib32", "lib64", "share"}

func scanPrefix(p Prefix, logger *slog.Logger) []*Record {
	var out []*Record
	out = append(out, scanDirLayout(p)...)

	libs := make([]string, 0, len(flatLibDirs)+1)
	for _, l := range flatLibDirs {
		libs = append(libs, filepath.Join(p.Path, l, "cmake"))
	}
	multiarch, _ := filepath.Glob(filepath.Join(p.Path, "lib", "*-linux-gnu", "cmake"))
	sort.Strings(multiarch)
	libs = append(libs, multiarch...)

	for _, lib := range libs {
		entries, err := os.ReadDir(lib)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Debug("skip package dir", "path", lib, "err", err)
			}
			continue
		}
		for _, e := range entries {
			if rec := flatEntry(filepath.Join(lib, e.Name()), p.Origin); rec != nil {
				out = append(out, rec)
			}
		}
	}
	return out
}

// scanDirLayout finds <prefix>/share/<Name>/cmake/ directories that hold a
// config file.
func scanDirLayout(p Prefix) []*Record {
	dirs, _ := filepath.Glob(filepath.Join(p.Path, "share", "*", "cmake"))
	sort.Strings(dirs)
	var out []*Record
	for _, dir := range dirs {
		if !isDir(dir) {
			continue
		}
		files, _ := filepath.Glob(filepath.Join(dir, "*.cmake"))
		targets, version, hasConfig := collect(files)
		if !hasConfig {
			continue
		}
		out = append(out, &Record{
			Name:        filepath.Base(filepath.Dir(dir)),
			Kind:        Directory,
			Location:    dir,
			Version:     version,
			JumpTargets: targets,
			Origin:      p.Origin,
		})
	}
	return out
}

// flatEntry builds a record for one entry of a <lib>/cmake directory. It
// returns nil for entries that are not packages.
func flatEntry(path string, origin Origin) *Record {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	rec := &Record{Location: path, Origin: origin}
	base := filepath.Base(path)
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil
		}
		var files []string
		for _, e := range entries {
			if cmakeFile.MatchString(e.Name()) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		rec.JumpTargets, rec.Version, _ = collect(files)
		if len(rec.JumpTargets) == 0 {
			return nil
		}
		rec.Name = base
		rec.Kind = Directory
	} else {
		name, ok := moduleFileName(base)
		if !ok {
			return nil
		}
		rec.Name = name
		rec.Kind = File
		rec.JumpTargets = []string{canonical(path)}
	}
	if m := versionedName.FindStringSubmatch(rec.Name); m != nil {
		rec.Name = m[1]
		if rec.Version == nil {
			v := m[2]
			rec.Version = &v
		}
	}
	return rec
}

// moduleFileName derives a package name from a loose cmake file such as
// FooConfig.cmake or Foo.cmake.
func moduleFileName(base string) (string, bool) {
	if !strings.HasSuffix(base, ".cmake") || configVersionFile.MatchString(base) {
		return "", false
	}
	for _, suffix := range []string{"Config.cmake", "-config.cmake", ".cmake"} {
		if name, ok := strings.CutSuffix(base, suffix); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// collect canonicalises files, moves the first config file to the front and
// reads the package version from a config-version file.
func collect(files []string) ([]string, *string, bool) {
	sort.Strings(files)
	targets := make([]string, 0, len(files))
	var version *string
	configAt := -1
	for _, f := range files {
		base := filepath.Base(f)
		if configAt < 0 && configFile.MatchString(base) {
			configAt = len(targets)
		}
		if version == nil && configVersionFile.MatchString(base) {
			version = readVersion(f)
		}
		targets = append(targets, canonical(f))
	}
	if configAt > 0 {
		targets[0], targets[configAt] = targets[configAt], targets[0]
	}
	return targets, version, configAt >= 0
}

func readVersion(path string) *string {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return ParseVersion(src)
}

// ParseVersion extracts the value of set(PACKAGE_VERSION <v>) from a
// config-version file. It returns nil when no such command exists.
func ParseVersion(src []byte) *string {
	tree := syntax.Parse(src)
	for _, cmd := range syntax.Commands(tree, tree.Root()) {
		name, _ := syntax.CommandName(tree, cmd)
		if !strings.EqualFold(name, "set") {
			continue
		}
		args := syntax.Arguments(tree, cmd)
		if len(args) < 2 || syntax.ArgumentValue(tree, args[0]) != "PACKAGE_VERSION" {
			continue
		}
		v := syntax.ArgumentValue(tree, args[1])
		return &v
	}
	return nil
}

func canonical(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
