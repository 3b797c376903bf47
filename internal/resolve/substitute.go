package resolve

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/jward/cmakels/internal/syntax"
)

var (
	envPlaceholder = regexp.MustCompile(`\$ENV\{([^{}$]+)\}`)
	varPlaceholder = regexp.MustCompile(`\$\{([^{}$]+)\}`)
)

// Vars supplies values for placeholder substitution.
type Vars struct {
	// CurrentFile is the file the text appears in.
	CurrentFile string
	// SourceDir is the top-level source directory, usually the workspace
	// root.
	SourceDir string
	// Cache holds build-cache entries.
	Cache map[string]string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func (v Vars) lookup(name string) (string, bool) {
	switch name {
	case "CMAKE_CURRENT_LIST_DIR", "CMAKE_CURRENT_SOURCE_DIR":
		if v.CurrentFile != "" {
			return filepath.Dir(v.CurrentFile), true
		}
	case "CMAKE_SOURCE_DIR", "PROJECT_SOURCE_DIR":
		if v.SourceDir != "" {
			return v.SourceDir, true
		}
	}
	val, ok := v.Cache[name]
	return val, ok
}

// Substitute strips surrounding quotes from text and replaces ${VAR} and
// $ENV{VAR} placeholders. complete is false when any placeholder had no
// value; such placeholders are left in place.
func Substitute(text string, v Vars) (result string, complete bool) {
	lookupEnv := v.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	complete = true
	result = syntax.Unquote(text)
	result = envPlaceholder.ReplaceAllStringFunc(result, func(m string) string {
		name := envPlaceholder.FindStringSubmatch(m)[1]
		if val, ok := lookupEnv(name); ok {
			return val
		}
		complete = false
		return m
	})
	result = varPlaceholder.ReplaceAllStringFunc(result, func(m string) string {
		name := varPlaceholder.FindStringSubmatch(m)[1]
		if val, ok := v.lookup(name); ok {
			return val
		}
		complete = false
		return m
	})
	return result, complete
}
