package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	t.Parallel()

	vars := Vars{
		CurrentFile: "/proj/src/CMakeLists.txt",
		SourceDir:   "/proj",
		Cache:       map[string]string{"ROOT_DIR": "/usr"},
		LookupEnv: func(name string) (string, bool) {
			if name == "HOME" {
				return "/home/me", true
			}
			return "", false
		},
	}

	tests := []struct {
		name         string
		in           string
		want         string
		wantComplete bool
	}{
		{"plain", "cmake/x.cmake", "cmake/x.cmake", true},
		{"quoted", `"cmake/x.cmake"`, "cmake/x.cmake", true},
		{"current list dir", "${CMAKE_CURRENT_LIST_DIR}/x.cmake", "/proj/src/x.cmake", true},
		{"source dir", "${CMAKE_SOURCE_DIR}/cmake", "/proj/cmake", true},
		{"cache entry", "${ROOT_DIR}/abc", "/usr/abc", true},
		{"env", "$ENV{HOME}/abc", "/home/me/abc", true},
		{"unknown var", "${NOPE}/abc", "${NOPE}/abc", false},
		{"unknown env", "$ENV{NOPE}", "$ENV{NOPE}", false},
		{"mixed", "$ENV{HOME}/${NOPE}", "/home/me/${NOPE}", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, complete := Substitute(tt.in, vars)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantComplete, complete)
		})
	}
}
