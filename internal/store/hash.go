package store

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/zeebo/xxh3"
)

// ContentHash returns the hex xxh3-128 hash of src. It decides whether a
// file needs re-indexing.
func ContentHash(src []byte) string {
	sum := xxh3.Hash128(src).Bytes()
	return hex.EncodeToString(sum[:])
}

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func stringsToArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

func marshalComponents(comps []string) string {
	if len(comps) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(comps)
	return string(b)
}

func unmarshalComponents(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var comps []string
	_ = json.Unmarshal([]byte(s), &comps)
	return comps
}
