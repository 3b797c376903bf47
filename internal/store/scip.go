package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"github.com/jward/cmakels/internal/index"
)

// SymbolFor returns the SCIP symbol of a definition. Functions and macros
// use method descriptors, variables use term descriptors.
func SymbolFor(d index.Definition) string {
	name := d.Name
	if !isSimpleIdent(name) {
		name = "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	if d.Kind == index.Variable {
		return "cmakels . . . " + name + "."
	}
	return "cmakels . . . " + name + "()."
}

func isSimpleIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c == '_' || c == '+' || c == '-' || c == '$' ||
			('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')) {
			return false
		}
	}
	return true
}

// BuildSCIP assembles a SCIP index of every stored definition. Paths are
// made relative to root.
func (s *Store) BuildSCIP(root, toolVersion string) (*scip.Index, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	idx := &scip.Index{
		Metadata: &scip.Metadata{
			Version:              scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo:             &scip.ToolInfo{Name: "cmakels", Version: toolVersion},
			ProjectRoot:          "file://" + filepath.ToSlash(root),
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}
	for _, f := range files {
		defs, err := s.DefinitionsByFile(f.Path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, f.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = f.Path
		}
		doc := &scip.Document{
			Language:     "cmake",
			RelativePath: filepath.ToSlash(rel),
		}
		seen := make(map[string]bool)
		for _, d := range defs {
			sym := SymbolFor(d)
			r := d.Location.Range
			rng := []int32{int32(r.Start.Line), int32(r.Start.Column), int32(r.End.Column)}
			if !r.SingleLine() {
				rng = []int32{int32(r.Start.Line), int32(r.Start.Column), int32(r.End.Line), int32(r.End.Column)}
			}
			doc.Occurrences = append(doc.Occurrences, &scip.Occurrence{
				Range:       rng,
				Symbol:      sym,
				SymbolRoles: int32(scip.SymbolRole_Definition),
			})
			if !seen[sym] {
				seen[sym] = true
				doc.Symbols = append(doc.Symbols, &scip.SymbolInformation{
					Symbol:        sym,
					DisplayName:   d.Name,
					Documentation: []string{"```cmake\n" + d.Kind.String() + " " + d.Name + "\n```"},
				})
			}
		}
		idx.Documents = append(idx.Documents, doc)
	}
	return idx, nil
}

// ExportSCIP writes the SCIP index for root to w.
func (s *Store) ExportSCIP(w io.Writer, root, toolVersion string) error {
	idx, err := s.BuildSCIP(root, toolVersion)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(idx)
	if err != nil {
		return fmt.Errorf("store: marshal scip: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("store: write scip: %w", err)
	}
	return nil
}

// ReadSCIP loads a SCIP index written by ExportSCIP.
func ReadSCIP(path string) (*scip.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read scip: %w", err)
	}
	var idx scip.Index
	if err := proto.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("store: unmarshal scip: %w", err)
	}
	return &idx, nil
}
