package pipeline

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

// Scene scripts are package-less declaration lists; a synthetic clause is
// prepended so the standard parser accepts them. Every byte offset and line
// number reported outward is translated back to script coordinates.
const scriptHeader = "package scene\n"

// parseScript parses a scene script. The returned fset positions are
// relative to header+src; use scriptOffset to map back into src.
func parseScript(src string) (*token.FileSet, *ast.File, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "scene.go", scriptHeader+src, parser.ParseComments|parser.SkipObjectResolution)
	return fset, file, err
}

// scriptOffset converts a parser position to a byte offset into the original
// script text.
func scriptOffset(fset *token.FileSet, pos token.Pos) int {
	return fset.Position(pos).Offset - len(scriptHeader)
}

// scriptErrors renders a parse error into per-defect diagnostics with line
// numbers relative to the script, not the synthetic header.
func scriptErrors(err error) []string {
	var list scanner.ErrorList
	if !errors.As(err, &list) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(list))
	for _, e := range list {
		line := e.Pos.Line - 1 // header occupies line 1
		if line < 1 {
			line = 1
		}
		out = append(out, strings.TrimSpace(e.Msg)+" (line "+strconv.Itoa(line)+")")
	}
	return out
}

// topLevelNames collects the names bound at the outermost scope of a parsed
// script: functions, vars, consts and types. The blank identifier is not a
// binding and is skipped. Nested and shadowed declarations are irrelevant —
// they cannot collide at the shared-namespace level.
func topLevelNames(file *ast.File) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || name == "_" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				add(d.Name.Name)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.ValueSpec:
					for _, n := range s.Names {
						add(n.Name)
					}
				case *ast.TypeSpec:
					add(s.Name.Name)
				}
			}
		}
	}
	return names
}
