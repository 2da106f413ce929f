package pipeline

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"strings"

	"scenesmith/internal/types"
)

// StageError is one classified contract violation recorded by a stage.
type StageError struct {
	Kind   types.ErrorKind
	Detail string
}

func (e StageError) String() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Detail
}

// SanitizeResult reports the outcome of contract enforcement. Errors are
// recorded, never thrown; sanitize failures are not auto-repaired.
type SanitizeResult struct {
	Code     string
	Rewrites []string
	Errors   []StageError
}

// OK reports whether the code satisfies the execution contract.
func (r SanitizeResult) OK() bool { return len(r.Errors) == 0 }

// capabilityImports maps every import path a generator may plausibly write
// for a host-supplied namespace to its canonical qualifier. The host binds
// these into the shared namespace itself, so the import statement is
// removed; references keep working through the host-global binding.
var capabilityImports = map[string]string{
	"motion":                            "motion",
	"scenesmith/motion":                 "motion",
	"scenesmith/internal/motion":        "motion",
	"easing":                            "easing",
	"motion/easing":                     "easing",
	"scenesmith/internal/motion/easing": "easing",
	"math":                              "math",
	"strings":                           "strings",
}

// forbiddenQualifiers are package qualifiers scene code must never touch.
// The host runtime restricts the capability surface anyway; rejecting them
// here gives the generator a precise diagnostic instead of a runtime error.
var forbiddenQualifiers = map[string]bool{
	"os":      true,
	"exec":    true,
	"syscall": true,
	"unsafe":  true,
	"reflect": true,
	"net":     true,
	"http":    true,
	"plugin":  true,
	"runtime": true,
	"debug":   true,
	"ioutil":  true,
}

// Sanitize enforces the execution contract on a repaired scene script:
// imports of host-supplied namespaces are rewritten away, any other import
// form is rejected, exactly one default export must be present, and no
// statement may reference a disallowed global. Violations are recorded as
// typed errors; the input comes back unchanged alongside them so callers can
// still inspect it.
func Sanitize(code string) SanitizeResult {
	result := SanitizeResult{Code: code}

	fset, file, err := parseScript(code)
	if err != nil {
		// Not a contract question — the compiler owns syntax diagnostics.
		return result
	}

	type cut struct{ from, to int }
	var cuts []cut
	aliasRenames := map[string]string{}

	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT {
			continue
		}
		removable := true
		for _, spec := range gen.Specs {
			imp := spec.(*ast.ImportSpec)
			path := strings.Trim(imp.Path.Value, `"`)
			canonical, known := capabilityImports[path]
			if !known {
				removable = false
				result.Errors = append(result.Errors, StageError{
					Kind:   types.ErrForbiddenConstruct,
					Detail: fmt.Sprintf("import of %q is not allowed; scenes may only use the host-supplied namespaces", path),
				})
				continue
			}
			if imp.Name != nil {
				switch imp.Name.Name {
				case ".":
					removable = false
					result.Errors = append(result.Errors, StageError{
						Kind:   types.ErrForbiddenConstruct,
						Detail: fmt.Sprintf("dot import of %q hides the host namespace binding", path),
					})
					continue
				case "_":
					// Blank import of a capability namespace is inert.
				default:
					if imp.Name.Name != canonical {
						aliasRenames[imp.Name.Name] = canonical
					}
				}
			}
			result.Rewrites = append(result.Rewrites,
				fmt.Sprintf("import %q removed; %s is supplied by the host runtime", path, canonical))
		}
		if removable {
			from := scriptOffset(fset, gen.Pos())
			to := scriptOffset(fset, gen.End())
			// Swallow the trailing newline so no blank gap is left behind.
			if to < len(code) && code[to] == '\n' {
				to++
			}
			cuts = append(cuts, cut{from, to})
		}
	}

	checkBodyReferences(file, &result)
	checkDefaultExport(file, aliasRenames, &result)

	if len(result.Errors) > 0 {
		return result
	}

	// Apply textual cuts back-to-front so earlier offsets stay valid. The
	// rest of the script is preserved byte-for-byte.
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].from > cuts[j].from })
	out := code
	for _, c := range cuts {
		if c.from < 0 || c.to > len(out) || c.from > c.to {
			continue
		}
		out = out[:c.from] + out[c.to:]
	}
	for alias, canonical := range aliasRenames {
		out = renameQualifier(out, alias, canonical)
	}
	result.Code = out
	return result
}

// renameQualifier rewrites from to to only where it stands as the package
// qualifier of a selector (from.X). A local binding that happens to share the
// alias spelling is left alone; it was never the namespace.
func renameQualifier(src, from, to string) string {
	fset, file, err := parseScript(src)
	if err != nil {
		return src
	}

	var offsets []int
	ast.Inspect(file, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		if ident, ok := sel.X.(*ast.Ident); ok && ident.Name == from {
			if off := scriptOffset(fset, ident.Pos()); off >= 0 {
				offsets = append(offsets, off)
			}
		}
		return true
	})
	if len(offsets) == 0 {
		return src
	}

	sort.Ints(offsets)
	out := src
	for i := len(offsets) - 1; i >= 0; i-- {
		off := offsets[i]
		out = out[:off] + to + out[off+len(from):]
	}
	return out
}

// checkBodyReferences walks the whole script for constructs the contract
// bans outright: references to forbidden package qualifiers, init functions,
// and goroutine launches.
func checkBodyReferences(file *ast.File, result *SanitizeResult) {
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil && fn.Name.Name == "init" {
			result.Errors = append(result.Errors, StageError{
				Kind:   types.ErrForbiddenConstruct,
				Detail: "init functions are not allowed in scene scripts",
			})
		}
	}
	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.SelectorExpr:
			if ident, ok := node.X.(*ast.Ident); ok && forbiddenQualifiers[ident.Name] {
				result.Errors = append(result.Errors, StageError{
					Kind:   types.ErrForbiddenConstruct,
					Detail: fmt.Sprintf("reference to %s.%s is not allowed in scene scripts", ident.Name, node.Sel.Name),
				})
			}
		case *ast.GoStmt:
			result.Errors = append(result.Errors, StageError{
				Kind:   types.ErrForbiddenConstruct,
				Detail: "goroutines are not allowed in scene scripts",
			})
		}
		return true
	})
}

// checkDefaultExport enforces the exactly-one-default-export rule. The
// export form is a top-level `var _ = motion.Export(Entry)` declaration
// (aliased qualifiers count once the alias is known).
func checkDefaultExport(file *ast.File, aliasRenames map[string]string, result *SanitizeResult) {
	count := countExports(file, aliasRenames)
	switch {
	case count == 0:
		result.Errors = append(result.Errors, StageError{
			Kind:   types.ErrMissingDefaultExport,
			Detail: "scene must export exactly one entry component via motion.Export",
		})
	case count > 1:
		result.Errors = append(result.Errors, StageError{
			Kind:   types.ErrForbiddenConstruct,
			Detail: fmt.Sprintf("scene exports %d components; exactly one motion.Export is allowed", count),
		})
	}
}

func countExports(file *ast.File, aliasRenames map[string]string) int {
	count := 0
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.VAR {
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, value := range vs.Values {
				if isExportCall(value, aliasRenames) {
					count++
				}
			}
		}
	}
	return count
}

func isExportCall(expr ast.Expr, aliasRenames map[string]string) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Export" {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}
	if ident.Name == "motion" {
		return true
	}
	return aliasRenames[ident.Name] == "motion"
}
