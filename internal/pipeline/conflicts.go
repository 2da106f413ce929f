package pipeline

import (
	"fmt"
	"go/ast"
	"go/token"
	"sort"

	"scenesmith/internal/types"
)

// SceneSource is one sibling scene as the resolver sees it: identity, order
// index within the project, and repaired/sanitized code.
type SceneSource struct {
	ID    string
	Order int
	Code  string
}

// Resolution is the per-project rename map. Codes holds every scene's code
// after renaming (unchanged scenes included); Renames records what moved.
type Resolution struct {
	Codes   map[string]string
	Renames []types.Rename
	Errors  []StageError
}

// OK reports whether the shared namespace is collision-free.
func (r Resolution) OK() bool { return len(r.Errors) == 0 }

// ResolveConflicts deterministically renames top-level identifiers that
// collide across sibling scenes destined for one shared runtime namespace.
// Scenes are walked in ascending order index; the earliest scene always
// keeps its original names, and a later scene's colliding declaration is
// renamed to a numeric-suffix derived name everywhere inside that scene's
// own code, the default export included. The function is pure: the same
// ordered input always yields the same rename map.
func ResolveConflicts(scenes []SceneSource) Resolution {
	ordered := make([]SceneSource, len(scenes))
	copy(ordered, scenes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	resolution := Resolution{Codes: make(map[string]string, len(ordered))}
	claimed := make(map[string]bool)

	for _, scene := range ordered {
		code := scene.Code
		_, file, err := parseScript(code)
		if err != nil {
			// Unparseable scenes claim nothing; the compiler will report
			// them. Passing the code through keeps the result total.
			resolution.Codes[scene.ID] = code
			continue
		}

		names := topLevelNames(file)
		own := make(map[string]bool, len(names))
		for _, n := range names {
			own[n] = true
		}

		for _, name := range names {
			if !claimed[name] {
				continue
			}
			derived := deriveName(name, scene.Order, func(candidate string) bool {
				return claimed[candidate] || own[candidate]
			})
			code = renameIdent(code, name, derived)
			own[derived] = true
			delete(own, name)
			resolution.Renames = append(resolution.Renames, types.Rename{
				SceneID: scene.ID,
				From:    name,
				To:      derived,
			})
		}

		for n := range own {
			claimed[n] = true
		}
		resolution.Codes[scene.ID] = code
	}

	resolution.Errors = verifyNoCollisions(ordered, resolution.Codes)
	return resolution
}

// deriveName produces the first free numeric-suffix variant of name,
// starting from the scene's own order index so the common two-scene
// collision reads naturally (Component → Component_2).
func deriveName(name string, order int, taken func(string) bool) string {
	n := order
	if n < 2 {
		n = 2
	}
	for {
		candidate := fmt.Sprintf("%s_%d", name, n)
		if !taken(candidate) {
			return candidate
		}
		n++
	}
}

// verifyNoCollisions is the defensive re-check demanded by the contract:
// the algorithm above cannot leave a duplicate behind, but if it ever did,
// the condition is reported, not silently ignored.
func verifyNoCollisions(ordered []SceneSource, codes map[string]string) []StageError {
	var errs []StageError
	owner := make(map[string]string)
	for _, scene := range ordered {
		_, file, err := parseScript(codes[scene.ID])
		if err != nil {
			continue
		}
		for _, name := range topLevelNames(file) {
			if prev, dup := owner[name]; dup {
				errs = append(errs, StageError{
					Kind:   types.ErrIdentifierCollisionUnresolved,
					Detail: fmt.Sprintf("identifier %q declared by scenes %s and %s", name, prev, scene.ID),
				})
				continue
			}
			owner[name] = scene.ID
		}
	}
	return errs
}

// renameIdent rewrites every whole-identifier occurrence of from in a scene
// script to to. Positions come from the parsed syntax tree, so occurrences
// inside strings, comments or longer identifiers are never touched. Selector
// fields (x.from), composite-literal field keys, statement labels and struct
// field names keep their spelling — those live in other namespaces — while
// value references, case clauses included, follow the rename. Shadowed inner
// bindings with the same spelling are renamed along with their uses, which
// preserves meaning because the derived name is fresh on both levels.
func renameIdent(src, from, to string) string {
	fset, file, err := parseScript(src)
	if err != nil {
		return src
	}

	keep := make(map[token.Pos]bool)
	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.SelectorExpr:
			keep[node.Sel.Pos()] = true
		case *ast.KeyValueExpr:
			if key, ok := node.Key.(*ast.Ident); ok {
				keep[key.Pos()] = true
			}
		case *ast.LabeledStmt:
			keep[node.Label.Pos()] = true
		case *ast.BranchStmt:
			if node.Label != nil {
				keep[node.Label.Pos()] = true
			}
		case *ast.StructType:
			for _, field := range node.Fields.List {
				for _, name := range field.Names {
					keep[name.Pos()] = true
				}
			}
		case *ast.InterfaceType:
			for _, method := range node.Methods.List {
				for _, name := range method.Names {
					keep[name.Pos()] = true
				}
			}
		case *ast.ImportSpec:
			if node.Name != nil {
				keep[node.Name.Pos()] = true
			}
		}
		return true
	})

	var offsets []int
	ast.Inspect(file, func(n ast.Node) bool {
		ident, ok := n.(*ast.Ident)
		if !ok || ident.Name != from || keep[ident.Pos()] {
			return true
		}
		// Header idents (the synthetic package clause) map below zero.
		if off := scriptOffset(fset, ident.Pos()); off >= 0 {
			offsets = append(offsets, off)
		}
		return true
	})
	if len(offsets) == 0 {
		return src
	}

	// Apply back-to-front so earlier offsets stay valid.
	sort.Ints(offsets)
	out := src
	for i := len(offsets) - 1; i >= 0; i-- {
		off := offsets[i]
		out = out[:off] + to + out[off+len(from):]
	}
	return out
}
