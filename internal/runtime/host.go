// Package runtime hosts compiled scene artifacts. All artifacts of one
// project are evaluated sequentially into a single shared interpreter
// session — the shared namespace the conflict resolver protects. The host
// supplies the externalized capability namespaces (motion, easing, plus a
// small stdlib subset) through a prelude, so artifacts themselves contain no
// import statements.
//
// Interpretation instead of process-level compilation keeps a bad artifact
// from ever taking the host down: every evaluation is wrapped with recover
// and a context deadline.
package runtime

import (
	"context"
	"fmt"

	"scenesmith/internal/motion"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// prelude binds the capability namespaces into the shared session scope.
// Scene artifacts reference these as bare identifiers; any import statement
// inside an artifact is a contract violation caught upstream.
const prelude = `
import (
	"math"
	"strings"
	"motion"
	"easing"
)
var _, _, _, _ = math.Pi, strings.TrimSpace, motion.Stack, easing.Linear
`

// Host is one shared-namespace interpreter session for a project's scenes.
// It is not safe for concurrent use; callers own the session.
type Host struct {
	interp  *interp.Interpreter
	reg     *motion.ExportRegistry
	byScene map[string]motion.Component
	order   []string
}

// NewHost creates a fresh session with the capability namespaces bound.
func NewHost() (*Host, error) {
	reg := motion.NewExportRegistry()
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(capabilitySymbols(reg)); err != nil {
		return nil, fmt.Errorf("load capability symbols: %w", err)
	}
	if _, err := i.Eval(prelude); err != nil {
		return nil, fmt.Errorf("evaluate prelude: %w", err)
	}
	return &Host{
		interp:  i,
		reg:     reg,
		byScene: make(map[string]motion.Component),
	}, nil
}

// LoadArtifact evaluates one compiled artifact into the shared namespace and
// records the component it exports. Artifacts must export exactly one
// component; the pipeline guarantees this, but the host re-checks because it
// is the piece actually executing untrusted output.
func (h *Host) LoadArtifact(ctx context.Context, sceneID, artifact string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scene %s: panic during load: %v", sceneID, r)
		}
	}()

	if _, dup := h.byScene[sceneID]; dup {
		return fmt.Errorf("scene %s: already loaded in this session", sceneID)
	}

	before := h.reg.Len()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		_, evalErr := h.interp.Eval(artifact)
		done <- evalErr
	}()

	select {
	case evalErr := <-done:
		if evalErr != nil {
			return fmt.Errorf("scene %s: %w", sceneID, evalErr)
		}
	case <-ctx.Done():
		// The goroutine may still be running; the session is poisoned and
		// must not be reused after a timeout.
		return fmt.Errorf("scene %s: load timed out: %w", sceneID, ctx.Err())
	}

	comps := h.reg.Components()
	if len(comps) != before+1 {
		return fmt.Errorf("scene %s: expected exactly one export, got %d", sceneID, len(comps)-before)
	}
	h.byScene[sceneID] = comps[len(comps)-1]
	h.order = append(h.order, sceneID)
	return nil
}

// Scenes returns the loaded scene IDs in load order.
func (h *Host) Scenes() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// RenderFrame asks one loaded scene for its tree at the given frame context.
// A panic inside the component yields an error, never a crash.
func (h *Host) RenderFrame(sceneID string, sc *motion.SceneContext) (node motion.Node, err error) {
	comp, ok := h.byScene[sceneID]
	if !ok {
		return motion.Node{}, fmt.Errorf("scene %s: not loaded", sceneID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scene %s: panic at frame %d: %v", sceneID, sc.Frame, r)
		}
	}()
	return comp(sc), nil
}

// EvalOnce instantiates an artifact exactly once in a throwaway isolated
// session. The validator uses it to catch an immediate top-level throw
// without touching any shared session.
func EvalOnce(ctx context.Context, artifact string) error {
	h, err := NewHost()
	if err != nil {
		return fmt.Errorf("create validation session: %w", err)
	}
	return h.LoadArtifact(ctx, "validation", artifact)
}
