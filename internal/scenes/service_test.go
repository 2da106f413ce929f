package scenes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"scenesmith/internal/pipeline"
	"scenesmith/internal/store"
	"scenesmith/internal/types"
)

const componentScene = `func Component(ctx *motion.SceneContext) motion.Node {
	return motion.Fill("#000")
}

var _ = motion.Export(Component)
`

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, pipeline.New(), zap.NewNop()), st
}

func seed(t *testing.T, st *store.Store, id string, order int, source string) {
	t.Helper()
	if err := st.CreateScene(types.Scene{
		ID: id, ProjectID: "p1", Order: order, Name: "Scene " + id, SourceCode: source,
	}); err != nil {
		t.Fatalf("create scene: %v", err)
	}
}

func TestCompile_PersistsArtifact(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "s1", 1, componentScene)

	result, err := svc.Compile(context.Background(), "s1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !result.Success {
		t.Fatalf("compile failed: %s", result.CompilationError)
	}

	sc, err := st.GetScene("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sc.CompiledCode != result.Code {
		t.Error("stored artifact differs from result")
	}
	if sc.CompiledAt.IsZero() {
		t.Error("compiled_at not persisted")
	}
	if sc.CompilationError != "" {
		t.Errorf("error persisted for success: %q", sc.CompilationError)
	}
}

func TestCompile_SiblingConflictResolvedFromStore(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "s1", 1, componentScene)
	seed(t, st, "s2", 2, componentScene)

	result, err := svc.Compile(context.Background(), "s2")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !result.Success {
		t.Fatalf("compile failed: %s", result.CompilationError)
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0].To != "Component_2" {
		t.Fatalf("conflicts = %v", result.Conflicts)
	}
	sc, _ := st.GetScene("s2")
	if !strings.Contains(sc.CompiledCode, "Component_2") {
		t.Errorf("persisted artifact not renamed:\n%s", sc.CompiledCode)
	}
}

func TestCompile_FailurePersistsFallbackAndError(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "s1", 1, "import \"os\"\n\n"+componentScene)

	result, err := svc.Compile(context.Background(), "s1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if result.Success {
		t.Fatal("forbidden import succeeded")
	}

	sc, _ := st.GetScene("s1")
	if !strings.Contains(sc.CompilationError, "ForbiddenConstruct") {
		t.Errorf("persisted error = %q", sc.CompilationError)
	}
	// The fallback artifact is stored alongside the diagnostic.
	if !strings.Contains(sc.CompiledCode, "Scene could not be compiled") {
		t.Error("fallback artifact not persisted")
	}
}

func TestCompile_MidFlightEditDiscardsArtifact(t *testing.T) {
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	seed(t, st, "s1", 1, componentScene)

	// Replay the race by hand: compile the snapshot, let an edit land, then
	// attempt the save the service would attempt.
	scene, err := st.GetScene("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	result := pipeline.New().CompileScene(context.Background(), scene.SourceCode, pipeline.SceneContextInfo{
		SceneID: "s1", ProjectID: "p1",
	})
	if !result.Success {
		t.Fatalf("compile failed: %s", result.CompilationError)
	}
	if err := st.UpdateSceneSource("s1", "var edited = true"); err != nil {
		t.Fatalf("update: %v", err)
	}

	err = st.SaveCompilation("s1", scene.SourceCode, result.Code, result.CompiledAt, result.CompilationError)
	if !errors.Is(err, store.ErrStaleSource) {
		t.Fatalf("err = %v, want ErrStaleSource", err)
	}

	sc, _ := st.GetScene("s1")
	if sc.CompiledCode != "" {
		t.Error("stale artifact persisted")
	}
	if sc.SourceCode != "var edited = true" {
		t.Errorf("edit lost: %q", sc.SourceCode)
	}
}

func TestCompile_UnknownScene(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Compile(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
