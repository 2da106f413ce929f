package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"scenesmith/internal/types"
)

func TestSynthesizeFallback_PassesValidation(t *testing.T) {
	fb := SynthesizeFallback("Intro Scene", types.ErrSyntaxDefect, "1:4: expected declaration")

	out := Compile(fb, ModeInline)
	if !out.OK {
		t.Fatalf("fallback does not compile: %v", out.Diagnostics)
	}
	res := Validate(context.Background(), out.Output, ValidateOptions{Dynamic: true, Timeout: 10 * time.Second})
	if !res.OK {
		t.Errorf("fallback fails validation: %s %s", res.Kind, res.Detail)
	}
}

func TestSynthesizeFallback_CarriesDiagnostic(t *testing.T) {
	fb := SynthesizeFallback("Intro", types.ErrForbiddenConstruct, "import of \"os\" is not allowed")
	if !strings.Contains(fb, "Scene could not be compiled") {
		t.Error("placeholder title missing")
	}
	if !strings.Contains(fb, "Intro") {
		t.Error("scene name missing")
	}
	if !strings.Contains(fb, "ForbiddenConstruct") {
		t.Error("error kind missing")
	}
	if !strings.Contains(fb, "os") {
		t.Error("detail missing")
	}
}

func TestSynthesizeFallback_DetailTruncated(t *testing.T) {
	fb := SynthesizeFallback("X", types.ErrCompileFailure, strings.Repeat("e", 5000))
	if len(fb) > 2000 {
		t.Errorf("fallback bloated to %d bytes", len(fb))
	}
	if out := Compile(fb, ModeInline); !out.OK {
		t.Fatalf("truncated fallback does not compile: %v", out.Diagnostics)
	}
}

func TestSynthesizeFallback_EntryNamesDiffer(t *testing.T) {
	a := SynthesizeFallback("Scene A", types.ErrSyntaxDefect, "x")
	b := SynthesizeFallback("Scene B", types.ErrSyntaxDefect, "x")

	// Two fallbacks must coexist in one shared namespace.
	res := ResolveConflicts([]SceneSource{
		{ID: "a", Order: 1, Code: a},
		{ID: "b", Order: 2, Code: b},
	})
	if !res.OK() {
		t.Fatalf("fallbacks collide: %v", res.Errors)
	}
	if len(res.Renames) != 0 {
		t.Errorf("fallback entry names needed renaming: %v", res.Renames)
	}
}

func TestSynthesizeFallback_Deterministic(t *testing.T) {
	a := SynthesizeFallback("Intro", types.ErrSyntaxDefect, "boom")
	b := SynthesizeFallback("Intro", types.ErrSyntaxDefect, "boom")
	if a != b {
		t.Error("same failure produced different fallbacks")
	}
}

func TestSynthesizeFallback_HostileSceneName(t *testing.T) {
	names := []string{"", "123", "shapes & colors!", "日本語シーン", `"quoted"`}
	for _, name := range names {
		fb := SynthesizeFallback(name, types.ErrCompileFailure, "d")
		if out := Compile(fb, ModeInline); !out.OK {
			t.Errorf("name %q: fallback does not compile: %v", name, out.Diagnostics)
		}
	}
}
