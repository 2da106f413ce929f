package pipeline

import (
	"context"
	"fmt"
	"time"

	"scenesmith/internal/runtime"
	"scenesmith/internal/types"
)

// ValidateOptions tunes the post-compile checks. Dynamic evaluation is the
// expensive extra-confidence pass: the artifact is instantiated exactly once
// in a throwaway interpreter session to catch an immediate top-level throw.
type ValidateOptions struct {
	Dynamic bool
	Timeout time.Duration
}

// DefaultValidateOptions enables the static checks only.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{Dynamic: false, Timeout: 5 * time.Second}
}

// ValidateResult classifies a validation outcome. A raw exception never
// escapes to the caller.
type ValidateResult struct {
	OK     bool
	Kind   types.ErrorKind
	Detail string
}

// Validate confirms a compiled artifact is well-formed and exposes exactly
// one default-exported component, optionally instantiating it once in an
// isolated evaluation context.
func Validate(ctx context.Context, output string, opts ValidateOptions) ValidateResult {
	_, file, err := parseScript(output)
	if err != nil {
		return ValidateResult{
			Kind:   types.ErrCompileFailure,
			Detail: fmt.Sprintf("artifact is not well-formed: %v", scriptErrors(err)),
		}
	}
	if len(file.Imports) > 0 {
		return ValidateResult{
			Kind:   types.ErrCompileFailure,
			Detail: "artifact contains import statements",
		}
	}
	if n := countExports(file, nil); n != 1 {
		return ValidateResult{
			Kind:   types.ErrMissingDefaultExport,
			Detail: fmt.Sprintf("artifact exports %d components, want exactly 1", n),
		}
	}

	if opts.Dynamic {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		evalCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := runtime.EvalOnce(evalCtx, output); err != nil {
			return ValidateResult{
				Kind:   types.ErrRuntimeThrowOnValidate,
				Detail: err.Error(),
			}
		}
	}

	return ValidateResult{OK: true}
}
