package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/printer"
	"strings"
)

// Mode selects the delivery form of a compiled artifact. The two historically
// separate sanitize/compile paths are one compiler parameterized by mode.
type Mode int

const (
	// ModeInline produces the bare declaration list for direct evaluation
	// into a shared session.
	ModeInline Mode = iota

	// ModeArtifact produces the persisted form: the same declarations under
	// a deterministic generated-code header carrying the source hash.
	ModeArtifact
)

// CompileOutput is the structured result of one compilation. Failures are
// diagnostics, never exceptions; Output is empty unless OK.
type CompileOutput struct {
	OK          bool
	Output      string
	Diagnostics []string
}

// Compile normalizes contract-compliant scene code into a host-executable
// artifact: a self-contained declaration list with no imports at all — the
// externalized capability namespaces (motion, easing, math, strings) are
// resolved by the host at execution time. The output is a pure function of
// the input, which is what makes builds idempotent and reclaim-on-timeout
// safe.
func Compile(code string, mode Mode) CompileOutput {
	fset, file, err := parseScript(code)
	if err != nil {
		return CompileOutput{Diagnostics: scriptErrors(err)}
	}

	// The sanitizer removes every import; anything left here means the
	// caller skipped the contract stage.
	if len(file.Imports) > 0 {
		var paths []string
		for _, imp := range file.Imports {
			paths = append(paths, imp.Path.Value)
		}
		return CompileOutput{Diagnostics: []string{
			fmt.Sprintf("unresolved imports %s; artifacts may only reference host-supplied namespaces", strings.Join(paths, ", ")),
		}}
	}

	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, fset, file); err != nil {
		return CompileOutput{Diagnostics: []string{fmt.Sprintf("render artifact: %v", err)}}
	}

	body := stripPackageClause(buf.String())
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}

	if mode == ModeArtifact {
		sum := sha256.Sum256([]byte(code))
		body = fmt.Sprintf("// Code generated by scenesmith (source %s). DO NOT EDIT.\n\n%s",
			hex.EncodeToString(sum[:6]), body)
	}

	return CompileOutput{OK: true, Output: body}
}

// stripPackageClause drops the synthetic package line the printer re-emits
// plus any blank lines directly after it.
func stripPackageClause(src string) string {
	lines := strings.Split(src, "\n")
	i := 0
	for ; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "package ") {
			i++
			break
		}
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return strings.Join(lines[i:], "\n")
}
