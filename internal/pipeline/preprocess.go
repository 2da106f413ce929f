// Package pipeline turns machine-generated scene source into an
// execution-ready artifact for the shared-namespace host runtime:
// repair → sanitize → resolve conflicts → compile → validate, with a
// deterministic fallback when a stage fails unrecoverably. Every stage
// returns a structured result; nothing in this package panics across its own
// boundary.
package pipeline

import (
	"regexp"
	"strings"
)

// RepairResult reports what the preprocessor did to a source text.
type RepairResult struct {
	Code   string
	Fixed  bool
	Issues []string
}

// repairRule is one entry of the ordered auto-repair table. Exactly one of
// replace/apply is used. Rules target mechanically-detectable defects known
// to break the compiler without touching author intent; anything subtler is
// the sanitizer's or compiler's problem.
type repairRule struct {
	pattern     *regexp.Regexp
	replace     string
	apply       func(string) string
	description string
}

var repairRules = []repairRule{
	{
		pattern:     regexp.MustCompile("(?m)^\\s*```(?:go|golang)?\\s*$\n?"),
		replace:     "",
		description: "removed markdown code fence",
	},
	{
		pattern:     regexp.MustCompile(`[\x{201C}\x{201D}]`),
		replace:     `"`,
		description: "normalized smart double quotes",
	},
	{
		pattern:     regexp.MustCompile(`[\x{2018}\x{2019}]`),
		replace:     `'`,
		description: "normalized smart single quotes",
	},
	{
		pattern:     regexp.MustCompile(`(?m)^package\s+\w+\s*$\n?`),
		replace:     "",
		description: "removed package clause (artifacts are package-less scripts)",
	},
	{
		pattern:     regexp.MustCompile(`(?m)^(\s*[)}]+,?)\s*;[ \t]*$`),
		replace:     "$1",
		description: "removed stray terminator after closing delimiter",
	},
	{
		pattern:     regexp.MustCompile(`(?m)^[ \t]*;[ \t]*$\n?`),
		replace:     "",
		description: "removed stray terminator line",
	},
	{
		apply:       dropDuplicateContextBindings,
		description: "removed duplicate context binding declaration",
	},
	{
		pattern:     regexp.MustCompile(`(?m)^(\w+(?:\s*,\s*\w+)*)\s*:=\s*`),
		replace:     "var $1 = ",
		description: "lowered top-level short declaration to var form",
	},
	{
		pattern:     regexp.MustCompile(`(?m)^motion\.Export\(`),
		replace:     "var _ = motion.Export(",
		description: "promoted bare export call to declaration form",
	},
}

var ctxBindingLine = regexp.MustCompile(`^\s*\w+(?:\s*,\s*\w+)*\s*:?=\s*ctx\.\w+(?:\(\))?\s*$`)

// dropDuplicateContextBindings removes a line that redeclares the exact same
// context binding as the line immediately before it. Generators frequently
// emit the same `frame := ctx.Frame` style binding twice in a row, which is
// a redeclaration error downstream.
func dropDuplicateContextBindings(src string) string {
	lines := strings.Split(src, "\n")
	out := lines[:0]
	var prev string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && trimmed == prev && ctxBindingLine.MatchString(line) {
			continue
		}
		out = append(out, line)
		if trimmed != "" {
			prev = trimmed
		}
	}
	return strings.Join(out, "\n")
}

// Repair applies the ordered rule table to source. Each rule application is
// independent and order-stable; a source with no matching defects comes back
// unchanged with Fixed == false. Repair never fails.
func Repair(source string) RepairResult {
	result := RepairResult{Code: source}
	for _, rule := range repairRules {
		before := result.Code
		if rule.apply != nil {
			result.Code = rule.apply(result.Code)
		} else {
			result.Code = rule.pattern.ReplaceAllString(result.Code, rule.replace)
		}
		if result.Code != before {
			result.Fixed = true
			result.Issues = append(result.Issues, rule.description)
		}
	}
	return result
}
