package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"scenesmith/internal/types"
)

// maxFallbackDetail bounds the diagnostic text embedded in a fallback scene
// so one enormous compiler error cannot bloat the artifact.
const maxFallbackDetail = 280

// SynthesizeFallback produces the pipeline's last line of defense: a minimal
// always-valid artifact showing a placeholder visual with the diagnostic as
// displayable content. Its output passes Validate unconditionally, dynamic
// check included, so one malformed scene can never destabilize the shared
// composition. The entry name carries a content-derived suffix, keeping it
// collision-free against any sibling without another resolver pass.
func SynthesizeFallback(sceneName string, kind types.ErrorKind, detail string) string {
	detail = strings.TrimSpace(detail)
	if len(detail) > maxFallbackDetail {
		detail = detail[:maxFallbackDetail] + "…"
	}
	if detail == "" {
		detail = "no further detail"
	}

	title := strings.TrimSpace(sceneName)
	if title == "" {
		title = "untitled scene"
	}

	sum := sha256.Sum256([]byte(sceneName + "\x00" + kind.String() + "\x00" + detail))
	entry := "Fallback_" + identifierSafe(sceneName) + "_" + hex.EncodeToString(sum[:4])

	return fmt.Sprintf(`func %s(ctx *motion.SceneContext) motion.Node {
	return motion.Fill("#101022",
		motion.Stack(
			motion.Label("Scene could not be compiled", 42, "#ff6b6b"),
			motion.Label(%q, 28, "#e8e8e8"),
			motion.Label(%q, 22, "#ffd166"),
			motion.Label(%q, 16, "#9a9ab0"),
		),
	)
}

var _ = motion.Export(%s)
`, entry, title, kind.String(), detail, entry)
}

// identifierSafe squeezes an arbitrary scene name into identifier characters.
func identifierSafe(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsDigit(r) && b.Len() > 0:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "Scene"
	}
	return b.String()
}
