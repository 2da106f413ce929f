package runtime

import (
	"reflect"

	"scenesmith/internal/motion"
	"scenesmith/internal/motion/easing"

	"github.com/traefik/yaegi/interp"
)

// capabilitySymbols builds the yaegi export map for the externalized
// capability namespaces. Export is bound as a closure over the session's
// registry so each interpreter session collects its own scene exports.
func capabilitySymbols(reg *motion.ExportRegistry) interp.Exports {
	return interp.Exports{
		"motion/motion": {
			// constructors
			"Fill":      reflect.ValueOf(motion.Fill),
			"Stack":     reflect.ValueOf(motion.Stack),
			"Row":       reflect.ValueOf(motion.Row),
			"Label":     reflect.ValueOf(motion.Label),
			"Rect":      reflect.ValueOf(motion.Rect),
			"Circle":    reflect.ValueOf(motion.Circle),
			"Img":       reflect.ValueOf(motion.Img),
			"Sequence":  reflect.ValueOf(motion.Sequence),
			"Opacity":   reflect.ValueOf(motion.Opacity),
			"Translate": reflect.ValueOf(motion.Translate),
			"Scale":     reflect.ValueOf(motion.Scale),

			// animation helpers
			"Interpolate":      reflect.ValueOf(motion.Interpolate),
			"InterpolateEased": reflect.ValueOf(motion.InterpolateEased),
			"Spring":           reflect.ValueOf(motion.Spring),
			"DefaultSpring":    reflect.ValueOf(motion.DefaultSpring),

			// session-local export hook
			"Export": reflect.ValueOf(reg.Add),

			// types
			"Node":         reflect.ValueOf((*motion.Node)(nil)),
			"SpringConfig": reflect.ValueOf((*motion.SpringConfig)(nil)),
			"SceneContext": reflect.ValueOf((*motion.SceneContext)(nil)),
			"Component":    reflect.ValueOf((*motion.Component)(nil)),
		},
		"easing/easing": {
			"Linear":     reflect.ValueOf(easing.Linear),
			"InQuad":     reflect.ValueOf(easing.InQuad),
			"OutQuad":    reflect.ValueOf(easing.OutQuad),
			"InOutQuad":  reflect.ValueOf(easing.InOutQuad),
			"InCubic":    reflect.ValueOf(easing.InCubic),
			"OutCubic":   reflect.ValueOf(easing.OutCubic),
			"InOutCubic": reflect.ValueOf(easing.InOutCubic),
			"OutBack":    reflect.ValueOf(easing.OutBack),
			"OutElastic": reflect.ValueOf(easing.OutElastic),
			"InOutSine":  reflect.ValueOf(easing.InOutSine),
		},
	}
}
