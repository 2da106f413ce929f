// Package motion is the capability namespace the host runtime exposes to
// scene scripts. Scenes never import it themselves — the host binds it into
// the shared interpreter namespace before any scene artifact is evaluated.
// Everything here is pure data construction; rendering is the host's problem.
package motion

// Node is one element of a scene's visual tree. Scene components return a
// Node for every frame they are asked about.
type Node struct {
	Kind     string
	Props    map[string]any
	Children []Node
}

func node(kind string, props map[string]any, children ...Node) Node {
	if props == nil {
		props = map[string]any{}
	}
	return Node{Kind: kind, Props: props, Children: children}
}

// Fill is a full-canvas container with a background color. It is the usual
// outermost element of a scene.
func Fill(color string, children ...Node) Node {
	return node("fill", map[string]any{"color": color}, children...)
}

// Stack layers its children on top of each other, centered.
func Stack(children ...Node) Node {
	return node("stack", nil, children...)
}

// Row lays its children out horizontally with the given gap in pixels.
func Row(gap float64, children ...Node) Node {
	return node("row", map[string]any{"gap": gap}, children...)
}

// Label renders a line of text.
func Label(text string, size float64, color string) Node {
	return node("label", map[string]any{"text": text, "size": size, "color": color})
}

// Rect renders a w×h rectangle.
func Rect(w, h float64, color string) Node {
	return node("rect", map[string]any{"w": w, "h": h, "color": color})
}

// Circle renders a circle with radius r.
func Circle(r float64, color string) Node {
	return node("circle", map[string]any{"r": r, "color": color})
}

// Img renders an external image by URL. The host decides whether and how to
// fetch it; the pipeline treats the URL as opaque content.
func Img(src string, w, h float64) Node {
	return node("img", map[string]any{"src": src, "w": w, "h": h})
}

// Sequence makes its children visible only between frame from (inclusive)
// and from+duration (exclusive), shifting their local frame origin to from.
func Sequence(from, duration int, children ...Node) Node {
	return node("sequence", map[string]any{"from": from, "duration": duration}, children...)
}

// Opacity wraps children with an opacity in [0, 1].
func Opacity(value float64, children ...Node) Node {
	return node("opacity", map[string]any{"value": value}, children...)
}

// Translate offsets children by (x, y) pixels.
func Translate(x, y float64, children ...Node) Node {
	return node("translate", map[string]any{"x": x, "y": y}, children...)
}

// Scale scales children uniformly around their center.
func Scale(factor float64, children ...Node) Node {
	return node("scale", map[string]any{"factor": factor}, children...)
}
