package motion

// SceneContext carries the per-frame inputs a component sees. The host
// constructs one per evaluated frame; components must treat it as read-only.
type SceneContext struct {
	Frame            int
	DurationInFrames int
	FPS              int
	Width            int
	Height           int
}

// Progress is the scene-local completion in [0, 1] at the current frame.
func (c *SceneContext) Progress() float64 {
	if c.DurationInFrames <= 1 {
		return 1
	}
	p := float64(c.Frame) / float64(c.DurationInFrames-1)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Seconds is the current frame expressed in seconds.
func (c *SceneContext) Seconds() float64 {
	if c.FPS <= 0 {
		return 0
	}
	return float64(c.Frame) / float64(c.FPS)
}

// Component is the entry point of a scene: a function from per-frame context
// to the visual tree for that frame. Exactly one component per scene is
// registered through Export.
type Component func(ctx *SceneContext) Node
