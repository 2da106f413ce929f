package motion

import "sync"

// ExportRegistry collects the components scenes register through Export.
// The host creates a fresh registry per interpreter session and binds a
// session-local Export closure over it, so scene evaluation order alone
// determines the registration order. There is deliberately no package-level
// registry: sessions must not see each other's exports.
type ExportRegistry struct {
	mu      sync.Mutex
	entries []Component
}

// NewExportRegistry returns an empty registry.
func NewExportRegistry() *ExportRegistry {
	return &ExportRegistry{}
}

// Add records one exported component and returns it unchanged, so the
// scene-side form `var _ = motion.Export(Comp)` stays a plain declaration.
func (r *ExportRegistry) Add(c Component) Component {
	r.mu.Lock()
	r.entries = append(r.entries, c)
	r.mu.Unlock()
	return c
}

// Components returns the registered components in registration order.
func (r *ExportRegistry) Components() []Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Component, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered components.
func (r *ExportRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
