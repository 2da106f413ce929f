package motion

import "math"

// SpringConfig shapes a spring animation. The zero value is replaced by
// DefaultSpring; partial configs keep their zero fields only if the whole
// struct is non-zero, so callers either take the default or own every knob.
type SpringConfig struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

// DefaultSpring is a gently overdamped spring that settles without visible
// oscillation.
func DefaultSpring() SpringConfig {
	return SpringConfig{Mass: 1, Stiffness: 100, Damping: 10}
}

// Spring evaluates a unit spring (from 0 toward 1) released at frame 0,
// sampled at the given frame and fps. Negative frames return 0; the value
// converges to 1. The closed-form solution keeps evaluation pure per frame,
// so scenes can sample any frame in any order.
func Spring(frame, fps float64, cfg SpringConfig) float64 {
	if frame <= 0 {
		return 0
	}
	if fps <= 0 {
		fps = 30
	}
	if cfg == (SpringConfig{}) {
		cfg = DefaultSpring()
	}
	if cfg.Mass <= 0 || cfg.Stiffness <= 0 || cfg.Damping < 0 {
		cfg = DefaultSpring()
	}

	t := frame / fps
	omega := math.Sqrt(cfg.Stiffness / cfg.Mass)
	zeta := cfg.Damping / (2 * math.Sqrt(cfg.Stiffness*cfg.Mass))

	var x float64
	switch {
	case zeta < 1:
		// Underdamped: decaying oscillation around the target.
		wd := omega * math.Sqrt(1-zeta*zeta)
		e := math.Exp(-zeta * omega * t)
		x = 1 - e*(math.Cos(wd*t)+(zeta*omega/wd)*math.Sin(wd*t))
	case zeta == 1:
		// Critically damped.
		e := math.Exp(-omega * t)
		x = 1 - e*(1+omega*t)
	default:
		// Overdamped.
		s := omega * math.Sqrt(zeta*zeta-1)
		r1 := -zeta*omega + s
		r2 := -zeta*omega - s
		x = 1 - (r2*math.Exp(r1*t)-r1*math.Exp(r2*t))/(r2-r1)
	}
	return x
}
