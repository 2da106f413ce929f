// Package easing provides the easing curves exposed to scene scripts as the
// `easing` capability namespace. All functions map progress in [0, 1] to an
// eased value; inputs outside the range are clamped.
package easing

import "math"

func clamp(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Linear returns t unchanged.
func Linear(t float64) float64 { return clamp(t) }

// InQuad accelerates from zero.
func InQuad(t float64) float64 { t = clamp(t); return t * t }

// OutQuad decelerates to zero.
func OutQuad(t float64) float64 { t = clamp(t); return t * (2 - t) }

// InOutQuad accelerates then decelerates.
func InOutQuad(t float64) float64 {
	t = clamp(t)
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// InCubic accelerates sharply from zero.
func InCubic(t float64) float64 { t = clamp(t); return t * t * t }

// OutCubic decelerates sharply to zero.
func OutCubic(t float64) float64 {
	t = clamp(t) - 1
	return t*t*t + 1
}

// InOutCubic combines InCubic and OutCubic.
func InOutCubic(t float64) float64 {
	t = clamp(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := 2*t - 2
	return 0.5*u*u*u + 1
}

// OutBack overshoots slightly past the target before settling.
func OutBack(t float64) float64 {
	t = clamp(t) - 1
	const s = 1.70158
	return t*t*((s+1)*t+s) + 1
}

// OutElastic settles with a decaying oscillation.
func OutElastic(t float64) float64 {
	t = clamp(t)
	if t == 0 || t == 1 {
		return t
	}
	return math.Pow(2, -10*t)*math.Sin((t-0.075)*(2*math.Pi)/0.3) + 1
}

// InOutSine is a gentle sinusoidal ease.
func InOutSine(t float64) float64 {
	t = clamp(t)
	return -(math.Cos(math.Pi*t) - 1) / 2
}
