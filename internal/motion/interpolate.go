package motion

// Interpolate maps frame through the piecewise-linear function defined by
// inputRange/outputRange, clamping outside the input range. Ranges must be
// the same length (>= 2) and inputRange strictly increasing; malformed
// ranges yield the first output value rather than panicking, since this runs
// inside untrusted scene code.
func Interpolate(frame float64, inputRange, outputRange []float64) float64 {
	if len(inputRange) < 2 || len(inputRange) != len(outputRange) {
		if len(outputRange) > 0 {
			return outputRange[0]
		}
		return 0
	}
	for i := 1; i < len(inputRange); i++ {
		if inputRange[i] <= inputRange[i-1] {
			return outputRange[0]
		}
	}
	if frame <= inputRange[0] {
		return outputRange[0]
	}
	last := len(inputRange) - 1
	if frame >= inputRange[last] {
		return outputRange[last]
	}
	for i := 1; i <= last; i++ {
		if frame <= inputRange[i] {
			t := (frame - inputRange[i-1]) / (inputRange[i] - inputRange[i-1])
			return outputRange[i-1] + t*(outputRange[i]-outputRange[i-1])
		}
	}
	return outputRange[last]
}

// InterpolateEased is Interpolate with an easing function applied to the
// segment-local progress. A nil ease falls back to linear.
func InterpolateEased(frame float64, inputRange, outputRange []float64, ease func(float64) float64) float64 {
	if ease == nil {
		return Interpolate(frame, inputRange, outputRange)
	}
	if len(inputRange) < 2 || len(inputRange) != len(outputRange) {
		return Interpolate(frame, inputRange, outputRange)
	}
	if frame <= inputRange[0] {
		return outputRange[0]
	}
	last := len(inputRange) - 1
	if frame >= inputRange[last] {
		return outputRange[last]
	}
	for i := 1; i <= last; i++ {
		if frame <= inputRange[i] {
			t := (frame - inputRange[i-1]) / (inputRange[i] - inputRange[i-1])
			t = ease(t)
			return outputRange[i-1] + t*(outputRange[i]-outputRange[i-1])
		}
	}
	return outputRange[last]
}
