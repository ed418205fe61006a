// Package confidence collapses heterogeneous model confidence scales into
// a single [0,1] domain. Providers variously report 0-1 floats, 0-100
// percentages, or values slightly outside either range.
package confidence

// Normalize maps a reported confidence onto [0,1]. Values above 1 are
// treated as percentages; everything is clamped afterward.
func Normalize(v float64) float64 {
	if v > 1.0 {
		v = v / 100.0
	}
	return Clamp(v)
}

// Clamp restricts a value to [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
