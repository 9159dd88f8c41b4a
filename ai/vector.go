package ai

import "math"

// Magnitude returns the Euclidean length of v.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// NormalizeVector scales v to unit length and returns a new slice.
// A zero vector is returned as a zero vector of the same length.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}
