package reembed

import "math"

// NormalizeVector scales v to unit length and returns the result as a new
// slice; the input is never touched. A zero vector has no direction and
// comes back as a zero slice of the same size.
func NormalizeVector(v []float32) []float32 {
	out := make([]float32, len(v))

	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return out
	}

	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
