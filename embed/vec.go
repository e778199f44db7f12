package embed

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v to unit length in place. Returns false when the norm
// is zero (the vector is left untouched so callers can skip it).
func Normalize(v []float32) bool {
	n := Norm(v)
	if n == 0 {
		return false
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return true
}

// Dot returns the inner product of two equal-length vectors. With unit
// vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
