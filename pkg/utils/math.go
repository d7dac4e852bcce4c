package utils

import "math"

// NormalizeL2 scales x in place to unit length. A zero vector is left as is.
func NormalizeL2(x []float32) {
	var sumsq float64
	for _, v := range x {
		sumsq += float64(v) * float64(v)
	}
	if sumsq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumsq))
	for i := range x {
		x[i] *= inv
	}
}
