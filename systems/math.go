package systems

import "math"

// distanceSq returns the squared distance between two points.
func distanceSq(x1, y1, x2, y2 float32) float32 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}

// sqrt32 is math.Sqrt on float32.
func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// pow32 is math.Pow on float32.
func pow32(x, y float32) float32 {
	return float32(math.Pow(float64(x), float64(y)))
}
