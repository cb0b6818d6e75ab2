package utils

// ClampF32 returns n clamped to the closed interval [low, high]. NaN clamps to low.
func ClampF32(n, low, high float32) float32 {
	if n < low || n != n {
		return low
	}
	if n > high {
		return high
	}
	return n
}

// Square returns n*n. math.Pow(x, 2) is slow, this is faster.
func Square(n float32) float32 {
	return n * n
}
