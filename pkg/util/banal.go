package util

import "math"

// Kinda is the floor meters are reset to.
const Kinda = 256.0

func Log10P(x float64) float64 {
	return 10 * math.Log10(x+1e-16)
}

func Log10Q(x float64) float64 {
	return -10 * math.Log10(x+1e-16)
}

func DBP(x float64) float64 {
	return 20 * math.Log10(x+1e-16)
}

// DamPlus is the slow meter smoother.
func DamPlus(a, b float64) float64 {
	return 0.9995*a + 0.0005*b
}

func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOfTwo returns the smallest power of two >= n.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
