package engine

import (
	"fmt"
	"math"
	"sync"
)

// Bell-curve helpers for presenting a stat value as a population
// percentile. Both the point values and the partial integrals are memoized
// because the shell recomputes them on every render.

const (
	bellCurveMean   = 50.0
	bellCurveStdDev = 17.0
)

var (
	bellCurveMu       sync.Mutex
	bellCurveCache    = map[string]map[float64]float64{}
	bellCurveIntCache = map[string]map[float64]float64{}
)

// RiemannSum approximates the integral of f over [a, b] with n left-hand
// rectangles.
func RiemannSum(f func(float64) float64, a, b float64, n int) float64 {
	if n <= 0 {
		n = 1000
	}
	dx := (b - a) / float64(n)
	sum := 0.0
	for i := 0; i < n; i++ {
		xi := a + float64(i)*dx
		sum += f(xi) * dx
	}
	return sum
}

// BellCurve evaluates a normal density scaled so the full integral is
// roughly 100, mirroring the 1-100 stat range.
func BellCurve(x, mean, stdDev float64) float64 {
	key := curveKey(mean, stdDev)

	bellCurveMu.Lock()
	if cached, ok := bellCurveCache[key][x]; ok {
		bellCurveMu.Unlock()
		return cached
	}
	bellCurveMu.Unlock()

	result := (100 / (stdDev * math.Sqrt(2*math.Pi))) *
		math.Exp(-math.Pow(x-mean, 2)/(2*stdDev*stdDev))

	bellCurveMu.Lock()
	if bellCurveCache[key] == nil {
		bellCurveCache[key] = map[float64]float64{}
	}
	bellCurveCache[key][x] = result
	bellCurveMu.Unlock()

	return result
}

// BellCurveIntegral integrates the scaled bell curve from lower to upper,
// memoizing the cumulative integrals from zero.
func BellCurveIntegral(lower, upper, mean, stdDev float64) float64 {
	return cumulative(upper, mean, stdDev) - cumulative(lower, mean, stdDev)
}

func cumulative(x, mean, stdDev float64) float64 {
	key := curveKey(mean, stdDev)

	bellCurveMu.Lock()
	if cached, ok := bellCurveIntCache[key][x]; ok {
		bellCurveMu.Unlock()
		return cached
	}
	bellCurveMu.Unlock()

	result := RiemannSum(func(v float64) float64 {
		return BellCurve(v, mean, stdDev)
	}, 0, x, 1000)

	bellCurveMu.Lock()
	if bellCurveIntCache[key] == nil {
		bellCurveIntCache[key] = map[float64]float64{}
	}
	bellCurveIntCache[key][x] = result
	bellCurveMu.Unlock()

	return result
}

// StatPercentile reports roughly what share of the population a stat value
// sits above, using the default 50/17 curve.
func StatPercentile(value float64) float64 {
	p := BellCurveIntegral(0, value, bellCurveMean, bellCurveStdDev)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func curveKey(mean, stdDev float64) string {
	return fmt.Sprintf("%g-%g", mean, stdDev)
}
