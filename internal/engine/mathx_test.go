package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiemannSum(t *testing.T) {
	// Integral of x over [0, 10] is 50; left-hand rectangles undershoot a
	// rising function slightly.
	sum := RiemannSum(func(x float64) float64 { return x }, 0, 10, 1000)
	assert.InDelta(t, 50, sum, 0.1)

	constant := RiemannSum(func(x float64) float64 { return 2 }, 0, 5, 100)
	assert.InDelta(t, 10, constant, 1e-9)
}

func TestBellCurvePeaksAtMean(t *testing.T) {
	peak := BellCurve(50, bellCurveMean, bellCurveStdDev)
	assert.Greater(t, peak, BellCurve(30, bellCurveMean, bellCurveStdDev))
	assert.Greater(t, peak, BellCurve(70, bellCurveMean, bellCurveStdDev))

	// Symmetric around the mean.
	assert.InDelta(t,
		BellCurve(40, bellCurveMean, bellCurveStdDev),
		BellCurve(60, bellCurveMean, bellCurveStdDev),
		1e-9,
	)

	// Memoized lookups return the identical value.
	assert.Equal(t, peak, BellCurve(50, bellCurveMean, bellCurveStdDev))
}

func TestBellCurveIntegralAdditivity(t *testing.T) {
	whole := BellCurveIntegral(0, 100, bellCurveMean, bellCurveStdDev)
	left := BellCurveIntegral(0, 50, bellCurveMean, bellCurveStdDev)
	right := BellCurveIntegral(50, 100, bellCurveMean, bellCurveStdDev)
	assert.InDelta(t, whole, left+right, 1e-6)

	// The curve is scaled so the 0..100 mass is close to 100.
	assert.InDelta(t, 100, whole, 1)
}

func TestStatPercentile(t *testing.T) {
	assert.InDelta(t, 50, StatPercentile(50), 1)
	assert.Less(t, StatPercentile(10), StatPercentile(90))
	assert.GreaterOrEqual(t, StatPercentile(0), 0.0)
	assert.LessOrEqual(t, StatPercentile(100), 100.0)

	// Monotonic over the stat range.
	prev := math.Inf(-1)
	for v := 1.0; v <= 100; v += 7 {
		p := StatPercentile(v)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}
