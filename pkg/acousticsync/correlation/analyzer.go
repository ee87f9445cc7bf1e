package correlation

import (
	"fmt"
	"math"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
	"gonum.org/v1/gonum/floats"
)

// DefaultAverageWeight is the weight of each new trace mean in the running
// average kept by an Analyzer.
const DefaultAverageWeight = 1.0 / 100

// Analysis is the threshold window computed for one trace.
type Analysis struct {
	Min           float64
	Max           float64
	ThresholdUp   float64
	ThresholdDown float64
	IsValidPeak   bool
}

// Smoother is an exponential moving average. The first update seeds it.
type Smoother struct {
	weight float64
	value  float64
	seeded bool
}

func NewSmoother(weight float64) *Smoother {
	return &Smoother{weight: weight}
}

func (s *Smoother) Update(x float64) float64 {
	if !s.seeded || math.IsNaN(s.value) {
		s.value = x
		s.seeded = true
		return s.value
	}
	s.value = s.value*(1-s.weight) + x*s.weight
	return s.value
}

func (s *Smoother) Value() float64 {
	if !s.seeded {
		return math.NaN()
	}
	return s.value
}

// Analyzer decides whether a correlation peak stands alone. Its running
// average persists across calls; use a fresh Analyzer to reset it. Not safe
// for concurrent use.
type Analyzer struct {
	average *Smoother
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{average: NewSmoother(DefaultAverageWeight)}
}

// Average returns the current running average of trace means.
func (a *Analyzer) Average() float64 {
	return a.average.Value()
}

// Analyse builds a threshold window centered on the running average and
// reports whether the sample at peakIndex crosses it while every sample more
// than peakWidth lags away (circularly) stays strictly inside.
func (a *Analyzer) Analyse(trace []float64, peakIndex int, peakThreshold, peakWidth float64) (Analysis, error) {
	n := len(trace)
	if n == 0 {
		return Analysis{}, fmt.Errorf("analyse empty trace: %w", errs.ErrInvalidInput)
	}
	if !(peakThreshold > 0 && peakThreshold < 1) {
		return Analysis{}, fmt.Errorf("peak threshold %v outside (0, 1): %w", peakThreshold, errs.ErrInvalidInput)
	}

	lo := floats.Min(trace)
	hi := floats.Max(trace)
	avg := a.average.Update(floats.Sum(trace) / float64(n))

	up := hi - avg
	down := avg - lo
	if up > down {
		lo = avg - up
	} else {
		hi = avg + down
	}
	if lo == hi {
		lo *= 0.999999999
		hi = hi*1.000000001 + 1e-11
	}

	res := Analysis{
		Min:           lo,
		Max:           hi,
		ThresholdUp:   lo + (hi-lo)*peakThreshold,
		ThresholdDown: hi - (hi-lo)*peakThreshold,
	}

	w := ((peakIndex % n) + n) % n
	p := trace[w]
	if !(p > res.ThresholdUp || p < res.ThresholdDown) {
		return res, nil
	}

	for i, v := range trace {
		if float64(circularDistance(i, w, n)) <= peakWidth {
			continue
		}
		if !(v < res.ThresholdUp && v > res.ThresholdDown) {
			return res, nil
		}
	}
	res.IsValidPeak = true
	return res, nil
}

func circularDistance(i, j, n int) int {
	d := i - j
	if d < 0 {
		d = -d
	}
	return min(d, n-d)
}
