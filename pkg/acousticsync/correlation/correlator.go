// Package correlation implements normalized FFT cross-correlation with
// sub-sample peak refinement, and the statistical peak check applied to its
// output.
package correlation

import (
	"fmt"
	"math"
	"sync"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/fft"
	"gonum.org/v1/gonum/floats"
)

// rmsFloor replaces a zero RMS so silent input yields a large but finite trace.
const rmsFloor = 1e-6

// Result is the output of one correlation.
type Result struct {
	// Trace has one value per lag and length equal to the transform size.
	Trace []float64

	PeakMagnitude float64

	// PeakIndex is the lag of the largest |Trace| value, in [-N/2, N/2).
	PeakIndex int

	// RefinedPeak is PeakIndex plus the quadratic interpolation correction.
	RefinedPeak float64
}

// Size returns the transform size N.
func (r *Result) Size() int { return len(r.Trace) }

// Correlator owns the FFT plan and scratch buffers reused across calls of the
// same size. Calls are serialized, so one Correlator may be shared.
type Correlator struct {
	mu     sync.Mutex
	engine *fft.Engine
	bufA   []complex128
	bufB   []complex128
}

func NewCorrelator() *Correlator {
	return &Correlator{engine: fft.NewEngine()}
}

// Correlate cross-correlates a with b. A positive lag means a leads b, so if
// b is a delayed by d samples the peak sits at -d.
//
// With padWithZeros the inputs are zero-extended to the next power of two of
// at least twice the longer input. Without it both inputs must already share
// one power-of-two length.
func (c *Correlator) Correlate(a, b []float64, padWithZeros bool) (*Result, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("correlate empty signal (len %d, %d): %w", len(a), len(b), errs.ErrInvalidInput)
	}

	var n int
	if padWithZeros {
		n = fft.NextPowerOfTwo(2 * max(len(a), len(b)))
	} else {
		if len(a) != len(b) {
			return nil, fmt.Errorf("unpadded signals differ in length (%d != %d): %w", len(a), len(b), errs.ErrInvalidInput)
		}
		if !fft.IsPowerOfTwo(len(a)) {
			return nil, fmt.Errorf("unpadded length %d is not a power of two: %w", len(a), errs.ErrInvalidInput)
		}
		n = len(a)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.load(n, a, b)
	if err := c.engine.ForwardInPlace(c.bufA); err != nil {
		return nil, err
	}
	if err := c.engine.ForwardInPlace(c.bufB); err != nil {
		return nil, err
	}

	// A * conj(B), written back into bufA.
	for i := range c.bufA {
		ar, ai := real(c.bufA[i]), imag(c.bufA[i])
		br, bi := real(c.bufB[i]), imag(c.bufB[i])
		c.bufA[i] = complex(ar*br+ai*bi, br*ai-ar*bi)
	}
	if err := c.engine.InverseInPlace(c.bufA); err != nil {
		return nil, err
	}

	scale := 1 / (rms(a) * rms(b) * float64(n))
	trace := make([]float64, n)
	peak := 0
	for i, v := range c.bufA {
		x := real(v) * scale
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("non-finite value at lag %d: %w", i, errs.ErrCorrelationFailure)
		}
		trace[i] = x
		if math.Abs(x) > math.Abs(trace[peak]) {
			peak = i
		}
	}

	centered := peak
	if centered >= n/2 {
		centered -= n
	}

	return &Result{
		Trace:         trace,
		PeakMagnitude: math.Abs(trace[peak]),
		PeakIndex:     centered,
		RefinedPeak:   float64(centered) + interpolate(trace, peak),
	}, nil
}

func (c *Correlator) load(n int, a, b []float64) {
	if len(c.bufA) != n {
		c.bufA = make([]complex128, n)
		c.bufB = make([]complex128, n)
	}
	fill(c.bufA, a)
	fill(c.bufB, b)
}

func fill(dst []complex128, src []float64) {
	for i, v := range src {
		dst[i] = complex(v, 0)
	}
	for i := len(src); i < len(dst); i++ {
		dst[i] = 0
	}
}

func rms(x []float64) float64 {
	r := math.Sqrt(floats.Dot(x, x) / float64(len(x)))
	if r == 0 {
		return rmsFloor
	}
	return r
}

// interpolate fits a parabola through the peak and its circular neighbours
// and returns the offset of the vertex from the peak index.
func interpolate(trace []float64, i int) float64 {
	n := len(trace)
	prev := trace[(i-1+n)%n]
	next := trace[(i+1)%n]
	den := prev - 2*trace[i] + next
	if den == 0 {
		return 0
	}
	return 0.5 * (prev - next) / den
}
