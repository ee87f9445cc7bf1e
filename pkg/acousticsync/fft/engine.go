// Package fft wraps a fixed-size complex FFT plan that is rebuilt only when
// the requested transform size changes.
package fft

import (
	"fmt"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Engine caches one transform plan. It is not safe for concurrent use; callers
// sharing an Engine across goroutines must serialize access.
type Engine struct {
	n    int
	plan *fourier.CmplxFFT
	work []complex128
}

func NewEngine() *Engine {
	return &Engine{}
}

// Size returns the size of the cached plan, or 0 before the first transform.
func (e *Engine) Size() int {
	return e.n
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

func (e *Engine) prepare(n int) error {
	if !IsPowerOfTwo(n) {
		return fmt.Errorf("transform size %d is not a power of two: %w", n, errs.ErrInvalidInput)
	}
	if e.plan == nil || e.n != n {
		e.plan = fourier.NewCmplxFFT(n)
		e.work = make([]complex128, n)
		e.n = n
	}
	return nil
}

// Forward transforms a real sequence and returns the real and imaginary parts
// of its spectrum.
func (e *Engine) Forward(samples []float64) ([]float64, []float64, error) {
	if err := e.prepare(len(samples)); err != nil {
		return nil, nil, err
	}
	for i, v := range samples {
		e.work[i] = complex(v, 0)
	}
	e.plan.Coefficients(e.work, e.work)

	re := make([]float64, e.n)
	im := make([]float64, e.n)
	for i, c := range e.work {
		re[i] = real(c)
		im[i] = imag(c)
	}
	return re, im, nil
}

// Inverse returns the real part of the inverse transform, scaled by 1/N.
func (e *Engine) Inverse(re, im []float64) ([]float64, error) {
	if len(re) != len(im) {
		return nil, fmt.Errorf("spectrum parts differ in length (%d != %d): %w", len(re), len(im), errs.ErrInvalidInput)
	}
	if err := e.prepare(len(re)); err != nil {
		return nil, err
	}
	for i := range re {
		e.work[i] = complex(re[i], im[i])
	}
	e.plan.Sequence(e.work, e.work)

	out := make([]float64, e.n)
	scale := 1 / float64(e.n)
	for i, c := range e.work {
		out[i] = real(c) * scale
	}
	return out, nil
}

// ForwardInPlace replaces buf with its spectrum.
func (e *Engine) ForwardInPlace(buf []complex128) error {
	if err := e.prepare(len(buf)); err != nil {
		return err
	}
	e.plan.Coefficients(buf, buf)
	return nil
}

// InverseInPlace replaces buf with its inverse transform, scaled by 1/N.
func (e *Engine) InverseInPlace(buf []complex128) error {
	if err := e.prepare(len(buf)); err != nil {
		return err
	}
	e.plan.Sequence(buf, buf)
	scale := complex(1/float64(e.n), 0)
	for i := range buf {
		buf[i] *= scale
	}
	return nil
}
