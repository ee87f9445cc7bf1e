package fft

import (
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

func TestForwardImpulse(t *testing.T) {
	e := NewEngine()
	x := make([]float64, 8)
	x[0] = 1

	re, im, err := e.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for i := range re {
		if math.Abs(re[i]-1) > 1e-12 || math.Abs(im[i]) > 1e-12 {
			t.Errorf("bin %d: got (%v, %v), want (1, 0)", i, re[i], im[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	e := NewEngine()
	x := []float64{0.5, -0.25, 0.125, 1, -1, 0.75, 0, 0.3}

	re, im, err := e.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	y, err := e.Inverse(re, im)
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	for i := range x {
		if math.Abs(x[i]-y[i]) > 1e-12 {
			t.Errorf("sample %d: got %v, want %v", i, y[i], x[i])
		}
	}
}

func TestSizeChangeReplacesPlan(t *testing.T) {
	e := NewEngine()
	if _, _, err := e.Forward(make([]float64, 16)); err != nil {
		t.Fatalf("Forward(16) failed: %v", err)
	}
	if e.Size() != 16 {
		t.Fatalf("Size() = %d, want 16", e.Size())
	}

	x := []float64{1, 2, 3, 4}
	re, _, err := e.Forward(x)
	if err != nil {
		t.Fatalf("Forward(4) failed: %v", err)
	}
	if e.Size() != 4 {
		t.Errorf("Size() = %d, want 4", e.Size())
	}
	if math.Abs(re[0]-10) > 1e-12 {
		t.Errorf("DC bin = %v, want 10", re[0])
	}
}

func TestInvalidSizes(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name string
		run  func() error
	}{
		{"empty", func() error { _, _, err := e.Forward(nil); return err }},
		{"not power of two", func() error { _, _, err := e.Forward(make([]float64, 12)); return err }},
		{"mismatched parts", func() error { _, err := e.Inverse(make([]float64, 8), make([]float64, 4)); return err }},
		{"in place", func() error { return e.ForwardInPlace(make([]complex128, 6)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := map[int]int{1: 1, 2: 2, 3: 4, 1000: 1024, 65536: 65536, 65537: 131072}
	for in, want := range tests {
		if got := NextPowerOfTwo(in); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}
