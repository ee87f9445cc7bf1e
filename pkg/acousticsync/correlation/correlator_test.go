package correlation

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

func noise(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = r.Float64()*2 - 1
	}
	return x
}

func delayed(x []float64, d int) []float64 {
	y := make([]float64, len(x))
	copy(y[d:], x[:len(x)-d])
	return y
}

func TestAutocorrelation(t *testing.T) {
	c := NewCorrelator()
	a := noise(1, 2048)

	res, err := c.Correlate(a, a, false)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if res.PeakIndex != 0 {
		t.Errorf("PeakIndex = %d, want 0", res.PeakIndex)
	}
	if math.Abs(res.PeakMagnitude-1) > 1e-9 {
		t.Errorf("PeakMagnitude = %v, want 1", res.PeakMagnitude)
	}
	if math.Abs(res.RefinedPeak) > 0.5 {
		t.Errorf("RefinedPeak = %v, want within half a sample of 0", res.RefinedPeak)
	}
	if res.Size() != len(a) {
		t.Errorf("trace length = %d, want %d", res.Size(), len(a))
	}
}

func TestAutocorrelationPadded(t *testing.T) {
	c := NewCorrelator()
	a := noise(2, 1024)

	res, err := c.Correlate(a, a, true)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if res.Size() != 2048 {
		t.Fatalf("trace length = %d, want 2048", res.Size())
	}
	if res.PeakIndex != 0 {
		t.Errorf("PeakIndex = %d, want 0", res.PeakIndex)
	}
	// Only half of the padded frame carries signal.
	if math.Abs(res.PeakMagnitude-0.5) > 1e-9 {
		t.Errorf("PeakMagnitude = %v, want 0.5", res.PeakMagnitude)
	}
}

func TestIntegerDelay(t *testing.T) {
	c := NewCorrelator()
	a := noise(3, 4096)
	b := delayed(a, 800)

	res, err := c.Correlate(a, b, true)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if res.PeakIndex != -800 {
		t.Errorf("PeakIndex = %d, want -800", res.PeakIndex)
	}
	if math.Abs(res.RefinedPeak+800) > 0.5 {
		t.Errorf("RefinedPeak = %v, want about -800", res.RefinedPeak)
	}
}

func TestAntisymmetry(t *testing.T) {
	c := NewCorrelator()
	a := noise(4, 1024)
	b := delayed(a, 37)
	for i, v := range noise(5, len(b)) {
		b[i] += 0.05 * v
	}

	ab, err := c.Correlate(a, b, true)
	if err != nil {
		t.Fatalf("Correlate(a, b) failed: %v", err)
	}
	ba, err := c.Correlate(b, a, true)
	if err != nil {
		t.Fatalf("Correlate(b, a) failed: %v", err)
	}

	n := ab.Size()
	if ((ab.PeakIndex+ba.PeakIndex)%n+n)%n != 0 {
		t.Errorf("peaks %d and %d are not opposite mod %d", ab.PeakIndex, ba.PeakIndex, n)
	}
	if ab.PeakIndex != -37 {
		t.Errorf("PeakIndex = %d, want -37", ab.PeakIndex)
	}
}

func TestFractionalShift(t *testing.T) {
	const n = 4096
	bins := []float64{11, 29, 47, 83, 101}
	phases := []float64{0.3, 1.1, 2.0, 0.7, 2.9}
	signal := func(at float64) float64 {
		var v float64
		for i, k := range bins {
			v += math.Cos(2*math.Pi*k*at/n + phases[i])
		}
		return v / float64(len(bins))
	}

	a := make([]float64, n)
	b := make([]float64, n)
	for i := range a {
		a[i] = signal(float64(i))
		b[i] = signal(float64(i) - 0.3)
	}

	res, err := NewCorrelator().Correlate(a, b, false)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if math.Abs(res.RefinedPeak+0.3) > 0.05 {
		t.Errorf("RefinedPeak = %v, want -0.3 within 0.05", res.RefinedPeak)
	}
}

func TestSilentInputStaysFinite(t *testing.T) {
	a := make([]float64, 256)
	b := noise(6, 256)

	res, err := NewCorrelator().Correlate(a, b, true)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	for i, v := range res.Trace {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("trace[%d] = %v", i, v)
		}
	}
}

func TestInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		pad  bool
	}{
		{"empty a", nil, []float64{1}, true},
		{"empty b", []float64{1}, nil, true},
		{"length mismatch", make([]float64, 8), make([]float64, 16), false},
		{"not power of two", make([]float64, 12), make([]float64, 12), false},
	}

	c := NewCorrelator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Correlate(tt.a, tt.b, tt.pad)
			if !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNonFiniteInput(t *testing.T) {
	a := noise(7, 64)
	a[3] = math.NaN()

	_, err := NewCorrelator().Correlate(a, noise(8, 64), true)
	if !errors.Is(err, errs.ErrCorrelationFailure) {
		t.Errorf("got %v, want ErrCorrelationFailure", err)
	}
}

func TestSharedAcrossSizes(t *testing.T) {
	c := NewCorrelator()
	sizes := []int{256, 512, 1024}

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := sizes[i%len(sizes)]
			a := noise(int64(i), n)
			res, err := c.Correlate(a, delayed(a, 5), true)
			if err != nil {
				t.Errorf("Correlate(%d) failed: %v", n, err)
				return
			}
			if res.PeakIndex != -5 || res.Size() != 2*n {
				t.Errorf("size %d: PeakIndex = %d, trace length %d", n, res.PeakIndex, res.Size())
			}
		}(i)
	}
	wg.Wait()
}
