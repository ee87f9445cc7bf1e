package synctone

import (
	"math"
	"testing"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/correlation"
)

func TestHopSequence(t *testing.T) {
	tests := []struct {
		step int
		want float64
	}{
		{0, 17.0/200 - 1},
		{1, 70.0/200 - 1},
		{2, 123.0/200 - 1},
		{steps, 17.0/200 - 1},
		{-1, Hop(steps - 1)},
	}
	for _, tt := range tests {
		if got := Hop(tt.step); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Hop(%d) = %v, want %v", tt.step, got, tt.want)
		}
	}
	for i := 0; i < steps; i++ {
		if v := Hop(i); v < -1 || v >= 1 {
			t.Fatalf("Hop(%d) = %v out of range", i, v)
		}
	}
}

func TestGenerate(t *testing.T) {
	const rate = 16000
	x := Generate(rate, DefaultSeconds)
	if len(x) != rate*DefaultSeconds {
		t.Fatalf("len = %d, want %d", len(x), int(rate*DefaultSeconds))
	}

	var peak float64
	for i, v := range x {
		peak = math.Max(peak, math.Abs(v))
		// Second half of every 25 ms gate period is silent.
		if pos := i % (rate / GateHz); pos >= rate/GateHz/2+1 && v != 0 {
			t.Fatalf("sample %d = %v inside gated-off half", i, v)
		}
	}
	if peak > Peak || peak < Peak*0.9 {
		t.Errorf("peak amplitude = %v, want about %v", peak, Peak)
	}

	if Generate(0, 1) != nil || Generate(rate, 0) != nil {
		t.Error("degenerate arguments should produce no samples")
	}
}

func TestToneHasIsolatedAutocorrelationPeak(t *testing.T) {
	x := Generate(16000, 0.5)
	frame := x[:2048]
	shifted := make([]float64, len(frame))
	copy(shifted[100:], frame[:len(frame)-100])

	res, err := correlation.NewCorrelator().Correlate(frame, shifted, true)
	if err != nil {
		t.Fatalf("Correlate failed: %v", err)
	}
	if res.PeakIndex != -100 {
		t.Errorf("PeakIndex = %d, want -100", res.PeakIndex)
	}
	an, err := correlation.NewAnalyzer().Analyse(res.Trace, res.PeakIndex, 0.8, 48)
	if err != nil {
		t.Fatalf("Analyse failed: %v", err)
	}
	if !an.IsValidPeak {
		t.Errorf("tone correlation peak is not isolated: %+v", an)
	}
}

func TestInvert(t *testing.T) {
	x := Invert([]float64{1, -0.5, 0})
	if x[0] != -1 || x[1] != 0.5 || x[2] != 0 {
		t.Errorf("Invert = %v", x)
	}
}
