package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"
)

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0644)
}

func TestBufferSourceRecord(t *testing.T) {
	samples := make([]float64, 48000)
	for i := range samples {
		samples[i] = math.Sin(float64(i) / 10)
	}
	src := &BufferSource{Name: "local", Samples: samples, SampleRate: 48000, Dir: t.TempDir()}

	art, err := src.Record(context.Background(), AlignmentFormat(), 500*time.Millisecond)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if art.SampleRate != AlignmentSampleRate {
		t.Errorf("SampleRate = %d, want %d", art.SampleRate, AlignmentSampleRate)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Errorf("artifact file missing: %v", err)
	}
	out, err := art.Samples()
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	// 8000 recorded samples decode to the 4096 power-of-two prefix.
	if len(out) != 4096 {
		t.Errorf("decoded %d samples, want 4096", len(out))
	}
}

func TestBufferSourceRealtimeCancel(t *testing.T) {
	src := &BufferSource{Samples: []float64{1}, SampleRate: 16000, Realtime: true, Dir: t.TempDir()}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := src.Record(ctx, AlignmentFormat(), time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Record did not stop on cancellation")
	}
}

func TestBufferSourceEmpty(t *testing.T) {
	src := &BufferSource{Name: "empty", Dir: t.TempDir()}
	if _, err := src.Record(context.Background(), AlignmentFormat(), time.Second); err == nil {
		t.Error("Record should fail without samples")
	}
}

func TestResample(t *testing.T) {
	in := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	out := Resample(in, 2, 1)
	want := []float64{0, 2, 4, 6}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if got := Resample(in, 16000, 16000); &got[0] != &in[0] {
		t.Error("same-rate resample should return the input")
	}
}

func TestAnalyzeSine(t *testing.T) {
	const rate = 16000
	x := make([]float64, rate)
	for i := range x {
		x[i] = 0.5 * math.Sin(2*math.Pi*1000*float64(i)/rate)
	}

	st := Analyze(x, rate)
	if math.Abs(st.DominantHz-1000) > float64(rate)/spectrumWindow {
		t.Errorf("DominantHz = %v, want about 1000", st.DominantHz)
	}
	if math.Abs(st.RMS-0.5/math.Sqrt2) > 1e-3 {
		t.Errorf("RMS = %v, want %v", st.RMS, 0.5/math.Sqrt2)
	}
	if st.Duration != 1 {
		t.Errorf("Duration = %v, want 1", st.Duration)
	}
}
