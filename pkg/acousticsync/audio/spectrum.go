package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

const spectrumWindow = 4096

// Stats summarizes a decoded signal for inspection.
type Stats struct {
	Samples  int
	Duration float64
	RMS      float64
	Peak     float64

	// DominantHz is the strongest frequency in the averaged magnitude spectrum.
	DominantHz float64
}

func Analyze(samples []float64, sampleRate int) Stats {
	st := Stats{Samples: len(samples)}
	if len(samples) == 0 || sampleRate <= 0 {
		return st
	}
	st.Duration = float64(len(samples)) / float64(sampleRate)
	st.RMS = math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
	st.Peak = math.Max(math.Abs(floats.Min(samples)), math.Abs(floats.Max(samples)))
	st.DominantHz = DominantFrequency(samples, sampleRate)
	return st
}

// DominantFrequency averages Hamming-windowed magnitude spectra over
// consecutive frames and returns the frequency of the largest bin.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	size := spectrumWindow
	if len(samples) < size {
		size = len(samples)
	}
	if size < 2 {
		return 0
	}

	mag := make([]float64, size/2)
	frame := make([]float64, size)
	for start := 0; start+size <= len(samples); start += size {
		copy(frame, samples[start:start+size])
		window.Apply(frame, window.Hamming)
		for i, c := range fft.FFTReal(frame)[:size/2] {
			mag[i] += cmplx.Abs(c)
		}
	}

	// skip DC
	mag[0] = 0
	return float64(floats.MaxIdx(mag)) * float64(sampleRate) / float64(size)
}
