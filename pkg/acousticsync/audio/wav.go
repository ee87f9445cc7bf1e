package audio

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

// WriteWAV writes mono 16-bit PCM. The encoder emits the canonical 44-byte
// header, so the file is also a valid artifact container.
func WriteWAV(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           toPCM16(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}

// ReadWAV decodes any PCM WAV into mono floats, averaging channels.
func ReadWAV(path string) ([]float64, *goaudio.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, nil, fmt.Errorf("%s is not a valid WAV file: %w", path, errs.ErrDecode)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("read PCM from %s: %w", path, errs.ErrDecode)
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	depth := int(d.BitDepth)
	if depth == 0 {
		depth = 16
	}
	scale := 1 / float64(int64(1)<<(depth-1))

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) * scale
	}

	format := &goaudio.Format{NumChannels: int(d.NumChans), SampleRate: int(d.SampleRate)}
	return out, format, nil
}

func toPCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		v = math.Max(-1, math.Min(1, v))
		out[i] = int(math.Round(v * sampleScale))
	}
	return out
}
