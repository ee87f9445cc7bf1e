// Package audio handles recorded artifacts: the fixed-layout sample container,
// WAV file IO, recording sources and a few inspection helpers.
package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

const (
	dataTagOffset  = 36
	dataSizeOffset = 40
	headerSize     = 44

	// sampleScale maps int16 PCM onto [-1, 1].
	sampleScale = 32767.0
)

// Artifact is one finished recording, kept for inspection or playback.
type Artifact struct {
	Path       string
	Data       []byte
	SampleRate int
}

// Samples decodes the artifact payload.
func (a *Artifact) Samples() ([]float64, error) {
	if a == nil {
		return nil, fmt.Errorf("nil artifact: %w", errs.ErrDecode)
	}
	return Decode(a.Data)
}

// Decode reads a container with the "data" tag at byte 36, a little-endian
// uint32 payload size at byte 40 and int16 PCM from byte 44. Only the largest
// power-of-two prefix of the available samples is returned.
func Decode(data []byte) ([]float64, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("container is %d bytes, need at least %d: %w", len(data), headerSize, errs.ErrDecode)
	}
	if tag := string(data[dataTagOffset:dataSizeOffset]); tag != "data" {
		return nil, fmt.Errorf("unexpected chunk tag %q: %w", tag, errs.ErrDecode)
	}

	declared := int(binary.LittleEndian.Uint32(data[dataSizeOffset:headerSize])) / 2
	available := (len(data) - headerSize) / 2
	n := prevPowerOfTwo(min(declared, available))
	if n == 0 {
		return nil, fmt.Errorf("container holds no samples: %w", errs.ErrDecode)
	}

	out := make([]float64, n)
	payload := data[headerSize:]
	for i := range out {
		s := int16(binary.LittleEndian.Uint16(payload[2*i:]))
		out[i] = float64(s) / sampleScale
	}
	return out, nil
}

func prevPowerOfTwo(n int) int {
	if n <= 0 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
