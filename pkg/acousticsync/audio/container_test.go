package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

// container builds a raw artifact with the given declared size and samples.
func container(tag string, declared uint32, samples []int16) []byte {
	b := make([]byte, headerSize+2*len(samples))
	copy(b[0:4], "RIFF")
	copy(b[8:12], "WAVE")
	copy(b[dataTagOffset:dataSizeOffset], tag)
	binary.LittleEndian.PutUint32(b[dataSizeOffset:], declared)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[headerSize+2*i:], uint16(s))
	}
	return b
}

func TestDecode(t *testing.T) {
	ramp := make([]int16, 1000)
	for i := range ramp {
		ramp[i] = int16(i)
	}

	tests := []struct {
		name    string
		data    []byte
		wantLen int
		wantErr bool
	}{
		{"power of two prefix", container("data", 2000, ramp), 512, false},
		{"declared shorter than payload", container("data", 200, ramp), 64, false},
		{"declared longer than payload", container("data", 1<<20, ramp[:300]), 256, false},
		{"single sample", container("data", 2, ramp[:1]), 1, false},
		{"bad tag", container("LIST", 2000, ramp), 0, true},
		{"no samples", container("data", 0, ramp), 0, true},
		{"short header", []byte("RIFF"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if tt.wantErr {
				if !errors.Is(err, errs.ErrDecode) {
					t.Errorf("got %v, want ErrDecode", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDecodeScale(t *testing.T) {
	got, err := Decode(container("data", 4, []int16{32767, -32767}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got[0] != 1 || got[1] != -1 {
		t.Errorf("got %v, want [1 -1]", got)
	}
}

func TestWriteWAVIsContainer(t *testing.T) {
	path := t.TempDir() + "/tone.wav"
	in := make([]float64, 2048)
	for i := range in {
		in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}

	if err := WriteWAV(path, in, 16000); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	src := &FileSource{Path: path, Dir: t.TempDir()}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	art, err := src.Record(ctx, AlignmentFormat(), 0)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	out, err := art.Samples()
	if err != nil {
		t.Fatalf("Samples failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(in[i]-out[i]) > 1e-4 {
			t.Fatalf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestReadWAV(t *testing.T) {
	path := t.TempDir() + "/ramp.wav"
	if err := WriteWAV(path, []float64{0, 0.25, -0.25, 2}, 8000); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	samples, format, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}
	if format.SampleRate != 8000 || format.NumChannels != 1 {
		t.Errorf("format = %+v", format)
	}
	want := []float64{0, 0.25, -0.25, 1}
	for i := range want {
		if math.Abs(samples[i]-want[i]) > 1e-3 {
			t.Errorf("sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestReadWAVInvalid(t *testing.T) {
	path := t.TempDir() + "/bad.wav"
	if err := writeFile(path, []byte("INVALID HEADER DATA")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, _, err := ReadWAV(path); err == nil {
		t.Error("ReadWAV should fail on invalid file")
	}
}
