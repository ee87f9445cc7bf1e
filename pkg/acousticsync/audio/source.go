package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
)

// AlignmentSampleRate is the fixed rate long alignments record at.
const AlignmentSampleRate = 16000

// Format describes what a Source should produce.
type Format struct {
	SampleRate int
	Channels   int
}

func AlignmentFormat() Format {
	return Format{SampleRate: AlignmentSampleRate, Channels: 1}
}

// Source records a fixed-length artifact. Record blocks for as long as the
// recording takes and returns early with ctx.Err() when cancelled.
type Source interface {
	Record(ctx context.Context, format Format, duration time.Duration) (*Artifact, error)
}

// BufferSource records from an in-memory signal captured at SampleRate.
type BufferSource struct {
	Name       string
	Samples    []float64
	SampleRate int

	// Realtime makes Record wait for the full duration, like a live capture.
	Realtime bool

	// Dir receives the artifact files. Empty means os.TempDir().
	Dir string
}

func (s *BufferSource) Record(ctx context.Context, format Format, duration time.Duration) (*Artifact, error) {
	if s.Realtime {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(s.Samples) == 0 {
		return nil, fmt.Errorf("source %q has no samples: %w", s.Name, errs.ErrInvalidInput)
	}

	samples := Resample(s.Samples, s.SampleRate, format.SampleRate)
	want := int(duration.Seconds() * float64(format.SampleRate))
	if want < len(samples) {
		samples = samples[:want]
	}
	return writeArtifact(s.Dir, s.Name, samples, format.SampleRate)
}

// FileSource records by reading a sound file, converting it with ffmpeg when
// it is not already mono at the requested rate.
type FileSource struct {
	Path string
	Dir  string
}

func (s *FileSource) Record(ctx context.Context, format Format, duration time.Duration) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples, f, err := ReadWAV(s.Path)
	if err != nil || f.SampleRate != format.SampleRate || f.NumChannels != 1 {
		converted, cerr := ConvertToMonoWAV(ctx, s.Path, artifactDir(s.Dir), ConvertConfig{SampleRate: format.SampleRate})
		if cerr != nil {
			return nil, fmt.Errorf("convert %s: %w", s.Path, cerr)
		}
		samples, _, err = ReadWAV(converted)
		if err != nil {
			return nil, err
		}
	}

	want := int(duration.Seconds() * float64(format.SampleRate))
	if want > 0 && want < len(samples) {
		samples = samples[:want]
	}
	return writeArtifact(s.Dir, filepath.Base(s.Path), samples, format.SampleRate)
}

func artifactDir(dir string) string {
	if dir == "" {
		return os.TempDir()
	}
	return dir
}

func writeArtifact(dir, name string, samples []float64, sampleRate int) (*Artifact, error) {
	dir = artifactDir(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if name == "" {
		name = "source"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.wav", name, uuid.NewString()))
	if err := WriteWAV(path, samples, sampleRate); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", path, err)
	}
	return &Artifact{Path: path, Data: data, SampleRate: sampleRate}, nil
}

// Resample converts between rates by linear interpolation.
func Resample(samples []float64, from, to int) []float64 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}
	n := int(float64(len(samples)) * float64(to) / float64(from))
	out := make([]float64, n)
	step := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = samples[j]*(1-frac) + samples[j+1]*frac
	}
	return out
}
