// Package align runs one-shot long alignments: record two sources together,
// decode both artifacts and correlate them into a single offset.
package align

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/correlation"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

type Phase int

const (
	Recording Phase = iota
	Processing
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the progress of one long alignment. Result is NaN until Ready.
type State struct {
	Phase    Phase
	Duration time.Duration

	// Result is the offset of B relative to A in seconds.
	Result        float64
	OffsetSamples float64
	Correlation   *correlation.Result

	ArtifactA *audio.Artifact
	ArtifactB *audio.Artifact

	Err error
}

// Terminal reports whether the alignment has finished.
func (s State) Terminal() bool {
	return s.Phase == Ready || s.Phase == Failed
}

type Option func(*Pipeline)

func WithCorrelator(c *correlation.Correlator) Option {
	return func(p *Pipeline) {
		p.correlator = c
	}
}

func WithLogger(l logger.Interface) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

type Pipeline struct {
	correlator *correlation.Correlator
	log        logger.Interface
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.correlator == nil {
		p.correlator = correlation.NewCorrelator()
	}
	if p.log == nil {
		p.log = logger.GetLogger().WithPrefix("align")
	}
	return p
}

// Run records a and b for duration at 16 kHz mono and returns the terminal
// state. Failures never escape as errors; they end in Failed with a NaN
// result. ctx is checked after recording, decoding and correlating, and a
// cancelled run ends in Failed wrapping errs.ErrCancelled. onProgress may be
// nil.
func (p *Pipeline) Run(ctx context.Context, duration time.Duration, a, b audio.Source, onProgress func(State)) State {
	st := State{Phase: Recording, Duration: duration, Result: math.NaN(), OffsetSamples: math.NaN()}
	report := func() {
		if onProgress != nil {
			onProgress(st)
		}
	}
	fail := func(err error) State {
		st.Phase = Failed
		st.Err = err
		if errors.Is(err, errs.ErrCancelled) {
			p.log.Debugf("alignment discarded: %v", err)
		} else {
			p.log.Warnf("alignment failed: %v", err)
		}
		report()
		return st
	}

	report()
	format := audio.AlignmentFormat()

	var (
		wg         sync.WaitGroup
		errA, errB error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		st.ArtifactA, errA = a.Record(ctx, format, duration)
	}()
	go func() {
		defer wg.Done()
		st.ArtifactB, errB = b.Record(ctx, format, duration)
	}()
	wg.Wait()

	if err := live(ctx, "recording"); err != nil {
		return fail(err)
	}
	if err := errors.Join(errA, errB); err != nil {
		return fail(fmt.Errorf("record: %w", err))
	}

	bufA, err := st.ArtifactA.Samples()
	if err != nil {
		return fail(fmt.Errorf("decode first source: %w", err))
	}
	bufB, err := st.ArtifactB.Samples()
	if err != nil {
		return fail(fmt.Errorf("decode second source: %w", err))
	}
	if err := live(ctx, "decoding"); err != nil {
		return fail(err)
	}

	n := min(len(bufA), len(bufB))
	bufA, bufB = bufA[:n], bufB[:n]

	st.Phase = Processing
	report()

	res, err := p.correlator.Correlate(bufA, bufB, true)
	if err != nil {
		return fail(fmt.Errorf("correlate: %w", err))
	}
	if err := live(ctx, "correlation"); err != nil {
		return fail(err)
	}

	st.Phase = Ready
	st.Correlation = res
	st.OffsetSamples = res.RefinedPeak
	st.Result = res.RefinedPeak / float64(format.SampleRate)
	p.log.Infof("aligned %d samples: offset %.2f samples (%.5fs), peak %.3f",
		n, st.OffsetSamples, st.Result, res.PeakMagnitude)
	report()
	return st
}

func live(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("after %s: %w: %w", stage, errs.ErrCancelled, err)
	}
	return nil
}
