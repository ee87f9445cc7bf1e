// Package tracker correlates live frames of the sync signal and reports
// whether the smoothed correlation shows a single trustworthy peak.
package tracker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/correlation"
)

type Config struct {
	SampleRate float64

	// Threshold and PeakWidth (seconds) parameterize the peak analysis.
	Threshold float64
	PeakWidth float64

	// Smoothing is the weight of each new trace in the running trace.
	Smoothing float64
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Threshold:  0.8,
		PeakWidth:  0.003,
		Smoothing:  0.1,
	}
}

// Report is one tracking verdict. Peak is in samples, relative to lag 0.
type Report struct {
	Time       time.Time
	Peak       float64
	Valid      bool
	SampleRate float64
	Magnitude  float64
	Analysis   correlation.Analysis
}

// Seconds converts the peak lag to seconds.
func (r Report) Seconds() float64 {
	if r.SampleRate == 0 {
		return 0
	}
	return r.Peak / r.SampleRate
}

// FramePair is one block of simultaneously captured local and remote audio.
type FramePair struct {
	Local  []float64
	Remote []float64
	Time   time.Time
}

type Stats struct {
	Processed uint64
	Skipped   uint64
	Valid     uint64
}

// Tracker keeps a smoothed correlation trace across frames. Process calls are
// serialized.
type Tracker struct {
	cfg        Config
	correlator *correlation.Correlator
	analyzer   *correlation.Analyzer

	mu       sync.Mutex
	smoothed []float64
	last     Report
	hasLast  bool
	stats    Stats
}

func New(cfg Config) *Tracker {
	return &Tracker{
		cfg:        cfg,
		correlator: correlation.NewCorrelator(),
		analyzer:   correlation.NewAnalyzer(),
	}
}

// Process correlates one frame pair, folds it into the running trace and
// analyses the running trace's strongest lag.
func (t *Tracker) Process(local, remote []float64, now time.Time) (Report, error) {
	res, err := t.correlator.Correlate(local, remote, true)
	if err != nil {
		return Report{}, fmt.Errorf("correlate frames: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.smooth(res.Trace)
	n := len(t.smoothed)

	peak := 0
	for i, v := range t.smoothed {
		if math.Abs(v) > math.Abs(t.smoothed[peak]) {
			peak = i
		}
	}
	centered := peak
	if centered >= n/2 {
		centered -= n
	}

	an, err := t.analyzer.Analyse(t.smoothed, centered, t.cfg.Threshold, t.cfg.PeakWidth*t.cfg.SampleRate)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Time:       now,
		Peak:       float64(centered),
		Valid:      an.IsValidPeak,
		SampleRate: t.cfg.SampleRate,
		Magnitude:  math.Abs(t.smoothed[peak]),
		Analysis:   an,
	}
	t.last, t.hasLast = r, true
	t.stats.Processed++
	if r.Valid {
		t.stats.Valid++
	}
	return r, nil
}

func (t *Tracker) smooth(trace []float64) {
	if len(t.smoothed) != len(trace) {
		t.smoothed = append(t.smoothed[:0], trace...)
		return
	}
	w := t.cfg.Smoothing
	for i, v := range trace {
		t.smoothed[i] = w*v + (1-w)*t.smoothed[i]
	}
}

// Last returns the most recent report.
func (t *Tracker) Last() (Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.hasLast
}

// Trace returns a copy of the running trace.
func (t *Tracker) Trace() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]float64(nil), t.smoothed...)
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Reset drops the running trace and the analyzer's running average.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.smoothed = t.smoothed[:0]
	t.analyzer = correlation.NewAnalyzer()
	t.hasLast = false
}

// Run processes frames until ctx ends or frames is closed. When frames queue
// up faster than they are processed only the newest is used. Frames that fail
// to correlate are dropped.
func (t *Tracker) Run(ctx context.Context, frames <-chan FramePair, sink func(Report)) error {
	for {
		var fp FramePair
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fp, ok = <-frames:
			if !ok {
				return nil
			}
		}

	drain:
		for {
			select {
			case next, more := <-frames:
				if !more {
					break drain
				}
				t.mu.Lock()
				t.stats.Skipped++
				t.mu.Unlock()
				fp = next
			default:
				break drain
			}
		}

		r, err := t.Process(fp.Local, fp.Remote, fp.Time)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if sink != nil {
			sink(r)
		}
	}
}
