package synchronizer

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

// Aligner runs one long alignment for a channel and returns the offset in
// seconds, or NaN on failure.
type Aligner interface {
	Align(ctx context.Context, ch Channel, duration time.Duration) float64
}

type AlignerFunc func(ctx context.Context, ch Channel, duration time.Duration) float64

func (f AlignerFunc) Align(ctx context.Context, ch Channel, duration time.Duration) float64 {
	return f(ctx, ch, duration)
}

// Observer is notified of loop activity. Calls happen outside the state lock.
type Observer interface {
	AlignmentStarted(ch Channel, duration time.Duration)
	AlignmentFinished(ch Channel, result float64, elapsed time.Duration)
	Ticked(s State)
	Disabled(failures int)
}

type NopObserver struct{}

func (NopObserver) AlignmentStarted(Channel, time.Duration)           {}
func (NopObserver) AlignmentFinished(Channel, float64, time.Duration) {}
func (NopObserver) Ticked(State)                                      {}
func (NopObserver) Disabled(int)                                      {}

type RunnerOption func(*Runner)

func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

func WithLogger(l logger.Interface) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// WithSampleRate sets the rate of the live peaks fed to ReportPeak.
func WithSampleRate(rate float64) RunnerOption {
	return func(r *Runner) {
		r.sampleRate = rate
	}
}

func WithInitialDelay(seconds float64) RunnerOption {
	return func(r *Runner) {
		r.initialDelay = seconds
	}
}

func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.interval = d
	}
}

// Runner owns a State and drives it from a ticker. At most one alignment
// goroutine runs at a time; its result is dropped if the runner closed, its
// context ended, or a Retry happened meanwhile. Retry cancels it, and no new
// alignment starts until it has returned.
type Runner struct {
	mu    sync.Mutex
	state State
	cfg   Config

	aligner      Aligner
	observer     Observer
	log          logger.Interface
	sampleRate   float64
	initialDelay float64
	interval     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool

	// running is set from the tick that starts an alignment until its
	// goroutine returns, across retries. alignCancel stops that goroutine.
	running     bool
	alignCancel context.CancelFunc
}

func NewRunner(cfg Config, aligner Aligner, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:          cfg,
		aligner:      aligner,
		observer:     NopObserver{},
		sampleRate:   48000,
		initialDelay: -0.1,
		interval:     3 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.GetLogger().WithPrefix("sync")
	}
	r.state = NewState(cfg, r.initialDelay)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// Run ticks every interval until ctx ends or Close is called.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.cancel()
			return ctx.Err()
		case <-r.ctx.Done():
			return nil
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one loop step. Alignments it starts inherit ctx.
func (r *Runner) Tick(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.running && !r.state.InFlight {
		r.mu.Unlock()
		r.log.Debugf("previous alignment still stopping, skipping tick")
		return
	}
	var effects []Effect
	r.state, effects = Tick(r.state, r.cfg, r.sampleRate)
	for _, eff := range effects {
		if eff.Kind == StartAlignment {
			r.running = true
		}
	}
	snap := r.state
	r.mu.Unlock()

	r.observer.Ticked(snap)
	r.apply(ctx, effects, snap)
}

func (r *Runner) apply(ctx context.Context, effects []Effect, snap State) {
	for _, eff := range effects {
		switch eff.Kind {
		case StartAlignment:
			r.start(ctx, eff)
		case NotifyDisabled:
			r.log.Warnf("%s", snap.Status)
			r.observer.Disabled(snap.Failures)
		}
	}
}

func (r *Runner) start(ctx context.Context, eff Effect) {
	actx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(r.ctx, cancel)

	r.mu.Lock()
	if r.closed || eff.Generation != r.state.Generation {
		r.running = false
		r.mu.Unlock()
		stop()
		cancel()
		r.log.Debugf("%s alignment superseded before start", eff.Channel)
		return
	}
	r.alignCancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.Infof("starting %s alignment (%.1fs)", eff.Channel, eff.Duration.Seconds())
	r.observer.AlignmentStarted(eff.Channel, eff.Duration)

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.running = false
			r.alignCancel = nil
			r.mu.Unlock()
		}()
		defer stop()
		defer cancel()

		began := time.Now()
		result := r.aligner.Align(actx, eff.Channel, eff.Duration)
		elapsed := time.Since(began)

		if actx.Err() != nil {
			r.log.Debugf("discarding %s alignment: %v", eff.Channel, actx.Err())
			return
		}
		r.complete(eff, result, elapsed)
	}()
}

func (r *Runner) complete(eff Effect, result float64, elapsed time.Duration) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	var effects []Effect
	prev := r.state.Generation
	r.state, effects = Complete(r.state, r.cfg, eff.Channel, eff.Generation, result)
	snap := r.state
	r.mu.Unlock()

	if eff.Generation != prev {
		r.log.Debugf("discarding %s alignment from before retry", eff.Channel)
		return
	}
	if math.IsNaN(result) {
		r.log.Warnf("%s", snap.Status)
	} else {
		r.log.Infof("%s alignment finished: %.5fs", eff.Channel, result)
	}
	r.observer.AlignmentFinished(eff.Channel, result, elapsed)
	r.apply(context.Background(), effects, snap)
}

// ReportPeak feeds one live tracking verdict into the state.
func (r *Runner) ReportPeak(valid bool, t time.Time, peak float64) {
	r.update(func(s State) State {
		s.Peak = s.Peak.Report(valid, t, peak)
		return s
	})
}

// Retry re-arms the loop and clears the failure counter. An alignment still
// running is cancelled; the next alignment starts on the first tick after it
// has returned.
func (r *Runner) Retry() {
	r.mu.Lock()
	r.state = Retry(r.state, r.cfg)
	if r.alignCancel != nil {
		r.alignCancel()
	}
	r.mu.Unlock()
	r.log.Infof("retry requested")
}

func (r *Runner) ApplyOffset(ch Channel, seconds float64) {
	r.update(func(s State) State { return ApplyOffset(s, ch, seconds) })
}

// ShiftPayloadDelay moves the payload delay by seconds.
func (r *Runner) ShiftPayloadDelay(seconds float64) {
	r.update(func(s State) State {
		s.Peak = s.Peak.SetDelay(s.Peak.TotalDelay + seconds)
		return s
	})
}

func (r *Runner) SetDelayCoarse(v float64) {
	r.update(func(s State) State {
		s.Peak = s.Peak.SetDelayCoarse(v)
		return s
	})
}

func (r *Runner) SetDelayFine(v float64) {
	r.update(func(s State) State {
		s.Peak = s.Peak.SetDelayFine(v)
		return s
	})
}

func (r *Runner) ToggleAutoAdjust() {
	r.update(func(s State) State {
		s.Peak = s.Peak.ToggleAutoAdjust()
		return s
	})
}

func (r *Runner) update(fn func(State) State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = fn(r.state)
}

// Snapshot returns a copy of the current state.
func (r *Runner) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) SampleRate() float64 {
	return r.sampleRate
}

// Wait blocks until no alignment goroutine is running.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close stops the loop and cancels any in-flight alignment. Its result, if it
// still arrives, is discarded.
func (r *Runner) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}
