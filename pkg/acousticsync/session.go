package acousticsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/align"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/audio"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/errs"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synchronizer"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/synctone"
	"github.com/himanishpuri/AcousticSync/pkg/acousticsync/tracker"
	"github.com/himanishpuri/AcousticSync/pkg/logger"
)

// visiblePeakMaxAge bounds how old a payload report CenterVisiblePeak acts on.
const visiblePeakMaxAge = 5 * time.Second

var _ Synchronizer = (*Session)(nil)

// Session is one synchronizer instance between a local and a remote stream.
type Session struct {
	id      string
	config  *Config
	log     Logger
	sources Sources

	pipeline       *align.Pipeline
	runner         *synchronizer.Runner
	syncTracker    *tracker.Tracker
	payloadTracker *tracker.Tracker

	mu      sync.Mutex
	started bool
	stop    context.CancelFunc
	done    chan struct{}
}

func NewSession(sources Sources, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if sources.SyncLocal == nil || sources.SyncRemote == nil ||
		sources.PayloadLocal == nil || sources.PayloadRemote == nil {
		return nil, fmt.Errorf("all four sources are required: %w", errs.ErrInvalidInput)
	}

	id := uuid.NewString()
	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().WithPrefix("session " + id[:8])
	}

	s := &Session{
		id:       id,
		config:   cfg,
		log:      cfg.Logger,
		sources:  sources.inDir(cfg.TempDir),
		pipeline: align.NewPipeline(align.WithLogger(cfg.Logger)),
	}

	trackCfg := tracker.Config{
		SampleRate: float64(cfg.SampleRate),
		Threshold:  cfg.PeakThreshold,
		PeakWidth:  cfg.PeakWidth,
		Smoothing:  cfg.Smoothing,
	}
	s.syncTracker = tracker.New(trackCfg)
	s.payloadTracker = tracker.New(trackCfg)

	runnerOpts := []synchronizer.RunnerOption{
		synchronizer.WithLogger(cfg.Logger),
		synchronizer.WithSampleRate(float64(cfg.SampleRate)),
		synchronizer.WithInitialDelay(cfg.InitialDelay),
		synchronizer.WithTickInterval(cfg.TickInterval),
	}
	if cfg.Observer != nil {
		runnerOpts = append(runnerOpts, synchronizer.WithObserver(cfg.Observer))
	}
	s.runner = synchronizer.NewRunner(synchronizer.Config{
		MaxFailures:       cfg.MaxFailures,
		BootstrapDuration: cfg.BootstrapDuration,
		RetryIncrement:    cfg.RetryIncrement,
	}, synchronizer.AlignerFunc(s.bootstrap), runnerOpts...)
	if !cfg.AutoAdjust {
		s.runner.ToggleAutoAdjust()
	}

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Start runs the periodic loop in the background until ctx ends or Close.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, s.stop = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.runner.Run(ctx); err != nil && ctx.Err() == nil {
			s.log.Errorf("synchronizer loop stopped: %v", err)
		}
	}()
	s.log.Infof("session started (tick %v, bootstrap %v)", s.config.TickInterval, s.config.BootstrapDuration)
}

// Tick advances the loop by one step without waiting for the timer.
func (s *Session) Tick(ctx context.Context) {
	s.runner.Tick(ctx)
}

// Wait blocks until the in-flight bootstrap alignment, if any, has finished.
func (s *Session) Wait() {
	s.runner.Wait()
}

func (s *Session) bootstrap(ctx context.Context, ch synchronizer.Channel, d time.Duration) float64 {
	a, b := s.channelSources(ch)
	st := s.pipeline.Run(ctx, d, a, b, func(st align.State) {
		s.log.Debugf("%s alignment: %s", ch, st.Phase)
	})
	return st.Result
}

func (s *Session) channelSources(ch synchronizer.Channel) (audio.Source, audio.Source) {
	if ch == synchronizer.SyncChannel {
		return s.sources.SyncLocal, s.sources.SyncRemote
	}
	return s.sources.PayloadLocal, s.sources.PayloadRemote
}

// ProcessSyncFrames tracks one block of live sync signal and feeds the verdict
// to the loop.
func (s *Session) ProcessSyncFrames(local, remote []float64, now time.Time) (tracker.Report, error) {
	if s.config.InvertRemoteSync {
		remote = synctone.Invert(append([]float64(nil), remote...))
	}
	r, err := s.syncTracker.Process(local, remote, now)
	if err != nil {
		return tracker.Report{}, err
	}
	s.runner.ReportPeak(r.Valid, r.Time, r.Peak)
	return r, nil
}

// ProcessPayloadFrames tracks one block of live payload audio. Its verdict is
// only used by CenterVisiblePeak.
func (s *Session) ProcessPayloadFrames(local, remote []float64, now time.Time) (tracker.Report, error) {
	return s.payloadTracker.Process(local, remote, now)
}

// CenterVisiblePeak shifts the payload delay by the latest payload peak when
// that report is valid and recent. It reports whether a shift happened.
func (s *Session) CenterVisiblePeak(now time.Time) bool {
	r, ok := s.payloadTracker.Last()
	if !ok || !r.Valid || now.Sub(r.Time) >= visiblePeakMaxAge {
		return false
	}
	s.runner.ShiftPayloadDelay(r.Seconds())
	s.log.Infof("centered payload peak: shifted by %.5fs", r.Seconds())
	return true
}

// Align runs a manual long alignment on one channel. The result is not
// applied; pass it to ApplyOffset to re-anchor.
func (s *Session) Align(ctx context.Context, ch synchronizer.Channel, onProgress func(align.State)) ManualAlignment {
	a, b := s.channelSources(ch)
	return manualAlign(ctx, s.pipeline, s.config, s.log, a, b, onProgress)
}

func (s *Session) ApplyOffset(ch synchronizer.Channel, seconds float64) {
	s.runner.ApplyOffset(ch, seconds)
	s.log.Infof("%s offset set to %.5fs", ch, seconds)
}

func (s *Session) Retry() {
	s.runner.Retry()
}

func (s *Session) ToggleAutoAdjust() {
	s.runner.ToggleAutoAdjust()
}

func (s *Session) SetDelayCoarse(v float64) {
	s.runner.SetDelayCoarse(v)
}

func (s *Session) SetDelayFine(v float64) {
	s.runner.SetDelayFine(v)
}

func (s *Session) Status() Status {
	st := s.runner.Snapshot()
	return Status{
		SessionID:   s.id,
		Phase:       st.Phase.String(),
		Tracking:    st.Tracking.String(),
		Message:     st.Status,
		TotalDelay:  st.Peak.TotalDelay,
		DelayCoarse: st.Peak.DelayCoarse,
		DelayFine:   st.Peak.DelayFine,
		SyncOffset:  st.SyncOffset,
		AutoAdjust:  st.Peak.AutoAdjust,
		Valid:       st.Peak.Valid,
		Peak:        st.Peak.Peak,
		Stable:      st.Phase == synchronizer.Tracking && st.Stable(),
		Failures:    st.Failures,
		Disabled:    st.Phase == synchronizer.Disabled,
	}
}

// Close stops the loop. In-flight alignments are cancelled and their results
// discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.mu.Unlock()

	s.runner.Close()
	if stop != nil {
		stop()
		<-done
	}
	s.runner.Wait()
	s.log.Infof("session closed")
	return nil
}
