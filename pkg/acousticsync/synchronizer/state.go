// Package synchronizer drives the delay-compensation loop: two sequential
// bootstrap alignments followed by periodic drift tracking.
//
// Transitions are pure functions over State. Runner adds the timer, the
// in-flight alignment and the locking around them.
package synchronizer

import (
	"fmt"
	"math"
	"time"
)

type Phase int

const (
	Initializing Phase = iota
	RecordingSyncSignal
	RecordingPayload
	Tracking
	Disabled
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case RecordingSyncSignal:
		return "recording sync signal"
	case RecordingPayload:
		return "recording payload"
	case Tracking:
		return "tracking"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type TrackingStatus int

const (
	NotTracking TrackingStatus = iota
	Ready
	Adjusted
	Unstable
)

func (t TrackingStatus) String() string {
	switch t {
	case Ready:
		return "ready"
	case Adjusted:
		return "adjusted"
	case Unstable:
		return "unstable"
	default:
		return "none"
	}
}

// Channel selects which stream pair a long alignment records.
type Channel int

const (
	SyncChannel Channel = iota
	PayloadChannel
)

func (c Channel) String() string {
	if c == SyncChannel {
		return "sync signal"
	}
	return "payload"
}

const stableWindow = 3

type Config struct {
	MaxFailures       int
	BootstrapDuration time.Duration

	// RetryIncrement lengthens the bootstrap recording on every Retry.
	RetryIncrement time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFailures:       5,
		BootstrapDuration: 4100 * time.Millisecond,
		RetryIncrement:    time.Second,
	}
}

// State is owned by one synchronizer session.
type State struct {
	Phase    Phase
	Tracking TrackingStatus
	Status   string

	// Peak carries the live report and the payload delay.
	Peak PeakState

	// SyncOffset is the delay applied to the sync signal channel.
	SyncOffset float64

	Completed int
	Failures  int

	InFlight        bool
	InFlightChannel Channel

	// Generation changes on Retry; completions from older generations are dropped.
	Generation uint64

	BootstrapDuration time.Duration

	validity  [stableWindow]bool
	ringPos   int
	appliedAt time.Time
	applied   bool
}

func NewState(cfg Config, initialDelay float64) State {
	s := State{
		Phase:             Initializing,
		Status:            Initializing.String(),
		Peak:              NewPeakState(initialDelay),
		BootstrapDuration: cfg.BootstrapDuration,
	}
	s.resetValidity()
	return s
}

// Stable reports whether the last three tracking ticks all saw a valid peak.
func (s State) Stable() bool {
	for _, v := range s.validity {
		if !v {
			return false
		}
	}
	return true
}

func (s *State) resetValidity() {
	for i := range s.validity {
		s.validity[i] = true
	}
	s.ringPos = 0
}

func (s *State) pushValidity(v bool) {
	s.validity[s.ringPos] = v
	s.ringPos = (s.ringPos + 1) % stableWindow
}

type EffectKind int

const (
	StartAlignment EffectKind = iota
	NotifyDisabled
)

// Effect is work the caller of a transition must carry out.
type Effect struct {
	Kind       EffectKind
	Channel    Channel
	Duration   time.Duration
	Generation uint64
}

// Tick advances the loop by one period. sampleRate converts the live peak,
// in samples, to seconds.
func Tick(s State, cfg Config, sampleRate float64) (State, []Effect) {
	if s.Phase == Disabled {
		return s, nil
	}
	if s.Failures >= cfg.MaxFailures {
		return disable(s)
	}

	if s.Completed < 2 {
		if s.InFlight {
			return s, nil
		}
		ch := SyncChannel
		s.Phase = RecordingSyncSignal
		if s.Completed == 1 {
			ch = PayloadChannel
			s.Phase = RecordingPayload
		}
		s.InFlight = true
		s.InFlightChannel = ch
		s.Status = fmt.Sprintf("%s (%.1fs)", s.Phase, s.BootstrapDuration.Seconds())
		return s, []Effect{{
			Kind:       StartAlignment,
			Channel:    ch,
			Duration:   s.BootstrapDuration,
			Generation: s.Generation,
		}}
	}

	s.Phase = Tracking
	s.pushValidity(s.Peak.Valid)

	fresh := !s.applied || !s.Peak.Time.Equal(s.appliedAt)
	if s.Peak.Valid && s.Peak.Peak != 0 && fresh && sampleRate > 0 {
		shift := s.Peak.Peak / sampleRate
		s.SyncOffset += shift
		if s.Peak.AutoAdjust {
			s.Peak = s.Peak.SetDelay(s.Peak.TotalDelay + shift)
		}
		s.applied = true
		s.appliedAt = s.Peak.Time
		s.Tracking = Adjusted
		s.Status = fmt.Sprintf("adjusted by %.5fs", shift)
		return s, nil
	}

	if s.Stable() {
		s.Tracking = Ready
		s.Status = "ready (stable)"
	} else {
		s.Tracking = Unstable
		s.Status = "ready (unstable)"
	}
	return s, nil
}

// Complete applies the result of the in-flight alignment. A NaN result counts
// as a failure. Completions that do not match the in-flight generation and
// channel are ignored.
func Complete(s State, cfg Config, ch Channel, generation uint64, result float64) (State, []Effect) {
	if !s.InFlight || generation != s.Generation || ch != s.InFlightChannel || s.Phase == Disabled {
		return s, nil
	}
	s.InFlight = false

	if math.IsNaN(result) {
		s.Failures++
		s.Status = fmt.Sprintf("%s alignment failed (%d/%d)", ch, s.Failures, cfg.MaxFailures)
		if s.Failures >= cfg.MaxFailures {
			return disable(s)
		}
		return s, nil
	}

	s.Failures = 0
	switch s.Completed {
	case 0:
		s.SyncOffset = result
	case 1:
		s.Peak = s.Peak.SetDelay(s.Peak.TotalDelay + result)
	}
	s.Completed++
	s.Status = fmt.Sprintf("%s aligned by %.5fs", ch, result)
	return s, nil
}

// Retry re-arms a stalled or disabled loop. Delays are kept; the bootstrap
// runs again with a longer recording.
func Retry(s State, cfg Config) State {
	s.Failures = 0
	s.Completed = 0
	s.InFlight = false
	s.Generation++
	s.BootstrapDuration += cfg.RetryIncrement
	s.Phase = Initializing
	s.Tracking = NotTracking
	s.Status = "retrying"
	s.applied = false
	s.resetValidity()
	return s
}

// ApplyOffset re-anchors one channel to an absolute delay.
func ApplyOffset(s State, ch Channel, seconds float64) State {
	if ch == SyncChannel {
		s.SyncOffset = seconds
	} else {
		s.Peak = s.Peak.SetDelay(seconds)
	}
	return s
}

func disable(s State) (State, []Effect) {
	s.Phase = Disabled
	s.Tracking = NotTracking
	s.InFlight = false
	s.Status = fmt.Sprintf("disabled after %d tries", s.Failures)
	return s, []Effect{{Kind: NotifyDisabled, Generation: s.Generation}}
}
