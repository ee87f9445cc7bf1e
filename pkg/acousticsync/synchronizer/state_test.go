package synchronizer

import (
	"math"
	"testing"
	"time"
)

const rate = 16000

func startEffect(t *testing.T, effects []Effect) Effect {
	t.Helper()
	if len(effects) != 1 || effects[0].Kind != StartAlignment {
		t.Fatalf("effects = %+v, want one StartAlignment", effects)
	}
	return effects[0]
}

// bootstrapped runs both bootstrap alignments to success.
func bootstrapped(t *testing.T, cfg Config, syncResult, payloadResult float64) State {
	t.Helper()
	s := NewState(cfg, -0.1)

	var eff []Effect
	s, eff = Tick(s, cfg, rate)
	e := startEffect(t, eff)
	s, _ = Complete(s, cfg, e.Channel, e.Generation, syncResult)

	s, eff = Tick(s, cfg, rate)
	e = startEffect(t, eff)
	s, _ = Complete(s, cfg, e.Channel, e.Generation, payloadResult)
	return s
}

func TestBootstrapSequencing(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, -0.1)

	s, eff := Tick(s, cfg, rate)
	e := startEffect(t, eff)
	if e.Channel != SyncChannel || e.Duration != cfg.BootstrapDuration {
		t.Fatalf("first alignment = %+v, want sync channel for %v", e, cfg.BootstrapDuration)
	}
	if s.Phase != RecordingSyncSignal {
		t.Errorf("Phase = %v, want recording sync signal", s.Phase)
	}

	// In flight: the tick skips.
	s, eff = Tick(s, cfg, rate)
	if len(eff) != 0 {
		t.Fatalf("tick during in-flight alignment produced %+v", eff)
	}

	s, _ = Complete(s, cfg, SyncChannel, e.Generation, 0.02)
	if s.SyncOffset != 0.02 || s.Completed != 1 {
		t.Errorf("after sync: SyncOffset %v Completed %d", s.SyncOffset, s.Completed)
	}

	s, eff = Tick(s, cfg, rate)
	e = startEffect(t, eff)
	if e.Channel != PayloadChannel || s.Phase != RecordingPayload {
		t.Fatalf("second alignment = %+v in phase %v, want payload", e, s.Phase)
	}

	s, _ = Complete(s, cfg, PayloadChannel, e.Generation, 0.03)
	if math.Abs(s.Peak.TotalDelay-(-0.07)) > 1e-12 {
		t.Errorf("TotalDelay = %v, want -0.07", s.Peak.TotalDelay)
	}

	s, eff = Tick(s, cfg, rate)
	if len(eff) != 0 || s.Phase != Tracking {
		t.Errorf("after bootstrap: phase %v effects %+v, want tracking", s.Phase, eff)
	}
	// No valid live report has arrived yet.
	if s.Status != "ready (unstable)" {
		t.Errorf("Status = %q", s.Status)
	}
}

func TestTrackingAdjustsDelay(t *testing.T) {
	cfg := DefaultConfig()
	s := bootstrapped(t, cfg, 0, 0)
	before := s.Peak.TotalDelay
	syncBefore := s.SyncOffset

	now := time.Unix(100, 0)
	s.Peak = s.Peak.MarkValid(now, 160)
	s, _ = Tick(s, cfg, rate)

	if got := s.Peak.TotalDelay - before; math.Abs(got-0.01) > 1e-12 {
		t.Errorf("TotalDelay moved by %v, want 0.01", got)
	}
	if got := s.SyncOffset - syncBefore; math.Abs(got-0.01) > 1e-12 {
		t.Errorf("SyncOffset moved by %v, want 0.01", got)
	}
	if s.Tracking != Adjusted || s.Status != "adjusted by 0.01000s" {
		t.Errorf("tracking %v status %q", s.Tracking, s.Status)
	}

	// The same report is not applied twice.
	after := s.Peak.TotalDelay
	s, _ = Tick(s, cfg, rate)
	if s.Peak.TotalDelay != after {
		t.Errorf("stale report moved TotalDelay to %v", s.Peak.TotalDelay)
	}
	if s.Status != "ready (stable)" {
		t.Errorf("Status = %q, want ready (stable)", s.Status)
	}
}

func TestTrackingWithoutAutoAdjust(t *testing.T) {
	cfg := DefaultConfig()
	s := bootstrapped(t, cfg, 0, 0)
	s.Peak = s.Peak.ToggleAutoAdjust()
	before := s.Peak.TotalDelay

	s.Peak = s.Peak.MarkValid(time.Unix(1, 0), -320)
	s, _ = Tick(s, cfg, rate)

	if s.Peak.TotalDelay != before {
		t.Errorf("TotalDelay = %v, want unchanged %v", s.Peak.TotalDelay, before)
	}
	if math.Abs(s.SyncOffset-(-0.02)) > 1e-12 {
		t.Errorf("SyncOffset = %v, want -0.02", s.SyncOffset)
	}
}

func TestTrackingStability(t *testing.T) {
	cfg := DefaultConfig()
	s := bootstrapped(t, cfg, 0, 0)

	s.Peak = s.Peak.MarkValid(time.Unix(1, 0), 0)
	s.Peak = s.Peak.MarkInvalid(time.Unix(2, 0), 55)
	s, _ = Tick(s, cfg, rate)
	if s.Tracking != Unstable || s.Status != "ready (unstable)" {
		t.Fatalf("tracking %v status %q, want unstable", s.Tracking, s.Status)
	}

	s.Peak = s.Peak.MarkValid(time.Unix(3, 0), 0)
	for i := 0; i < 2; i++ {
		s, _ = Tick(s, cfg, rate)
		if s.Stable() {
			t.Fatalf("stable after %d valid ticks", i+1)
		}
	}
	s, _ = Tick(s, cfg, rate)
	if !s.Stable() || s.Tracking != Ready {
		t.Errorf("tracking %v, want ready after three valid ticks", s.Tracking)
	}
}

func TestDisabledAfterFailures(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, -0.1)

	var eff []Effect
	for i := 0; i < cfg.MaxFailures; i++ {
		s, eff = Tick(s, cfg, rate)
		e := startEffect(t, eff)
		if e.Channel != SyncChannel {
			t.Fatalf("attempt %d used %v, want sync channel", i+1, e.Channel)
		}
		s, eff = Complete(s, cfg, e.Channel, e.Generation, math.NaN())
	}

	if s.Phase != Disabled {
		t.Fatalf("Phase = %v, want disabled", s.Phase)
	}
	if len(eff) != 1 || eff[0].Kind != NotifyDisabled {
		t.Errorf("effects = %+v, want NotifyDisabled", eff)
	}
	if s.Status != "disabled after 5 tries" {
		t.Errorf("Status = %q", s.Status)
	}

	for i := 0; i < 3; i++ {
		if s, eff = Tick(s, cfg, rate); len(eff) != 0 {
			t.Fatalf("disabled tick produced %+v", eff)
		}
	}

	s = Retry(s, cfg)
	if s.Failures != 0 || s.Phase != Initializing {
		t.Fatalf("after retry: failures %d phase %v", s.Failures, s.Phase)
	}
	s, eff = Tick(s, cfg, rate)
	e := startEffect(t, eff)
	if e.Duration != cfg.BootstrapDuration+cfg.RetryIncrement {
		t.Errorf("retry duration = %v, want %v", e.Duration, cfg.BootstrapDuration+cfg.RetryIncrement)
	}
	if e.Generation != 1 {
		t.Errorf("Generation = %d, want 1", e.Generation)
	}
}

func TestFailuresAreConsecutive(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, -0.1)

	fail := func(n int) {
		for i := 0; i < n; i++ {
			var eff []Effect
			s, eff = Tick(s, cfg, rate)
			e := startEffect(t, eff)
			s, _ = Complete(s, cfg, e.Channel, e.Generation, math.NaN())
		}
	}

	fail(cfg.MaxFailures - 1)
	s, eff := Tick(s, cfg, rate)
	e := startEffect(t, eff)
	s, _ = Complete(s, cfg, e.Channel, e.Generation, 0.01)
	if s.Failures != 0 {
		t.Fatalf("Failures = %d after success, want 0", s.Failures)
	}

	fail(cfg.MaxFailures - 1)
	if s.Phase == Disabled {
		t.Error("disabled without five consecutive failures")
	}
	if s.Completed != 1 {
		t.Errorf("Completed = %d, want 1", s.Completed)
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, -0.1)

	s, eff := Tick(s, cfg, rate)
	old := startEffect(t, eff)
	s = Retry(s, cfg)

	s, _ = Complete(s, cfg, old.Channel, old.Generation, 0.5)
	if s.Completed != 0 || s.SyncOffset != 0 {
		t.Errorf("stale completion applied: completed %d offset %v", s.Completed, s.SyncOffset)
	}

	s, eff = Tick(s, cfg, rate)
	e := startEffect(t, eff)
	s, _ = Complete(s, cfg, PayloadChannel, e.Generation, 0.5)
	if s.Completed != 0 {
		t.Error("completion for the wrong channel applied")
	}
}

func TestApplyOffset(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, -0.1)

	s = ApplyOffset(s, SyncChannel, 0.25)
	s = ApplyOffset(s, PayloadChannel, 0.1234)
	if s.SyncOffset != 0.25 {
		t.Errorf("SyncOffset = %v", s.SyncOffset)
	}
	if s.Peak.DelayCoarse != 0.12 || math.Abs(s.Peak.TotalDelay-0.1234) > 1e-12 {
		t.Errorf("payload delay = %+v", s.Peak)
	}
}
