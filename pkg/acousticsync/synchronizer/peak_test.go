package synchronizer

import (
	"math"
	"testing"
	"time"
)

func TestNewPeakState(t *testing.T) {
	p := NewPeakState(-0.1)
	if p.Peak != -1 || p.PrevPeak != -1 || p.Valid {
		t.Errorf("report fields = %+v", p)
	}
	if p.DelayCoarse != -0.1 || p.DelayFine != 0 || p.TotalDelay != -0.1 || !p.AutoAdjust {
		t.Errorf("delay fields = %+v", p)
	}
}

func TestPeakReports(t *testing.T) {
	t1, t2, t3 := time.Unix(1, 0), time.Unix(2, 0), time.Unix(3, 0)
	p := NewPeakState(0)

	if q := p.MarkInvalid(t1, 7); q != p {
		t.Errorf("MarkInvalid on an invalid state changed it: %+v", q)
	}

	p = p.MarkValid(t1, 12)
	if !p.Valid || p.Peak != 12 || p.PrevPeak != -1 || !p.LastValidTime.Equal(t1) {
		t.Errorf("after MarkValid: %+v", p)
	}

	p = p.MarkInvalid(t2, 40)
	if p.Valid || p.Peak != 40 || p.PrevPeak != 12 || !p.LastValidTime.Equal(t1) {
		t.Errorf("after MarkInvalid: %+v", p)
	}

	p = p.Set(t3, 3)
	if p.Valid || p.Peak != 3 || !p.Time.Equal(t3) {
		t.Errorf("after Set: %+v", p)
	}
}

func TestDelayParts(t *testing.T) {
	tests := []struct {
		total  float64
		coarse float64
	}{
		{0.1234, 0.12},
		{-0.0551, -0.06},
		{0.005, 0.01},
		{1, 1},
	}
	for _, tt := range tests {
		p := NewPeakState(0).SetDelay(tt.total)
		if p.DelayCoarse != tt.coarse {
			t.Errorf("SetDelay(%v): coarse = %v, want %v", tt.total, p.DelayCoarse, tt.coarse)
		}
		if math.Abs(p.DelayCoarse+p.DelayFine-p.TotalDelay) > 1e-15 || math.Abs(p.TotalDelay-tt.total) > 1e-12 {
			t.Errorf("SetDelay(%v) = %+v", tt.total, p)
		}
	}

	p := NewPeakState(0.2).SetDelayFine(0.004)
	if math.Abs(p.TotalDelay-0.204) > 1e-12 {
		t.Errorf("TotalDelay = %v, want 0.204", p.TotalDelay)
	}
	p = p.SetDelayCoarse(0.5)
	if math.Abs(p.TotalDelay-0.504) > 1e-12 {
		t.Errorf("TotalDelay = %v, want 0.504", p.TotalDelay)
	}
}
