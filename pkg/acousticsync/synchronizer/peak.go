package synchronizer

import (
	"math"
	"time"
)

// PeakState is the latest live tracking report together with the payload
// delay it drives. Every method returns an updated copy.
type PeakState struct {
	Time     time.Time
	Peak     float64
	PrevPeak float64
	Valid    bool

	DelayCoarse float64
	DelayFine   float64
	TotalDelay  float64
	AutoAdjust  bool

	LastValidTime time.Time
}

func NewPeakState(initialDelay float64) PeakState {
	p := PeakState{Peak: -1, PrevPeak: -1, AutoAdjust: true}
	return p.SetDelay(initialDelay)
}

// Set records a report without touching validity.
func (p PeakState) Set(t time.Time, peak float64) PeakState {
	p.Time = t
	p.PrevPeak = p.Peak
	p.Peak = peak
	return p
}

func (p PeakState) MarkValid(t time.Time, peak float64) PeakState {
	p = p.Set(t, peak)
	p.Valid = true
	p.LastValidTime = t
	return p
}

// MarkInvalid only changes a state that is currently valid.
func (p PeakState) MarkInvalid(t time.Time, peak float64) PeakState {
	if !p.Valid {
		return p
	}
	p = p.Set(t, peak)
	p.Valid = false
	return p
}

// Report applies a tracker verdict.
func (p PeakState) Report(valid bool, t time.Time, peak float64) PeakState {
	if valid {
		return p.MarkValid(t, peak)
	}
	return p.MarkInvalid(t, peak)
}

// SetDelay splits total into a coarse part rounded to 10 ms and the fine
// remainder.
func (p PeakState) SetDelay(total float64) PeakState {
	p.DelayCoarse = math.Round(total*100) / 100
	p.DelayFine = total - p.DelayCoarse
	p.TotalDelay = p.DelayCoarse + p.DelayFine
	return p
}

func (p PeakState) SetDelayCoarse(v float64) PeakState {
	p.DelayCoarse = v
	p.TotalDelay = p.DelayCoarse + p.DelayFine
	return p
}

func (p PeakState) SetDelayFine(v float64) PeakState {
	p.DelayFine = v
	p.TotalDelay = p.DelayCoarse + p.DelayFine
	return p
}

func (p PeakState) ToggleAutoAdjust() PeakState {
	p.AutoAdjust = !p.AutoAdjust
	return p
}
