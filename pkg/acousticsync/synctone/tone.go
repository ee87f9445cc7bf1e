// Package synctone generates the reference tone mixed into the sync channel.
// Its frequency hops through a long pseudo-random sequence, so its
// autocorrelation has one dominant peak over a wide lag range.
package synctone

import "math"

const (
	CarrierHz   = 1040.0
	DeviationHz = 1000.0
	GateHz      = 40.0
	Gain        = 0.5

	// Peak is the largest sample magnitude: the gate doubles the carrier
	// before Gain halves it.
	Peak = 2 * Gain

	// DefaultSeconds is the loop length of a generated tone.
	DefaultSeconds = 4.0

	steps    = 4000
	stepRate = 80.0
)

var hopTable = buildHopTable()

func buildHopTable() [steps]float64 {
	var t [steps]float64
	m := 17
	for i := range t {
		t[i] = float64(m)/200 - 1
		m = (m + 53) % 400
	}
	return t
}

// Hop returns the modulation value in [-1, 1) for step i of the sequence.
func Hop(i int) float64 {
	return hopTable[((i%steps)+steps)%steps]
}

// Generate renders seconds of tone at sampleRate.
func Generate(sampleRate int, seconds float64) []float64 {
	if sampleRate <= 0 || seconds <= 0 {
		return nil
	}
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)

	var phase float64
	dt := 1 / float64(sampleRate)
	for i := range out {
		t := float64(i) * dt
		freq := CarrierHz + DeviationHz*Hop(int(t*stepRate))
		phase += 2 * math.Pi * freq * dt
		if phase > 2*math.Pi {
			phase -= 2 * math.Pi
		}
		out[i] = Gain * math.Sin(phase) * gate(t)
	}
	return out
}

// gate is 1 plus a 40 Hz square wave: 2 for the first half of each period,
// 0 for the second.
func gate(t float64) float64 {
	_, frac := math.Modf(t * GateHz)
	if frac < 0.5 {
		return 2
	}
	return 0
}

// Invert flips polarity in place and returns x.
func Invert(x []float64) []float64 {
	for i := range x {
		x[i] = -x[i]
	}
	return x
}
