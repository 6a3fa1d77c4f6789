// Package rir provides the room impulse response type used during
// reverberant synthesis: direct-path onset detection, early/tail masking,
// and channel selection.
package rir

import "math"

// DefaultLevelRatio is the peak-relative threshold used for onset detection.
const DefaultLevelRatio = 0.1

// Impulse is a multi-channel room impulse response, one slice per channel.
// All channels have the same length.
type Impulse struct {
	Data [][]float64
}

// Channels returns the number of channels.
func (ir Impulse) Channels() int {
	return len(ir.Data)
}

// NumSamples returns the impulse response length in samples.
func (ir Impulse) NumSamples() int {
	if len(ir.Data) == 0 {
		return 0
	}
	return len(ir.Data[0])
}

// StartSample estimates the direct-path arrival: the first sample whose
// absolute value exceeds levelRatio times the peak absolute value, scanning
// only up to the peak itself. For multi-channel responses the minimum onset
// across channels is returned. A levelRatio <= 0 selects DefaultLevelRatio.
//
// This heuristic was developed on measured and simulated RIRs; validate it
// before applying it to a new RIR database.
func (ir Impulse) StartSample(levelRatio float64) int {
	if levelRatio <= 0 {
		levelRatio = DefaultLevelRatio
	}
	start := 0
	for ch, h := range ir.Data {
		s := startSample(h, levelRatio)
		if ch == 0 || s < start {
			start = s
		}
	}
	return start
}

// startSample finds the onset in a single channel.
func startSample(h []float64, levelRatio float64) int {
	peak := 0
	peakAbs := 0.0
	for i, v := range h {
		if a := math.Abs(v); a > peakAbs {
			peakAbs = a
			peak = i
		}
	}
	threshold := levelRatio * peakAbs
	for i := 0; i <= peak && i < len(h); i++ {
		if math.Abs(h[i]) > threshold {
			return i
		}
	}
	return peak
}

// Early returns a copy with every sample at or after stop zeroed, keeping
// the direct path and early reflections.
func (ir Impulse) Early(stop int) Impulse {
	return ir.masked(func(i int) bool { return i < stop })
}

// Tail returns a copy with every sample before stop zeroed, keeping the
// diffuse reverberation tail. Early and Tail partition the impulse response
// support exactly at stop.
func (ir Impulse) Tail(stop int) Impulse {
	return ir.masked(func(i int) bool { return i >= stop })
}

func (ir Impulse) masked(keep func(int) bool) Impulse {
	out := make([][]float64, len(ir.Data))
	for ch := range ir.Data {
		out[ch] = make([]float64, len(ir.Data[ch]))
		for i, v := range ir.Data[ch] {
			if keep(i) {
				out[ch][i] = v
			}
		}
	}
	return Impulse{Data: out}
}

// Slice returns the channel subset selected by r. The payload is shared,
// not copied.
func (ir Impulse) Slice(r Range) Impulse {
	return Impulse{Data: ir.Data[r.Start:r.Stop]}
}
