// Package signal provides the in-memory signal primitives used during
// mixture synthesis: offset-bearing sparse signals, FFT-based linear
// convolution, and loudness scaling from log-domain mixing weights.
package signal

// Sparse is a multi-channel signal placed at a sample offset in a longer
// timeline. It holds only the payload; materialization into a dense buffer
// of a given length clips whatever falls outside [0, T).
type Sparse struct {
	// Offset is the sample index in the timeline where the payload starts.
	// May be negative after time-of-flight compensation.
	Offset int
	// Data is the payload, one slice per channel.
	Data [][]float64
}

// NewSparse creates a sparse signal from a payload and its offset.
func NewSparse(offset int, data [][]float64) Sparse {
	return Sparse{Offset: offset, Data: data}
}

// Mono wraps a single-channel payload as a sparse signal.
func Mono(offset int, data []float64) Sparse {
	return Sparse{Offset: offset, Data: [][]float64{data}}
}

// Channels returns the number of channels in the payload.
func (s Sparse) Channels() int {
	return len(s.Data)
}

// NumSamples returns the payload length in samples.
func (s Sparse) NumSamples() int {
	if len(s.Data) == 0 {
		return 0
	}
	return len(s.Data[0])
}

// AddTo accumulates the payload into dst at the signal's offset. Regions of
// the payload outside [0, len(dst[ch])) are clipped. Channel counts must
// match unless the payload is mono, which is broadcast across all channels.
func (s Sparse) AddTo(dst [][]float64) {
	for ch := range dst {
		src := s.Data[0]
		if len(s.Data) > 1 {
			src = s.Data[ch]
		}
		addAt(dst[ch], src, s.Offset)
	}
}

// Materialize returns a dense buffer of numSamples samples per channel with
// the payload written at its offset and everything else zero.
func (s Sparse) Materialize(numSamples int) [][]float64 {
	dst := make([][]float64, s.Channels())
	for ch := range dst {
		dst[ch] = make([]float64, numSamples)
		addAt(dst[ch], s.Data[ch], s.Offset)
	}
	return dst
}

// addAt adds src into dst starting at offset, clipping at both ends.
func addAt(dst, src []float64, offset int) {
	start := 0
	if offset < 0 {
		start = -offset
	}
	for i := start; i < len(src); i++ {
		j := offset + i
		if j >= len(dst) {
			break
		}
		dst[j] += src[i]
	}
}
