// Package example defines the audio example data model: one synthetic
// meeting with its per-turn placement records, source signals, RIRs, and
// the components the synthesizer adds. An example is constructed fresh per
// meeting, mutated in place by the synthesizer, and handed downstream.
package example

import (
	"github.com/soundscene/meetmix/internal/rir"
	"github.com/soundscene/meetmix/internal/signal"
)

// Example is one synthetic meeting. Per-turn slices are parallel: index k
// always refers to the k-th speaker turn, and the same speaker may appear
// in multiple turns.
type Example struct {
	// ID identifies the example; all per-example randomness derives from it.
	ID string
	// SpeakerIDs holds the speaker identity of each turn.
	SpeakerIDs []string
	// LogWeights holds the per-turn mixing weight in dB.
	LogWeights []float64
	// OriginalSource holds the dry mono utterance signal of each turn.
	OriginalSource [][]float64
	// RIRs holds the room impulse response assigned to each turn.
	RIRs []rir.Impulse

	// Offsets maps a component key to per-turn start offsets in the
	// observation timeline.
	Offsets map[string][]int
	// NumSamples maps a component key to per-turn signal lengths.
	NumSamples map[string][]int
	// ObservationSamples is the total observation length T.
	ObservationSamples int

	// Components maps a component key to per-turn offset-bearing signals,
	// filled in by the synthesizer.
	Components map[string][]signal.Sparse

	// Observation is the dense mixture (channels x T), set by synthesis.
	Observation [][]float64
	// NoiseImage is the additive noise (channels x T) when noise is enabled.
	NoiseImage [][]float64
	// SNR is the signal-to-noise ratio in dB used for NoiseImage.
	SNR float64

	// RIREarly and RIRTail keep the masked impulse responses when the
	// synthesizer runs with details enabled.
	RIREarly []rir.Impulse
	RIRTail  []rir.Impulse
}

// New creates an empty example with initialized component maps.
func New(id string) *Example {
	return &Example{
		ID:         id,
		Offsets:    make(map[string][]int),
		NumSamples: make(map[string][]int),
		Components: make(map[string][]signal.Sparse),
	}
}

// NumTurns returns the number of speaker turns.
func (ex *Example) NumTurns() int {
	return len(ex.SpeakerIDs)
}

// SetComponent stores per-turn signals under key and records their offsets
// and lengths in the parallel maps.
func (ex *Example) SetComponent(key string, signals []signal.Sparse) {
	offsets := make([]int, len(signals))
	lengths := make([]int, len(signals))
	for k, s := range signals {
		offsets[k] = s.Offset
		lengths[k] = s.NumSamples()
	}
	ex.Components[key] = signals
	ex.Offsets[key] = offsets
	ex.NumSamples[key] = lengths
}
