// Package scenario synthesizes the reverberant multi-channel observation
// of a meeting example: it convolves each dry source with its room impulse
// response, splits the result into early and tail reverberation, scales
// speakers against their mixing weights, places everything into the
// observation timeline, and sums the mixture.
package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/soundscene/meetmix/internal/example"
	"github.com/soundscene/meetmix/internal/rir"
	"github.com/soundscene/meetmix/internal/signal"
)

// Static errors for data-contract violations. These signal upstream
// corruption and abort the example; they are never retried.
var (
	// ErrShapeMismatch is returned when per-turn slices disagree in length.
	ErrShapeMismatch = errors.New("scenario: per-turn slice lengths disagree")
	// ErrEmptySignal is returned when a turn carries an empty source or
	// impulse response.
	ErrEmptySignal = errors.New("scenario: empty source or impulse response")
	// ErrNoObservationLength is returned when the target length is not set.
	ErrNoObservationLength = errors.New("scenario: observation length not set")
)

// EarlyRIRSamples returns the default early/tail split width: 50 ms at the
// given sample rate, excluding the propagation delay.
func EarlyRIRSamples(sampleRate int) int {
	return sampleRate * 50 / 1000
}

// NoiseOptions controls the optional additive noise component.
type NoiseOptions struct {
	// Enabled turns white Gaussian noise on.
	Enabled bool
	// MinSNR and MaxSNR bound the uniformly sampled signal-to-noise ratio
	// in dB, measured against the clean mixture.
	MinSNR float64
	MaxSNR float64
}

// Options configures the synthesizer.
type Options struct {
	// NormalizeSources removes each source's mean before convolution to
	// avoid jumps against the zero padding.
	NormalizeSources bool
	// AddReverberationEarly computes the early-reverberation components.
	AddReverberationEarly bool
	// AddReverberationTail computes the tail-reverberation components.
	AddReverberationTail bool
	// CompensateTimeOfFlight shifts each reverberated signal forward by its
	// RIR onset so it stays aligned with the dry source. Disable when
	// multiple microphone arrays with differing propagation delays are
	// synthesized.
	CompensateTimeOfFlight bool
	// EarlyRIRSamples is the early/tail split width after the RIR onset.
	EarlyRIRSamples int
	// LevelRatio is the peak-relative threshold for RIR onset detection;
	// zero selects rir.DefaultLevelRatio.
	LevelRatio float64
	// Details keeps the masked early/tail RIRs on the example.
	Details bool
	// ChannelSlice restricts the RIRs to a channel subset before synthesis.
	ChannelSlice rir.Slice
	// Noise controls the additive noise component.
	Noise NoiseOptions
}

// Streams carries the per-purpose random generators synthesis may consume.
// Each stream must be derived per example so results stay reproducible.
type Streams struct {
	// Channel is consumed only when ChannelSlice selects a random channel.
	Channel *rand.Rand
	// Noise is consumed only when noise is enabled.
	Noise *rand.Rand
}

// Synthesizer performs reverberant scenario synthesis on examples.
type Synthesizer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a synthesizer with the given options.
func New(opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{opts: opts, logger: logger}
}

// Synthesize convolves, scales, decomposes, places, and mixes all turns of
// the example in place. The example must carry per-turn original sources,
// RIRs, original-source offsets, log weights, and the observation length.
func (s *Synthesizer) Synthesize(ex *example.Example, streams Streams) error {
	k := ex.NumTurns()
	offsets := ex.Offsets[example.OriginalSource]
	if len(ex.OriginalSource) != k || len(ex.RIRs) != k || len(offsets) != k || len(ex.LogWeights) != k {
		return fmt.Errorf("%w: turns=%d sources=%d rirs=%d offsets=%d weights=%d",
			ErrShapeMismatch, k, len(ex.OriginalSource), len(ex.RIRs), len(offsets), len(ex.LogWeights))
	}
	t := ex.ObservationSamples
	if t <= 0 {
		return ErrNoObservationLength
	}
	for i := range ex.OriginalSource {
		if len(ex.OriginalSource[i]) == 0 || ex.RIRs[i].NumSamples() == 0 {
			return fmt.Errorf("%w: turn %d", ErrEmptySignal, i)
		}
	}

	// Onsets are estimated on the full RIRs so the result is independent of
	// the channel selection applied afterwards.
	onsets := make([]int, k)
	for i := range ex.RIRs {
		onsets[i] = ex.RIRs[i].StartSample(s.opts.LevelRatio)
	}

	if !s.opts.ChannelSlice.IsAll() && k > 0 {
		r, err := s.opts.ChannelSlice.Resolve(ex.RIRs[0].Channels(), streams.Channel, false)
		if err != nil {
			return err
		}
		for i := range ex.RIRs {
			ex.RIRs[i] = ex.RIRs[i].Slice(r)
		}
	}

	stops := make([]int, k)
	for i := range stops {
		stops[i] = onsets[i] + s.opts.EarlyRIRSamples
	}

	// Offsets for the reverberated variants, optionally compensated for
	// the direct-path propagation delay.
	rirOffsets := make([]int, k)
	copy(rirOffsets, offsets)
	if s.opts.CompensateTimeOfFlight {
		for i := range rirOffsets {
			rirOffsets[i] -= onsets[i]
		}
	}

	sources := ex.OriginalSource
	if s.opts.NormalizeSources {
		sources = make([][]float64, k)
		for i := range ex.OriginalSource {
			sources[i] = signal.RemoveMean(ex.OriginalSource[i])
		}
	}

	// The dry speech source keeps the uncompensated offsets.
	speechSource := make([]signal.Sparse, k)
	for i := range sources {
		speechSource[i] = signal.Mono(offsets[i], sources[i])
	}
	ex.SetComponent(example.SpeechSource, speechSource)

	reverberated, err := s.convolveAll(sources, ex.RIRs, rirOffsets)
	if err != nil {
		return err
	}

	raw := make([][][]float64, k)
	for i := range reverberated {
		raw[i] = reverberated[i].Data
	}
	scales := signal.Scales(ex.LogWeights, raw)
	applyScales(reverberated, scales)

	ex.SetComponent(example.OriginalReverberated, reverberated)
	ex.SetComponent(example.SpeechImage, reverberated)

	if s.opts.AddReverberationEarly {
		early := make([]rir.Impulse, k)
		for i := range ex.RIRs {
			early[i] = ex.RIRs[i].Early(stops[i])
		}
		conv, err := s.convolveAll(sources, early, rirOffsets)
		if err != nil {
			return err
		}
		applyScales(conv, scales)
		ex.SetComponent(example.OriginalReverberationEarly, conv)
		ex.SetComponent(example.SpeechReverberationEarly, conv)
		if s.opts.Details {
			ex.RIREarly = early
		}
	}

	if s.opts.AddReverberationTail {
		tail := make([]rir.Impulse, k)
		for i := range ex.RIRs {
			tail[i] = ex.RIRs[i].Tail(stops[i])
		}
		conv, err := s.convolveAll(sources, tail, rirOffsets)
		if err != nil {
			return err
		}
		applyScales(conv, scales)
		ex.SetComponent(example.OriginalReverberationTail, conv)
		ex.SetComponent(example.SpeechReverberationTail, conv)
		if s.opts.Details {
			ex.RIRTail = tail
		}
	}

	channels := 1
	if k > 0 {
		channels = ex.RIRs[0].Channels()
	}
	observation := make([][]float64, channels)
	for ch := range observation {
		observation[ch] = make([]float64, t)
	}
	for _, img := range ex.Components[example.SpeechImage] {
		img.AddTo(observation)
	}

	if s.opts.Noise.Enabled {
		if err := s.addNoise(ex, observation, streams.Noise); err != nil {
			return err
		}
	}
	ex.Observation = observation

	return nil
}

// convolveAll convolves every source with its impulse response and wraps
// the results as offset-bearing signals. The output length of each turn is
// checked against len(source)+len(rir)-1.
func (s *Synthesizer) convolveAll(sources [][]float64, irs []rir.Impulse, offsets []int) ([]signal.Sparse, error) {
	if len(sources) != len(irs) {
		return nil, fmt.Errorf("%w: sources=%d rirs=%d", ErrShapeMismatch, len(sources), len(irs))
	}
	out := make([]signal.Sparse, len(sources))
	for i := range sources {
		conv := signal.Convolve(sources[i], irs[i].Data)
		want := len(sources[i]) + irs[i].NumSamples() - 1
		got := 0
		if len(conv) > 0 {
			got = len(conv[0])
		}
		if got != want {
			return nil, fmt.Errorf("%w: turn %d convolution length %d, want %d",
				ErrShapeMismatch, i, got, want)
		}
		out[i] = signal.NewSparse(offsets[i], conv)
	}
	return out, nil
}

// addNoise draws an SNR uniformly from the configured range, generates
// white Gaussian noise at that level relative to the clean mixture, and
// adds it to the observation.
func (s *Synthesizer) addNoise(ex *example.Example, observation [][]float64, rng *rand.Rand) error {
	if rng == nil {
		return errors.New("scenario: noise enabled but no noise generator provided")
	}
	snr := s.opts.Noise.MinSNR + rng.Float64()*(s.opts.Noise.MaxSNR-s.opts.Noise.MinSNR)
	std := math.Sqrt(signal.Power(observation) / math.Pow(10, snr/10))

	noise := make([][]float64, len(observation))
	for ch := range noise {
		noise[ch] = make([]float64, len(observation[ch]))
		for i := range noise[ch] {
			noise[ch][i] = rng.NormFloat64() * std
		}
	}
	for ch := range observation {
		for i := range observation[ch] {
			observation[ch][i] += noise[ch][i]
		}
	}
	ex.NoiseImage = noise
	ex.SNR = snr
	return nil
}

// applyScales multiplies each turn's signal by its scale factor in place.
func applyScales(signals []signal.Sparse, scales []float64) {
	for i := range signals {
		signal.ApplyScale(signals[i].Data, scales[i])
	}
}
