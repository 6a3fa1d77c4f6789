package sampling

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"
)

// maxRejections bounds the rejection-sampling loop. When every candidate in
// a row is rejected the overlap window is too small to satisfy the target
// distribution and the sampler falls back to silence.
const maxRejections = 100

// Config holds the offset distribution parameters, all in samples unless
// noted. Invariants are checked at construction, never at sampling time.
type Config struct {
	// MaxConcurrentSpeakers bounds how many speakers may be active at the
	// same time instant.
	MaxConcurrentSpeakers int `validate:"min=1"`
	// PSilence is the approximate target probability of sampling silence
	// after an utterance. The realized probability is slightly higher due
	// to rejection sampling.
	PSilence float64 `validate:"gte=0,lte=1"`
	// MinimumSilence is the smallest silence drawn when silence is sampled.
	// Must be at least Margin.
	MinimumSilence int `validate:"gtefield=Margin"`
	// MaximumSilence is the exclusive upper bound on sampled silence.
	MaximumSilence int `validate:"gtfield=MinimumSilence"`
	// SoftMinimumOverlap is the window size below which the sampler returns
	// the maximum allowed overlap deterministically instead of sampling.
	SoftMinimumOverlap int `validate:"ltefield=MaximumOverlap"`
	// HardMinimumOverlap is the window size below which no overlap is used
	// at all; it is also the inclusive lower bound of sampled overlap.
	HardMinimumOverlap int `validate:"ltefield=MaximumOverlap"`
	// MaximumOverlap is the exclusive upper bound on sampled overlap.
	MaximumOverlap int
	// Margin keeps a minimum distance from the placement that would violate
	// MaxConcurrentSpeakers, e.g. to leave room for the reverberation tail.
	Margin int
}

// UniformSampler draws silence/overlap shifts from uniform distributions,
// using rejection sampling to honor the concurrency bound.
type UniformSampler struct {
	cfg    Config
	logger *slog.Logger
}

// NewUniformSampler validates the configuration and returns a sampler.
// Invalid parameter combinations fail immediately.
func NewUniformSampler(cfg Config, logger *slog.Logger) (*UniformSampler, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("sampling: invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UniformSampler{cfg: cfg, logger: logger}, nil
}

// Config returns the sampler configuration.
func (s *UniformSampler) Config() Config {
	return s.cfg
}

// SampleShift draws the shift of the next utterance relative to the latest
// end time of all placed utterances. Negative shifts overlap, positive
// shifts leave silence. Every returned shift satisfies
// shift > -maxOverlap + Margin, except when the overlap window is too small
// to use, in which case pure silence (clamped to Margin) is returned.
func (s *UniformSampler) SampleShift(maxOverlap int, rng *rand.Rand) int {
	switch {
	case maxOverlap <= s.cfg.HardMinimumOverlap:
		// No room for overlap; the clamp keeps the reverberation-tail
		// safety margin even when silence was forced.
		return max(s.sampleSilence(rng), s.cfg.Margin)
	case maxOverlap <= s.cfg.SoftMinimumOverlap:
		// The window is too narrow for meaningful randomization.
		return -maxOverlap + s.cfg.Margin
	}

	for range maxRejections {
		shift := s.sampleShift(rng)
		if shift > -maxOverlap+s.cfg.Margin {
			return shift
		}
	}

	// The region for overlap is probably too small. Falling back to
	// silence distorts the target distribution slightly.
	s.logger.Warn("offset sampling rejected all candidates, sampling silence",
		slog.Int("max_overlap", maxOverlap),
		slog.Int("attempts", maxRejections),
	)
	return s.sampleSilence(rng)
}

// SampleOffset computes the absolute start offset for the next utterance:
// the latest end time among all placed original sources (offset plus
// observation length) plus a sampled shift. placedOffsets and
// placedLengths describe the already placed utterances, parallel to
// speakerIDs.
func (s *UniformSampler) SampleOffset(placedOffsets, placedLengths []int, speakerIDs []string, currentSpeaker string, rng *rand.Rand) int {
	ends := make([]int, len(placedOffsets))
	latest := 0
	for i := range placedOffsets {
		ends[i] = placedOffsets[i] + placedLengths[i]
		if ends[i] > latest {
			latest = ends[i]
		}
	}
	maxOverlap := AllowedMaxOverlap(ends, speakerIDs, s.cfg.MaxConcurrentSpeakers, currentSpeaker)
	return latest + s.SampleShift(maxOverlap, rng)
}

// sampleShift draws one unconstrained candidate: silence with probability
// PSilence, otherwise negated overlap.
func (s *UniformSampler) sampleShift(rng *rand.Rand) int {
	if rng.Float64() <= s.cfg.PSilence {
		return s.sampleSilence(rng)
	}
	return -s.sampleOverlap(rng)
}

// sampleSilence draws from [MinimumSilence, MaximumSilence).
func (s *UniformSampler) sampleSilence(rng *rand.Rand) int {
	return s.cfg.MinimumSilence + rng.IntN(s.cfg.MaximumSilence-s.cfg.MinimumSilence)
}

// sampleOverlap draws from [HardMinimumOverlap, MaximumOverlap).
func (s *UniformSampler) sampleOverlap(rng *rand.Rand) int {
	span := s.cfg.MaximumOverlap - s.cfg.HardMinimumOverlap
	if span <= 0 {
		return s.cfg.HardMinimumOverlap
	}
	return s.cfg.HardMinimumOverlap + rng.IntN(span)
}
