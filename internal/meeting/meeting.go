// Package meeting constructs meeting examples turn by turn: it draws
// speakers and utterances from the corpus, asks the overlap sampler where
// each new utterance starts, assigns impulse responses and mixing weights,
// and stops once the timeline reaches the target length. All randomness is
// drawn from per-example, per-purpose generators.
package meeting

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"

	"github.com/soundscene/meetmix/internal/dataset"
	"github.com/soundscene/meetmix/internal/example"
	"github.com/soundscene/meetmix/internal/rir"
	"github.com/soundscene/meetmix/internal/rng"
	"github.com/soundscene/meetmix/internal/sampling"
)

// ErrTooFewSpeakers is returned when the corpus has fewer speakers than a
// meeting needs.
var ErrTooFewSpeakers = errors.New("meeting: corpus has fewer speakers than requested")

// defaultMaxTurns caps meeting length against degenerate configurations
// (e.g. a target length that silence alone can never reach).
const defaultMaxTurns = 10000

// Config controls meeting construction.
type Config struct {
	// NumSpeakers is the number of distinct speakers per meeting.
	NumSpeakers int `validate:"min=1"`
	// TargetSamples stops turn placement once the latest utterance end
	// reaches it; the final observation may run slightly longer.
	TargetSamples int `validate:"min=1"`
	// MaxTurns bounds the number of turns; zero selects a default.
	MaxTurns int `validate:"min=0"`
	// MinLogWeight and MaxLogWeight bound the uniformly drawn per-turn
	// mixing weight in dB.
	MinLogWeight float64
	MaxLogWeight float64 `validate:"gtefield=MinLogWeight"`
}

// Generator builds meeting examples from a corpus.
type Generator struct {
	corpus  *dataset.Corpus
	sampler *sampling.UniformSampler
	cfg     Config
	logger  *slog.Logger
}

// New validates the configuration against the corpus and returns a
// generator.
func New(corpus *dataset.Corpus, sampler *sampling.UniformSampler, cfg Config, logger *slog.Logger) (*Generator, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("meeting: invalid config: %w", err)
	}
	if cfg.NumSpeakers > len(corpus.SpeakerIDs()) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrTooFewSpeakers, cfg.NumSpeakers, len(corpus.SpeakerIDs()))
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = defaultMaxTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{corpus: corpus, sampler: sampler, cfg: cfg, logger: logger}, nil
}

// Generate builds one example. The same example ID always yields the same
// meeting, independent of any other example generated before or after.
func (g *Generator) Generate(exampleID string) (*example.Example, error) {
	turnsRNG := rng.ForExample(exampleID, "turns")
	offsetRNG := rng.ForExample(exampleID, "offset")
	weightsRNG := rng.ForExample(exampleID, "weights")
	rirRNG := rng.ForExample(exampleID, "rir")

	// Draw the meeting's speakers and one impulse response per speaker.
	speakers := pick(turnsRNG, g.corpus.SpeakerIDs(), g.cfg.NumSpeakers)
	speakerRIR := make(map[string]rir.Impulse, len(speakers))
	for i, idx := range pickIndices(rirRNG, len(g.corpus.RIRs), len(speakers)) {
		speakerRIR[speakers[i]] = g.corpus.RIRs[idx]
	}

	ex := example.New(exampleID)
	var (
		offsets []int
		obsLens []int
		maxEnd  int
	)

	for turn := 0; turn < g.cfg.MaxTurns && maxEnd < g.cfg.TargetSamples; turn++ {
		speaker := speakers[turnsRNG.IntN(len(speakers))]
		utts := g.corpus.Utterances[speaker]
		utt := utts[turnsRNG.IntN(len(utts))]
		ir := speakerRIR[speaker]
		obsLen := len(utt) + ir.NumSamples() - 1

		offset := 0
		if turn > 0 {
			offset = g.sampler.SampleOffset(offsets, obsLens, ex.SpeakerIDs, speaker, offsetRNG)
		}

		ex.SpeakerIDs = append(ex.SpeakerIDs, speaker)
		ex.OriginalSource = append(ex.OriginalSource, utt)
		ex.RIRs = append(ex.RIRs, ir)
		ex.LogWeights = append(ex.LogWeights, g.sampleLogWeight(weightsRNG))
		offsets = append(offsets, offset)
		obsLens = append(obsLens, obsLen)
		if end := offset + obsLen; end > maxEnd {
			maxEnd = end
		}
	}

	srcLens := make([]int, ex.NumTurns())
	for i := range ex.OriginalSource {
		srcLens[i] = len(ex.OriginalSource[i])
	}
	ex.Offsets[example.OriginalSource] = offsets
	ex.NumSamples[example.OriginalSource] = srcLens
	ex.ObservationSamples = maxEnd

	g.logger.Debug("meeting generated",
		slog.String("example_id", exampleID),
		slog.Int("turns", ex.NumTurns()),
		slog.Int("observation_samples", maxEnd),
	)
	return ex, nil
}

func (g *Generator) sampleLogWeight(r *rand.Rand) float64 {
	return g.cfg.MinLogWeight + r.Float64()*(g.cfg.MaxLogWeight-g.cfg.MinLogWeight)
}

// pick returns n elements drawn without replacement, in shuffled order.
func pick(r *rand.Rand, from []string, n int) []string {
	out := make([]string, len(from))
	copy(out, from)
	for i := len(out) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// pickIndices draws n indices from [0, total), without replacement while
// possible, wrapping around when n exceeds total.
func pickIndices(r *rand.Rand, total, n int) []int {
	perm := make([]int, total)
	for i := range perm {
		perm[i] = i
	}
	for i := total - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	out := make([]int, n)
	for i := range out {
		out[i] = perm[i%total]
	}
	return out
}
