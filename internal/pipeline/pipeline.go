// Package pipeline orchestrates dataset generation runs: it builds each
// meeting example, synthesizes its reverberant mixture, and writes the
// resulting audio and metadata through the configured storage backend.
// Examples are processed with bounded concurrency; every example owns its
// own random streams, so run order and parallelism never change results.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/soundscene/meetmix/internal/dataset"
	"github.com/soundscene/meetmix/internal/example"
	"github.com/soundscene/meetmix/internal/meeting"
	"github.com/soundscene/meetmix/internal/pipeline/id"
	"github.com/soundscene/meetmix/internal/rng"
	"github.com/soundscene/meetmix/internal/scenario"
	"github.com/soundscene/meetmix/internal/storage"
)

// Options configures a generation run.
type Options struct {
	// MaxConcurrentExamples limits how many examples are synthesized in
	// parallel. Values below 1 are treated as 1.
	MaxConcurrentExamples int
	// WriteComponents also writes the per-turn component signals
	// (speech source, speech image, early/tail reverberation) as WAV files.
	WriteComponents bool
	// PushToS3 mirrors every artifact to S3 after the local write.
	PushToS3 bool
}

// Pipeline generates a batch of meeting examples.
type Pipeline struct {
	generator   *meeting.Generator
	synthesizer *scenario.Synthesizer
	store       storage.Storage
	sampleRate  int
	opts        Options
	logger      *slog.Logger
}

// Summary reports the outcome of a run.
type Summary struct {
	// RunID names the run; all artifacts live under it.
	RunID string
	// Generated is the number of examples written successfully.
	Generated int
	// Failed is the number of examples that errored.
	Failed int
}

// New creates a pipeline.
func New(generator *meeting.Generator, synthesizer *scenario.Synthesizer, store storage.Storage, sampleRate int, opts Options, logger *slog.Logger) *Pipeline {
	if opts.MaxConcurrentExamples < 1 {
		opts.MaxConcurrentExamples = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		generator:   generator,
		synthesizer: synthesizer,
		store:       store,
		sampleRate:  sampleRate,
		opts:        opts,
		logger:      logger,
	}
}

// Run generates numExamples examples. Example IDs are derived from the
// example index only, so re-running with the same corpus and configuration
// reproduces the same dataset under a new run directory. Individual example
// failures are logged and counted; Run returns an error only when the
// context is cancelled or every example failed.
func (p *Pipeline) Run(ctx context.Context, numExamples int) (Summary, error) {
	runID := id.Generate()
	p.logger.Info("starting generation run",
		slog.String("run_id", runID),
		slog.Int("num_examples", numExamples),
		slog.Int("max_concurrent", p.opts.MaxConcurrentExamples),
	)

	sem := newSemaphore(p.opts.MaxConcurrentExamples)
	var wg sync.WaitGroup
	var mu sync.Mutex
	summary := Summary{RunID: runID}

	for i := 0; i < numExamples; i++ {
		if err := sem.acquire(ctx); err != nil {
			wg.Wait()
			return summary, fmt.Errorf("run cancelled: %w", err)
		}

		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			defer sem.release()

			exampleID := fmt.Sprintf("meeting_%06d", index)
			err := p.generateOne(ctx, runID, exampleID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				p.logger.Error("example failed",
					slog.String("example_id", exampleID),
					slog.String("error", err.Error()),
				)
				return
			}
			summary.Generated++
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run cancelled: %w", err)
	}
	if summary.Generated == 0 && summary.Failed > 0 {
		return summary, fmt.Errorf("pipeline: all %d examples failed", summary.Failed)
	}
	p.logger.Info("generation run finished",
		slog.String("run_id", runID),
		slog.Int("generated", summary.Generated),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

// generateOne builds, synthesizes, and writes a single example.
func (p *Pipeline) generateOne(ctx context.Context, runID, exampleID string) error {
	ex, err := p.generator.Generate(exampleID)
	if err != nil {
		return fmt.Errorf("generate meeting: %w", err)
	}

	streams := scenario.Streams{
		Channel: rng.ForExample(exampleID, "channel"),
		Noise:   rng.ForExample(exampleID, "noise"),
	}
	if err := p.synthesizer.Synthesize(ex, streams); err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	dir := path.Join(runID, exampleID)
	if err := p.writeWAV(ctx, path.Join(dir, "observation.wav"), ex.Observation); err != nil {
		return err
	}
	if p.opts.WriteComponents {
		if err := p.writeComponents(ctx, dir, ex); err != nil {
			return err
		}
	}
	return p.writeMetadata(ctx, path.Join(dir, "example.json"), ex)
}

// componentKeys lists the per-turn components written when component output
// is enabled. Missing keys (disabled decompositions) are skipped.
var componentKeys = []string{
	example.SpeechSource,
	example.SpeechImage,
	example.SpeechReverberationEarly,
	example.SpeechReverberationTail,
}

func (p *Pipeline) writeComponents(ctx context.Context, dir string, ex *example.Example) error {
	for _, key := range componentKeys {
		signals, ok := ex.Components[key]
		if !ok {
			continue
		}
		for turn, s := range signals {
			name := path.Join(dir, fmt.Sprintf("%s_%03d.wav", key, turn))
			if err := p.writeWAV(ctx, name, s.Materialize(ex.ObservationSamples)); err != nil {
				return err
			}
		}
	}
	if ex.NoiseImage != nil {
		if err := p.writeWAV(ctx, path.Join(dir, example.NoiseImage+".wav"), ex.NoiseImage); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) writeWAV(ctx context.Context, name string, data [][]float64) error {
	buf := dataset.NewBuffer()
	if err := dataset.WriteWAV(buf, data, p.sampleRate); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return p.writeArtifact(ctx, name, buf.Bytes())
}

// exampleMetadata is the downstream data contract written next to the
// audio: placement and length bookkeeping per component, per turn.
type exampleMetadata struct {
	ExampleID          string           `json:"example_id"`
	SampleRate         int              `json:"sample_rate"`
	SpeakerIDs         []string         `json:"speaker_id"`
	LogWeights         []float64        `json:"log_weights"`
	Offsets            map[string][]int `json:"offset"`
	NumSamples         map[string][]int `json:"num_samples"`
	ObservationSamples int              `json:"observation_num_samples"`
	SNR                *float64         `json:"snr,omitempty"`
}

func (p *Pipeline) writeMetadata(ctx context.Context, name string, ex *example.Example) error {
	meta := exampleMetadata{
		ExampleID:          ex.ID,
		SampleRate:         p.sampleRate,
		SpeakerIDs:         ex.SpeakerIDs,
		LogWeights:         ex.LogWeights,
		Offsets:            ex.Offsets,
		NumSamples:         ex.NumSamples,
		ObservationSamples: ex.ObservationSamples,
	}
	if ex.NoiseImage != nil {
		snr := ex.SNR
		meta.SNR = &snr
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return p.writeArtifact(ctx, name, raw)
}

func (p *Pipeline) writeArtifact(ctx context.Context, name string, data []byte) error {
	if _, err := p.store.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	if p.opts.PushToS3 {
		if _, err := p.store.UploadToS3(ctx, name, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
	}
	return nil
}
