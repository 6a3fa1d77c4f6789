package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscene/meetmix/internal/dataset"
	"github.com/soundscene/meetmix/internal/meeting"
	"github.com/soundscene/meetmix/internal/rir"
	"github.com/soundscene/meetmix/internal/sampling"
	"github.com/soundscene/meetmix/internal/scenario"
	"github.com/soundscene/meetmix/internal/storage"
)

const testSampleRate = 8000

func testCorpus(t *testing.T) *dataset.Corpus {
	t.Helper()
	dir := t.TempDir()

	tone := func(n int, level float64) [][]float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = level * float64(i%16) / 16
		}
		return [][]float64{s}
	}
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "a1.wav"), tone(600, 0.5), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "b1.wav"), tone(800, 0.4), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "rir.wav"), [][]float64{
		{0, 0.9, 0.3, 0.1},
		{0, 0.7, 0.2, 0.1},
	}, testSampleRate))

	m := &dataset.Manifest{
		SampleRate: testSampleRate,
		Speakers: map[string][]string{
			"spk_a": {"a1.wav"},
			"spk_b": {"b1.wav"},
		},
		RIRs: []string{"rir.wav"},
	}
	c, err := dataset.Load(m, dir)
	require.NoError(t, err)
	return c
}

func testPipeline(t *testing.T, outDir string, synthOpts scenario.Options, opts Options) *Pipeline {
	t.Helper()

	sampler, err := sampling.NewUniformSampler(sampling.Config{
		MaxConcurrentSpeakers: 2,
		PSilence:              0.2,
		MinimumSilence:        0,
		MaximumSilence:        400,
		MaximumOverlap:        200,
	}, nil)
	require.NoError(t, err)

	generator, err := meeting.New(testCorpus(t), sampler, meeting.Config{
		NumSpeakers:   2,
		TargetSamples: 2 * testSampleRate,
	}, nil)
	require.NoError(t, err)

	store, err := storage.NewLocalStorage(outDir)
	require.NoError(t, err)

	synth := scenario.New(synthOpts, nil)
	return New(generator, synth, store, testSampleRate, opts, nil)
}

func TestRun_WritesDataset(t *testing.T) {
	outDir := t.TempDir()
	p := testPipeline(t, outDir, scenario.Options{
		AddReverberationEarly:  true,
		AddReverberationTail:   true,
		CompensateTimeOfFlight: true,
		EarlyRIRSamples:        scenario.EarlyRIRSamples(testSampleRate),
	}, Options{MaxConcurrentExamples: 2, WriteComponents: true})

	summary, err := p.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Generated)
	assert.Zero(t, summary.Failed)
	require.NotEmpty(t, summary.RunID)

	for _, id := range []string{"meeting_000000", "meeting_000001", "meeting_000002"} {
		dir := filepath.Join(outDir, summary.RunID, id)

		obs, rate, err := dataset.ReadWAV(filepath.Join(dir, "observation.wav"))
		require.NoError(t, err, id)
		assert.Equal(t, testSampleRate, rate)
		assert.Len(t, obs, 2)

		raw, err := os.ReadFile(filepath.Join(dir, "example.json"))
		require.NoError(t, err)
		var meta struct {
			ExampleID  string           `json:"example_id"`
			SampleRate int              `json:"sample_rate"`
			SpeakerIDs []string         `json:"speaker_id"`
			Offsets    map[string][]int `json:"offset"`
			ObsSamples int              `json:"observation_num_samples"`
		}
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, id, meta.ExampleID)
		assert.Equal(t, testSampleRate, meta.SampleRate)
		assert.NotEmpty(t, meta.SpeakerIDs)
		assert.Len(t, obs[0], meta.ObsSamples)

		// Component output: one WAV per turn for the dry source.
		matches, err := filepath.Glob(filepath.Join(dir, "speech_source_*.wav"))
		require.NoError(t, err)
		assert.Len(t, matches, len(meta.SpeakerIDs))
	}
}

func TestRun_Reproducible(t *testing.T) {
	opts := scenario.Options{CompensateTimeOfFlight: true}

	firstDir := t.TempDir()
	first, err := testPipeline(t, firstDir, opts, Options{}).Run(context.Background(), 1)
	require.NoError(t, err)

	secondDir := t.TempDir()
	second, err := testPipeline(t, secondDir, opts, Options{}).Run(context.Background(), 1)
	require.NoError(t, err)

	// Example IDs depend only on the index, so two runs over the same
	// corpus produce identical audio under different run directories.
	a, _, err := dataset.ReadWAV(filepath.Join(firstDir, first.RunID, "meeting_000000", "observation.wav"))
	require.NoError(t, err)
	b, _, err := dataset.ReadWAV(filepath.Join(secondDir, second.RunID, "meeting_000000", "observation.wav"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_AllExamplesFailed(t *testing.T) {
	// Asking for more channels than the RIRs have makes synthesis fail.
	p := testPipeline(t, t.TempDir(), scenario.Options{
		ChannelSlice: rir.FirstChannels(5),
	}, Options{})

	summary, err := p.Run(context.Background(), 2)
	require.Error(t, err)
	assert.Zero(t, summary.Generated)
	assert.Equal(t, 2, summary.Failed)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := testPipeline(t, t.TempDir(), scenario.Options{}, Options{})
	_, err := p.Run(ctx, 4)
	require.Error(t, err)
}

func TestSemaphore(t *testing.T) {
	sem := newSemaphore(2)
	ctx := context.Background()

	require.NoError(t, sem.acquire(ctx))
	require.NoError(t, sem.acquire(ctx))

	// A third acquire blocks until a slot is released.
	blocked, blockedCancel := context.WithCancel(context.Background())
	blockedCancel()
	assert.Error(t, sem.acquire(blocked))

	sem.release()
	require.NoError(t, sem.acquire(ctx))
}
