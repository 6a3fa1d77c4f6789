package meeting

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundscene/meetmix/internal/dataset"
	"github.com/soundscene/meetmix/internal/example"
	"github.com/soundscene/meetmix/internal/sampling"
)

const testSampleRate = 8000

// testCorpus decodes a small three-speaker corpus written to a temp dir.
func testCorpus(t *testing.T) *dataset.Corpus {
	t.Helper()
	dir := t.TempDir()

	ramp := func(n int, level float64) [][]float64 {
		s := make([]float64, n)
		for i := range s {
			s[i] = level * float64(i%32) / 32
		}
		return [][]float64{s}
	}
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "a1.wav"), ramp(800, 0.5), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "a2.wav"), ramp(1200, 0.4), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "b1.wav"), ramp(1000, 0.6), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "c1.wav"), ramp(600, 0.3), testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "rir1.wav"), [][]float64{{0, 0.9, 0.3, 0.1}, {0, 0.8, 0.2, 0.1}}, testSampleRate))
	require.NoError(t, dataset.WriteWAVFile(filepath.Join(dir, "rir2.wav"), [][]float64{{0.9, 0.4, 0.1, 0}, {0.7, 0.3, 0.1, 0}}, testSampleRate))

	m := &dataset.Manifest{
		SampleRate: testSampleRate,
		Speakers: map[string][]string{
			"spk_a": {"a1.wav", "a2.wav"},
			"spk_b": {"b1.wav"},
			"spk_c": {"c1.wav"},
		},
		RIRs: []string{"rir1.wav", "rir2.wav"},
	}
	c, err := dataset.Load(m, dir)
	require.NoError(t, err)
	return c
}

func testSampler(t *testing.T) *sampling.UniformSampler {
	t.Helper()
	s, err := sampling.NewUniformSampler(sampling.Config{
		MaxConcurrentSpeakers: 2,
		PSilence:              0.2,
		MinimumSilence:        0,
		MaximumSilence:        800,
		MaximumOverlap:        400,
	}, nil)
	require.NoError(t, err)
	return s
}

func testGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := New(testCorpus(t), testSampler(t), Config{
		NumSpeakers:   2,
		TargetSamples: 5 * testSampleRate,
		MinLogWeight:  -2,
		MaxLogWeight:  2,
	}, nil)
	require.NoError(t, err)
	return g
}

func TestNew_Validation(t *testing.T) {
	corpus := testCorpus(t)
	sampler := testSampler(t)

	t.Run("more speakers than the corpus has", func(t *testing.T) {
		_, err := New(corpus, sampler, Config{NumSpeakers: 4, TargetSamples: 1000}, nil)
		assert.ErrorIs(t, err, ErrTooFewSpeakers)
	})

	t.Run("zero speakers", func(t *testing.T) {
		_, err := New(corpus, sampler, Config{NumSpeakers: 0, TargetSamples: 1000}, nil)
		assert.Error(t, err)
	})

	t.Run("weight bounds inverted", func(t *testing.T) {
		_, err := New(corpus, sampler, Config{
			NumSpeakers: 2, TargetSamples: 1000,
			MinLogWeight: 1, MaxLogWeight: -1,
		}, nil)
		assert.Error(t, err)
	})
}

func TestGenerate_Deterministic(t *testing.T) {
	g := testGenerator(t)

	first, err := g.Generate("meeting_000007")
	require.NoError(t, err)
	// A second generator over the same corpus rebuilds the identical
	// meeting from the example ID alone.
	second, err := testGenerator(t).Generate("meeting_000007")
	require.NoError(t, err)

	assert.Equal(t, first.SpeakerIDs, second.SpeakerIDs)
	assert.Equal(t, first.LogWeights, second.LogWeights)
	assert.Equal(t, first.Offsets[example.OriginalSource], second.Offsets[example.OriginalSource])
	assert.Equal(t, first.ObservationSamples, second.ObservationSamples)

	other, err := g.Generate("meeting_000008")
	require.NoError(t, err)
	assert.NotEqual(t, first.LogWeights, other.LogWeights)
}

func TestGenerate_Timeline(t *testing.T) {
	g := testGenerator(t)
	ex, err := g.Generate("meeting_000001")
	require.NoError(t, err)

	require.Greater(t, ex.NumTurns(), 1)
	offsets := ex.Offsets[example.OriginalSource]
	require.Len(t, offsets, ex.NumTurns())

	assert.Zero(t, offsets[0])

	maxEnd := 0
	for i := range offsets {
		assert.GreaterOrEqual(t, offsets[i], 0)
		assert.Equal(t, len(ex.OriginalSource[i]), ex.NumSamples[example.OriginalSource][i])
		end := offsets[i] + len(ex.OriginalSource[i]) + ex.RIRs[i].NumSamples() - 1
		if end > maxEnd {
			maxEnd = end
		}
	}
	assert.Equal(t, maxEnd, ex.ObservationSamples)
	assert.GreaterOrEqual(t, maxEnd, 5*testSampleRate)
}

func TestGenerate_SpeakerPool(t *testing.T) {
	g := testGenerator(t)
	ex, err := g.Generate("meeting_000002")
	require.NoError(t, err)

	distinct := map[string]struct{}{}
	for _, id := range ex.SpeakerIDs {
		distinct[id] = struct{}{}
	}
	assert.LessOrEqual(t, len(distinct), 2)

	// Each speaker keeps one impulse response for the whole meeting.
	speakerIR := map[string][][]float64{}
	for i, id := range ex.SpeakerIDs {
		if prev, ok := speakerIR[id]; ok {
			assert.Equal(t, prev, ex.RIRs[i].Data)
		}
		speakerIR[id] = ex.RIRs[i].Data
	}
}

func TestGenerate_LogWeightBounds(t *testing.T) {
	g := testGenerator(t)
	ex, err := g.Generate("meeting_000003")
	require.NoError(t, err)

	for _, w := range ex.LogWeights {
		assert.GreaterOrEqual(t, w, -2.0)
		assert.Less(t, w, 2.0)
	}
}

func TestGenerate_MaxTurnsCap(t *testing.T) {
	corpus := testCorpus(t)
	g, err := New(corpus, testSampler(t), Config{
		NumSpeakers:   2,
		TargetSamples: 100 * testSampleRate,
		MaxTurns:      5,
	}, nil)
	require.NoError(t, err)

	ex, err := g.Generate("meeting_000004")
	require.NoError(t, err)
	assert.Equal(t, 5, ex.NumTurns())
}
