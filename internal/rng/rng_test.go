package rng

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForExample_Reproducible(t *testing.T) {
	a := ForExample("meeting_000042", "offset")
	b := ForExample("meeting_000042", "offset")

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestForExample_PurposesDoNotCollide(t *testing.T) {
	a := ForExample("meeting_000042", "offset")
	b := ForExample("meeting_000042", "channel")

	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	assert.Zero(t, same)
}

func TestForExample_SeparatorMatters(t *testing.T) {
	// ("ab", "c") and ("a", "bc") must not produce the same stream.
	a := ForExample("ab", "c")
	b := ForExample("a", "bc")
	assert.NotEqual(t, a.Uint64(), b.Uint64())
}

func TestForExample_ExamplesDoNotCollide(t *testing.T) {
	a := ForExample("meeting_000001", "offset")
	b := ForExample("meeting_000002", "offset")
	assert.NotEqual(t, a.Uint64(), b.Uint64())
}
