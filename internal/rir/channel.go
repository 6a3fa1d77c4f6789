package rir

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// Static errors for channel selection.
var (
	// ErrUnknownChannelSlice is returned for an unrecognized specifier.
	ErrUnknownChannelSlice = errors.New("rir: unknown channel slice specifier")
	// ErrTotalChannelsRequired is returned when a selection needs the total
	// channel count but none was given.
	ErrTotalChannelsRequired = errors.New("rir: total channel count required")
	// ErrRandomSourceRequired is returned when a random selection is
	// requested without a random generator.
	ErrRandomSourceRequired = errors.New("rir: random generator required for one_random")
)

// Range is a resolved half-open channel range [Start, Stop).
type Range struct {
	Start int
	Stop  int
	// Single reports that a one-channel selection was collapsed to a single
	// index (the channel dimension is conceptually removed).
	Single bool
}

// Len returns the number of selected channels.
func (r Range) Len() int {
	return r.Stop - r.Start
}

// sliceKind enumerates the supported channel-selection specifiers.
type sliceKind int

const (
	sliceAll sliceKind = iota
	sliceFirstN
	sliceOneRandom
	sliceExplicit
)

// Slice is a channel-selection specifier: all channels, the first N
// channels, one uniformly random channel, or an explicit range. The zero
// value selects all channels.
type Slice struct {
	kind  sliceKind
	n     int
	start int
	stop  int
}

// AllChannels selects every channel.
func AllChannels() Slice {
	return Slice{kind: sliceAll}
}

// FirstChannels selects the first n channels.
func FirstChannels(n int) Slice {
	return Slice{kind: sliceFirstN, n: n}
}

// OneRandomChannel selects a single uniformly random channel. Resolution
// requires the total channel count and a random generator.
func OneRandomChannel() Slice {
	return Slice{kind: sliceOneRandom}
}

// ExplicitChannels selects the half-open range [start, stop).
func ExplicitChannels(start, stop int) Slice {
	return Slice{kind: sliceExplicit, start: start, stop: stop}
}

// ParseSlice parses a channel-slice specifier from its string form:
// "all" (or empty), "one_random", "N" for the first N channels, or "A:B"
// for an explicit range. Anything else is a configuration error.
func ParseSlice(s string) (Slice, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", "all":
		return AllChannels(), nil
	case "one_random":
		return OneRandomChannel(), nil
	}
	if start, stop, ok := strings.Cut(s, ":"); ok {
		a, errA := strconv.Atoi(strings.TrimSpace(start))
		b, errB := strconv.Atoi(strings.TrimSpace(stop))
		if errA != nil || errB != nil || a < 0 || b <= a {
			return Slice{}, fmt.Errorf("%w: %q", ErrUnknownChannelSlice, s)
		}
		return ExplicitChannels(a, b), nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
		return FirstChannels(n), nil
	}
	return Slice{}, fmt.Errorf("%w: %q", ErrUnknownChannelSlice, s)
}

// Resolve maps the specifier to a concrete channel range for a response
// with totalChannels channels. When squeeze is set, a one-channel selection
// is marked Single so callers can drop the channel dimension. The generator
// is consumed only for random selections.
func (cs Slice) Resolve(totalChannels int, rng *rand.Rand, squeeze bool) (Range, error) {
	if totalChannels <= 0 {
		return Range{}, ErrTotalChannelsRequired
	}
	switch cs.kind {
	case sliceAll:
		return Range{Start: 0, Stop: totalChannels}, nil
	case sliceFirstN:
		if cs.n > totalChannels {
			return Range{}, fmt.Errorf("rir: slice of %d channels exceeds total %d", cs.n, totalChannels)
		}
		return Range{Start: 0, Stop: cs.n, Single: squeeze && cs.n == 1}, nil
	case sliceOneRandom:
		if rng == nil {
			return Range{}, ErrRandomSourceRequired
		}
		ch := rng.IntN(totalChannels)
		return Range{Start: ch, Stop: ch + 1, Single: squeeze}, nil
	case sliceExplicit:
		if cs.stop > totalChannels {
			return Range{}, fmt.Errorf("rir: slice [%d:%d) exceeds total %d", cs.start, cs.stop, totalChannels)
		}
		return Range{Start: cs.start, Stop: cs.stop, Single: squeeze && cs.stop-cs.start == 1}, nil
	}
	return Range{}, ErrUnknownChannelSlice
}

// IsAll reports whether the specifier selects every channel.
func (cs Slice) IsAll() bool {
	return cs.kind == sliceAll
}
