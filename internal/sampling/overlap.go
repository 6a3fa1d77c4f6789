// Package sampling decides where each new utterance starts in a meeting
// timeline: it bounds the allowed overlap so that never more than a
// configured number of speakers are active at once, then draws a
// silence/overlap shift from the configured distribution.
package sampling

import "sort"

// tailSlot is one entry of the fixed-size concurrency snapshot. A slot
// without ok set is sentinel padding: end time zero and no speaker, so it
// can never match a real speaker during self-exclusion.
type tailSlot struct {
	end     int
	speaker string
	ok      bool
}

// AllowedMaxOverlap computes the maximum overlap for a new utterance that
// guarantees no more than maxConcurrent speakers are active at any time.
//
// speakerEnds holds the end offsets of all previously placed utterances and
// speakerIDs the parallel speaker identities; both may repeat a speaker.
// The bound is computed against the maxConcurrent latest end times only, so
// it deliberately underestimates the exact interval-overlap answer. This
// keeps regions already sampled as silence, and repetitions of the same
// speaker, free of additional overlapping speech placed later.
//
// A speaker cannot overlap with themself: when currentSpeaker appears among
// the latest end times, the effective concurrency bound shrinks to the
// number of entries after its last occurrence.
//
// Mismatched slice lengths are a caller contract violation.
func AllowedMaxOverlap(speakerEnds []int, speakerIDs []string, maxConcurrent int, currentSpeaker string) int {
	slots := make([]tailSlot, 0, max(len(speakerEnds), maxConcurrent))
	for i, end := range speakerEnds {
		slots = append(slots, tailSlot{end: end, speaker: speakerIDs[i], ok: true})
	}
	for len(slots) < maxConcurrent {
		slots = append(slots, tailSlot{})
	}

	// Ascending by end time; stable so ties keep placement order.
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].end < slots[j].end })
	tail := slots[len(slots)-maxConcurrent:]

	effective := maxConcurrent
	for i := len(tail) - 1; i >= 0; i-- {
		if tail[i].ok && tail[i].speaker == currentSpeaker {
			effective = len(tail) - i
			break
		}
	}

	return tail[len(tail)-1].end - tail[len(tail)-effective].end
}
