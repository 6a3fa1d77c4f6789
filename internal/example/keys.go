package example

// Component keys form the fixed vocabulary shared between the meeting
// generator, the synthesizer, and downstream consumers.
const (
	// Observation is the dense mixture all speakers sum into.
	Observation = "observation"
	// OriginalSource is the dry per-speaker utterance signal.
	OriginalSource = "original_source"
	// SpeechSource is the dry source placed at its offset in the timeline.
	SpeechSource = "speech_source"
	// SpeechImage is the scaled reverberated signal placed in the timeline.
	SpeechImage = "speech_image"
	// NoiseImage is the additive noise component of the observation.
	NoiseImage = "noise_image"
	// OriginalReverberated is the unpadded reverberated per-speaker signal.
	OriginalReverberated = "original_reverberated"
	// SpeechReverberationEarly is the placed early-reverberation component.
	SpeechReverberationEarly = "speech_reverberation_early"
	// SpeechReverberationTail is the placed tail-reverberation component.
	SpeechReverberationTail = "speech_reverberation_tail"
	// OriginalReverberationEarly is the unpadded early-reverberation signal.
	OriginalReverberationEarly = "original_reverberation_early"
	// OriginalReverberationTail is the unpadded tail-reverberation signal.
	OriginalReverberationTail = "original_reverberation_tail"
)
