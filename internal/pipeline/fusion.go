package pipeline

import "math"

// Fusion weights. Communication blends the delivery signals; overall blends
// content relevance with communication.
const (
	weightFaceConfidence  = 0.4
	weightVoiceConfidence = 0.4
	weightSpeechFluency   = 0.2
	weightContent         = 0.6
	weightCommunication   = 0.4
)

// FusedScores is the output of the fusion formula, both in [0,100].
type FusedScores struct {
	Communication int
	Overall       int
}

// Fuse combines the sub-scores into communication and overall scores.
// A nil input contributes zero to its weighted term. That is a deliberate
// policy for failed secondary analyzers and is distinct from the scorer's
// absent-field handling, which keeps fields null all the way to storage.
func Fuse(contentScore, faceConfidence, voiceConfidence, speechFluency *float64) FusedScores {
	communication := math.Round(
		orZero(faceConfidence)*weightFaceConfidence +
			orZero(voiceConfidence)*weightVoiceConfidence +
			orZero(speechFluency)*weightSpeechFluency)

	overall := math.Round(
		orZero(contentScore)*weightContent +
			communication*weightCommunication)

	return FusedScores{
		Communication: clampScore(communication),
		Overall:       clampScore(overall),
	}
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
