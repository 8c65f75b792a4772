package models

import (
	"time"

	"github.com/google/uuid"
)

// EmotionLabel is one classifier output class.
type EmotionLabel = string

// LabelPriority is the fixed tie-break order for dominant-emotion
// resolution: when two labels carry the same score or count, the one
// appearing earlier here wins. Keeping this order stable keeps every
// aggregation over the same samples reproducible.
var LabelPriority = []EmotionLabel{
	"neutral", "happy", "sad", "angry", "fearful", "surprised", "disgusted", "unknown",
}

// EmotionSample is one classified capture for one participant.
// Immutable once created; transmitted once over the telemetry channel and
// persisted server-side.
type EmotionSample struct {
	ID              uuid.UUID          `json:"id,omitempty"`
	MeetingID       uuid.UUID          `json:"meeting_id"`
	SessionID       string             `json:"session_id"`
	ParticipantID   string             `json:"participant_id"`
	DisplayName     string             `json:"display_name,omitempty"`
	CapturedAt      time.Time          `json:"captured_at"`
	EmotionScores   map[string]float64 `json:"emotion_scores"`
	DominantEmotion string             `json:"dominant_emotion"`
	FaceDetected    bool               `json:"face_detected"`
	Confidence      float64            `json:"confidence"`
}

// DominantEmotion returns the arg-max label of scores. Ties resolve by
// LabelPriority; labels outside the priority table rank last, ordered
// lexicographically so the result never depends on map iteration order.
func DominantEmotion(scores map[string]float64) EmotionLabel {
	if len(scores) == 0 {
		return "unknown"
	}
	best := ""
	bestScore := 0.0
	for label, score := range scores {
		if best == "" || score > bestScore || (score == bestScore && labelRank(label) < labelRank(best)) ||
			(score == bestScore && labelRank(label) == labelRank(best) && label < best) {
			best = label
			bestScore = score
		}
	}
	return best
}

func labelRank(label string) int {
	for i, l := range LabelPriority {
		if l == label {
			return i
		}
	}
	return len(LabelPriority)
}
