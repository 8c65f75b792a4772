package telemetry

import (
	"fmt"
	"sync"

	"github.com/smart-lms/backend/internal/models"
)

// AlertEngine raises an emotion-alert after a participant produces a streak
// of consecutive low-attentiveness samples (no face, or a low-weight
// dominant emotion). Alerts are advisory; the engine re-arms after firing
// so a persistent condition alerts once per streak, not once per sample.
type AlertEngine struct {
	streak    int
	threshold float64
	weights   map[string]float64

	mu     sync.Mutex
	counts map[string]int // meetingID/participantID -> consecutive low samples
}

// NewAlertEngine creates an engine. streak is the number of consecutive low
// samples before an alert fires; weights maps emotion labels to
// attentiveness in [0,1]; labels at or below threshold count as low.
func NewAlertEngine(streak int, threshold float64, weights map[string]float64) *AlertEngine {
	if streak <= 0 {
		streak = 3
	}
	return &AlertEngine{
		streak:    streak,
		threshold: threshold,
		weights:   weights,
		counts:    make(map[string]int),
	}
}

// Observe feeds one sample. Returns an alert payload and true when the
// streak rule fires for this sample.
func (e *AlertEngine) Observe(sample models.EmotionSample) (EmotionAlertPayload, bool) {
	key := sample.MeetingID.String() + "/" + sample.ParticipantID

	low := !sample.FaceDetected
	if !low {
		if w, ok := e.weights[sample.DominantEmotion]; ok {
			low = w <= e.threshold
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !low {
		delete(e.counts, key)
		return EmotionAlertPayload{}, false
	}
	e.counts[key]++
	if e.counts[key] < e.streak {
		return EmotionAlertPayload{}, false
	}
	delete(e.counts, key) // re-arm
	reason := sample.DominantEmotion
	msg := fmt.Sprintf("low attentiveness: %s for %d consecutive samples", reason, e.streak)
	if !sample.FaceDetected {
		reason = ""
		msg = fmt.Sprintf("no face detected for %d consecutive samples", e.streak)
	}
	return EmotionAlertPayload{
		ParticipantID: sample.ParticipantID,
		DisplayName:   sample.DisplayName,
		Emotion:       reason,
		Message:       msg,
	}, true
}
