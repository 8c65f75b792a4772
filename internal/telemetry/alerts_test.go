package telemetry

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lms/backend/internal/models"
)

func alertSample(meetingID uuid.UUID, participantID, dominant string, faceDetected bool) models.EmotionSample {
	return models.EmotionSample{
		MeetingID:       meetingID,
		ParticipantID:   participantID,
		DominantEmotion: dominant,
		FaceDetected:    faceDetected,
	}
}

func TestAlertEngineStreak(t *testing.T) {
	meetingID := uuid.New()
	weights := map[string]float64{"happy": 0.9, "neutral": 0.7, "sad": 0.4, "angry": 0.2}
	engine := NewAlertEngine(3, 0.3, weights)

	t.Run("fires after three consecutive low samples", func(t *testing.T) {
		_, fired := engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		assert.False(t, fired)
		_, fired = engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		assert.False(t, fired)
		alert, fired := engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		require.True(t, fired)
		assert.Equal(t, "s-1", alert.ParticipantID)
		assert.Equal(t, "angry", alert.Emotion)
	})

	t.Run("re-arms after firing", func(t *testing.T) {
		_, fired := engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		assert.False(t, fired, "streak restarts after an alert")
		_, fired = engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		assert.False(t, fired)
		_, fired = engine.Observe(alertSample(meetingID, "s-1", "angry", true))
		assert.True(t, fired)
	})
}

func TestAlertEngineResetOnAttentiveSample(t *testing.T) {
	meetingID := uuid.New()
	weights := map[string]float64{"happy": 0.9, "angry": 0.2}
	engine := NewAlertEngine(3, 0.3, weights)

	engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	engine.Observe(alertSample(meetingID, "s-1", "happy", true)) // breaks the streak

	engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	_, fired := engine.Observe(alertSample(meetingID, "s-1", "happy", true))
	assert.False(t, fired)
}

func TestAlertEngineNoFace(t *testing.T) {
	meetingID := uuid.New()
	engine := NewAlertEngine(2, 0.3, map[string]float64{"neutral": 0.7})

	// No-face samples count as low regardless of the reported label.
	engine.Observe(alertSample(meetingID, "s-1", "neutral", false))
	alert, fired := engine.Observe(alertSample(meetingID, "s-1", "neutral", false))
	require.True(t, fired)
	assert.Empty(t, alert.Emotion)
	assert.Contains(t, alert.Message, "no face detected")
}

func TestAlertEngineTracksParticipantsIndependently(t *testing.T) {
	meetingID := uuid.New()
	engine := NewAlertEngine(2, 0.3, map[string]float64{"angry": 0.2})

	engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	_, fired := engine.Observe(alertSample(meetingID, "s-2", "angry", true))
	assert.False(t, fired, "streaks never mix across participants")

	_, fired = engine.Observe(alertSample(meetingID, "s-1", "angry", true))
	assert.True(t, fired)
}

func TestAlertEngineUnknownLabelIsNotLow(t *testing.T) {
	meetingID := uuid.New()
	engine := NewAlertEngine(1, 0.3, map[string]float64{"angry": 0.2})

	_, fired := engine.Observe(alertSample(meetingID, "s-1", "confused", true))
	assert.False(t, fired, "labels without a weight never trip the threshold")
}
