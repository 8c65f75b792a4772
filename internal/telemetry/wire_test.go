package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Clients in other stacks match on these exact key names; a rename here is
// a breaking change, not a refactor.
func TestWireFieldNames(t *testing.T) {
	t.Run("emotion-update", func(t *testing.T) {
		data, err := json.Marshal(EmotionUpdatePayload{
			MeetingID:       "m-1",
			ParticipantID:   "p-1",
			SessionID:       "sess-1",
			Emotions:        map[string]float64{"happy": 1},
			DominantEmotion: "happy",
			FaceDetected:    true,
		})
		require.NoError(t, err)

		var keys map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &keys))
		for _, key := range []string{"meetingId", "participantId", "sessionId", "emotions", "dominantEmotion", "faceDetected", "confidence", "displayName"} {
			assert.Contains(t, keys, key)
		}
		assert.NotContains(t, keys, "capturedAt", "omitted when unset")
	})

	t.Run("join-meeting", func(t *testing.T) {
		data, err := json.Marshal(JoinMeetingPayload{MeetingID: "m-1", ParticipantID: "p-1", DisplayName: "Alice"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"meetingId":"m-1","participantId":"p-1","displayName":"Alice"}`, string(data))
	})

	t.Run("envelope", func(t *testing.T) {
		data, err := json.Marshal(Envelope{Event: EventEmotionAlert, Data: json.RawMessage(`{"participantId":"p-1"}`)})
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"emotion-alert","data":{"participantId":"p-1"}}`, string(data))
	})
}
