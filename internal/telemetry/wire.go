package telemetry

import (
	"encoding/json"
	"time"
)

// Event names carried on the channel. These are wire contract: clients in
// other stacks match on the exact strings.
const (
	EventJoinMeeting   = "join-meeting"
	EventLeaveMeeting  = "leave-meeting"
	EventEmotionUpdate = "emotion-update"
	EventEmotionAlert  = "emotion-alert"
)

// Envelope is the channel message frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinMeetingPayload announces presence. Idempotent: re-sending after a
// reconnect refreshes server-side presence without double-counting.
type JoinMeetingPayload struct {
	MeetingID     string `json:"meetingId"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// LeaveMeetingPayload is sent on teardown. It is not the sole attendance
// signal; the server also closes presence on abrupt disconnects.
type LeaveMeetingPayload struct {
	MeetingID     string `json:"meetingId"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
}

// EmotionUpdatePayload carries one sample. At-most-once, loss-tolerant: a
// missed sample degrades analytics resolution, not correctness.
type EmotionUpdatePayload struct {
	MeetingID       string             `json:"meetingId"`
	ParticipantID   string             `json:"participantId"`
	SessionID       string             `json:"sessionId"`
	Emotions        map[string]float64 `json:"emotions"`
	DominantEmotion string             `json:"dominantEmotion"`
	FaceDetected    bool               `json:"faceDetected"`
	Confidence      float64            `json:"confidence"`
	DisplayName     string             `json:"displayName"`
	CapturedAt      *time.Time         `json:"capturedAt,omitempty"`
}

// EmotionAlertPayload is advisory, server-to-client only.
type EmotionAlertPayload struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Emotion       string `json:"emotion,omitempty"`
	Message       string `json:"message,omitempty"`
}
