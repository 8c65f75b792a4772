package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// AttendanceLogger records join/leave transitions derived from channel
// presence. Implemented by the attendance repository.
type AttendanceLogger interface {
	LogEvent(ctx context.Context, ev models.AttendanceEvent) error
}

// SampleStore persists inbound emotion samples. Implemented by the emotion
// sample repository.
type SampleStore interface {
	Insert(ctx context.Context, sample models.EmotionSample) error
}

// RedisPublisher publishes meeting events for cross-instance broadcast.
type RedisPublisher interface {
	PublishMeetingEvent(meetingID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to meeting channels and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeMeeting(meetingID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

type presence struct {
	connections int
	displayName string
}

// Hub maintains meeting_id -> set of connections, persists the telemetry
// stream and broadcasts messages. Presence is reference-counted per
// participant so a reconnect's repeated join-meeting announcement refreshes
// state instead of double-logging attendance, and an abrupt disconnect
// still produces a leave event.
type Hub struct {
	meetings map[uuid.UUID]map[string]*Client
	present  map[uuid.UUID]map[string]*presence
	subs     map[uuid.UUID]func() // cancel Redis subscription per meeting
	mu       sync.RWMutex

	logger     *zap.Logger
	redis      RedisPublisher
	redisSub   RedisSubscriber
	attendance AttendanceLogger
	samples    SampleStore
	alerts     *AlertEngine
}

// NewHub creates a telemetry hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber, attendance AttendanceLogger, samples SampleStore, alerts *AlertEngine) *Hub {
	InitMetrics()
	return &Hub{
		meetings:   make(map[uuid.UUID]map[string]*Client),
		present:    make(map[uuid.UUID]map[string]*presence),
		subs:       make(map[uuid.UUID]func()),
		logger:     logger,
		redis:      redisPub,
		redisSub:   redisSub,
		attendance: attendance,
		samples:    samples,
		alerts:     alerts,
	}
}

// Register adds a client connection to a meeting. Starts the Redis
// subscription for the meeting when the first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.meetings[c.MeetingID] == nil {
		h.meetings[c.MeetingID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeMeeting(c.MeetingID, func(event string, payload []byte) {
				h.BroadcastToMeeting(c.MeetingID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.MeetingID] = cancel
			}
		}
	}
	h.meetings[c.MeetingID][c.ID] = c
	h.mu.Unlock()
	ConnectionsActive.Inc()
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID.String()))
}

// Unregister removes a client connection. If the client had announced
// presence, the participant's connection count drops and a leave event is
// logged when the last connection goes away (abrupt-disconnect detection).
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.meetings[c.MeetingID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.meetings, c.MeetingID)
			if cancel, ok := h.subs[c.MeetingID]; ok {
				cancel()
				delete(h.subs, c.MeetingID)
			}
		}
	}
	h.mu.Unlock()
	ConnectionsActive.Dec()

	if c.ParticipantID != "" {
		h.dropPresence(c.MeetingID, c.ParticipantID)
	}
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID), zap.String("meeting_id", c.MeetingID.String()))
}

// HandleJoinMeeting processes a join-meeting announcement. Idempotent per
// connection; the attendance join event is written only on the participant's
// first live connection.
func (h *Hub) HandleJoinMeeting(c *Client, p JoinMeetingPayload) {
	if p.ParticipantID == "" {
		return
	}
	h.mu.Lock()
	if c.ParticipantID == p.ParticipantID {
		h.mu.Unlock()
		return // repeated announcement on the same connection
	}
	prev := c.ParticipantID
	c.ParticipantID = p.ParticipantID
	c.DisplayName = p.DisplayName
	if h.present[c.MeetingID] == nil {
		h.present[c.MeetingID] = make(map[string]*presence)
	}
	pr, ok := h.present[c.MeetingID][p.ParticipantID]
	if !ok {
		pr = &presence{displayName: p.DisplayName}
		h.present[c.MeetingID][p.ParticipantID] = pr
	}
	pr.connections++
	first := pr.connections == 1
	h.mu.Unlock()

	// A connection can only carry one participant; if it re-announces as
	// someone else, the old identity's presence must not leak.
	if prev != "" {
		h.dropPresence(c.MeetingID, prev)
	}
	if first && h.attendance != nil {
		_ = h.attendance.LogEvent(context.Background(), models.AttendanceEvent{
			MeetingID:     c.MeetingID,
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			Type:          models.AttendanceJoin,
			At:            time.Now().UTC(),
		})
	}
}

// HandleLeaveMeeting processes an explicit leave-meeting message.
func (h *Hub) HandleLeaveMeeting(c *Client, p LeaveMeetingPayload) {
	if c.ParticipantID == "" || c.ParticipantID != p.ParticipantID {
		return
	}
	h.mu.Lock()
	c.ParticipantID = ""
	h.mu.Unlock()
	h.dropPresence(c.MeetingID, p.ParticipantID)
}

// HandleEmotionUpdate persists the sample, feeds the alert rules and relays
// the update to the meeting. Store failures are logged and the relay still
// happens: analytics degradation must never interrupt the live view.
func (h *Hub) HandleEmotionUpdate(c *Client, p EmotionUpdatePayload, raw json.RawMessage) {
	meetingID, err := uuid.Parse(p.MeetingID)
	if err != nil || meetingID != c.MeetingID {
		return
	}
	capturedAt := time.Now().UTC()
	if p.CapturedAt != nil {
		capturedAt = p.CapturedAt.UTC()
	}
	sample := models.EmotionSample{
		MeetingID:       meetingID,
		SessionID:       p.SessionID,
		ParticipantID:   p.ParticipantID,
		DisplayName:     p.DisplayName,
		CapturedAt:      capturedAt,
		EmotionScores:   p.Emotions,
		DominantEmotion: p.DominantEmotion,
		FaceDetected:    p.FaceDetected,
		Confidence:      p.Confidence,
	}
	if h.samples != nil {
		if err := h.samples.Insert(context.Background(), sample); err != nil {
			h.logger.Warn("emotion sample insert failed", zap.Error(err),
				zap.String("meeting_id", meetingID.String()))
		}
	}
	SamplesIngested.Inc()

	if h.alerts != nil {
		if alert, ok := h.alerts.Observe(sample); ok {
			h.BroadcastAlert(meetingID, alert)
		}
	}
	h.PublishToMeetingOnly(meetingID, EventEmotionUpdate, raw)
}

// BroadcastAlert sends an emotion-alert to everyone in the meeting.
func (h *Hub) BroadcastAlert(meetingID uuid.UUID, alert EmotionAlertPayload) {
	AlertsRaised.Inc()
	h.PublishToMeetingOnly(meetingID, EventEmotionAlert, alert)
	h.logger.Info("emotion alert",
		zap.String("meeting_id", meetingID.String()),
		zap.String("participant_id", alert.ParticipantID),
		zap.String("emotion", alert.Emotion))
}

// BroadcastToMeeting sends a message to all clients in a meeting (local only).
func (h *Hub) BroadcastToMeeting(meetingID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := Envelope{Event: event, Data: data}

	h.mu.RLock()
	clients := h.meetings[meetingID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			MessagesDropped.Inc()
		}
	}
}

// PublishToMeetingOnly publishes to Redis without a local broadcast: the
// meeting's subscriber callback performs the broadcast once for all
// instances, this one included, so local clients never see the message
// twice. Falls back to a local broadcast when Redis is not wired.
func (h *Hub) PublishToMeetingOnly(meetingID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishMeetingEvent(meetingID, event, data)
		return
	}
	h.BroadcastToMeeting(meetingID, event, json.RawMessage(data))
}

// PresenceCount returns the number of participants currently present in a
// meeting.
func (h *Hub) PresenceCount(meetingID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.present[meetingID])
}

func (h *Hub) dropPresence(meetingID uuid.UUID, participantID string) {
	h.mu.Lock()
	var last bool
	var name string
	if m, ok := h.present[meetingID]; ok {
		if pr, ok := m[participantID]; ok {
			pr.connections--
			name = pr.displayName
			if pr.connections <= 0 {
				delete(m, participantID)
				last = true
			}
		}
		if len(m) == 0 {
			delete(h.present, meetingID)
		}
	}
	h.mu.Unlock()

	if last && h.attendance != nil {
		_ = h.attendance.LogEvent(context.Background(), models.AttendanceEvent{
			MeetingID:     meetingID,
			ParticipantID: participantID,
			DisplayName:   name,
			Type:          models.AttendanceLeave,
			At:            time.Now().UTC(),
		})
	}
}
