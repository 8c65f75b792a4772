package telemetry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/models"
	"github.com/smart-lms/backend/internal/session"
)

// ChannelConfig configures a client-side telemetry channel for one meeting.
type ChannelConfig struct {
	URL           string // ws endpoint including meeting_id and token query params
	MeetingID     string
	ParticipantID string
	DisplayName   string
	SessionID     string

	ReconnectBaseWait time.Duration // first backoff step, default 500ms
	ReconnectMaxWait  time.Duration // backoff cap, default 30s
}

// Channel is the client side of the telemetry contract: it emits local
// samples and receives remote updates and alerts. On disconnect it
// reconnects with exponential backoff and re-issues the join-meeting
// announcement so server-side presence is refreshed.
//
// Channel failures never propagate to the call session; a sample sent while
// disconnected is simply lost (at-most-once).
type Channel struct {
	cfg    ChannelConfig
	dialer *websocket.Dialer
	log    *zap.Logger

	// OnUpdate receives emotion updates from other participants.
	OnUpdate func(EmotionUpdatePayload)
	// OnAlert receives server-originated emotion alerts.
	OnAlert func(EmotionAlertPayload)

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

// NewChannel creates a channel. Run must be called to connect.
func NewChannel(cfg ChannelConfig, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = 500 * time.Millisecond
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = 30 * time.Second
	}
	return &Channel{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Run connects and keeps the channel alive until ctx is cancelled or Close
// is called. Each successful connect re-announces join-meeting.
func (c *Channel) Run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if err != nil {
			wait := c.backoff(attempt)
			attempt++
			c.log.Debug("telemetry connect failed", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-time.After(wait):
			}
			continue
		}
		attempt = 0

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()

		c.announceJoin()
		c.readLoop(conn) // returns on disconnect
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		_ = conn.Close()
	}
}

// backoff returns the reconnect delay for the given attempt: exponential
// from the base wait, capped at the max wait.
func (c *Channel) backoff(attempt int) time.Duration {
	wait := c.cfg.ReconnectBaseWait
	for i := 0; i < attempt; i++ {
		wait *= 2
		if wait >= c.cfg.ReconnectMaxWait {
			return c.cfg.ReconnectMaxWait
		}
	}
	if wait > c.cfg.ReconnectMaxWait {
		return c.cfg.ReconnectMaxWait
	}
	return wait
}

// SendSample transmits one emotion sample. No batching, no ack; when the
// channel is down the sample is dropped and ErrChannelDisconnected returned
// so the caller can count the loss if it cares.
func (c *Channel) SendSample(sample models.EmotionSample) error {
	captured := sample.CapturedAt
	payload := EmotionUpdatePayload{
		MeetingID:       c.cfg.MeetingID,
		ParticipantID:   c.cfg.ParticipantID,
		SessionID:       c.cfg.SessionID,
		Emotions:        sample.EmotionScores,
		DominantEmotion: sample.DominantEmotion,
		FaceDetected:    sample.FaceDetected,
		Confidence:      sample.Confidence,
		DisplayName:     c.cfg.DisplayName,
		CapturedAt:      &captured,
	}
	return c.write(EventEmotionUpdate, payload)
}

// Close sends leave-meeting and shuts the channel down. Idempotent.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()
	close(c.done)

	if conn != nil {
		payload := LeaveMeetingPayload{
			MeetingID:     c.cfg.MeetingID,
			ParticipantID: c.cfg.ParticipantID,
			DisplayName:   c.cfg.DisplayName,
		}
		data, _ := json.Marshal(payload)
		_ = conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		_ = conn.WriteJSON(Envelope{Event: EventLeaveMeeting, Data: data})
		_ = conn.Close()
	}
}

// Connected reports whether the channel currently has a live connection.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Channel) announceJoin() {
	payload := JoinMeetingPayload{
		MeetingID:     c.cfg.MeetingID,
		ParticipantID: c.cfg.ParticipantID,
		DisplayName:   c.cfg.DisplayName,
	}
	if err := c.write(EventJoinMeeting, payload); err != nil {
		c.log.Debug("join announcement failed", zap.Error(err))
	}
}

func (c *Channel) write(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return session.ErrChannelDisconnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteJSON(Envelope{Event: event, Data: data}); err != nil {
		return session.ErrChannelDisconnected
	}
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var msg Envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Event {
		case EventEmotionUpdate:
			if c.OnUpdate != nil {
				var p EmotionUpdatePayload
				if err := json.Unmarshal(msg.Data, &p); err == nil {
					c.OnUpdate(p)
				}
			}
		case EventEmotionAlert:
			if c.OnAlert != nil {
				var p EmotionAlertPayload
				if err := json.Unmarshal(msg.Data, &p); err == nil {
					c.OnAlert(p)
				}
			}
		}
	}
}
