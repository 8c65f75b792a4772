package telemetry

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client represents a single channel connection in a meeting.
type Client struct {
	ID            string
	MeetingID     uuid.UUID
	UserID        uuid.UUID
	ParticipantID string // set on join-meeting announcement
	DisplayName   string
	hub           *Hub
	conn          *websocket.Conn
	send          chan Envelope
	logger        *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		meetingIDStr := c.Query("meeting_id")
		token := c.Query("token")
		if meetingIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "meeting_id and token required"})
			return
		}
		meetingID, err := uuid.Parse(meetingIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meeting_id"})
			return
		}
		userIDStr, _, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, _ := uuid.Parse(userIDStr)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			MeetingID: meetingID,
			UserID:    userID,
			hub:       hub,
			conn:      conn,
			send:      make(chan Envelope, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg Envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventJoinMeeting:
			var p JoinMeetingPayload
			if err := json.Unmarshal(msg.Data, &p); err == nil {
				c.hub.HandleJoinMeeting(c, p)
			}
		case EventLeaveMeeting:
			var p LeaveMeetingPayload
			if err := json.Unmarshal(msg.Data, &p); err == nil {
				c.hub.HandleLeaveMeeting(c, p)
			}
		case EventEmotionUpdate:
			var p EmotionUpdatePayload
			if err := json.Unmarshal(msg.Data, &p); err == nil {
				c.hub.HandleEmotionUpdate(c, p, json.RawMessage(msg.Data))
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
