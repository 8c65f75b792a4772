package session

import "context"

// EventType enumerates the transport events the session manager consumes.
type EventType string

const (
	EventParticipantJoined  EventType = "participant-joined"
	EventParticipantLeft    EventType = "participant-left"
	EventParticipantUpdated EventType = "participant-updated"
	EventTrackStarted       EventType = "track-started"
	EventTrackStopped       EventType = "track-stopped"
	EventTransportError     EventType = "transport-error"
)

// Event is one asynchronously delivered transport notification. Delivery
// order is not guaranteed relative to render-target readiness; the manager's
// retry ladder absorbs that.
type Event struct {
	Type          EventType
	ParticipantID string
	DisplayName   string
	AudioEnabled  bool
	VideoEnabled  bool
	Track         *MediaTrack
	Err           error
}

// DeviceInfo describes one capture device reported by the transport.
type DeviceInfo struct {
	ID    string
	Label string
	Kind  TrackKind
}

// Transport is the media SDK surface the session manager consumes. The
// manager is a client of it: it never creates or stops tracks itself.
type Transport interface {
	// Join connects to a room and returns the local participant ID. Errors
	// map to the session error taxonomy (ErrPermissionDenied,
	// ErrDeviceUnavailable, ErrTransportFailed).
	Join(ctx context.Context, roomRef, credential, displayName string) (string, error)

	// Leave tears down the connection. Safe to call after a failed Join.
	Leave(ctx context.Context) error

	// Events delivers transport notifications. Closed after Leave.
	Events() <-chan Event

	// SetAudioEnabled / SetVideoEnabled toggle local publication.
	SetAudioEnabled(enabled bool) error
	SetVideoEnabled(enabled bool) error

	// StartScreenShare / StopScreenShare switch the local video source.
	StartScreenShare(ctx context.Context) error
	StopScreenShare(ctx context.Context) error

	// EnumerateDevices and SelectDevice are best-effort; their failures are
	// reported and must not change session state.
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	SelectDevice(ctx context.Context, deviceID string) error
}
