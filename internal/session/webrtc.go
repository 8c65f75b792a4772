package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Signaler carries SDP negotiation and room presence notifications for the
// WebRTC transport. The telemetry channel (or any signaling socket)
// implements it; the transport never opens its own connection.
type Signaler interface {
	// Exchange sends the local offer and returns the remote answer.
	Exchange(ctx context.Context, offer webrtc.SessionDescription) (webrtc.SessionDescription, error)
	// Notifications delivers participant presence events observed by the
	// signaling layer.
	Notifications() <-chan Event
}

// LocalMedia holds the locally published tracks and the devices the host
// process can offer. All fields are optional; a nil video track simply means
// no video is published.
type LocalMedia struct {
	Audio   webrtc.TrackLocal
	Video   webrtc.TrackLocal
	Screen  webrtc.TrackLocal
	Devices []DeviceInfo
}

// WebRTCTransport implements Transport over a pion peer connection. It is
// one participant's media leg: remote tracks surface as track-started
// events, local tracks are published through the negotiated senders.
type WebRTCTransport struct {
	cfg      webrtc.Configuration
	signaler Signaler
	media    LocalMedia
	log      *zap.Logger

	mu          sync.Mutex
	pc          *webrtc.PeerConnection
	audioSender *webrtc.RTPSender
	videoSender *webrtc.RTPSender
	sharing     bool
	events      chan Event
	closed      bool
}

// NewWebRTCTransport creates a transport using the given ICE servers.
func NewWebRTCTransport(iceURLs []string, signaler Signaler, media LocalMedia, log *zap.Logger) *WebRTCTransport {
	if log == nil {
		log = zap.NewNop()
	}
	servers := make([]webrtc.ICEServer, 0, len(iceURLs))
	for _, u := range iceURLs {
		if u != "" {
			servers = append(servers, webrtc.ICEServer{URLs: []string{u}})
		}
	}
	if len(servers) == 0 {
		servers = []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	}
	return &WebRTCTransport{
		cfg:      webrtc.Configuration{ICEServers: servers},
		signaler: signaler,
		media:    media,
		log:      log,
		events:   make(chan Event, 64),
	}
}

// Join negotiates the peer connection and starts forwarding remote track
// and presence events.
func (t *WebRTCTransport) Join(ctx context.Context, roomRef, credential, displayName string) (string, error) {
	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return "", fmt.Errorf("register codecs: %w", err)
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine))
	pc, err := api.NewPeerConnection(t.cfg)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		kind := TrackAudio
		if remote.Kind() == webrtc.RTPCodecTypeVideo {
			kind = TrackVideo
		}
		t.emit(Event{
			Type:          EventTrackStarted,
			ParticipantID: remote.StreamID(),
			Track: &MediaTrack{
				ID:           remote.ID(),
				Kind:         kind,
				State:        TrackLive,
				SourceHandle: remote,
			},
		})
	})

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		if s == webrtc.ICEConnectionStateFailed {
			t.emit(Event{Type: EventTransportError, Err: ErrTransportFailed})
		}
	})

	if t.media.Audio != nil {
		sender, err := pc.AddTrack(t.media.Audio)
		if err != nil {
			_ = pc.Close()
			return "", fmt.Errorf("add audio track: %w", err)
		}
		t.audioSender = sender
	}
	if t.media.Video != nil {
		sender, err := pc.AddTrack(t.media.Video)
		if err != nil {
			_ = pc.Close()
			return "", fmt.Errorf("add video track: %w", err)
		}
		t.videoSender = sender
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}
	answer, err := t.signaler.Exchange(ctx, offer)
	if err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		_ = pc.Close()
		return "", fmt.Errorf("%w: %v", ErrTransportFailed, err)
	}

	t.mu.Lock()
	t.pc = pc
	t.mu.Unlock()

	go t.forwardNotifications()

	localID := uuid.New().String()
	t.log.Info("webrtc transport joined", zap.String("room", roomRef), zap.String("local_id", localID))
	return localID, nil
}

// Leave closes the peer connection and the event stream.
func (t *WebRTCTransport) Leave(ctx context.Context) error {
	t.mu.Lock()
	pc := t.pc
	t.pc = nil
	if !t.closed {
		t.closed = true
		close(t.events)
	}
	t.mu.Unlock()

	if pc != nil {
		return pc.Close()
	}
	return nil
}

// Events returns the transport event stream.
func (t *WebRTCTransport) Events() <-chan Event {
	return t.events
}

// SetAudioEnabled mutes or unmutes the published audio track by swapping
// the sender's track.
func (t *WebRTCTransport) SetAudioEnabled(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.audioSender == nil {
		return nil
	}
	if enabled {
		return t.audioSender.ReplaceTrack(t.media.Audio)
	}
	return t.audioSender.ReplaceTrack(nil)
}

// SetVideoEnabled mutes or unmutes the published video track.
func (t *WebRTCTransport) SetVideoEnabled(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.videoSender == nil {
		return nil
	}
	if enabled {
		if t.sharing && t.media.Screen != nil {
			return t.videoSender.ReplaceTrack(t.media.Screen)
		}
		return t.videoSender.ReplaceTrack(t.media.Video)
	}
	return t.videoSender.ReplaceTrack(nil)
}

// StartScreenShare swaps the video sender to the screen track.
func (t *WebRTCTransport) StartScreenShare(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.videoSender == nil || t.media.Screen == nil {
		return ErrDeviceUnavailable
	}
	if err := t.videoSender.ReplaceTrack(t.media.Screen); err != nil {
		return err
	}
	t.sharing = true
	return nil
}

// StopScreenShare reverts the video sender to the camera track.
func (t *WebRTCTransport) StopScreenShare(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.videoSender == nil {
		return nil
	}
	if err := t.videoSender.ReplaceTrack(t.media.Video); err != nil {
		return err
	}
	t.sharing = false
	return nil
}

// EnumerateDevices returns the devices the host process offers.
func (t *WebRTCTransport) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	out := make([]DeviceInfo, len(t.media.Devices))
	copy(out, t.media.Devices)
	return out, nil
}

// SelectDevice validates the device exists. Actual source switching is the
// media pipeline's job; an unknown ID is reported without touching state.
func (t *WebRTCTransport) SelectDevice(ctx context.Context, deviceID string) error {
	for _, d := range t.media.Devices {
		if d.ID == deviceID {
			return nil
		}
	}
	return ErrDeviceUnavailable
}

func (t *WebRTCTransport) forwardNotifications() {
	for ev := range t.signaler.Notifications() {
		t.emit(ev)
	}
}

func (t *WebRTCTransport) emit(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		t.log.Warn("transport event dropped", zap.String("type", string(ev.Type)))
	}
}
