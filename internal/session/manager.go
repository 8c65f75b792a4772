package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateJoining State = "joining"
	StateActive  State = "active"
	StateLeaving State = "leaving"
	StateEnded   State = "ended"
	StateFailed  State = "failed"
)

// Snapshot is a read-only copy of session state handed to subscribers.
// Consumers never see (or mutate) the manager's own maps.
type Snapshot struct {
	State        State
	Err          error
	Participants []Participant
}

// Manager owns the participant set for one live session and drives track
// attachment against the registry. It applies transport events and, for
// every track-started, schedules a bounded ladder of attachment attempts:
// track negotiation and render-target mount are not ordered, so the first
// attempt may land before there is anywhere to render. A silent video tile
// is the failure mode the ladder defends against.
type Manager struct {
	mu           sync.Mutex
	state        State
	err          error
	participants map[string]*Participant
	localID      string

	registry  *TrackRegistry
	transport Transport
	delays    []time.Duration

	retries map[string][]*time.Timer // track ID -> pending attach timers
	subs    []chan Snapshot
	done    chan struct{}
	log     *zap.Logger

	// RenderTarget is invoked on the first successful attach of a track so
	// the UI layer can wire the source handle. Optional.
	RenderTarget func(participantID string, kind TrackKind, track *MediaTrack)
}

// NewManager creates an idle session manager.
func NewManager(transport Transport, registry *TrackRegistry, attachDelays []time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if len(attachDelays) == 0 {
		attachDelays = []time.Duration{0, 250 * time.Millisecond, time.Second, 3 * time.Second}
	}
	return &Manager{
		state:        StateIdle,
		participants: make(map[string]*Participant),
		registry:     registry,
		transport:    transport,
		delays:       attachDelays,
		retries:      make(map[string][]*time.Timer),
		log:          log,
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the single error reason after a transition to StateFailed.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Snapshot returns a copy of the current session state and participants.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel receiving a Snapshot after every state
// change. Slow subscribers miss intermediate snapshots instead of blocking
// the event loop.
func (m *Manager) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Join connects to a room: idle -> joining -> active. Registers the local
// participant on success and starts consuming transport events; on
// transport error the session ends in StateFailed.
func (m *Manager) Join(ctx context.Context, roomRef, credential, displayName string) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return ErrInvalidState
	}
	m.state = StateJoining
	m.done = make(chan struct{})
	m.notifyLocked()
	m.mu.Unlock()

	localID, err := m.transport.Join(ctx, roomRef, credential, displayName)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	if m.state != StateJoining {
		// Torn down while the transport was negotiating. Ended is terminal;
		// release the connection instead of resurrecting the session.
		m.mu.Unlock()
		_ = m.transport.Leave(ctx)
		return ErrInvalidState
	}
	m.state = StateActive
	m.localID = localID
	m.participants[localID] = &Participant{
		ID:           localID,
		DisplayName:  displayName,
		IsLocal:      true,
		AudioEnabled: true,
		VideoEnabled: true,
	}
	m.notifyLocked()
	m.mu.Unlock()

	go m.consumeEvents()
	m.log.Info("session active", zap.String("room", roomRef), zap.String("local_id", localID))
	return nil
}

// Leave tears the session down: active -> leaving -> ended. Cancels every
// pending attachment retry, flushes the registry for all participants and
// closes the transport. No-op from idle, ended and failed so component
// teardown can call it unconditionally.
func (m *Manager) Leave(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateIdle, StateEnded, StateFailed, StateLeaving:
		m.mu.Unlock()
		return nil
	}
	m.state = StateLeaving
	m.cancelAllRetriesLocked()
	for id := range m.participants {
		m.registry.Flush(id)
	}
	m.participants = make(map[string]*Participant)
	done := m.done
	m.done = nil
	m.notifyLocked()
	m.mu.Unlock()

	if done != nil {
		close(done)
	}
	err := m.transport.Leave(ctx)

	m.mu.Lock()
	m.state = StateEnded
	m.notifyLocked()
	m.mu.Unlock()
	m.log.Info("session ended")
	return err
}

// SetAudioEnabled toggles the local audio flag and forwards to the
// transport. Session state is unchanged.
func (m *Manager) SetAudioEnabled(enabled bool) error {
	m.mu.Lock()
	if p, ok := m.participants[m.localID]; ok {
		p.AudioEnabled = enabled
	}
	m.notifyLocked()
	m.mu.Unlock()
	return m.transport.SetAudioEnabled(enabled)
}

// SetVideoEnabled toggles the local video flag and forwards to the
// transport. Session state is unchanged.
func (m *Manager) SetVideoEnabled(enabled bool) error {
	m.mu.Lock()
	if p, ok := m.participants[m.localID]; ok {
		p.VideoEnabled = enabled
	}
	m.notifyLocked()
	m.mu.Unlock()
	return m.transport.SetVideoEnabled(enabled)
}

// StartScreenShare switches the local video source. Best-effort: a failure
// is returned to the caller and nothing else changes.
func (m *Manager) StartScreenShare(ctx context.Context) error {
	return m.transport.StartScreenShare(ctx)
}

// StopScreenShare reverts to the camera source.
func (m *Manager) StopScreenShare(ctx context.Context) error {
	return m.transport.StopScreenShare(ctx)
}

// EnumerateDevices lists capture devices. Best-effort: errors are returned,
// session state never changes, and retry is the caller's decision.
func (m *Manager) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	return m.transport.EnumerateDevices(ctx)
}

// SelectDevice switches the capture device. Same best-effort semantics as
// EnumerateDevices.
func (m *Manager) SelectDevice(ctx context.Context, deviceID string) error {
	return m.transport.SelectDevice(ctx, deviceID)
}

// Apply processes one transport event. Exposed for the event loop and for
// tests driving the manager directly.
func (m *Manager) Apply(ev Event) {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventParticipantJoined:
		if _, ok := m.participants[ev.ParticipantID]; !ok {
			m.participants[ev.ParticipantID] = &Participant{
				ID:           ev.ParticipantID,
				DisplayName:  ev.DisplayName,
				AudioEnabled: ev.AudioEnabled,
				VideoEnabled: ev.VideoEnabled,
			}
		}
		m.notifyLocked()
		m.mu.Unlock()

	case EventParticipantLeft:
		delete(m.participants, ev.ParticipantID)
		m.registry.Flush(ev.ParticipantID)
		m.notifyLocked()
		m.mu.Unlock()

	case EventParticipantUpdated:
		if p, ok := m.participants[ev.ParticipantID]; ok {
			p.AudioEnabled = ev.AudioEnabled
			p.VideoEnabled = ev.VideoEnabled
			if ev.VideoEnabled {
				m.registry.Expect(ev.ParticipantID, TrackVideo)
			}
			if ev.AudioEnabled {
				m.registry.Expect(ev.ParticipantID, TrackAudio)
			}
		}
		m.notifyLocked()
		m.mu.Unlock()

	case EventTrackStarted:
		if ev.Track == nil {
			m.mu.Unlock()
			return
		}
		m.scheduleAttachLocked(ev.ParticipantID, ev.Track)
		m.mu.Unlock()

	case EventTrackStopped:
		if ev.Track != nil {
			m.cancelRetriesLocked(ev.Track.ID)
			m.registry.Detach(ev.ParticipantID, ev.Track.Kind)
			if p, ok := m.participants[ev.ParticipantID]; ok {
				switch ev.Track.Kind {
				case TrackVideo:
					p.Tracks.Video = nil
				case TrackAudio:
					p.Tracks.Audio = nil
				}
			}
		}
		m.notifyLocked()
		m.mu.Unlock()

	case EventTransportError:
		m.mu.Unlock()
		m.fail(ev.Err)

	default:
		m.mu.Unlock()
	}
}

func (m *Manager) consumeEvents() {
	events := m.transport.Events()
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.Apply(ev)
		}
	}
}

// scheduleAttachLocked arms the retry ladder for a started track. Each rung
// re-attempts attachment; the ladder disarms on success, on track end and on
// session teardown. Called with m.mu held.
func (m *Manager) scheduleAttachLocked(participantID string, track *MediaTrack) {
	m.cancelRetriesLocked(track.ID)
	timers := make([]*time.Timer, 0, len(m.delays))
	for _, d := range m.delays {
		t := time.AfterFunc(d, func() {
			m.tryAttach(participantID, track)
		})
		timers = append(timers, t)
	}
	m.retries[track.ID] = timers
}

func (m *Manager) tryAttach(participantID string, track *MediaTrack) {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}
	if track.State == TrackEnded {
		m.cancelRetriesLocked(track.ID)
		m.mu.Unlock()
		return
	}
	if m.registry.IsAttached(participantID, track.Kind, track) {
		m.cancelRetriesLocked(track.ID)
		m.mu.Unlock()
		return
	}
	attached := m.registry.Attach(participantID, track.Kind, track)
	if !attached {
		// Registry refused (ended or duplicate); remaining rungs retry.
		m.mu.Unlock()
		return
	}
	m.cancelRetriesLocked(track.ID)
	if p, ok := m.participants[participantID]; ok {
		switch track.Kind {
		case TrackVideo:
			p.Tracks.Video = track
		case TrackAudio:
			p.Tracks.Audio = track
		}
	}
	render := m.RenderTarget
	m.notifyLocked()
	m.mu.Unlock()

	if render != nil {
		render(participantID, track.Kind, track)
	}
	m.log.Debug("track attached",
		zap.String("participant_id", participantID),
		zap.String("kind", string(track.Kind)),
		zap.String("track_id", track.ID))
}

// PendingRetries reports how many tracks still have armed attach timers.
// Used by teardown tests to assert the ladder was cancelled.
func (m *Manager) PendingRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retries)
}

func (m *Manager) cancelRetriesLocked(trackID string) {
	for _, t := range m.retries[trackID] {
		t.Stop()
	}
	delete(m.retries, trackID)
}

func (m *Manager) cancelAllRetriesLocked() {
	for id, timers := range m.retries {
		for _, t := range timers {
			t.Stop()
		}
		delete(m.retries, id)
	}
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.state == StateJoining || m.state == StateActive {
		m.state = StateFailed
		m.err = err
		m.cancelAllRetriesLocked()
		m.notifyLocked()
	}
	done := m.done
	m.done = nil
	m.mu.Unlock()
	if done != nil {
		close(done)
	}
	m.log.Warn("session failed", zap.Error(err))
}

func (m *Manager) snapshotLocked() Snapshot {
	parts := make([]Participant, 0, len(m.participants))
	for _, p := range m.participants {
		parts = append(parts, *p)
	}
	return Snapshot{State: m.state, Err: m.err, Participants: parts}
}

func (m *Manager) notifyLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			// subscriber lagging, drop
		}
	}
}
