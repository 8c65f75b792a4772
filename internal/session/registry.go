package session

import (
	"sync"

	"go.uber.org/zap"
)

type registryKey struct {
	participantID string
	kind          TrackKind
}

type registryEntry struct {
	expected bool
	rendered *MediaTrack // last track handed to the render target, nil if none
}

// TrackRegistry maps (participant, kind) to the track currently wired to a
// render target. It never owns track lifetime: Detach clears the render
// reference without stopping anything, and an entry only ever holds a
// reference the transport gave us.
//
// Attach is idempotent and tolerates duplicate or late events, which is what
// lets the session manager fire the same attachment attempt several times
// from its retry ladder without corrupting render state.
type TrackRegistry struct {
	mu      sync.Mutex
	entries map[registryKey]*registryEntry
	log     *zap.Logger
}

// NewTrackRegistry creates an empty registry.
func NewTrackRegistry(log *zap.Logger) *TrackRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrackRegistry{
		entries: make(map[registryKey]*registryEntry),
		log:     log,
	}
}

// Expect records that a track of the given kind is anticipated for the
// participant (e.g. after a participant-updated event flips a media flag).
func (r *TrackRegistry) Expect(participantID string, kind TrackKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(participantID, kind).expected = true
}

// Attach wires track as the render target for (participantID, kind).
// Returns true when the rendered reference changed.
//
// A second Attach with the same live track identity is a no-op so duplicate
// track-started deliveries do not flicker the tile. A track already in the
// ended state never replaces the rendered reference.
func (r *TrackRegistry) Attach(participantID string, kind TrackKind, track *MediaTrack) bool {
	if track == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if track.State == TrackEnded {
		r.log.Debug("rejecting ended track",
			zap.String("participant_id", participantID),
			zap.String("kind", string(kind)),
			zap.String("track_id", track.ID))
		return false
	}

	e := r.entry(participantID, kind)
	if e.rendered != nil && e.rendered.ID == track.ID && e.rendered.State == TrackLive {
		return false // same identity already live, no-op
	}
	e.rendered = track
	e.expected = false
	return true
}

// IsAttached reports whether track is the current render target for
// (participantID, kind).
func (r *TrackRegistry) IsAttached(participantID string, kind TrackKind, track *MediaTrack) bool {
	if track == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[registryKey{participantID, kind}]
	return ok && e.rendered != nil && e.rendered.ID == track.ID
}

// Detach clears the render target without signaling the transport. The
// track keeps running if the transport says so; only the reference is gone.
func (r *TrackRegistry) Detach(participantID string, kind TrackKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[registryKey{participantID, kind}]; ok {
		e.rendered = nil
	}
}

// Flush drops every entry for a participant. Used on participant-left and
// session teardown.
func (r *TrackRegistry) Flush(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.entries {
		if k.participantID == participantID {
			delete(r.entries, k)
		}
	}
}

// Rendered returns the current render target for (participantID, kind),
// or nil.
func (r *TrackRegistry) Rendered(participantID string, kind TrackKind) *MediaTrack {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[registryKey{participantID, kind}]; ok {
		return e.rendered
	}
	return nil
}

func (r *TrackRegistry) entry(participantID string, kind TrackKind) *registryEntry {
	k := registryKey{participantID, kind}
	e, ok := r.entries[k]
	if !ok {
		e = &registryEntry{}
		r.entries[k] = e
	}
	return e
}
