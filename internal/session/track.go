package session

// TrackKind distinguishes audio and video tracks.
type TrackKind string

const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// TrackState is the transport-reported lifecycle state of a media track.
type TrackState string

const (
	TrackStarting TrackState = "starting"
	TrackLive     TrackState = "live"
	TrackEnded    TrackState = "ended"
)

// MediaTrack is a non-owning reference to one media stream. The transport
// owns the track's lifetime; everything here only reads it.
type MediaTrack struct {
	ID           string
	Kind         TrackKind
	State        TrackState
	SourceHandle interface{} // transport-specific handle, opaque to the registry
}

// ParticipantTracks holds the render targets currently attached for one
// participant.
type ParticipantTracks struct {
	Video *MediaTrack
	Audio *MediaTrack
}

// Participant is one connected call member. Created on join, mutated on
// update events, removed on leave. Owned by the session manager; consumers
// receive copies via Snapshot.
type Participant struct {
	ID           string
	DisplayName  string
	IsLocal      bool
	AudioEnabled bool
	VideoEnabled bool
	Tracks       ParticipantTracks
}
