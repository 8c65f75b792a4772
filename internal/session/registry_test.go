package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/session"
)

func TestRegistryAttachIdempotent(t *testing.T) {
	r := session.NewTrackRegistry(zap.NewNop())
	track := &session.MediaTrack{ID: "t-1", Kind: session.TrackVideo, State: session.TrackLive}

	t.Run("first attach changes state", func(t *testing.T) {
		assert.True(t, r.Attach("p-1", session.TrackVideo, track))
		assert.True(t, r.IsAttached("p-1", session.TrackVideo, track))
	})

	t.Run("second attach with same identity is a no-op", func(t *testing.T) {
		assert.False(t, r.Attach("p-1", session.TrackVideo, track))
		assert.True(t, r.IsAttached("p-1", session.TrackVideo, track))
	})
}

func TestRegistryRejectsEndedTrack(t *testing.T) {
	r := session.NewTrackRegistry(zap.NewNop())
	live := &session.MediaTrack{ID: "t-1", Kind: session.TrackVideo, State: session.TrackLive}
	ended := &session.MediaTrack{ID: "t-2", Kind: session.TrackVideo, State: session.TrackEnded}

	assert.True(t, r.Attach("p-1", session.TrackVideo, live))
	assert.False(t, r.Attach("p-1", session.TrackVideo, ended))
	assert.Equal(t, "t-1", r.Rendered("p-1", session.TrackVideo).ID)
}

func TestRegistryReplacesTrackWithNewIdentity(t *testing.T) {
	r := session.NewTrackRegistry(zap.NewNop())
	first := &session.MediaTrack{ID: "t-1", Kind: session.TrackVideo, State: session.TrackLive}
	second := &session.MediaTrack{ID: "t-2", Kind: session.TrackVideo, State: session.TrackLive}

	assert.True(t, r.Attach("p-1", session.TrackVideo, first))
	assert.True(t, r.Attach("p-1", session.TrackVideo, second))
	assert.False(t, r.IsAttached("p-1", session.TrackVideo, first))
	assert.True(t, r.IsAttached("p-1", session.TrackVideo, second))
}

func TestRegistryDetachClearsReferenceOnly(t *testing.T) {
	r := session.NewTrackRegistry(zap.NewNop())
	track := &session.MediaTrack{ID: "t-1", Kind: session.TrackAudio, State: session.TrackLive}

	r.Attach("p-1", session.TrackAudio, track)
	r.Detach("p-1", session.TrackAudio)

	assert.Nil(t, r.Rendered("p-1", session.TrackAudio))
	// The track itself is untouched: the registry never owns lifetime.
	assert.Equal(t, session.TrackLive, track.State)
}

func TestRegistryFlushDropsAllKindsForParticipant(t *testing.T) {
	r := session.NewTrackRegistry(zap.NewNop())
	video := &session.MediaTrack{ID: "v-1", Kind: session.TrackVideo, State: session.TrackLive}
	audio := &session.MediaTrack{ID: "a-1", Kind: session.TrackAudio, State: session.TrackLive}
	other := &session.MediaTrack{ID: "v-2", Kind: session.TrackVideo, State: session.TrackLive}

	r.Attach("p-1", session.TrackVideo, video)
	r.Attach("p-1", session.TrackAudio, audio)
	r.Attach("p-2", session.TrackVideo, other)

	r.Flush("p-1")

	assert.Nil(t, r.Rendered("p-1", session.TrackVideo))
	assert.Nil(t, r.Rendered("p-1", session.TrackAudio))
	assert.NotNil(t, r.Rendered("p-2", session.TrackVideo))
}

func TestRegistryDuplicateDeliveryAttachesOnce(t *testing.T) {
	// Scenario: the same physical track's started event is delivered twice.
	r := session.NewTrackRegistry(zap.NewNop())
	track := &session.MediaTrack{ID: "t-dup", Kind: session.TrackVideo, State: session.TrackLive}

	changed := 0
	for i := 0; i < 2; i++ {
		if r.Attach("p-1", session.TrackVideo, track) {
			changed++
		}
	}
	assert.Equal(t, 1, changed, "two attach calls, one effective change")
}
