package session

import "errors"

// Session and device error taxonomy. Each error is surfaced at most once
// through the manager's error callback; they never panic across component
// boundaries.
var (
	// ErrPermissionDenied means camera/mic access was refused. Fatal to
	// joining; retry requires explicit re-consent from the user.
	ErrPermissionDenied = errors.New("media permission denied")

	// ErrDeviceUnavailable means no capture device was found. Fatal to the
	// emotion sampler and to video publishing, but a session may proceed
	// audio-only.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrTransportFailed means the media transport failed; the session moves
	// to StateFailed and the caller decides whether to rejoin.
	ErrTransportFailed = errors.New("transport failed")

	// ErrChannelDisconnected means the telemetry channel dropped. The channel
	// reconnects on its own; call session state is unaffected.
	ErrChannelDisconnected = errors.New("telemetry channel disconnected")

	// ErrClassifierUnavailable means the emotion model failed to load.
	// Emotion tracking is disabled; the call continues normally.
	ErrClassifierUnavailable = errors.New("emotion classifier unavailable")

	// ErrInvalidState is returned when an operation is not legal in the
	// session's current state (e.g. Join while already active).
	ErrInvalidState = errors.New("invalid session state")
)
