package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceEventType marks a join or leave event.
type AttendanceEventType string

const (
	AttendanceJoin  AttendanceEventType = "join"
	AttendanceLeave AttendanceEventType = "leave"
)

// AttendanceEvent is one append-only join/leave record for a participant
// in a meeting. Intervals are derived from consecutive join/leave pairs;
// events are never updated in place.
type AttendanceEvent struct {
	ID            uuid.UUID           `json:"id,omitempty"`
	MeetingID     uuid.UUID           `json:"meeting_id"`
	ParticipantID string              `json:"participant_id"`
	DisplayName   string              `json:"display_name,omitempty"`
	Type          AttendanceEventType `json:"type"`
	At            time.Time           `json:"at"`
}

// AttendanceStatus classifies a participant's presence in a meeting.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusLate    AttendanceStatus = "late"
	StatusAbsent  AttendanceStatus = "absent"
)
