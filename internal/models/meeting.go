package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus is the lifecycle state of a scheduled class meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingLive      MeetingStatus = "live"
	MeetingCompleted MeetingStatus = "completed"
)

// Meeting represents one live class session for a subject.
type Meeting struct {
	ID         uuid.UUID     `json:"id"`
	SubjectID  uuid.UUID     `json:"subject_id"`
	LecturerID uuid.UUID     `json:"lecturer_id"`
	Title      string        `json:"title"`
	Status     MeetingStatus `json:"status"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    *time.Time    `json:"end_time,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Duration returns the meeting length. A meeting without an end time is
// measured up to now.
func (m *Meeting) Duration() time.Duration {
	end := time.Now()
	if m.EndTime != nil {
		end = *m.EndTime
	}
	if end.Before(m.StartTime) {
		return 0
	}
	return end.Sub(m.StartTime)
}
