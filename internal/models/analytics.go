package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceSummary is the derived per-participant attendance record.
// Recomputed on demand from AttendanceEvents; never the source of truth.
type AttendanceSummary struct {
	ParticipantID        string           `json:"participant_id"`
	DisplayName          string           `json:"display_name,omitempty"`
	Status               AttendanceStatus `json:"status"`
	FirstJoinAt          *time.Time       `json:"first_join_at,omitempty"`
	TotalDurationSeconds int64            `json:"total_duration_seconds"`
	AttendancePercentage float64          `json:"attendance_percentage"`
	RejoinCount          int              `json:"rejoin_count"`
}

// AttendanceAnalytics is the meeting-level attendance report.
type AttendanceAnalytics struct {
	MeetingID       uuid.UUID           `json:"meeting_id"`
	TotalExpected   int                 `json:"total_expected"`
	TotalPresent    int                 `json:"total_present"`
	TotalLate       int                 `json:"total_late"`
	TotalAbsent     int                 `json:"total_absent"`
	AttendanceRate  float64             `json:"attendance_rate"`
	Summaries       []AttendanceSummary `json:"summaries"`
}

// StudentEmotionSummary is one participant's aggregated emotion profile.
type StudentEmotionSummary struct {
	ParticipantID      string             `json:"participant_id"`
	DisplayName        string             `json:"display_name,omitempty"`
	DominantEmotion    string             `json:"dominant_emotion"`
	AvgAttentiveness   float64            `json:"avg_attentiveness"`
	TotalRecords       int                `json:"total_records"`
	EmotionPercentages map[string]float64 `json:"emotion_percentages"`
}

// EmotionAnalytics is the meeting-level emotion report.
type EmotionAnalytics struct {
	MeetingID                 uuid.UUID               `json:"meeting_id"`
	TotalRecords              int                     `json:"total_records"`
	StudentsTracked           int                     `json:"students_tracked"`
	OverallEmotionPercentages map[string]float64      `json:"overall_emotion_percentages"`
	PerStudentSummaries       []StudentEmotionSummary `json:"per_student_summaries"`
}

// MeetingAnalytics pairs one meeting's attendance and emotion reports,
// tagged with the subject for rollups.
type MeetingAnalytics struct {
	MeetingID  uuid.UUID           `json:"meeting_id"`
	SubjectID  uuid.UUID           `json:"subject_id"`
	LecturerID uuid.UUID           `json:"lecturer_id"`
	Completed  bool                `json:"completed"`
	Attendance AttendanceAnalytics `json:"attendance"`
	Emotion    EmotionAnalytics    `json:"emotion"`
}

// SubjectRollup folds many meetings' analytics into one subject-level
// summary for dashboards.
type SubjectRollup struct {
	SubjectID          uuid.UUID          `json:"subject_id"`
	TotalMeetings      int                `json:"total_meetings"`
	CompletedMeetings  int                `json:"completed_meetings"`
	AvgAttendanceRate  float64            `json:"avg_attendance_rate"`
	AggregatedEmotions map[string]float64 `json:"aggregated_emotions"`
	DistinctLecturers  []uuid.UUID        `json:"distinct_lecturers"`
}
