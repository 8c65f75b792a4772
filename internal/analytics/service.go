package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/smart-lms/backend/internal/attendance"
	"github.com/smart-lms/backend/internal/emotions"
	"github.com/smart-lms/backend/internal/meetings"
	"github.com/smart-lms/backend/internal/models"
)

// Service runs the aggregator over stored events and samples. Fetching is
// the only impure part; everything downstream of the repositories is the
// pure transforms in this package.
type Service struct {
	meetingRepo    *meetings.Repository
	attendanceRepo *attendance.Repository
	emotionRepo    *emotions.Repository
	params         AttendanceParams
	weights        map[string]float64
}

// NewService creates an analytics service.
func NewService(
	meetingRepo *meetings.Repository,
	attendanceRepo *attendance.Repository,
	emotionRepo *emotions.Repository,
	params AttendanceParams,
	weights map[string]float64,
) *Service {
	return &Service{
		meetingRepo:    meetingRepo,
		attendanceRepo: attendanceRepo,
		emotionRepo:    emotionRepo,
		params:         params,
		weights:        weights,
	}
}

// MeetingAnalytics builds the full report for one meeting, in progress or
// completed.
func (s *Service) MeetingAnalytics(ctx context.Context, meetingID uuid.UUID) (*models.MeetingAnalytics, error) {
	meeting, err := s.meetingRepo.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	window := MeetingWindow{Start: meeting.StartTime}
	if meeting.EndTime != nil {
		window.End = *meeting.EndTime
	} else {
		window.End = meeting.StartTime.Add(meeting.Duration())
	}

	expected, err := s.meetingRepo.ExpectedParticipants(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("expected participants: %w", err)
	}
	window.ExpectedParticipantIDs = expected

	events, err := s.attendanceRepo.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("attendance events: %w", err)
	}
	samples, err := s.emotionRepo.ListByMeeting(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("emotion samples: %w", err)
	}

	return &models.MeetingAnalytics{
		MeetingID:  meetingID,
		SubjectID:  meeting.SubjectID,
		LecturerID: meeting.LecturerID,
		Completed:  meeting.Status == models.MeetingCompleted,
		Attendance: ComputeAttendance(meetingID, window, events, s.params),
		Emotion:    ComputeEmotion(meetingID, samples, s.weights),
	}, nil
}

// SubjectRollup folds every meeting of a subject into one summary.
func (s *Service) SubjectRollup(ctx context.Context, subjectID uuid.UUID) (*models.SubjectRollup, error) {
	list, err := s.meetingRepo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	var all []models.MeetingAnalytics
	for _, m := range list {
		ma, err := s.MeetingAnalytics(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("meeting %s: %w", m.ID, err)
		}
		all = append(all, *ma)
	}
	rollup := ComputeSubjectRollup(subjectID, all)
	return &rollup, nil
}
