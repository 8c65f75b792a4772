package analytics_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lms/backend/internal/analytics"
	"github.com/smart-lms/backend/internal/models"
)

var defaultParams = analytics.AttendanceParams{
	LateThresholdPercent: 75,
	LateGrace:            10 * time.Minute,
}

func window(start, end time.Time, expected ...string) analytics.MeetingWindow {
	return analytics.MeetingWindow{Start: start, End: end, ExpectedParticipantIDs: expected}
}

func event(meetingID uuid.UUID, participantID string, typ models.AttendanceEventType, at time.Time) models.AttendanceEvent {
	return models.AttendanceEvent{MeetingID: meetingID, ParticipantID: participantID, Type: typ, At: at}
}

func TestComputeAttendanceSingleStudent(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []models.AttendanceEvent{
		event(meetingID, "s-1", models.AttendanceJoin, start.Add(5*time.Minute)),
		event(meetingID, "s-1", models.AttendanceLeave, start.Add(50*time.Minute)),
	}

	report := analytics.ComputeAttendance(meetingID, window(start, end, "s-1"), events, defaultParams)

	require.Len(t, report.Summaries, 1)
	s := report.Summaries[0]
	assert.Equal(t, int64(2700), s.TotalDurationSeconds)
	assert.InDelta(t, 75.0, s.AttendancePercentage, 0.0001)
	assert.Equal(t, 0, s.RejoinCount)
	assert.Equal(t, models.StatusPresent, s.Status)
	require.NotNil(t, s.FirstJoinAt)
	assert.Equal(t, start.Add(5*time.Minute), *s.FirstJoinAt)
}

func TestComputeAttendanceStatusClassification(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("late join past grace", func(t *testing.T) {
		events := []models.AttendanceEvent{
			event(meetingID, "s-1", models.AttendanceJoin, start.Add(15*time.Minute)),
			event(meetingID, "s-1", models.AttendanceLeave, end),
		}
		report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
		require.Len(t, report.Summaries, 1)
		assert.Equal(t, models.StatusLate, report.Summaries[0].Status)
	})

	t.Run("on time but below threshold", func(t *testing.T) {
		events := []models.AttendanceEvent{
			event(meetingID, "s-1", models.AttendanceJoin, start),
			event(meetingID, "s-1", models.AttendanceLeave, start.Add(20*time.Minute)),
		}
		report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
		require.Len(t, report.Summaries, 1)
		assert.Equal(t, models.StatusLate, report.Summaries[0].Status)
	})

	t.Run("expected but never joined is absent", func(t *testing.T) {
		report := analytics.ComputeAttendance(meetingID, window(start, end, "s-ghost"), nil, defaultParams)
		require.Len(t, report.Summaries, 1)
		assert.Equal(t, models.StatusAbsent, report.Summaries[0].Status)
		assert.Equal(t, 1, report.TotalAbsent)
	})
}

func TestComputeAttendanceRejoins(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []models.AttendanceEvent{
		event(meetingID, "s-1", models.AttendanceJoin, start),
		event(meetingID, "s-1", models.AttendanceLeave, start.Add(10*time.Minute)),
		event(meetingID, "s-1", models.AttendanceJoin, start.Add(20*time.Minute)),
		event(meetingID, "s-1", models.AttendanceLeave, start.Add(40*time.Minute)),
		event(meetingID, "s-1", models.AttendanceJoin, start.Add(45*time.Minute)),
		event(meetingID, "s-1", models.AttendanceLeave, end),
	}

	report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
	require.Len(t, report.Summaries, 1)
	s := report.Summaries[0]
	assert.Equal(t, 2, s.RejoinCount)
	assert.Equal(t, int64(2700), s.TotalDurationSeconds) // 10 + 20 + 15 minutes
}

func TestComputeAttendanceUnmatchedJoin(t *testing.T) {
	// A crashed client never sends leave; the open interval runs to meeting
	// end and no further.
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []models.AttendanceEvent{
		event(meetingID, "s-1", models.AttendanceJoin, start.Add(30*time.Minute)),
	}

	report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
	require.Len(t, report.Summaries, 1)
	s := report.Summaries[0]
	assert.Equal(t, int64(1800), s.TotalDurationSeconds)
	assert.InDelta(t, 50.0, s.AttendancePercentage, 0.0001)
}

func TestComputeAttendancePercentageBounds(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("events outside the window are clipped", func(t *testing.T) {
		events := []models.AttendanceEvent{
			event(meetingID, "s-1", models.AttendanceJoin, start.Add(-30*time.Minute)),
			event(meetingID, "s-1", models.AttendanceLeave, end.Add(30*time.Minute)),
		}
		report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
		require.Len(t, report.Summaries, 1)
		assert.InDelta(t, 100.0, report.Summaries[0].AttendancePercentage, 0.0001)
		assert.Equal(t, int64(3600), report.Summaries[0].TotalDurationSeconds)
	})

	t.Run("leave before join contributes nothing", func(t *testing.T) {
		events := []models.AttendanceEvent{
			event(meetingID, "s-1", models.AttendanceLeave, start.Add(5*time.Minute)),
			event(meetingID, "s-1", models.AttendanceJoin, start.Add(50*time.Minute)),
			event(meetingID, "s-1", models.AttendanceLeave, start.Add(55*time.Minute)),
		}
		report := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
		require.Len(t, report.Summaries, 1)
		assert.Equal(t, int64(300), report.Summaries[0].TotalDurationSeconds)
	})
}

func TestComputeAttendanceZeroDuration(t *testing.T) {
	// A window with End == Start must not divide by zero.
	meetingID := uuid.New()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	events := []models.AttendanceEvent{
		event(meetingID, "s-1", models.AttendanceJoin, at),
	}
	report := analytics.ComputeAttendance(meetingID, window(at, at), events, defaultParams)
	require.Len(t, report.Summaries, 1)
	assert.Zero(t, report.Summaries[0].AttendancePercentage)
}

func TestComputeAttendanceEmptyInput(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	report := analytics.ComputeAttendance(meetingID, window(start, start.Add(time.Hour)), nil, defaultParams)

	assert.Equal(t, meetingID, report.MeetingID)
	assert.Empty(t, report.Summaries)
	assert.Zero(t, report.TotalExpected)
	assert.Zero(t, report.AttendanceRate)
}

func TestComputeAttendanceMeetingRate(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []models.AttendanceEvent{
		event(meetingID, "s-1", models.AttendanceJoin, start),
		event(meetingID, "s-1", models.AttendanceLeave, end),
		event(meetingID, "s-2", models.AttendanceJoin, start.Add(20*time.Minute)),
		event(meetingID, "s-2", models.AttendanceLeave, end),
	}

	report := analytics.ComputeAttendance(meetingID, window(start, end, "s-1", "s-2", "s-3", "s-4"), events, defaultParams)

	assert.Equal(t, 4, report.TotalExpected)
	assert.Equal(t, 1, report.TotalPresent)
	assert.Equal(t, 1, report.TotalLate)
	assert.Equal(t, 2, report.TotalAbsent)
	assert.InDelta(t, 50.0, report.AttendanceRate, 0.0001)
}

func TestComputeAttendanceDeterministic(t *testing.T) {
	meetingID := uuid.New()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	events := []models.AttendanceEvent{
		event(meetingID, "s-2", models.AttendanceJoin, start),
		event(meetingID, "s-1", models.AttendanceJoin, start.Add(time.Minute)),
		event(meetingID, "s-2", models.AttendanceLeave, end),
		event(meetingID, "s-1", models.AttendanceLeave, end),
	}

	first := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
	for i := 0; i < 5; i++ {
		again := analytics.ComputeAttendance(meetingID, window(start, end), events, defaultParams)
		assert.Equal(t, first, again)
	}
	require.Len(t, first.Summaries, 2)
	assert.Equal(t, "s-1", first.Summaries[0].ParticipantID, "summaries sorted by participant")
}
