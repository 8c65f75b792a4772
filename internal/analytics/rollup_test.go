package analytics_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-lms/backend/internal/analytics"
	"github.com/smart-lms/backend/internal/models"
)

func meetingReport(subjectID, lecturerID uuid.UUID, completed bool, rate float64, emotions map[string]float64, records int) models.MeetingAnalytics {
	return models.MeetingAnalytics{
		MeetingID:  uuid.New(),
		SubjectID:  subjectID,
		LecturerID: lecturerID,
		Completed:  completed,
		Attendance: models.AttendanceAnalytics{AttendanceRate: rate},
		Emotion: models.EmotionAnalytics{
			TotalRecords:              records,
			OverallEmotionPercentages: emotions,
		},
	}
}

func TestComputeSubjectRollup(t *testing.T) {
	subjectID := uuid.New()
	lecturerA := uuid.New()
	lecturerB := uuid.New()

	meetings := []models.MeetingAnalytics{
		meetingReport(subjectID, lecturerA, true, 80, map[string]float64{"happy": 50, "neutral": 50}, 10),
		meetingReport(subjectID, lecturerB, true, 60, map[string]float64{"sad": 100}, 5),
		meetingReport(subjectID, lecturerA, false, 0, nil, 0),
		// Different subject, must be ignored.
		meetingReport(uuid.New(), lecturerA, true, 100, map[string]float64{"happy": 100}, 20),
	}

	rollup := analytics.ComputeSubjectRollup(subjectID, meetings)

	assert.Equal(t, 3, rollup.TotalMeetings)
	assert.Equal(t, 2, rollup.CompletedMeetings)
	assert.InDelta(t, 70.0, rollup.AvgAttendanceRate, 0.0001)
	assert.InDelta(t, 5.0, rollup.AggregatedEmotions["happy"], 0.0001)
	assert.InDelta(t, 5.0, rollup.AggregatedEmotions["neutral"], 0.0001)
	assert.InDelta(t, 5.0, rollup.AggregatedEmotions["sad"], 0.0001)
	assert.Len(t, rollup.DistinctLecturers, 2)
}

func TestComputeSubjectRollupEmpty(t *testing.T) {
	subjectID := uuid.New()
	rollup := analytics.ComputeSubjectRollup(subjectID, nil)

	assert.Equal(t, subjectID, rollup.SubjectID)
	assert.Zero(t, rollup.TotalMeetings)
	assert.Zero(t, rollup.AvgAttendanceRate)
	assert.Empty(t, rollup.AggregatedEmotions)
	assert.Empty(t, rollup.DistinctLecturers)
}

func TestMergeRollupsMatchesSingleFold(t *testing.T) {
	// Rolling up A union B must equal merging the rollup of A with the
	// rollup of B.
	subjectID := uuid.New()
	lecturerA := uuid.New()
	lecturerB := uuid.New()

	setA := []models.MeetingAnalytics{
		meetingReport(subjectID, lecturerA, true, 90, map[string]float64{"happy": 75, "sad": 25}, 8),
		meetingReport(subjectID, lecturerA, false, 0, nil, 0),
	}
	setB := []models.MeetingAnalytics{
		meetingReport(subjectID, lecturerB, true, 50, map[string]float64{"neutral": 100}, 4),
		meetingReport(subjectID, lecturerA, true, 70, map[string]float64{"happy": 50, "angry": 50}, 6),
	}

	combined := analytics.ComputeSubjectRollup(subjectID, append(append([]models.MeetingAnalytics{}, setA...), setB...))
	merged := analytics.MergeRollups(
		analytics.ComputeSubjectRollup(subjectID, setA),
		analytics.ComputeSubjectRollup(subjectID, setB),
	)

	assert.Equal(t, combined.TotalMeetings, merged.TotalMeetings)
	assert.Equal(t, combined.CompletedMeetings, merged.CompletedMeetings)
	assert.InDelta(t, combined.AvgAttendanceRate, merged.AvgAttendanceRate, 0.0001)
	assert.Equal(t, combined.DistinctLecturers, merged.DistinctLecturers)
	require.Len(t, merged.AggregatedEmotions, len(combined.AggregatedEmotions))
	for label, n := range combined.AggregatedEmotions {
		assert.InDelta(t, n, merged.AggregatedEmotions[label], 0.0001, label)
	}
}

func TestMergeRollupsWithEmpty(t *testing.T) {
	subjectID := uuid.New()
	a := analytics.ComputeSubjectRollup(subjectID, []models.MeetingAnalytics{
		meetingReport(subjectID, uuid.New(), true, 80, map[string]float64{"happy": 100}, 3),
	})
	empty := analytics.ComputeSubjectRollup(subjectID, nil)

	merged := analytics.MergeRollups(a, empty)
	assert.Equal(t, a.TotalMeetings, merged.TotalMeetings)
	assert.InDelta(t, a.AvgAttendanceRate, merged.AvgAttendanceRate, 0.0001)
	assert.InDelta(t, a.AggregatedEmotions["happy"], merged.AggregatedEmotions["happy"], 0.0001)
}
