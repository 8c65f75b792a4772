package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/smart-lms/backend/internal/models"
)

// ComputeSubjectRollup folds many meetings' analytics into one subject
// summary. Only meetings tagged with the subject contribute; meetings not
// yet completed are counted in TotalMeetings but excluded from the
// attendance-rate average. AggregatedEmotions holds label counts, not
// percentages, so merging two rollups stays exact.
func ComputeSubjectRollup(subjectID uuid.UUID, meetings []models.MeetingAnalytics) models.SubjectRollup {
	out := models.SubjectRollup{
		SubjectID:          subjectID,
		AggregatedEmotions: map[string]float64{},
		DistinctLecturers:  []uuid.UUID{},
	}

	lecturers := make(map[uuid.UUID]struct{})
	var rateSum float64
	for _, m := range meetings {
		if m.SubjectID != subjectID {
			continue
		}
		out.TotalMeetings++
		if m.LecturerID != uuid.Nil {
			lecturers[m.LecturerID] = struct{}{}
		}
		if m.Completed {
			out.CompletedMeetings++
			rateSum += m.Attendance.AttendanceRate
		}
		// Re-derive counts from percentages and record totals so the fold
		// sums sample counts across meetings.
		for label, pct := range m.Emotion.OverallEmotionPercentages {
			out.AggregatedEmotions[label] += pct / 100 * float64(m.Emotion.TotalRecords)
		}
	}

	if out.CompletedMeetings > 0 {
		out.AvgAttendanceRate = rateSum / float64(out.CompletedMeetings)
	}
	for id := range lecturers {
		out.DistinctLecturers = append(out.DistinctLecturers, id)
	}
	sort.Slice(out.DistinctLecturers, func(i, j int) bool {
		return out.DistinctLecturers[i].String() < out.DistinctLecturers[j].String()
	})
	return out
}

// MergeRollups combines two rollups for the same subject. The fold is
// associative: merging rollups over meeting sets A and B equals the rollup
// over A union B.
func MergeRollups(a, b models.SubjectRollup) models.SubjectRollup {
	out := models.SubjectRollup{
		SubjectID:          a.SubjectID,
		TotalMeetings:      a.TotalMeetings + b.TotalMeetings,
		CompletedMeetings:  a.CompletedMeetings + b.CompletedMeetings,
		AggregatedEmotions: map[string]float64{},
		DistinctLecturers:  []uuid.UUID{},
	}
	if out.CompletedMeetings > 0 {
		out.AvgAttendanceRate = (a.AvgAttendanceRate*float64(a.CompletedMeetings) +
			b.AvgAttendanceRate*float64(b.CompletedMeetings)) / float64(out.CompletedMeetings)
	}
	for label, n := range a.AggregatedEmotions {
		out.AggregatedEmotions[label] += n
	}
	for label, n := range b.AggregatedEmotions {
		out.AggregatedEmotions[label] += n
	}
	seen := make(map[uuid.UUID]struct{})
	for _, set := range [][]uuid.UUID{a.DistinctLecturers, b.DistinctLecturers} {
		for _, id := range set {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				out.DistinctLecturers = append(out.DistinctLecturers, id)
			}
		}
	}
	sort.Slice(out.DistinctLecturers, func(i, j int) bool {
		return out.DistinctLecturers[i].String() < out.DistinctLecturers[j].String()
	})
	return out
}
