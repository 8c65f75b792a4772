// Package analytics turns raw attendance events and emotion samples into
// the summarized structures dashboards consume. Every transform here is a
// pure function of its inputs: same events in, bit-identical report out.
// Empty input is a valid input and yields zeroed structures, never an error.
package analytics

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/smart-lms/backend/internal/models"
)

// AttendanceParams configures status classification.
type AttendanceParams struct {
	// LateThresholdPercent is the minimum attendance percentage required to
	// be eligible for "present".
	LateThresholdPercent float64
	// LateGrace is how long after meeting start a first join still counts as
	// on time.
	LateGrace time.Duration
}

// MeetingWindow is the meeting metadata the aggregator needs.
type MeetingWindow struct {
	Start                  time.Time
	End                    time.Time
	ExpectedParticipantIDs []string
}

// ComputeAttendance derives per-participant summaries and the meeting-level
// report from an event list. Events are paired chronologically per
// participant; an unmatched join runs to the meeting end, never beyond it,
// so a missing leave event can not push a percentage past 100.
func ComputeAttendance(meetingID uuid.UUID, window MeetingWindow, events []models.AttendanceEvent, params AttendanceParams) models.AttendanceAnalytics {
	out := models.AttendanceAnalytics{
		MeetingID: meetingID,
		Summaries: []models.AttendanceSummary{},
	}

	meetingSeconds := window.End.Sub(window.Start).Seconds()
	if meetingSeconds < 0 {
		meetingSeconds = 0
	}

	byParticipant := make(map[string][]models.AttendanceEvent)
	names := make(map[string]string)
	var order []string
	for _, ev := range events {
		if _, seen := byParticipant[ev.ParticipantID]; !seen {
			order = append(order, ev.ParticipantID)
		}
		byParticipant[ev.ParticipantID] = append(byParticipant[ev.ParticipantID], ev)
		if ev.DisplayName != "" {
			names[ev.ParticipantID] = ev.DisplayName
		}
	}
	sort.Strings(order)

	present := make(map[string]bool)
	for _, id := range order {
		summary := summarizeParticipant(id, byParticipant[id], window, meetingSeconds, params)
		summary.DisplayName = names[id]
		out.Summaries = append(out.Summaries, summary)
		present[id] = true
		switch summary.Status {
		case models.StatusPresent:
			out.TotalPresent++
		case models.StatusLate:
			out.TotalLate++
		}
	}

	// Expected participants with no events at all are absent.
	expected := window.ExpectedParticipantIDs
	for _, id := range sortedUnique(expected) {
		if present[id] {
			continue
		}
		out.Summaries = append(out.Summaries, models.AttendanceSummary{
			ParticipantID: id,
			Status:        models.StatusAbsent,
		})
		out.TotalAbsent++
	}

	out.TotalExpected = len(sortedUnique(expected))
	if out.TotalExpected == 0 {
		out.TotalExpected = len(order)
	}
	if out.TotalExpected > 0 {
		out.AttendanceRate = clampPercent(float64(out.TotalPresent+out.TotalLate) / float64(out.TotalExpected) * 100)
	}
	return out
}

func summarizeParticipant(id string, events []models.AttendanceEvent, window MeetingWindow, meetingSeconds float64, params AttendanceParams) models.AttendanceSummary {
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })

	var (
		firstJoin *time.Time
		joinCount int
		total     float64
		openedAt  *time.Time
	)
	for _, ev := range events {
		switch ev.Type {
		case models.AttendanceJoin:
			joinCount++
			if firstJoin == nil {
				at := ev.At
				firstJoin = &at
			}
			if openedAt == nil {
				at := ev.At
				openedAt = &at
			}
		case models.AttendanceLeave:
			if openedAt != nil {
				total += intervalSeconds(*openedAt, ev.At, window)
				openedAt = nil
			}
		}
	}
	// Unmatched join: the interval closes at meeting end.
	if openedAt != nil {
		total += intervalSeconds(*openedAt, window.End, window)
	}

	summary := models.AttendanceSummary{
		ParticipantID:        id,
		FirstJoinAt:          firstJoin,
		TotalDurationSeconds: int64(total),
		RejoinCount:          maxInt(0, joinCount-1),
		Status:               models.StatusAbsent,
	}
	if meetingSeconds > 0 {
		summary.AttendancePercentage = clampPercent(total / meetingSeconds * 100)
	}
	if firstJoin == nil {
		return summary
	}

	onTime := !firstJoin.After(window.Start.Add(params.LateGrace))
	if summary.AttendancePercentage >= params.LateThresholdPercent && onTime {
		summary.Status = models.StatusPresent
	} else {
		summary.Status = models.StatusLate
	}
	return summary
}

// intervalSeconds measures the overlap of [from, to] with the meeting
// window, so an interval can never contribute more than the meeting itself.
func intervalSeconds(from, to time.Time, window MeetingWindow) float64 {
	if from.Before(window.Start) {
		from = window.Start
	}
	if to.After(window.End) {
		to = window.End
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from).Seconds()
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
