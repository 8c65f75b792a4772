package analytics

import (
	"sort"

	"github.com/google/uuid"

	"github.com/smart-lms/backend/internal/models"
)

// ComputeEmotion derives per-participant and meeting-level emotion reports
// from a sample list. Samples with faceDetected=false are counted, not
// discarded: their dominant label (neutral) participates in every
// percentage like any other sample.
func ComputeEmotion(meetingID uuid.UUID, samples []models.EmotionSample, weights map[string]float64) models.EmotionAnalytics {
	out := models.EmotionAnalytics{
		MeetingID:                 meetingID,
		TotalRecords:              len(samples),
		OverallEmotionPercentages: map[string]float64{},
		PerStudentSummaries:       []models.StudentEmotionSummary{},
	}
	if len(samples) == 0 {
		return out
	}

	overall := make(map[string]int)
	byParticipant := make(map[string][]models.EmotionSample)
	names := make(map[string]string)
	for _, s := range samples {
		label := dominantOf(s)
		overall[label]++
		byParticipant[s.ParticipantID] = append(byParticipant[s.ParticipantID], s)
		if s.DisplayName != "" {
			names[s.ParticipantID] = s.DisplayName
		}
	}
	out.StudentsTracked = len(byParticipant)
	out.OverallEmotionPercentages = percentages(overall, len(samples))

	ids := make([]string, 0, len(byParticipant))
	for id := range byParticipant {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		out.PerStudentSummaries = append(out.PerStudentSummaries, summarizeStudent(id, names[id], byParticipant[id], weights))
	}
	return out
}

func summarizeStudent(id, name string, samples []models.EmotionSample, weights map[string]float64) models.StudentEmotionSummary {
	counts := make(map[string]int)
	var weightSum float64
	for _, s := range samples {
		label := dominantOf(s)
		counts[label]++
		weightSum += weights[label]
	}

	summary := models.StudentEmotionSummary{
		ParticipantID:      id,
		DisplayName:        name,
		TotalRecords:       len(samples),
		EmotionPercentages: percentages(counts, len(samples)),
		DominantEmotion:    dominantOfCounts(counts),
	}
	if len(samples) > 0 {
		summary.AvgAttentiveness = weightSum / float64(len(samples))
	}
	return summary
}

// dominantOf resolves a sample's label, recomputing from scores when the
// producer left the field empty. No-face samples resolve to neutral.
func dominantOf(s models.EmotionSample) string {
	if s.DominantEmotion != "" {
		return s.DominantEmotion
	}
	if !s.FaceDetected || len(s.EmotionScores) == 0 {
		return "neutral"
	}
	return models.DominantEmotion(s.EmotionScores)
}

// dominantOfCounts is arg-max over aggregate label counts with the same
// tie-break rule as per-sample dominance.
func dominantOfCounts(counts map[string]int) string {
	scores := make(map[string]float64, len(counts))
	for label, n := range counts {
		scores[label] = float64(n)
	}
	return models.DominantEmotion(scores)
}

func percentages(counts map[string]int, total int) map[string]float64 {
	out := make(map[string]float64, len(counts))
	if total == 0 {
		return out
	}
	for label, n := range counts {
		out[label] = float64(n) / float64(total) * 100
	}
	return out
}
