package emotions

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smart-lms/backend/internal/models"
)

// Repository handles emotion_samples.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an emotion sample repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists one sample. Samples are immutable; duplicates from a
// re-delivered update are tolerated (at-most-once transport makes them rare
// and the aggregator treats them as extra resolution).
func (r *Repository) Insert(ctx context.Context, s models.EmotionSample) error {
	scores, err := json.Marshal(s.EmotionScores)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO emotion_samples
		 (meeting_id, session_id, participant_id, display_name, captured_at, emotion_scores, dominant_emotion, face_detected, confidence)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.MeetingID, s.SessionID, s.ParticipantID, s.DisplayName, s.CapturedAt,
		scores, s.DominantEmotion, s.FaceDetected, s.Confidence)
	return err
}

// ListByMeeting returns all samples for a meeting ordered by capture time.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.EmotionSample, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, session_id, participant_id, display_name, captured_at,
		        emotion_scores, dominant_emotion, face_detected, confidence
		 FROM emotion_samples WHERE meeting_id = $1 ORDER BY captured_at ASC, id ASC`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EmotionSample
	for rows.Next() {
		var s models.EmotionSample
		var scores []byte
		if err := rows.Scan(&s.ID, &s.MeetingID, &s.SessionID, &s.ParticipantID, &s.DisplayName,
			&s.CapturedAt, &scores, &s.DominantEmotion, &s.FaceDetected, &s.Confidence); err != nil {
			return nil, err
		}
		if len(scores) > 0 {
			_ = json.Unmarshal(scores, &s.EmotionScores)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// CountByMeeting returns the number of stored samples for a meeting.
func (r *Repository) CountByMeeting(ctx context.Context, meetingID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM emotion_samples WHERE meeting_id = $1`, meetingID).Scan(&n)
	return n, err
}
