package analytics

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smart-lms/backend/internal/models"
)

// ErrReportNotFound is returned when no persisted report exists for a meeting.
var ErrReportNotFound = errors.New("analytics report not found")

// Repository persists computed meeting reports so dashboards read a stable
// snapshot after a meeting completes. Raw events remain the source of
// truth; reports are recomputable at any time.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics report repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores the report for a meeting, replacing any previous snapshot.
func (r *Repository) Upsert(ctx context.Context, report *models.MeetingAnalytics) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO meeting_analytics (meeting_id, subject_id, report, computed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (meeting_id) DO UPDATE SET report = EXCLUDED.report, computed_at = NOW()`,
		report.MeetingID, report.SubjectID, body)
	return err
}

// GetByMeeting fetches the persisted report for a meeting.
func (r *Repository) GetByMeeting(ctx context.Context, meetingID uuid.UUID) (*models.MeetingAnalytics, error) {
	var body []byte
	err := r.pool.QueryRow(ctx,
		`SELECT report FROM meeting_analytics WHERE meeting_id = $1`, meetingID).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	var report models.MeetingAnalytics
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
