package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smart-lms/backend/internal/models"
)

// Repository handles attendance_events. Rows are append-only: intervals are
// derived at read time by the aggregator, never updated in place.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// LogEvent appends one join/leave event.
func (r *Repository) LogEvent(ctx context.Context, ev models.AttendanceEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_events (meeting_id, participant_id, display_name, event_type, at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.MeetingID, ev.ParticipantID, ev.DisplayName, ev.Type, ev.At)
	return err
}

// ListByMeeting returns all events for a meeting in chronological order.
func (r *Repository) ListByMeeting(ctx context.Context, meetingID uuid.UUID) ([]models.AttendanceEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, participant_id, display_name, event_type, at
		 FROM attendance_events WHERE meeting_id = $1 ORDER BY at ASC, id ASC`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendanceEvent
	for rows.Next() {
		var ev models.AttendanceEvent
		if err := rows.Scan(&ev.ID, &ev.MeetingID, &ev.ParticipantID, &ev.DisplayName, &ev.Type, &ev.At); err != nil {
			return nil, err
		}
		list = append(list, ev)
	}
	return list, rows.Err()
}
