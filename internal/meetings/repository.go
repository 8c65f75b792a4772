package meetings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smart-lms/backend/internal/models"
)

// ErrNotFound is returned when a meeting does not exist.
var ErrNotFound = errors.New("meeting not found")

// Repository handles meetings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meeting repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a scheduled meeting.
func (r *Repository) Create(ctx context.Context, m *models.Meeting) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = models.MeetingScheduled
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO meetings (id, subject_id, lecturer_id, title, status, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		m.ID, m.SubjectID, m.LecturerID, m.Title, m.Status, m.StartTime, m.EndTime).
		Scan(&m.CreatedAt, &m.UpdatedAt)
}

// GetByID fetches one meeting.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	var m models.Meeting
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, lecturer_id, title, status, start_time, end_time, created_at, updated_at
		 FROM meetings WHERE id = $1`, id).
		Scan(&m.ID, &m.SubjectID, &m.LecturerID, &m.Title, &m.Status, &m.StartTime, &m.EndTime, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListBySubject returns all meetings for a subject, newest first.
func (r *Repository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]models.Meeting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, lecturer_id, title, status, start_time, end_time, created_at, updated_at
		 FROM meetings WHERE subject_id = $1 ORDER BY start_time DESC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Meeting
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.LecturerID, &m.Title, &m.Status, &m.StartTime, &m.EndTime, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// MarkLive flips a scheduled meeting to live and stamps the actual start.
func (r *Repository) MarkLive(ctx context.Context, id uuid.UUID, startedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET status = $2, start_time = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, models.MeetingLive, startedAt, models.MeetingScheduled)
	return err
}

// MarkCompleted ends a live meeting.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE meetings SET status = $2, end_time = $3, updated_at = NOW() WHERE id = $1`,
		id, models.MeetingCompleted, endedAt)
	return err
}

// ExpectedParticipants returns the enrolled participant IDs for a meeting's
// subject (the roll the attendance report is scored against).
func (r *Repository) ExpectedParticipants(ctx context.Context, meetingID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.student_id FROM enrollments e
		 INNER JOIN meetings m ON m.subject_id = e.subject_id
		 WHERE m.id = $1 ORDER BY e.student_id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
