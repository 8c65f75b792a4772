package meetings

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/models"
	"github.com/smart-lms/backend/pkg/queue"
	"github.com/smart-lms/backend/pkg/response"
)

// Handler handles meeting lifecycle endpoints.
type Handler struct {
	repo   *Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates a meeting handler.
func NewHandler(repo *Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, queue: q, logger: logger}
}

type createRequest struct {
	SubjectID  uuid.UUID `json:"subject_id" binding:"required"`
	LecturerID uuid.UUID `json:"lecturer_id" binding:"required"`
	Title      string    `json:"title" binding:"required"`
	StartTime  time.Time `json:"start_time" binding:"required"`
}

// Create handles POST /meetings (lecturer/admin: schedule a meeting).
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid meeting payload")
		return
	}
	m := &models.Meeting{
		SubjectID:  req.SubjectID,
		LecturerID: req.LecturerID,
		Title:      req.Title,
		StartTime:  req.StartTime,
	}
	if err := h.repo.Create(c.Request.Context(), m); err != nil {
		response.Internal(c, "failed to create meeting")
		return
	}
	response.Created(c, m)
}

// GetByID handles GET /meetings/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	m, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		response.Internal(c, "failed to load meeting")
		return
	}
	response.OK(c, m)
}

// ListBySubject handles GET /subjects/:id/meetings.
func (h *Handler) ListBySubject(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subject id")
		return
	}
	list, err := h.repo.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		response.Internal(c, "failed to list meetings")
		return
	}
	response.OK(c, gin.H{"meetings": list})
}

// Start handles POST /meetings/:id/start (lecturer goes live).
func (h *Handler) Start(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	if err := h.repo.MarkLive(c.Request.Context(), id, time.Now().UTC()); err != nil {
		response.Internal(c, "failed to start meeting")
		return
	}
	response.OK(c, gin.H{"status": models.MeetingLive})
}

// End handles POST /meetings/:id/end. Completing a meeting enqueues the
// analytics rollup job so the report snapshot is computed off the request
// path.
func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return
	}
	ctx := c.Request.Context()
	meeting, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return
		}
		response.Internal(c, "failed to load meeting")
		return
	}
	if err := h.repo.MarkCompleted(ctx, id, time.Now().UTC()); err != nil {
		response.Internal(c, "failed to end meeting")
		return
	}
	if h.queue != nil {
		err := h.queue.EnqueueAnalytics(ctx, queue.AnalyticsPayload{
			MeetingID: id,
			SubjectID: meeting.SubjectID,
		})
		if err != nil {
			h.logger.Warn("enqueue analytics job failed", zap.Error(err), zap.String("meeting_id", id.String()))
		}
	}
	response.OK(c, gin.H{"status": models.MeetingCompleted})
}
