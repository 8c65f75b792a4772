package analytics

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smart-lms/backend/internal/meetings"
	"github.com/smart-lms/backend/internal/models"
	"github.com/smart-lms/backend/pkg/response"
)

// Handler serves meeting and subject analytics.
type Handler struct {
	service *Service
	reports *Repository
}

// NewHandler creates an analytics handler.
func NewHandler(service *Service, reports *Repository) *Handler {
	return &Handler{service: service, reports: reports}
}

// GetMeetingAttendance handles GET /meetings/:id/attendance.
func (h *Handler) GetMeetingAttendance(c *gin.Context) {
	report, ok := h.meetingReport(c)
	if !ok {
		return
	}
	response.OK(c, report.Attendance)
}

// GetMeetingEmotions handles GET /meetings/:id/emotions.
func (h *Handler) GetMeetingEmotions(c *gin.Context) {
	report, ok := h.meetingReport(c)
	if !ok {
		return
	}
	response.OK(c, report.Emotion)
}

// GetMeetingAnalytics handles GET /meetings/:id/analytics (full report).
func (h *Handler) GetMeetingAnalytics(c *gin.Context) {
	report, ok := h.meetingReport(c)
	if !ok {
		return
	}
	response.OK(c, report)
}

// GetSubjectRollup handles GET /subjects/:id/analytics.
func (h *Handler) GetSubjectRollup(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid subject id")
		return
	}
	rollup, err := h.service.SubjectRollup(c.Request.Context(), subjectID)
	if err != nil {
		response.Internal(c, "failed to compute subject rollup")
		return
	}
	response.OK(c, rollup)
}

// meetingReport serves the persisted snapshot when one exists and falls
// back to computing live so in-progress meetings still report. Returns
// false after writing an error response.
func (h *Handler) meetingReport(c *gin.Context) (*models.MeetingAnalytics, bool) {
	meetingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid meeting id")
		return nil, false
	}
	ctx := c.Request.Context()

	if h.reports != nil {
		if report, err := h.reports.GetByMeeting(ctx, meetingID); err == nil {
			return report, true
		} else if !errors.Is(err, ErrReportNotFound) {
			response.Internal(c, "failed to load analytics report")
			return nil, false
		}
	}

	report, err := h.service.MeetingAnalytics(ctx, meetingID)
	if err != nil {
		if errors.Is(err, meetings.ErrNotFound) {
			response.NotFound(c, "meeting not found")
			return nil, false
		}
		response.Internal(c, "failed to compute analytics")
		return nil, false
	}
	return report, true
}
