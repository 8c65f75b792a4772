package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smart-lms/backend/internal/analytics"
	"github.com/smart-lms/backend/pkg/queue"
)

// AnalyticsProcessor consumes analytics rollup jobs: it recomputes a
// completed meeting's report from stored events and samples and persists
// the snapshot dashboards read.
type AnalyticsProcessor struct {
	service *analytics.Service
	reports *analytics.Repository
	queue   *queue.Queue
	logger  *zap.Logger
}

// NewAnalyticsProcessor creates an analytics rollup processor.
func NewAnalyticsProcessor(service *analytics.Service, reports *analytics.Repository, q *queue.Queue, logger *zap.Logger) *AnalyticsProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsProcessor{service: service, reports: reports, queue: q, logger: logger}
}

// Process executes one analytics job.
func (p *AnalyticsProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeAnalytics {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.AnalyticsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	report, err := p.service.MeetingAnalytics(ctx, payload.MeetingID)
	if err != nil {
		return fmt.Errorf("compute analytics: %w", err)
	}
	if err := p.reports.Upsert(ctx, report); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}

	p.logger.Info("meeting analytics computed",
		zap.String("meeting_id", payload.MeetingID.String()),
		zap.Int("attendance_summaries", len(report.Attendance.Summaries)),
		zap.Int("emotion_records", report.Emotion.TotalRecords))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AnalyticsProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("analytics worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
