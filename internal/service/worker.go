package service

import (
	"context"
	"errors"

	"eclassbot-backend/internal/components/queue"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"
)

// Worker runs deferred jobs from a queue one at a time.
type Worker struct {
	service Service
}

func NewWorker(service Service) Worker {
	return Worker{service: service}
}

// Run consumes q until ctx is cancelled. A failing job is reported and
// never stops the worker.
func (w Worker) Run(ctx context.Context, q queue.Queue) error {
	jobs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for job := range jobs {
		outcome := w.handle(ctx, job)
		w.service.metrics.QueueJobs.WithLabelValues(job.Type, outcome).Inc()
	}
	return ctx.Err()
}

func (w Worker) handle(ctx context.Context, job queue.Message) string {
	s := w.service
	if job.Type != JobScrapeOne {
		s.tel.ReportWarning(report_worker_job, "unknown job type", job.Type)
		return "unknown"
	}

	studentID := string(job.Body)
	student, err := s.student(ctx, studentID)
	if err != nil {
		s.tel.ReportWarning(report_worker_job, err, studentID)
		s.clearInProgress(ctx, studentID)
		return "failed"
	}
	if !student.Password.Valid || student.Password.String == "" {
		s.tel.ReportWarning(report_worker_job, "no stored password", studentID)
		s.clearInProgress(ctx, studentID)
		return "failed"
	}

	_, err = s.ScrapeOne(ctx, studentID, student.Password.String)
	switch {
	case err == nil:
		s.dispatch.Send(ctx, student.ChatID.String, notify.ScrapeCompleted)
		return "ok"
	case errors.Is(err, eclass.ErrLoginFailed):
		s.invalidate(ctx, student)
		return "login_failed"
	default:
		s.tel.ReportWarning(report_worker_job, err, studentID, eclass.Kind(err))
		return "failed"
	}
}
