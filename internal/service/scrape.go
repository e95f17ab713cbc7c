package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/reconcile"
	"eclassbot-backend/internal/scrapers/eclass"
	"eclassbot-backend/internal/snapshot"
)

// StudentError is one failed student in a batch run.
type StudentError struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message,omitempty"`
}

type Report struct {
	Failed int            `json:"failed"`
	Errors []StudentError `json:"errors"`
}

const (
	modeAll = "all"
	modeOne = "one"
)

// ScrapeAll scrapes and reconciles every student with a password and a
// chat, one at a time. A failing student is recorded and skipped, and
// students whose credentials the portal rejects are asked to register again.
func (s Service) ScrapeAll(ctx context.Context) (Report, error) {
	start := time.Now()
	defer s.metrics.ObserveScrape(modeAll, start)

	students, err := s.db.ListScrapableStudents(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListScrapableStudents")
		return Report{}, err
	}

	report := Report{Errors: []StudentError{}}
	for _, student := range students {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if !student.GroupID.Valid || student.GroupID.String == "" {
			s.tel.ReportDebug(report_student_skipped, student.ID, "no group")
			s.metrics.StudentRuns.WithLabelValues(modeAll, "skipped").Inc()
			continue
		}

		_, err := s.scrapeStudent(ctx, student, student.Password.String, s.dispatch)
		if err == nil {
			s.metrics.StudentRuns.WithLabelValues(modeAll, "ok").Inc()
			continue
		}

		kind := eclass.Kind(err)
		s.metrics.StudentRuns.WithLabelValues(modeAll, "failed").Inc()
		s.metrics.StudentErrors.WithLabelValues(kind).Inc()
		s.tel.ReportWarning(report_scrape_all, student.ID, kind, err)

		if eclass.InvalidatesCredentials(err) {
			s.invalidate(ctx, student)
		}
		report.Errors = append(report.Errors, StudentError{
			ID:        student.ID,
			StudentID: student.StudentID,
			ErrorKind: kind,
			Message:   err.Error(),
		})
	}
	report.Failed = len(report.Errors)
	s.tel.ReportCount(report_scrape_all, int64(report.Failed))
	return report, nil
}

// ScrapeOne scrapes and reconciles one student with the given password
// without sending anything. The in-progress marker is cleared when the
// scrape succeeds or the login is rejected so the student can try again.
func (s Service) ScrapeOne(ctx context.Context, studentID, password string) (snapshot.Snapshot, error) {
	start := time.Now()
	defer s.metrics.ObserveScrape(modeOne, start)

	student, err := s.student(ctx, studentID)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	snap, err := s.scrapeStudent(ctx, student, password, s.dispatch.Silenced())
	if err == nil || errors.Is(err, eclass.ErrLoginFailed) {
		s.clearInProgress(ctx, student.ID)
	}
	if err != nil {
		kind := eclass.Kind(err)
		s.metrics.StudentRuns.WithLabelValues(modeOne, "failed").Inc()
		s.metrics.StudentErrors.WithLabelValues(kind).Inc()
		return snapshot.Snapshot{}, err
	}
	s.metrics.StudentRuns.WithLabelValues(modeOne, "ok").Inc()
	return snap, nil
}

// scrapeStudent scrapes first and only then opens the student's
// transaction, so a slow portal never holds the database. Notifications go
// out after commit; on any failure the claimed keys are released.
func (s Service) scrapeStudent(ctx context.Context, student db.Student, password string, dispatch notify.Dispatcher) (snapshot.Snapshot, error) {
	data, err := s.portal.Scrape(ctx, student.StudentID, password)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return snapshot.Snapshot{}, err
	}
	defer discard()

	engine := reconcile.NewEngine(tx, dispatch, s.time, s.tel)
	committed := false
	defer func() {
		if !committed {
			engine.Abandon(ctx)
		}
	}()

	result, err := engine.Reconcile(ctx, student, data)
	if err != nil {
		s.tel.ReportBroken(report_scrape_student, err, student.ID)
		return snapshot.Snapshot{}, err
	}

	snap := snapshot.FromScrape(student.StudentID, student.FirstName.String, student.LastName.String, data)
	err = s.snapshots.Save(ctx, tx, student.ID, snap)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("commit: %w", err), student.ID)
		return snapshot.Snapshot{}, err
	}
	committed = true

	sent := engine.Flush(ctx)
	s.tel.ReportDebug(
		"reconciled student",
		student.ID,
		len(result.Enrollments),
		len(result.Dropped),
		sent,
	)

	_, err = s.snapshots.Cache(ctx, student.ID, snap)
	if err != nil {
		s.tel.ReportWarning(report_snapshot_cache, err, student.ID)
	}
	return snap, nil
}
