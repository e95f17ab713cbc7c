package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/kv"
	"eclassbot-backend/internal/components/metrics"
	"eclassbot-backend/internal/components/queue"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"
	"eclassbot-backend/internal/snapshot"
)

const (
	report_db_query        = "db.query"
	report_kv              = "kv"
	report_scrape_all      = "scrape-all"
	report_scrape_student  = "scrape-student"
	report_invalidate      = "invalidate-credentials"
	report_request_scrape  = "request-scrape"
	report_worker_job      = "worker.job"
	report_snapshot_cache  = "snapshot-cache"
	report_student_skipped = "scrape-all.student-skipped"
)

const (
	// JobScrapeOne carries a student id and runs ScrapeOne with the stored
	// password.
	JobScrapeOne = "scrape_one"

	InProgressTTL = time.Hour
)

var ErrStudentNotFound = errors.New("student not found")

func InProgressKey(studentID string) string {
	return "scrape:inprogress:" + studentID
}

// Portal is the part of the portal client the orchestrator drives.
type Portal interface {
	Scrape(ctx context.Context, username, password string) (eclass.StudentData, error)
	CheckCredentials(ctx context.Context, username, password string) (bool, string)
}

var _ Portal = (*eclass.Portal)(nil)

// Deps is everything a Service needs.
type Deps struct {
	DB         *db.Queries
	MakeTx     db.MakeTx
	Portal     Portal
	Dispatcher notify.Dispatcher
	KV         kv.API
	Queue      queue.Queue
	Snapshots  snapshot.Store
	Metrics    *metrics.Metrics
	Time       chrono.TimeAPI
	Tel        telemetry.API
}

// Service runs scrapes for students and reconciles them into storage.
// Students are always scraped one after another.
type Service struct {
	db        *db.Queries
	makeTx    db.MakeTx
	portal    Portal
	dispatch  notify.Dispatcher
	kv        kv.API
	queue     queue.Queue
	snapshots snapshot.Store
	metrics   *metrics.Metrics
	time      chrono.TimeAPI
	tel       telemetry.API
}

func NewService(deps Deps) Service {
	assert.NotNil(deps.DB, "db")
	assert.NotNil(deps.MakeTx, "makeTx")
	assert.NotNil(deps.Portal, "portal")
	assert.NotNil(deps.KV, "kv")
	assert.NotNil(deps.Queue, "queue")
	assert.NotNil(deps.Metrics, "metrics")
	assert.NotNil(deps.Time, "time")
	assert.NotNil(deps.Tel, "tel")

	return Service{
		db:        deps.DB,
		makeTx:    deps.MakeTx,
		portal:    deps.Portal,
		dispatch:  deps.Dispatcher,
		kv:        deps.KV,
		queue:     deps.Queue,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		time:      deps.Time,
		tel:       telemetry.NewScopedAPI("service", deps.Tel),
	}
}

func (s Service) student(ctx context.Context, id string) (db.Student, error) {
	student, err := s.db.GetStudent(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Student{}, ErrStudentNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetStudent", id)
		return db.Student{}, err
	}
	return student, nil
}

// CheckCredentials reports whether the portal accepts the credentials,
// with a user-facing message when it does not.
func (s Service) CheckCredentials(ctx context.Context, username, password string) (bool, string) {
	return s.portal.CheckCredentials(ctx, username, password)
}

// Snapshot returns the cached read-back view of a student's latest scrape.
func (s Service) Snapshot(ctx context.Context, studentID string) (snapshot.Snapshot, error) {
	return s.snapshots.Cached(ctx, s.db, studentID)
}

// RequestScrape marks a student's scrape as in progress and queues it. It
// returns false when a scrape was already in progress.
func (s Service) RequestScrape(ctx context.Context, studentID string) (bool, error) {
	key := InProgressKey(studentID)
	won, err := s.kv.SetNX(ctx, key, "1", InProgressTTL)
	if err != nil {
		s.tel.ReportBroken(report_kv, err, "SetNX", key)
		return false, err
	}
	if !won {
		return false, nil
	}
	err = s.queue.Publish(ctx, queue.Message{Type: JobScrapeOne, Body: []byte(studentID)})
	if err != nil {
		s.tel.ReportBroken(report_request_scrape, err, studentID)
		s.clearInProgress(ctx, studentID)
		return false, err
	}
	return true, nil
}

func (s Service) clearInProgress(ctx context.Context, studentID string) {
	err := s.kv.Del(ctx, InProgressKey(studentID))
	if err != nil {
		s.tel.ReportWarning(report_kv, err, "Del", InProgressKey(studentID))
	}
}

// invalidate clears a student's stored password and asks them, at most
// once a day, to register again.
func (s Service) invalidate(ctx context.Context, student db.Student) {
	err := s.db.ClearStudentPassword(ctx, student.ID)
	if err != nil {
		s.tel.ReportBroken(report_invalidate, err, student.ID)
	}
	if s.dispatch.NotifyOnce(ctx, notify.ReregisterKey(student.ID), notify.ReregisterTTL) {
		s.dispatch.Send(ctx, student.ChatID.String, notify.Reregister)
	}
}
