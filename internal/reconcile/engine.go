// Package reconcile diffs a fresh portal scrape against what is stored for a
// student, writes the new state and decides which notifications go out.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"
)

const (
	report_db_query      = "db.query"
	report_url_less_item = "engine.url-less-item"
	report_facet_skipped = "engine.facet-skipped"
)

var ErrNoGroup = errors.New("student has no group")

// Engine runs one reconciliation pass for one student inside that
// student's transaction. It memoises subject, professor and class lookups
// for the pass, so a new Engine is made for every pass.
type Engine struct {
	q        *db.Queries
	dispatch notify.Dispatcher
	time     chrono.TimeAPI
	tel      telemetry.API

	subjects   map[string]db.Subject
	professors map[string]db.Professor
	classes    map[classKey]db.Class

	pending []notify.Message
	claimed []string
}

type classKey struct {
	group   string
	subject string
}

func NewEngine(q *db.Queries, dispatch notify.Dispatcher, time chrono.TimeAPI, tel telemetry.API) *Engine {
	assert.NotNil(q, "queries")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	return &Engine{
		q:          q,
		dispatch:   dispatch,
		time:       time,
		tel:        telemetry.NewScopedAPI("reconcile", tel),
		subjects:   make(map[string]db.Subject),
		professors: make(map[string]db.Professor),
		classes:    make(map[classKey]db.Class),
	}
}

// Result summarises one pass.
type Result struct {
	Enrollments []string
	Dropped     []string
	// Notices is the number of messages waiting for Flush.
	Notices int
}

// Reconcile applies data to the stored state of student. Nothing is sent
// until Flush, and claimed notification keys are only released by Abandon.
func (e *Engine) Reconcile(ctx context.Context, student db.Student, data eclass.StudentData) (Result, error) {
	if !student.GroupID.Valid || student.GroupID.String == "" {
		return Result{}, ErrNoGroup
	}
	now := e.time.Now()

	touched := make(map[string]bool)
	var result Result
	for _, course := range data.Courses {
		enrollment, err := e.resolveEnrollment(ctx, student, course)
		if err != nil {
			return Result{}, fmt.Errorf("resolve enrollment %q: %w", course.Title, err)
		}
		if !touched[enrollment.ID] {
			touched[enrollment.ID] = true
			result.Enrollments = append(result.Enrollments, enrollment.ID)
		}

		c := courseCtx{
			student:    student,
			enrollment: enrollment,
			course:     course,
			subject:    notify.SubjectLabel(course.SubjectCode, course.SubjectName),
			now:        now,
		}
		err = e.attendance(ctx, c)
		if err != nil {
			return Result{}, fmt.Errorf("attendance %q: %w", course.Title, err)
		}
		err = e.assignments(ctx, c)
		if err != nil {
			return Result{}, fmt.Errorf("assignments %q: %w", course.Title, err)
		}
		err = e.quizzes(ctx, c)
		if err != nil {
			return Result{}, fmt.Errorf("quizzes %q: %w", course.Title, err)
		}
	}

	dropped, err := e.dropEnrollments(ctx, student, touched)
	if err != nil {
		return Result{}, err
	}
	result.Dropped = dropped
	result.Notices = len(e.pending)
	return result, nil
}

// dropEnrollments hard-deletes enrollments of the student's current group
// that the scrape did not touch. Children go with them through cascades.
func (e *Engine) dropEnrollments(ctx context.Context, student db.Student, touched map[string]bool) ([]string, error) {
	param := db.ListGroupEnrollmentsParams{
		StudentID: student.ID,
		GroupID:   student.GroupID.String,
	}
	existing, err := e.q.ListGroupEnrollments(ctx, param)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "ListGroupEnrollments", param)
		return nil, err
	}
	var dropped []string
	for _, enrollment := range existing {
		if touched[enrollment.ID] {
			continue
		}
		err = e.q.DeleteEnrollment(ctx, enrollment.ID)
		if err != nil {
			e.tel.ReportBroken(report_db_query, err, "DeleteEnrollment", enrollment.ID)
			return nil, err
		}
		dropped = append(dropped, enrollment.ID)
	}
	return dropped, nil
}

// Flush sends every message queued by the pass. Call it after the
// transaction committed.
func (e *Engine) Flush(ctx context.Context) int {
	sent := len(e.pending)
	for _, msg := range e.pending {
		e.dispatch.Send(ctx, msg.ChatID, msg.Text)
	}
	e.pending = nil
	e.claimed = nil
	return sent
}

// Abandon forgets queued messages and releases the keys the pass claimed,
// so a rolled back pass notifies again next time.
func (e *Engine) Abandon(ctx context.Context) {
	e.dispatch.Release(ctx, e.claimed...)
	e.pending = nil
	e.claimed = nil
}

func (e *Engine) once(ctx context.Context, key string, ttl time.Duration) bool {
	if !e.dispatch.NotifyOnce(ctx, key, ttl) {
		return false
	}
	e.claimed = append(e.claimed, key)
	return true
}

func (e *Engine) suppress(ctx context.Context, key string) {
	e.dispatch.Suppress(ctx, key, notify.DefaultTTL)
	e.claimed = append(e.claimed, key)
}

func (e *Engine) queue(student db.Student, text string) {
	e.pending = append(e.pending, notify.Message{
		ChatID: student.ChatID.String,
		Text:   text,
	})
}

// courseCtx is what every per-course step needs.
type courseCtx struct {
	student    db.Student
	enrollment db.Enrollment
	course     eclass.CourseData
	subject    string
	now        time.Time
}
