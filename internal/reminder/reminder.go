package reminder

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"eclassbot-backend/internal/components/assert"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"
	"eclassbot-backend/internal/snapshot"
)

const (
	report_db_query   = "db.query"
	report_bad_start  = "bad-start-time"
	report_class_sent = "class-reminders"
	report_digest     = "daily-digest"
)

// Lead is how far ahead of its start a class is announced.
const Lead = 30 * time.Minute

// Reminders sends timetable based messages.
type Reminders struct {
	q         *db.Queries
	dispatch  notify.Dispatcher
	snapshots snapshot.Store
	tel       telemetry.API
}

func NewReminders(q *db.Queries, dispatch notify.Dispatcher, snapshots snapshot.Store, tel telemetry.API) Reminders {
	assert.NotNil(q, "db")
	assert.NotNil(tel, "telemetry")
	return Reminders{
		q:         q,
		dispatch:  dispatch,
		snapshots: snapshots,
		tel:       telemetry.NewScopedAPI("reminder", tel),
	}
}

func weekday(now time.Time) string {
	return strings.ToLower(now.Weekday().String())
}

// startOn resolves an "HH:MM" (or "HH:MM:SS") class time onto the day of now.
func startOn(now time.Time, clock string) (time.Time, bool) {
	day := now.Format("2006-01-02")
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		t, err := time.ParseInLocation(layout, day+" "+strings.TrimSpace(clock), now.Location())
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func session(row db.ListClassSessionsOnDayRow) notify.ClassSession {
	return notify.ClassSession{
		Subject:   notify.SubjectLabel(row.SubjectCode, row.SubjectName),
		Professor: row.ProfessorName,
		Room:      row.Room.String,
		Start:     row.StartTime,
		End:       row.EndTime.String,
	}
}

// snapshots memoizes cached snapshots for one run, nil marks a student
// with nothing cached.
type snapshots map[string]*snapshot.Snapshot

func (r Reminders) cached(ctx context.Context, seen snapshots, studentID string) *snapshot.Snapshot {
	if snap, ok := seen[studentID]; ok {
		return snap
	}
	snap, err := r.snapshots.Cached(ctx, r.q, studentID)
	if err != nil {
		seen[studentID] = nil
		return nil
	}
	seen[studentID] = &snap
	return &snap
}

// stats returns the attendance totals of a student in the class of row,
// taken from the cached snapshot and else from the enrollment counters. It
// is nil when the student was never synced.
func (r Reminders) stats(ctx context.Context, seen snapshots, studentID string, row db.ListClassSessionsOnDayRow) *eclass.Totals {
	if snap := r.cached(ctx, seen, studentID); snap != nil {
		for _, subject := range snap.Subjects {
			if strings.EqualFold(subject.SubjectCode, row.SubjectCode) {
				totals := subject.AttendanceTotals
				return &totals
			}
		}
	}

	enrollment, err := r.q.GetEnrollment(ctx, db.GetEnrollmentParams{StudentID: studentID, ClassID: row.ClassID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		r.tel.ReportBroken(report_db_query, err, "GetEnrollment", studentID, row.ClassID)
		return nil
	}
	if !enrollment.Attendance.Valid && !enrollment.Absence.Valid && !enrollment.Late.Valid {
		return nil
	}
	return &eclass.Totals{
		Attendance: int(enrollment.Attendance.Int64),
		Absence:    int(enrollment.Absence.Int64),
		Late:       int(enrollment.Late.Int64),
	}
}

// RunClassReminders tells every enrolled student about classes that start
// within Lead of now. It returns the number of reminders handed to the
// dispatcher.
func (r Reminders) RunClassReminders(ctx context.Context, now time.Time) (int, error) {
	day := weekday(now)
	rows, err := r.q.ListClassSessionsOnDay(ctx, day)
	if err != nil {
		r.tel.ReportBroken(report_db_query, err, "ListClassSessionsOnDay", day)
		return 0, err
	}

	seen := snapshots{}
	sent := 0
	for _, row := range rows {
		start, ok := startOn(now, row.StartTime)
		if !ok {
			r.tel.ReportWarning(report_bad_start, row.ClassTimeID, row.StartTime)
			continue
		}
		until := start.Sub(now)
		if until <= 0 || until > Lead {
			continue
		}

		students, err := r.q.ListClassStudents(ctx, row.ClassID)
		if err != nil {
			r.tel.ReportBroken(report_db_query, err, "ListClassStudents", row.ClassID)
			return sent, err
		}
		for _, student := range students {
			if student.ChatID.String == "" {
				continue
			}
			if !r.dispatch.NotifyOnce(ctx, notify.ClassReminderKey(student.ID, row.ClassID, start), notify.ClassTTL) {
				continue
			}
			s := session(row)
			s.Stats = r.stats(ctx, seen, student.ID, row)
			r.dispatch.Send(ctx, student.ChatID.String, notify.ClassReminder(student.FirstName.String, day, s))
			sent++
		}
	}
	r.tel.ReportCount(report_class_sent, int64(sent))
	return sent, nil
}

// RunDailyDigest sends every chat-linked student the list of their classes
// today, or a note that there are none.
func (r Reminders) RunDailyDigest(ctx context.Context, now time.Time) (int, error) {
	day := weekday(now)
	rows, err := r.q.ListClassSessionsOnDay(ctx, day)
	if err != nil {
		r.tel.ReportBroken(report_db_query, err, "ListClassSessionsOnDay", day)
		return 0, err
	}

	type entry struct {
		start   time.Time
		session notify.ClassSession
	}
	byStudent := map[string][]entry{}
	seen := snapshots{}
	for _, row := range rows {
		start, ok := startOn(now, row.StartTime)
		if !ok {
			r.tel.ReportWarning(report_bad_start, row.ClassTimeID, row.StartTime)
			continue
		}
		students, err := r.q.ListClassStudents(ctx, row.ClassID)
		if err != nil {
			r.tel.ReportBroken(report_db_query, err, "ListClassStudents", row.ClassID)
			return 0, err
		}
		for _, student := range students {
			s := session(row)
			s.Stats = r.stats(ctx, seen, student.ID, row)
			byStudent[student.ID] = append(byStudent[student.ID], entry{start: start, session: s})
		}
	}

	students, err := r.q.ListStudentsWithChat(ctx)
	if err != nil {
		r.tel.ReportBroken(report_db_query, err, "ListStudentsWithChat")
		return 0, err
	}
	sent := 0
	for _, student := range students {
		if !r.dispatch.NotifyOnce(ctx, notify.DigestKey(student.ID, now), notify.DigestTTL) {
			continue
		}
		entries := byStudent[student.ID]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].start.Before(entries[j].start)
		})
		sessions := make([]notify.ClassSession, len(entries))
		for i, e := range entries {
			sessions[i] = e.session
		}
		r.dispatch.Send(ctx, student.ChatID.String, notify.DailyDigest(student.FirstName.String, day, sessions))
		sent++
	}
	r.tel.ReportCount(report_digest, int64(sent))
	return sent, nil
}
