package reconcile

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"eclassbot-backend/internal/components/chrono"
	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/components/kv"
	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"

	"github.com/stretchr/testify/require"
)

var tashkent = time.FixedZone("UZT", 5*60*60)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	sqlite   *sql.DB
	q        *db.Queries
	clock    *chrono.Manual
	kv       *kv.Memory
	outbox   *notify.Outbox
	dispatch notify.Dispatcher
	tel      *telemetry.Recorder
	student  db.Student
}

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	sqlite, err := db.OpenSqlite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	q := db.New(sqlite)

	require.NoError(t, q.CreateGroup(ctx, db.CreateGroupParams{ID: "g1", Name: "SE-21"}))
	require.NoError(t, q.CreateStudent(ctx, db.CreateStudentParams{
		ID:        "s1",
		StudentID: "u2110001",
		FirstName: str("Aziz"),
		Password:  str("pw"),
		ChatID:    str("100"),
		GroupID:   str("g1"),
	}))
	student, err := q.GetStudent(ctx, "s1")
	require.NoError(t, err)

	clock := chrono.NewManual(time.Date(2026, 3, 5, 12, 0, 0, 0, tashkent))
	memory := kv.NewMemory(clock)
	outbox := &notify.Outbox{}
	tel := telemetry.NewRecorder()
	return &fixture{
		t:        t,
		ctx:      ctx,
		sqlite:   sqlite,
		q:        q,
		clock:    clock,
		kv:       memory,
		outbox:   outbox,
		dispatch: notify.NewDispatcher(memory, outbox, nil, tel),
		tel:      tel,
		student:  student,
	}
}

// pass runs a committed reconciliation and returns the messages it sent.
func (f *fixture) pass(courses ...eclass.CourseData) (Result, []string) {
	f.t.Helper()
	f.outbox.Reset()
	engine := NewEngine(f.q, f.dispatch, f.clock, f.tel)
	result, err := engine.Reconcile(f.ctx, f.student, eclass.StudentData{Courses: courses})
	require.NoError(f.t, err)
	engine.Flush(f.ctx)

	var texts []string
	for _, msg := range f.outbox.Messages() {
		require.Equal(f.t, "100", msg.ChatID)
		texts = append(texts, msg.Text)
	}
	return result, texts
}

func (f *fixture) keySet(key string) bool {
	f.t.Helper()
	ok, err := f.kv.Exists(f.ctx, key)
	require.NoError(f.t, err)
	return ok
}

func (f *fixture) at(d time.Duration) string {
	return f.clock.Now().Add(d).Format("2006-01-02 15:04")
}

func course(name, code string) eclass.CourseData {
	return eclass.CourseData{
		Title:            name,
		SubjectName:      name,
		SubjectCode:      code,
		ProfessorName:    "Ann Lee",
		Attendance:       eclass.Attendance{Facet: eclass.Facet{Status: eclass.FacetAbsent}},
		AssignmentsFacet: eclass.Facet{Status: eclass.FacetOk},
		QuizzesFacet:     eclass.Facet{Status: eclass.FacetOk},
	}
}

func withTotals(c eclass.CourseData, attendance, absence, late int) eclass.CourseData {
	c.Attendance = eclass.Attendance{
		Facet:  eclass.Facet{Status: eclass.FacetOk},
		Kind:   eclass.AttendanceOnline,
		Totals: &eclass.Totals{Attendance: attendance, Absence: absence, Late: late},
	}
	return c
}

func (f *fixture) enrollment(id string) db.Enrollment {
	f.t.Helper()
	rows, err := f.q.ListGroupEnrollments(f.ctx, db.ListGroupEnrollmentsParams{StudentID: "s1", GroupID: "g1"})
	require.NoError(f.t, err)
	for _, row := range rows {
		if row.ID == id {
			return row
		}
	}
	f.t.Fatalf("enrollment %s not found", id)
	return db.Enrollment{}
}

func TestAttendanceIncrease(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")

	result, texts := f.pass(withTotals(dm, 10, 1, 0))
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "<b>Attendance:</b> <b>— → 10</b>")
	enrollmentID := result.Enrollments[0]

	_, texts = f.pass(withTotals(dm, 10, 2, 0))
	require.Len(t, texts, 1)
	require.True(t, strings.HasPrefix(texts[0], "⚠️ <b>Warning: Attendance Update</b>"))
	require.Contains(t, texts[0], "<b>Absence:</b> <b>1 → 2</b>")
	require.Contains(t, texts[0], "<b>Attendance:</b> 10 → 10")

	stored := f.enrollment(enrollmentID)
	require.Equal(t, int64(10), stored.Attendance.Int64)
	require.Equal(t, int64(2), stored.Absence.Int64)
	require.Equal(t, int64(0), stored.Late.Int64)
	require.True(t, stored.Late.Valid)

	_, texts = f.pass(withTotals(dm, 10, 2, 0))
	require.Empty(t, texts)

	// a decrease is written but not announced
	_, texts = f.pass(withTotals(dm, 9, 2, 0))
	require.Empty(t, texts)
	require.Equal(t, int64(9), f.enrollment(enrollmentID).Attendance.Int64)
}

func TestAttendanceFirstSync(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")

	result, texts := f.pass(withTotals(dm, 0, 0, 0))
	require.Empty(t, texts)
	stored := f.enrollment(result.Enrollments[0])
	require.True(t, stored.Attendance.Valid)
	require.Equal(t, int64(0), stored.Attendance.Int64)

	_, texts = f.pass(withTotals(dm, 1, 0, 0))
	require.Len(t, texts, 1)
	require.True(t, strings.HasPrefix(texts[0], "✅ <b>Attendance Update</b>"))
}

func TestAttendanceUnreadableKeepsTotals(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")

	result, _ := f.pass(withTotals(dm, 4, 1, 1))

	notSet := dm
	notSet.Attendance = eclass.Attendance{Facet: eclass.Facet{Status: eclass.FacetNotSet, Message: "not set"}}
	_, texts := f.pass(notSet)
	require.Empty(t, texts)

	stored := f.enrollment(result.Enrollments[0])
	require.Equal(t, int64(4), stored.Attendance.Int64)
	require.Equal(t, int64(1), stored.Absence.Int64)
}

func TestAttendanceRecordsReplaced(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Attendance = eclass.Attendance{
		Facet:  eclass.Facet{Status: eclass.FacetOk},
		Kind:   eclass.AttendanceOffline,
		Totals: &eclass.Totals{Attendance: 1, Absence: 1},
		Records: []eclass.AttendanceRecord{
			{DateOfWeek: "2026-03-02", Attendance: true},
			{DateOfWeek: "2026-03-04", Absence: true},
		},
	}
	result, _ := f.pass(dm)
	f.pass(dm)

	records, err := f.q.ListAttendanceRecords(f.ctx, result.Enrollments[0])
	require.NoError(t, err)
	require.Len(t, records, 2)
}

func TestNewAssignmentSuppressesTiers(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Week:       "Week 3",
		Title:      "Lab 3",
		DueDate:    f.at(3 * day),
		Submission: "No submission",
		Grade:      "-",
		Url:        "x",
	}}

	result, texts := f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "1 New assignment added")
	require.Contains(t, texts[0], "Lab 3")

	enrollmentID := result.Enrollments[0]
	require.True(t, f.keySet(notify.AssignmentKey("s1", enrollmentID, "x", notify.TagNew)))
	require.True(t, f.keySet(notify.AssignmentKey("s1", enrollmentID, "x", notify.TagDue5)))
	require.True(t, f.keySet(notify.AssignmentKey("s1", enrollmentID, "x", notify.TagDue2)))
	require.False(t, f.keySet(notify.AssignmentKey("s1", enrollmentID, "x", notify.TagDue1)))

	rows, err := f.q.ListAssignments(f.ctx, enrollmentID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, texts = f.pass(dm)
	require.Empty(t, texts)
	rows, err = f.q.ListAssignments(f.ctx, enrollmentID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// 36h left: the new notice already covered the 2 day tier
	f.clock.Advance(36 * time.Hour)
	_, texts = f.pass(dm)
	require.Empty(t, texts)

	f.clock.Advance(18 * time.Hour)
	_, texts = f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Assignment deadline in 24h!")
	require.Contains(t, texts[0], "Time left: <b>18h 0m</b>")

	_, texts = f.pass(dm)
	require.Empty(t, texts)
}

func TestNewAssignmentDueTomorrow(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Essay", DueDate: f.at(20 * time.Hour), Submission: "No submission", Url: "x",
	}}

	result, texts := f.pass(dm)
	require.Len(t, texts, 2)
	require.Contains(t, texts[0], "Assignment deadline in 24h!")
	require.Contains(t, texts[1], "New assignment added")
	require.True(t, f.keySet(notify.AssignmentKey("s1", result.Enrollments[0], "x", notify.TagDue2)))
}

func TestAssignmentTiers(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Project", DueDate: f.at(10 * day), Submission: "No submission", Url: "p",
	}}

	_, texts := f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "New assignment added")

	f.clock.Advance(6 * day)
	_, texts = f.pass(dm)
	require.Len(t, texts, 1, "due5")
	_, texts = f.pass(dm)
	require.Empty(t, texts)

	f.clock.Advance(2*day + 12*time.Hour)
	_, texts = f.pass(dm)
	require.Len(t, texts, 1, "due2")

	// once submitted nothing more is sent
	submitted := dm
	submitted.Assignments = []eclass.Assignment{{
		Title: "Project", DueDate: dm.Assignments[0].DueDate, Submission: "Submitted for grading", Url: "p",
	}}
	f.clock.Advance(day)
	_, texts = f.pass(submitted)
	require.Empty(t, texts)

	// overdue and still open: no reminder
	f.clock.Advance(2 * day)
	_, texts = f.pass(dm)
	require.Empty(t, texts)
}

func TestAssignmentGradedOnce(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Quiz prep", DueDate: f.at(-day), Submission: "Submitted for grading", Grade: "-", Url: "g",
	}}

	_, texts := f.pass(dm)
	require.Empty(t, texts)

	graded := dm
	graded.Assignments = []eclass.Assignment{dm.Assignments[0]}
	graded.Assignments[0].Grade = "95.00 / 100.00"
	_, texts = f.pass(graded)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Assignment graded")
	require.Contains(t, texts[0], "95.00 / 100.00")

	_, texts = f.pass(graded)
	require.Empty(t, texts)

	for _, placeholder := range []string{"", "-", "None"} {
		require.Equal(t, "", normGrade(placeholder))
	}
}

func TestNewAssignmentsBatched(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{
		{Title: "Lab 1", DueDate: f.at(8 * day), Submission: "No submission", Url: "l1"},
		{Title: "Lab 2", DueDate: f.at(9 * day), Submission: "No submission", Url: "l2"},
		{Title: "Old", DueDate: f.at(-day), Submission: "No submission", Url: "l0"},
		{Title: "Done", DueDate: f.at(8 * day), Submission: "Submitted for grading", Url: "l3"},
		{Title: "Undated", DueDate: "-", Submission: "No submission", Url: "l4"},
	}

	result, texts := f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "2 New assignments added")
	require.Contains(t, texts[0], "Lab 1")
	require.Contains(t, texts[0], "Lab 2")
	require.NotContains(t, texts[0], "Old")

	rows, err := f.q.ListAssignments(f.ctx, result.Enrollments[0])
	require.NoError(t, err)
	require.Len(t, rows, 5)
}

func TestUrlLessAssignment(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Paper handout", DueDate: f.at(2 * day), Submission: "No submission",
	}}

	result, texts := f.pass(dm)
	require.Empty(t, texts)
	f.pass(dm)

	rows, err := f.q.ListAssignments(f.ctx, result.Enrollments[0])
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, f.tel.Has("warning", report_url_less_item))
}

func TestQuizzes(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Quizzes = []eclass.Quiz{
		{Name: "Quiz 1", Closes: f.at(36 * time.Hour), Url: "q1", Status: eclass.QuizNotSubmitted},
		{Name: "Quiz 2", Closes: f.at(36 * time.Hour), Url: "q2", Status: eclass.QuizSubmitted},
		{Name: "Quiz 3", Closes: "", Url: "q3", Status: eclass.QuizUnknown},
	}

	result, texts := f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "New Quiz Available!")
	require.Contains(t, texts[0], "Quiz 1")
	require.Contains(t, texts[0], "Quiz 3")
	require.NotContains(t, texts[0], "Quiz 2")

	enrollmentID := result.Enrollments[0]
	require.True(t, f.keySet(notify.QuizKey("s1", enrollmentID, "q1", notify.TagClose5)))
	require.True(t, f.keySet(notify.QuizKey("s1", enrollmentID, "q1", notify.TagClose2)))

	rows, err := f.q.ListQuizzes(f.ctx, enrollmentID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	f.clock.Advance(16 * time.Hour)
	_, texts = f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Quiz closing soon!")
}

func TestNewQuizSuppressesTiers(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Quizzes = []eclass.Quiz{
		{Name: "Quiz 4", Closes: f.at(4 * day), Url: "q4", Status: eclass.QuizNotSubmitted},
	}

	result, texts := f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "New Quiz Available!")

	enrollmentID := result.Enrollments[0]
	require.True(t, f.keySet(notify.QuizKey("s1", enrollmentID, "q4", notify.TagClose5)))
	require.True(t, f.keySet(notify.QuizKey("s1", enrollmentID, "q4", notify.TagClose2)))
	require.False(t, f.keySet(notify.QuizKey("s1", enrollmentID, "q4", notify.TagClose1)))

	// 36h left
	f.clock.Advance(4*day - 36*time.Hour)
	_, texts = f.pass(dm)
	require.Empty(t, texts)

	f.clock.Advance(18 * time.Hour)
	_, texts = f.pass(dm)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Quiz closing soon!")
}

func TestDroppedEnrollment(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	ae := course("Academic English 4", "AE4")
	ae.Assignments = []eclass.Assignment{{Title: "Essay", DueDate: "-", Url: "e"}}

	result, _ := f.pass(withTotals(dm, 1, 0, 0), ae)
	require.Len(t, result.Enrollments, 2)
	aeEnrollment := result.Enrollments[1]

	// an enrollment outside the student's current group is never dropped
	require.NoError(t, f.q.CreateGroup(f.ctx, db.CreateGroupParams{ID: "g0", Name: "SE-20"}))
	require.NoError(t, f.q.CreateProfessor(f.ctx, db.CreateProfessorParams{ID: "p0", Name: "Old Prof"}))
	require.NoError(t, f.q.CreateSubject(f.ctx, db.CreateSubjectParams{ID: "sub0", Name: "Calculus 1", ShortName: "C1"}))
	require.NoError(t, f.q.CreateClass(f.ctx, db.CreateClassParams{ID: "c0", GroupID: "g0", SubjectID: "sub0", ProfessorID: "p0"}))
	require.NoError(t, f.q.CreateEnrollment(f.ctx, db.CreateEnrollmentParams{ID: "old", StudentID: "s1", ClassID: "c0"}))

	result, _ = f.pass(withTotals(dm, 1, 0, 0))
	require.Equal(t, []string{aeEnrollment}, result.Dropped)

	rows, err := f.q.ListAssignments(f.ctx, aeEnrollment)
	require.NoError(t, err)
	require.Empty(t, rows)

	all, err := f.q.ListStudentEnrollments(f.ctx, "s1")
	require.NoError(t, err)
	var ids []string
	for _, row := range all {
		ids = append(ids, row.ID)
	}
	require.Contains(t, ids, "old")
	require.Len(t, ids, 2)
}

func TestProfessorChangeUpdatesClass(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	first, _ := f.pass(dm)

	dm.ProfessorName = "Bob Kim"
	second, _ := f.pass(dm)
	require.Equal(t, first.Enrollments, second.Enrollments)

	var professorID string
	err := f.sqlite.QueryRowContext(f.ctx, "select professor.id from class inner join professor on professor.id = class.professor_id where professor.name = ?", "Bob Kim").Scan(&professorID)
	require.NoError(t, err)

	var classes int
	require.NoError(t, f.sqlite.QueryRowContext(f.ctx, "select count(*) from class").Scan(&classes))
	require.Equal(t, 1, classes)
}

func TestAbandonReleasesKeys(t *testing.T) {
	f := newFixture(t)
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Lab", DueDate: f.at(3 * day), Submission: "No submission", Url: "x",
	}}

	makeTx := db.NewMakeTx(f.sqlite)
	tx, discard, _, err := makeTx(f.ctx)
	require.NoError(t, err)
	engine := NewEngine(tx, f.dispatch, f.clock, f.tel)
	result, err := engine.Reconcile(f.ctx, f.student, eclass.StudentData{Courses: []eclass.CourseData{withTotals(dm, 2, 0, 0)}})
	require.NoError(t, err)
	require.Equal(t, 2, result.Notices)
	require.NoError(t, discard())
	engine.Abandon(f.ctx)
	require.Empty(t, f.outbox.Messages())
	require.Empty(t, f.kv.Keys())

	_, texts := f.pass(withTotals(dm, 2, 0, 0))
	require.Len(t, texts, 2)
}

func TestSilencedDispatcherClaimsKeys(t *testing.T) {
	f := newFixture(t)
	f.dispatch = f.dispatch.Silenced()
	dm := course("Discrete Mathematics", "DM")
	dm.Assignments = []eclass.Assignment{{
		Title: "Lab", DueDate: f.at(3 * day), Submission: "No submission", Url: "x",
	}}

	result, texts := f.pass(withTotals(dm, 2, 0, 0))
	require.Empty(t, texts)
	require.True(t, f.keySet(notify.AssignmentKey("s1", result.Enrollments[0], "x", notify.TagNew)))
}

func TestNoGroup(t *testing.T) {
	f := newFixture(t)
	f.student.GroupID = sql.NullString{}
	engine := NewEngine(f.q, f.dispatch, f.clock, f.tel)
	_, err := engine.Reconcile(f.ctx, f.student, eclass.StudentData{})
	require.ErrorIs(t, err, ErrNoGroup)
}

func TestTier(t *testing.T) {
	cases := []struct {
		left time.Duration
		want notify.Tag
	}{
		{time.Hour, notify.TagDue1},
		{day, notify.TagDue1},
		{day + time.Minute, notify.TagDue2},
		{2 * day, notify.TagDue2},
		{4 * day, notify.TagDue5},
		{5 * day, notify.TagDue5},
		{5*day + time.Minute, ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, tier(c.left, notify.TagDue1, notify.TagDue2, notify.TagDue5), c.left.String())
	}
}
