package eclass

import (
	"context"
	"net/http"
	"testing"
	"time"

	"eclassbot-backend/internal/components/telemetry"
	"eclassbot-backend/internal/scrapers/eclass/eclasstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func testPortal(t *testing.T) (*eclasstest.Portal, Options) {
	portal := eclasstest.New()
	t.Cleanup(portal.Close)
	return portal, Options{
		BaseUrl: portal.URL,
		Timeout: 5 * time.Second,
		Sleep:   noSleep,
	}
}

func fixtureCourses() []eclasstest.Course {
	return []eclasstest.Course{
		{
			ID:         11,
			Title:      "Discrete Mathematics[202601-MTH1001-002] NEW",
			Professor:  "Kim Min Soo",
			Attendance: eclasstest.Offline,
			Totals:     eclasstest.Totals{Attendance: 1, Absence: 1},
			Records: []eclasstest.Record{
				{Date: "2026-02-16", ClassName: "W1", Attendance: true},
				{Date: "2026-02-18", ClassName: "W1", Absence: true},
			},
			Assignments: []eclasstest.Assignment{
				{ID: 301, Week: "Week 1", Title: "Sets", Due: "2026-03-01 23:59", Submission: "No submission", Grade: "-"},
			},
			Quizzes: []eclasstest.Quiz{
				{ID: 401, Week: "Week 1", Name: "Quiz 1", Closes: "2026-03-02 10:00", Grade: "8.00", Detail: eclasstest.QuizAttempted},
				{ID: 402, Week: "Week 2", Name: "Quiz 2", Closes: "2026-03-09 10:00", Detail: eclasstest.QuizNoAttempts},
				{ID: 403, Week: "Week 3", Name: "Quiz 3", Closes: "2026-03-16 10:00", Detail: eclasstest.QuizDetailError},
			},
		},
		{
			ID:           12,
			Title:        "Academic English 4",
			Professor:    "Jane Smith",
			Attendance:   eclasstest.Online,
			Totals:       eclasstest.Totals{Attendance: 7, Absence: 2, Late: 3},
			KoreanLabels: true,
		},
		{
			ID:               13,
			Title:            "Operating Systems",
			Professor:        "Lee",
			Attendance:       eclasstest.Offline,
			AttendanceNotSet: true,
			Assignments:      []eclasstest.Assignment{},
		},
	}
}

func TestLoginAndScrape(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u2110001", "secret", fixtureCourses()...)

	tel := telemetry.NewRecorder()
	client, err := NewClient(opts, tel)
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "u2110001", "secret"))

	data, err := client.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Courses, 3)

	dm := data.Courses[0]
	require.Equal(t, "DM", dm.SubjectCode)
	require.Equal(t, "Discrete Mathematics", dm.SubjectName)
	require.Equal(t, "Kim Min Soo", dm.ProfessorName)
	require.Equal(t, AttendanceOffline, dm.Attendance.Kind)
	require.True(t, dm.Attendance.Ok())
	require.Equal(t, Totals{Attendance: 1, Absence: 1}, *dm.Attendance.Totals)
	require.Len(t, dm.Attendance.Records, 2)
	require.True(t, dm.AssignmentsFacet.Ok())
	require.Equal(t, []Assignment{{
		Week:       "Week 1",
		Title:      "Sets",
		DueDate:    "2026-03-01 23:59",
		Submission: "No submission",
		Grade:      "-",
		Url:        portal.URL + "/mod/assign/view.php?id=301",
	}}, dm.Assignments)

	statuses := []QuizStatus{}
	for _, q := range dm.Quizzes {
		statuses = append(statuses, q.Status)
	}
	if diff := cmp.Diff([]QuizStatus{QuizSubmitted, QuizNotSubmitted, QuizUnknown}, statuses); diff != "" {
		t.Fatal(diff)
	}
	require.True(t, tel.Has("warning", report_client_quiz_status))

	ae := data.Courses[1]
	require.Equal(t, "AE4", ae.SubjectCode)
	require.Equal(t, AttendanceOnline, ae.Attendance.Kind)
	require.Equal(t, Totals{Attendance: 7, Absence: 2, Late: 3}, *ae.Attendance.Totals)
	require.Nil(t, ae.Attendance.Records)
	require.Equal(t, FacetAbsent, ae.AssignmentsFacet.Status)
	require.Nil(t, ae.Assignments)
	require.Equal(t, FacetAbsent, ae.QuizzesFacet.Status)

	opsys := data.Courses[2]
	require.Equal(t, FacetNotSet, opsys.Attendance.Status)
	require.Nil(t, opsys.Attendance.Totals)
	require.True(t, opsys.AssignmentsFacet.Ok())
	require.Empty(t, opsys.Assignments)
	require.NotNil(t, opsys.Assignments)
	// a single word heading is not a professor
	require.Equal(t, "", opsys.ProfessorName)
}

func TestOnlineCountsOnCoursePage(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u1", "pw", eclasstest.Course{
		ID:                 1,
		Title:              "Signals and Systems",
		Professor:          "Park Ji Hoon",
		Attendance:         eclasstest.Online,
		Totals:             eclasstest.Totals{Attendance: 4},
		CountsOnCoursePage: true,
	})

	client, err := NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "u1", "pw"))
	data, err := client.Scrape(context.Background())
	require.NoError(t, err)
	require.Equal(t, "SS", data.Courses[0].SubjectCode)
	require.Equal(t, Totals{Attendance: 4}, *data.Courses[0].Attendance.Totals)
}

func TestLoginFailed(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u2110001", "secret")

	client, err := NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	err = client.Login(context.Background(), "u2110001", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
	require.Contains(t, err.Error(), "Invalid login, please try again")
}

func TestCheckCredentials(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u2110001", "secret")

	client, err := NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	ok, msg := client.CheckCredentials(context.Background(), "u2110001", "secret")
	require.True(t, ok)
	require.Empty(t, msg)

	client, err = NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	ok, msg = client.CheckCredentials(context.Background(), "u2110001", "nope")
	require.False(t, ok)
	require.Equal(t, "Invalid login, please try again", msg)

	down := opts
	portal.Close()
	client, err = NewClient(down, telemetry.NewRecorder())
	require.NoError(t, err)
	ok, msg = client.CheckCredentials(context.Background(), "u2110001", "secret")
	require.False(t, ok)
	require.Equal(t, msgNetwork, msg)
}

func TestScrapeAuthExpired(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u1", "pw", fixtureCourses()...)

	client, err := NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "u1", "pw"))

	portal.ExpireSessions()
	_, err = client.Scrape(context.Background())
	require.ErrorIs(t, err, ErrAuthExpired)
}

func TestScrapeAbortsOnServerError(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u1", "pw", fixtureCourses()...)

	client, err := NewClient(opts, telemetry.NewRecorder())
	require.NoError(t, err)
	require.NoError(t, client.Login(context.Background(), "u1", "pw"))

	portal.FailNext("/mod/assign/index.php", 503, 503, 503, 503)
	_, err = client.Scrape(context.Background())
	require.ErrorIs(t, err, ErrTemporaryServer)
	require.Equal(t, 4, portal.Hits("/mod/assign/index.php"))
	// the second course is never reached
	require.Equal(t, 0, portal.Hits("/report/ubcompletion/progress.php"))
}

func TestPortalSessionReuse(t *testing.T) {
	portal, opts := testPortal(t)
	portal.AddStudent("u1", "pw", fixtureCourses()[1])

	p := NewPortal(opts, telemetry.NewRecorder())
	ok, _ := p.CheckCredentials(context.Background(), "u1", "pw")
	require.True(t, ok)
	logins := portal.Hits("/login/index.php")

	_, err := p.Scrape(context.Background(), "u1", "pw")
	require.NoError(t, err)
	require.Equal(t, logins, portal.Hits("/login/index.php"), "cached session should be reused")

	portal.ExpireSessions()
	data, err := p.Scrape(context.Background(), "u1", "pw")
	require.NoError(t, err)
	require.Len(t, data.Courses, 1)
	require.Greater(t, portal.Hits("/login/index.php"), logins)

	portal.FailNext("/", http.StatusForbidden, http.StatusForbidden, http.StatusForbidden, http.StatusForbidden)
	_, err = p.Scrape(context.Background(), "u1", "pw")
	require.ErrorIs(t, err, ErrBlocked)
}
