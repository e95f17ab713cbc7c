package eclass

import (
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parseHtml(t testing.TB, body string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func readFixture(t testing.TB, name string) *goquery.Document {
	body, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return parseHtml(t, string(body))
}

func TestLoginStateDetection(t *testing.T) {
	loggedIn := parseHtml(t, `<div><a href="https://eclass.example/login/logout.php?sesskey=1">Log out</a></div>`)
	require.True(t, IsLoggedIn(loggedIn))
	require.False(t, LooksLikeLoginPage(loggedIn))

	pictureAndMenu := parseHtml(t, `<div class="usermenu"><img class="userpicture"></div>`)
	require.True(t, IsLoggedIn(pictureAndMenu))

	pictureOnly := parseHtml(t, `<img class="userpicture">`)
	require.False(t, IsLoggedIn(pictureOnly))

	login := readFixture(t, "login.html")
	require.True(t, LooksLikeLoginPage(login))
	require.False(t, IsLoggedIn(login))
	require.Equal(t, "Invalid login, please try again", LoginError(login))

	passwordOnly := parseHtml(t, `<input type="password" name="password">`)
	require.True(t, LooksLikeLoginPage(passwordOnly))
}

func TestFindLinkTiers(t *testing.T) {
	base, err := url.Parse("https://eclass.example/course/view.php?id=7")
	require.NoError(t, err)

	bySelector := parseHtml(t, `
		<a href="/local/ubattendance/my_status.php?id=1">first by href</a>
		<a class="submenu-attendance" href="/local/ubattendance/my_status.php?id=2">Offline-Attendance</a>`)
	link := FindLink(bySelector, base, offlineAttendanceLink)
	require.NotNil(t, link)
	require.Equal(t, "https://eclass.example/local/ubattendance/my_status.php?id=2", link.String())

	byHref := parseHtml(t, `<a href="../local/ubattendance/my_status.php?id=3">Attendance</a>`)
	link = FindLink(byHref, base, offlineAttendanceLink)
	require.NotNil(t, link)
	require.Equal(t, "https://eclass.example/local/ubattendance/my_status.php?id=3", link.String())

	byText := parseHtml(t, `<a href="/att/new-place.php?id=4"> OFFLINE-ATTENDANCE </a>`)
	link = FindLink(byText, base, offlineAttendanceLink)
	require.NotNil(t, link)
	require.Equal(t, "https://eclass.example/att/new-place.php?id=4", link.String())

	exactText := parseHtml(t, `<a href="/x">Assignments overview</a><a href="/y">Assignment</a>`)
	link = FindLink(exactText, base, assignmentIndexLink)
	require.NotNil(t, link)
	require.Equal(t, "https://eclass.example/y", link.String())

	none := parseHtml(t, `<a href="/grade/report.php">Grades</a>`)
	require.Nil(t, FindLink(none, base, quizIndexLink))
}

func TestNotSetMessage(t *testing.T) {
	msg, ok := NotSetMessage(parseHtml(t, `<div class="alert alert-danger">Attendance for this course has not been set.</div>`))
	require.True(t, ok)
	require.Equal(t, "Attendance for this course has not been set.", msg)

	_, ok = NotSetMessage(parseHtml(t, `<div class="alert alert-danger">Your password is not set.</div>`))
	require.False(t, ok)

	_, ok = NotSetMessage(parseHtml(t, `<div class="alert alert-info">This course is not set up yet.</div>`))
	require.False(t, ok)
}

func TestParseCounts(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected Totals
		ok       bool
	}{
		{
			name:     "english",
			html:     `<div class="att_count"><p>Attendance<span> 12</span></p><p>Absence<span> 2</span></p><p>Late<span> 1</span></p></div>`,
			expected: Totals{Attendance: 12, Absence: 2, Late: 1},
			ok:       true,
		},
		{
			name:     "korean reordered",
			html:     `<div class="att_count"><p>지각<span>3</span></p><p>출석 : <span>9</span></p><p>결석<span>4</span></p></div>`,
			expected: Totals{Attendance: 9, Absence: 4, Late: 3},
			ok:       true,
		},
		{
			name:     "present synonym",
			html:     `<div class="att_count"><p>Present<span>5</span></p></div>`,
			expected: Totals{Attendance: 5},
			ok:       true,
		},
		{
			name:     "real zeros",
			html:     `<div class="att_count"><p>Attendance<span>0</span></p><p>Absence<span>0</span></p></div>`,
			expected: Totals{},
			ok:       true,
		},
		{
			name: "no numbers",
			html: `<div class="att_count"><p>Attendance<span>-</span></p></div>`,
			ok:   false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc := parseHtml(t, c.html)
			totals, ok := ParseCounts(doc.Find("div.att_count"))
			require.Equal(t, c.ok, ok)
			if c.ok {
				if diff := cmp.Diff(c.expected, totals); diff != "" {
					t.Fatal(diff)
				}
			}
		})
	}
}

func TestParseOfflineAttendance(t *testing.T) {
	result := parseOfflineAttendance(readFixture(t, "offline_attendance.html"))
	require.True(t, result.Ok())
	require.NotNil(t, result.Totals)
	if diff := cmp.Diff(Totals{Attendance: 2, Absence: 1, Late: 1}, *result.Totals); diff != "" {
		t.Fatal(diff)
	}
	expected := []AttendanceRecord{
		{DateOfWeek: "2026-02-16", ClassName: "Week 1 (1)", Attendance: true},
		{DateOfWeek: "2026-02-18", ClassName: "Week 1 (2)", Absence: true},
		{DateOfWeek: "2026-02-23", ClassName: "Week 2 (1)", Attendance: true, Late: true},
		{DateOfWeek: "Makeup", ClassName: "Extra", Attendance: false},
	}
	if diff := cmp.Diff(expected, result.Records); diff != "" {
		t.Fatal(diff)
	}

	notSet := parseOfflineAttendance(parseHtml(t, `<div class="alert alert-danger">The attendance of this course has not been set</div>`))
	require.Equal(t, FacetNotSet, notSet.Status)
	require.Nil(t, notSet.Totals)

	unknown := parseOfflineAttendance(parseHtml(t, `<div>Something else entirely</div>`))
	require.Equal(t, FacetUnknownFormat, unknown.Status)
}

func TestParseOnlineAttendanceFallsBackToCoursePage(t *testing.T) {
	attPage := parseHtml(t, `<div class="progress">nothing here</div>`)
	coursePage := parseHtml(t, `<div class="user_attendance_table"><div class="att_count"><p>Absence<span>1</span></p></div></div>`)
	result := parseOnlineAttendance(attPage, coursePage)
	require.True(t, result.Ok())
	require.Equal(t, Totals{Absence: 1}, *result.Totals)

	missing := parseOnlineAttendance(attPage, parseHtml(t, `<div></div>`))
	require.Equal(t, FacetUnknownFormat, missing.Status)
}

func TestParseAssignmentIndex(t *testing.T) {
	base, err := url.Parse("https://eclass.example/mod/assign/index.php?id=9")
	require.NoError(t, err)

	facet, items := parseAssignmentIndex(readFixture(t, "assignments.html"), base)
	require.True(t, facet.Ok())
	expected := []Assignment{
		{
			Week:       "Week 1",
			Title:      "Homework 1",
			DueDate:    "2026-03-01 23:59",
			Submission: "Submitted for grading",
			Grade:      "9.50 / 10.00",
			Url:        "https://eclass.example/mod/assign/view.php?id=501",
		},
		{
			Week:       "Week 2",
			Title:      "Homework 2",
			DueDate:    "2026-03-08 23:59",
			Submission: "No submission",
			Grade:      "-",
			Url:        "https://eclass.example/mod/assign/view.php?id=502",
		},
		{
			Week:       "Week 3",
			Title:      "Paper report",
			DueDate:    "",
			Submission: "No submission",
			Grade:      "",
		},
	}
	if diff := cmp.Diff(expected, items); diff != "" {
		t.Fatal(diff)
	}

	facet, items = parseAssignmentIndex(parseHtml(t, `<p>moved</p>`), base)
	require.Equal(t, FacetUnknownFormat, facet.Status)
	require.Nil(t, items)
}

func TestQuizStatusFromPage(t *testing.T) {
	require.Equal(t, QuizSubmitted, QuizStatusFromPage(parseHtml(t, `<h3> Summary of your previous attempts </h3>`)))
	require.Equal(t, QuizSubmitted, QuizStatusFromPage(parseHtml(t, `<table class="quizattemptsummary"></table>`)))
	require.Equal(t, QuizNotSubmitted, QuizStatusFromPage(parseHtml(t, `<p>No attempts have been made yet.</p>`)))
	require.Equal(t, QuizUnknown, QuizStatusFromPage(parseHtml(t, `<p>Attempt quiz now</p>`)))
}
