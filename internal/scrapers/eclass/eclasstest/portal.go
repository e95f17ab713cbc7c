// Package eclasstest runs an in-process imitation of the e-class portal for tests.
package eclasstest

import (
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	loginToken    = "tok-9f2c"
	sessionCookie = "MoodleSession"
)

type Totals struct {
	Attendance, Absence, Late int
}

type Record struct {
	Date       string
	ClassName  string
	Attendance bool
	Absence    bool
	Late       bool
}

// Assignment is rendered as one row of the assignment index, ID 0 renders
// the title without a link.
type Assignment struct {
	ID         int
	Week       string
	Title      string
	Due        string
	Submission string
	Grade      string
}

// Quiz detail states.
const (
	QuizAttempted   = "attempted"
	QuizNoAttempts  = "none"
	QuizUnmarked    = ""
	QuizDetailError = "error"
)

type Quiz struct {
	ID     int
	Week   string
	Name   string
	Closes string
	Grade  string
	Detail string
}

// Attendance kinds.
const (
	Offline = "offline"
	Online  = "online"
)

type Course struct {
	ID        int
	Title     string
	Professor string

	Attendance       string
	AttendanceNotSet bool
	Totals           Totals
	Records          []Record
	// KoreanLabels renders the online counts with Korean labels in reverse order.
	KoreanLabels bool
	// CountsOnCoursePage moves the online counts block off the progress page.
	CountsOnCoursePage bool

	// a nil slice means the course has no link for the facet
	Assignments []Assignment
	Quizzes     []Quiz
}

// Portal is an httptest server speaking just enough of the portal's markup.
type Portal struct {
	*httptest.Server

	mutex    sync.Mutex
	users    map[string]string
	courses  map[string][]Course
	sessions map[string]string
	failures map[string][]int
	hits     map[string]int
}

func New() *Portal {
	p := &Portal{
		users:    map[string]string{},
		courses:  map[string][]Course{},
		sessions: map[string]string{},
		failures: map[string][]int{},
		hits:     map[string]int{},
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	return p
}

func (p *Portal) AddStudent(username, password string, courses ...Course) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.users[username] = password
	p.courses[username] = courses
}

// SetCourses replaces what the student sees on the next request.
func (p *Portal) SetCourses(username string, courses ...Course) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.courses[username] = courses
}

func (p *Portal) ExpireSessions() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.sessions = map[string]string{}
}

// FailNext makes the next requests to path answer with the given statuses in order.
func (p *Portal) FailNext(path string, statuses ...int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.failures[path] = append(p.failures[path], statuses...)
}

// Hits counts requests made to path.
func (p *Portal) Hits(path string) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.hits[path]
}

func (p *Portal) serve(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	p.hits[r.URL.Path]++
	if queued := p.failures[r.URL.Path]; len(queued) > 0 {
		status := queued[0]
		p.failures[r.URL.Path] = queued[1:]
		p.mutex.Unlock()
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(status)
		return
	}
	p.mutex.Unlock()

	if r.URL.Path == "/login/index.php" {
		p.serveLogin(w, r)
		return
	}

	username, ok := p.sessionUser(r)
	if !ok {
		http.Redirect(w, r, "/login/index.php", http.StatusSeeOther)
		return
	}

	if r.URL.Path == "/" {
		p.write(w, p.dashboard(username))
		return
	}

	if r.URL.Path == "/mod/quiz/view.php" {
		p.serveQuiz(w, r, username)
		return
	}

	course, ok := p.course(username, r.URL.Query().Get("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch r.URL.Path {
	case "/course/view.php":
		p.write(w, coursePage(course))
	case "/local/ubattendance/my_status.php":
		p.write(w, offlinePage(course))
	case "/report/ubcompletion/progress.php":
		p.write(w, onlinePage(course))
	case "/mod/assign/index.php":
		p.write(w, assignmentIndex(course))
	case "/mod/quiz/index.php":
		p.write(w, quizIndex(course))
	default:
		http.NotFound(w, r)
	}
}

func (p *Portal) sessionUser(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	username, ok := p.sessions[cookie.Value]
	return username, ok
}

func (p *Portal) course(username, rawId string) (Course, bool) {
	id, err := strconv.Atoi(rawId)
	if err != nil {
		return Course{}, false
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for _, c := range p.courses[username] {
		if c.ID == id {
			return c, true
		}
	}
	return Course{}, false
}

func (p *Portal) serveLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		p.write(w, loginPage(""))
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	p.mutex.Lock()
	expected, known := p.users[username]
	valid := known && expected == password && r.PostForm.Get("logintoken") == loginToken
	var session string
	if valid {
		session = uuid.NewString()
		p.sessions[session] = username
	}
	p.mutex.Unlock()

	if !valid {
		p.write(w, loginPage("Invalid login, please try again"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: session, Path: "/"})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (p *Portal) serveQuiz(w http.ResponseWriter, r *http.Request, username string) {
	id, _ := strconv.Atoi(r.URL.Query().Get("id"))
	p.mutex.Lock()
	var quiz *Quiz
	for _, c := range p.courses[username] {
		for i := range c.Quizzes {
			if c.Quizzes[i].ID == id {
				quiz = &c.Quizzes[i]
			}
		}
	}
	p.mutex.Unlock()
	if quiz == nil || quiz.Detail == QuizDetailError {
		http.NotFound(w, r)
		return
	}
	p.write(w, quizPage(*quiz))
}

func (p *Portal) write(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, body)
}

var esc = html.EscapeString

func document(loggedIn bool, body string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>eClass</title></head><body>")
	if loggedIn {
		b.WriteString(`<div class="usermenu"><img class="userpicture" src="/pic.png">` +
			`<a href="/login/logout.php?sesskey=abc">Log out</a></div>`)
	}
	b.WriteString(body)
	b.WriteString("</body></html>")
	return b.String()
}

func loginPage(errorText string) string {
	var b strings.Builder
	if errorText != "" {
		fmt.Fprintf(&b, `<div class="loginerrors">%s</div>`, esc(errorText))
	}
	fmt.Fprintf(&b, `<form class="mform form-login" action="/login/index.php" method="post">`+
		`<input type="hidden" name="logintoken" value="%s">`+
		`<input type="hidden" name="anchor" value="">`+
		`<input type="text" name="username">`+
		`<input type="password" name="password">`+
		`<input type="submit" name="loginbutton" value="Log in">`+
		`</form>`, loginToken)
	return document(false, b.String())
}

func (p *Portal) dashboard(username string) string {
	p.mutex.Lock()
	courses := p.courses[username]
	p.mutex.Unlock()

	var b strings.Builder
	b.WriteString(`<ul class="my-course-lists">`)
	for _, c := range courses {
		fmt.Fprintf(&b, `<li><a class="course_link" href="/course/view.php?id=%d">`+
			`<div class="course-name"><h3>%s</h3></div><p class="prof">%s</p></a></li>`,
			c.ID, esc(c.Title), esc(c.Professor))
	}
	b.WriteString(`</ul>`)
	return document(true, b.String())
}

func countsBlock(c Course) string {
	labels := []string{"Attendance", "Absence", "Late"}
	values := []int{c.Totals.Attendance, c.Totals.Absence, c.Totals.Late}
	if c.KoreanLabels {
		labels = []string{"지각", "결석", "출석"}
		values = []int{c.Totals.Late, c.Totals.Absence, c.Totals.Attendance}
	}
	var b strings.Builder
	b.WriteString(`<div class="user_attendance"><div class="att_count">`)
	for i := range labels {
		fmt.Fprintf(&b, `<p class="count0%d">%s<span> %d</span></p>`, i+1, labels[i], values[i])
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

func coursePage(c Course) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="coursename"><h1><a href="/course/view.php?id=%d">%s</a></h1></div>`, c.ID, esc(c.Title))
	fmt.Fprintf(&b, `<div class="media"><h4 class="media-heading">Announcements</h4><h4 class="media-heading">%s</h4></div>`, esc(c.Professor))
	b.WriteString(`<ul class="submenu">`)
	switch c.Attendance {
	case Offline:
		fmt.Fprintf(&b, `<li><a class="submenu-attendance" href="/local/ubattendance/my_status.php?id=%d">Offline-Attendance</a></li>`, c.ID)
	case Online:
		fmt.Fprintf(&b, `<li><a class="submenu-progress" href="/report/ubcompletion/progress.php?id=%d">Online-Attendance</a></li>`, c.ID)
	}
	if c.Assignments != nil {
		fmt.Fprintf(&b, `<li><a href="/mod/assign/index.php?id=%d">Assignment</a></li>`, c.ID)
	}
	if c.Quizzes != nil {
		fmt.Fprintf(&b, `<li><a href="/mod/quiz/index.php?id=%d">Quiz</a></li>`, c.ID)
	}
	b.WriteString(`</ul>`)
	if c.Attendance == Online && c.CountsOnCoursePage {
		b.WriteString(countsBlock(c))
	}
	return document(true, b.String())
}

const notSetBox = `<div class="alert alert-danger">Attendance for this course has not been set.</div>`

func mark(v bool) string {
	if v {
		return "○"
	}
	return ""
}

func offlinePage(c Course) string {
	if c.AttendanceNotSet {
		return document(true, notSetBox)
	}
	var b strings.Builder
	b.WriteString(`<table class="attendance_my"><thead><tr><th>Date</th><th>Class</th><th>Attendance</th><th>Absence</th><th>Late</th></tr></thead><tbody>`)
	for _, r := range c.Records {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			esc(r.Date), esc(r.ClassName), mark(r.Attendance), mark(r.Absence), mark(r.Late))
	}
	fmt.Fprintf(&b, `</tbody><tfoot><tr><td colspan="5">Attendance : %d, Absence : %d, Late : %d</td></tr></tfoot></table>`,
		c.Totals.Attendance, c.Totals.Absence, c.Totals.Late)
	return document(true, b.String())
}

func onlinePage(c Course) string {
	if c.AttendanceNotSet {
		return document(true, notSetBox)
	}
	if c.CountsOnCoursePage {
		return document(true, `<div class="progress">Progress</div>`)
	}
	return document(true, countsBlock(c))
}

func assignmentIndex(c Course) string {
	var b strings.Builder
	b.WriteString(`<table class="generaltable"><thead><tr><th>Week</th><th>Assignments</th><th>Due date</th><th>Submission</th><th>Grade</th></tr></thead><tbody>`)
	for _, a := range c.Assignments {
		title := esc(a.Title)
		if a.ID != 0 {
			title = fmt.Sprintf(`<a href="view.php?id=%d">%s</a>`, a.ID, title)
		}
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			esc(a.Week), title, esc(a.Due), esc(a.Submission), esc(a.Grade))
		b.WriteString(`<tr class="tabledivider"><td colspan="5"></td></tr>`)
	}
	b.WriteString(`</tbody></table>`)
	return document(true, b.String())
}

func quizIndex(c Course) string {
	var b strings.Builder
	b.WriteString(`<table class="generaltable"><thead><tr><th>Week</th><th>Name</th><th>Quiz closes</th><th>Grade</th></tr></thead><tbody>`)
	for _, q := range c.Quizzes {
		fmt.Fprintf(&b, `<tr><td>%s</td><td><a href="view.php?id=%d">%s</a></td><td>%s</td><td>%s</td></tr>`,
			esc(q.Week), q.ID, esc(q.Name), esc(q.Closes), esc(q.Grade))
	}
	b.WriteString(`</tbody></table>`)
	return document(true, b.String())
}

func quizPage(q Quiz) string {
	body := fmt.Sprintf(`<h2>%s</h2>`, esc(q.Name))
	switch q.Detail {
	case QuizAttempted:
		body += `<h3>Summary of your previous attempts</h3><table class="generaltable quizattemptsummary"><tr><td>Finished</td></tr></table>`
	case QuizNoAttempts:
		body += `<div class="box"><p>No attempts have been made yet</p></div>`
	}
	return document(true, body)
}
