package eclass

import "net/url"

// Course is one entry of the dashboard course list.
type Course struct {
	Title string
	Url   *url.URL
}

type Totals struct {
	Attendance int `json:"attendance"`
	Absence    int `json:"absence"`
	Late       int `json:"late"`
}

// AttendanceRecord is one dated row of offline attendance.
type AttendanceRecord struct {
	DateOfWeek string `json:"date_of_week"`
	ClassName  string `json:"class_name,omitempty"`
	Attendance bool   `json:"attendance"`
	Absence    bool   `json:"absence"`
	Late       bool   `json:"late"`
}

type AttendanceKind string

const (
	AttendanceOffline AttendanceKind = "offline"
	AttendanceOnline  AttendanceKind = "online"
)

// FacetStatus describes whether one kind of data on a course could be read.
type FacetStatus string

const (
	FacetOk            FacetStatus = "ok"
	FacetNotSet        FacetStatus = "not_set"
	FacetUnknownFormat FacetStatus = "unknown_format"
	// FacetAbsent means the course simply has no link for this facet.
	FacetAbsent FacetStatus = "absent"
)

type Facet struct {
	Status  FacetStatus
	Message string
}

func (f Facet) Ok() bool {
	return f.Status == FacetOk
}

type Attendance struct {
	Facet
	Kind AttendanceKind
	Url  string
	// Totals is set only when Status is FacetOk.
	Totals *Totals
	// Records is non-nil only for offline attendance.
	Records []AttendanceRecord
}

type Assignment struct {
	Week       string `json:"week"`
	Title      string `json:"title"`
	DueDate    string `json:"due_date"`
	Submission string `json:"submission_status"`
	Grade      string `json:"grade"`
	Url        string `json:"url"`
}

type QuizStatus string

const (
	QuizSubmitted    QuizStatus = "submitted"
	QuizNotSubmitted QuizStatus = "not submitted"
	QuizUnknown      QuizStatus = "unknown"
)

type Quiz struct {
	Week   string     `json:"week"`
	Name   string     `json:"name"`
	Closes string     `json:"quiz_closes"`
	Grade  string     `json:"grade"`
	Url    string     `json:"url"`
	Status QuizStatus `json:"status"`
}

// CourseData is everything scraped from one course.
type CourseData struct {
	Title           string
	SubjectNameFull string
	SubjectName     string
	SubjectCode     string
	ProfessorName   string
	CourseUrl       string

	Attendance Attendance

	AssignmentsFacet Facet
	// Assignments is nil when the facet is not FacetOk.
	Assignments []Assignment

	QuizzesFacet Facet
	// Quizzes is nil when the facet is not FacetOk.
	Quizzes []Quiz
}

type StudentData struct {
	Courses []CourseData
}
