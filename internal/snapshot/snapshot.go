package snapshot

import (
	"strings"
	"time"

	"eclassbot-backend/internal/scrapers/eclass"
)

// Snapshot is the read-back view of one student's latest scrape.
type Snapshot struct {
	StudentID string    `json:"student_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Subjects  []Subject `json:"subjects"`
}

type Subject struct {
	SubjectCode       string                    `json:"subject_code"`
	SubjectName       string                    `json:"subject_name"`
	ProfessorName     string                    `json:"professor_name"`
	CourseUrl         string                    `json:"course_url"`
	AttendanceTotals  eclass.Totals             `json:"attendance_totals"`
	AttendanceRecords []eclass.AttendanceRecord `json:"attendance_records"`
	Assignments       []eclass.Assignment       `json:"assignments"`
	Quizzes           []eclass.Quiz             `json:"quizzes"`
}

// cacheWindow bounds how far ahead an open assignment can be due and still
// be kept in the cached copy.
const cacheWindow = 12 * 24 * time.Hour

const notSubmitted = "No submission"

// FromScrape builds the snapshot of a scrape. Facets that could not be read
// come out as zero totals or nil lists.
func FromScrape(studentID, firstName, lastName string, data eclass.StudentData) Snapshot {
	out := Snapshot{
		StudentID: studentID,
		FirstName: firstName,
		LastName:  lastName,
		Subjects:  make([]Subject, 0, len(data.Courses)),
	}
	for _, course := range data.Courses {
		subject := Subject{
			SubjectCode:   course.SubjectCode,
			SubjectName:   course.SubjectName,
			ProfessorName: course.ProfessorName,
			CourseUrl:     course.CourseUrl,
		}
		if course.Attendance.Ok() && course.Attendance.Totals != nil {
			subject.AttendanceTotals = *course.Attendance.Totals
		}
		if len(course.Attendance.Records) > 0 {
			subject.AttendanceRecords = course.Attendance.Records
		}
		if len(course.Assignments) > 0 {
			subject.Assignments = course.Assignments
		}
		if len(course.Quizzes) > 0 {
			subject.Quizzes = course.Quizzes
		}
		out.Subjects = append(out.Subjects, subject)
	}
	return out
}

// ForCache returns a copy that only keeps assignments which still need a
// submission and are due within the next 12 days.
func (s Snapshot) ForCache(now time.Time) Snapshot {
	out := s
	out.Subjects = make([]Subject, len(s.Subjects))
	for i, subject := range s.Subjects {
		var open []eclass.Assignment
		for _, a := range subject.Assignments {
			if strings.TrimSpace(a.Submission) != notSubmitted {
				continue
			}
			due, ok := eclass.ParseDeadline(a.DueDate, now.Location())
			if !ok {
				continue
			}
			left := due.Sub(now)
			if left <= 0 || left > cacheWindow {
				continue
			}
			open = append(open, a)
		}
		subject.Assignments = open
		out.Subjects[i] = subject
	}
	return out
}
