package eclass

import (
	"context"
	"strings"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// ScrapeCourse extracts one course. Attendance is always read (and the session
// verified) before assignments and quizzes.
func (c *Client) ScrapeCourse(ctx context.Context, course Course) (CourseData, error) {
	coursePage, err := c.getAuthed(ctx, course.Url.String(), "course page")
	if err != nil {
		return CourseData{}, err
	}

	fullName := htmlutil.Text(coursePage.doc.Find(".coursename h1 a").First())
	if fullName == "" {
		fullName = course.Title
	}
	data := CourseData{
		Title:           course.Title,
		SubjectNameFull: fullName,
		SubjectName:     StripTitle(fullName),
		SubjectCode:     SubjectKey(fullName),
		ProfessorName:   professorName(coursePage.doc),
		CourseUrl:       course.Url.String(),
	}
	if data.SubjectName == "" {
		data.SubjectName = course.Title
	}

	data.Attendance, err = c.attendance(ctx, coursePage)
	if err != nil {
		return CourseData{}, err
	}
	data.AssignmentsFacet, data.Assignments, err = c.assignments(ctx, coursePage)
	if err != nil {
		return CourseData{}, err
	}
	data.QuizzesFacet, data.Quizzes, err = c.quizzes(ctx, coursePage)
	if err != nil {
		return CourseData{}, err
	}

	c.tel.ReportDebug(
		"scraped course",
		"subject", data.SubjectCode,
		"attendance", string(data.Attendance.Status),
		"assignments", len(data.Assignments),
		"quizzes", len(data.Quizzes),
	)
	return data, nil
}

// professorName takes the first media heading that reads like a person's
// name: two to four words, at most 80 characters.
func professorName(doc *goquery.Document) string {
	var name string
	doc.Find("h4.media-heading").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := htmlutil.Text(h)
		words := len(strings.Fields(text))
		if words >= 2 && words <= 4 && len(text) <= 80 {
			name = text
			return false
		}
		return true
	})
	return name
}
