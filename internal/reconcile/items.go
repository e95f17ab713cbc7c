package reconcile

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"

	"github.com/google/uuid"
)

const notSubmitted = "No submission"

const day = 24 * time.Hour

// tier picks the tightest reminder window that applies, or "" when the
// deadline is further than five days out.
func tier(left time.Duration, one, two, five notify.Tag) notify.Tag {
	switch {
	case left <= day:
		return one
	case left <= 2*day:
		return two
	case left <= 5*day:
		return five
	}
	return ""
}

// normGrade maps the portal's placeholders for "no grade yet" to "".
func normGrade(grade string) string {
	grade = strings.TrimSpace(grade)
	switch grade {
	case "", "-", "None":
		return ""
	}
	return grade
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time, ok bool) sql.NullInt64 {
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func (e *Engine) assignments(ctx context.Context, c courseCtx) error {
	if !c.course.AssignmentsFacet.Ok() {
		return nil
	}
	if len(c.course.Assignments) == 0 {
		return nil
	}

	existing, err := e.q.ListAssignments(ctx, c.enrollment.ID)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "ListAssignments", c.enrollment.ID)
		return err
	}
	byUrl := make(map[string]db.Assignment, len(existing))
	for _, row := range existing {
		if row.Url.Valid && row.Url.String != "" {
			byUrl[row.Url.String] = row
		}
	}

	loc := c.now.Location()
	var fresh []notify.NewItem
	for _, item := range c.course.Assignments {
		url := strings.TrimSpace(item.Url)
		name := item.Title
		if name == "" {
			name = "Assignment"
		}
		due, hasDue := eclass.ParseDeadline(item.DueDate, loc)
		open := strings.TrimSpace(item.Submission) == notSubmitted
		upcoming := hasDue && due.After(c.now)

		row, found := db.Assignment{}, false
		if url != "" {
			row, found = byUrl[url]
		}
		oldGrade := ""
		if found {
			oldGrade = normGrade(row.Grade.String)
			param := db.UpdateAssignmentParams{
				Week:             nullString(item.Week),
				Title:            nullString(item.Title),
				DueDate:          nullTime(due, hasDue),
				SubmissionStatus: nullString(item.Submission),
				Grade:            nullString(item.Grade),
				ID:               row.ID,
			}
			err = e.q.UpdateAssignment(ctx, param)
			if err != nil {
				e.tel.ReportBroken(report_db_query, err, "UpdateAssignment", param)
				return err
			}
		} else {
			param := db.CreateAssignmentParams{
				ID:               uuid.NewString(),
				EnrollmentID:     c.enrollment.ID,
				Week:             nullString(item.Week),
				Title:            nullString(item.Title),
				DueDate:          nullTime(due, hasDue),
				SubmissionStatus: nullString(item.Submission),
				Grade:            nullString(item.Grade),
				Url:              nullString(url),
			}
			err = e.q.CreateAssignment(ctx, param)
			if err != nil {
				e.tel.ReportBroken(report_db_query, err, "CreateAssignment", param)
				return err
			}
			if url != "" {
				byUrl[url] = db.Assignment{ID: param.ID, Url: param.Url, Grade: param.Grade}
			}
		}

		if url == "" {
			// nothing to key notifications on, the row is stored again on every pass
			e.tel.ReportWarning(report_url_less_item, c.course.Title, "assignment", name)
			continue
		}

		if !found && open && upcoming {
			if e.once(ctx, notify.AssignmentKey(c.student.ID, c.enrollment.ID, url, notify.TagNew), notify.DefaultTTL) {
				fresh = append(fresh, notify.NewItem{Name: name, Deadline: due, Url: url})
			}
			// the new-item notice covers the 5 and 2 day tiers, only due1 stays live
			if due.Sub(c.now) <= 5*day {
				e.suppress(ctx, notify.AssignmentKey(c.student.ID, c.enrollment.ID, url, notify.TagDue5))
				e.suppress(ctx, notify.AssignmentKey(c.student.ID, c.enrollment.ID, url, notify.TagDue2))
			}
		}

		if open && upcoming {
			left := due.Sub(c.now)
			tag := tier(left, notify.TagDue1, notify.TagDue2, notify.TagDue5)
			if tag != "" && e.once(ctx, notify.AssignmentKey(c.student.ID, c.enrollment.ID, url, tag), notify.DefaultTTL) {
				e.queue(c.student, notify.AssignmentReminder(notify.Reminder{
					Subject:  c.subject,
					Name:     name,
					Deadline: due,
					Left:     left,
					Url:      url,
					Urgent:   tag == notify.TagDue1,
				}))
			}
		}

		grade := normGrade(item.Grade)
		if grade != "" && oldGrade == "" {
			if e.once(ctx, notify.AssignmentKey(c.student.ID, c.enrollment.ID, url, notify.TagGraded), notify.DefaultTTL) {
				e.queue(c.student, notify.AssignmentGraded(c.subject, name, grade, url))
			}
		}
	}

	if len(fresh) > 0 {
		e.queue(c.student, notify.NewAssignments(c.subject, fresh))
	}
	return nil
}

// quizzes follows assignments, except that submission comes from the quiz
// detail page and a quiz without a close time is still announced.
func (e *Engine) quizzes(ctx context.Context, c courseCtx) error {
	if !c.course.QuizzesFacet.Ok() {
		return nil
	}
	if len(c.course.Quizzes) == 0 {
		return nil
	}

	existing, err := e.q.ListQuizzes(ctx, c.enrollment.ID)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "ListQuizzes", c.enrollment.ID)
		return err
	}
	byUrl := make(map[string]db.Quiz, len(existing))
	for _, row := range existing {
		if row.Url.Valid && row.Url.String != "" {
			byUrl[row.Url.String] = row
		}
	}

	loc := c.now.Location()
	var fresh []notify.NewItem
	for _, item := range c.course.Quizzes {
		url := strings.TrimSpace(item.Url)
		name := item.Name
		if name == "" {
			name = "Quiz"
		}
		closes, hasClose := eclass.ParseDeadline(item.Closes, loc)
		open := item.Status != eclass.QuizSubmitted
		overdue := hasClose && !closes.After(c.now)

		row, found := db.Quiz{}, false
		if url != "" {
			row, found = byUrl[url]
		}
		if found {
			param := db.UpdateQuizParams{
				Week:      nullString(item.Week),
				Name:      nullString(name),
				CloseTime: nullTime(closes, hasClose),
				Grade:     nullString(item.Grade),
				Status:    nullString(string(item.Status)),
				ID:        row.ID,
			}
			err = e.q.UpdateQuiz(ctx, param)
			if err != nil {
				e.tel.ReportBroken(report_db_query, err, "UpdateQuiz", param)
				return err
			}
		} else {
			param := db.CreateQuizParams{
				ID:           uuid.NewString(),
				EnrollmentID: c.enrollment.ID,
				Week:         nullString(item.Week),
				Name:         nullString(name),
				CloseTime:    nullTime(closes, hasClose),
				Grade:        nullString(item.Grade),
				Url:          nullString(url),
				Status:       nullString(string(item.Status)),
			}
			err = e.q.CreateQuiz(ctx, param)
			if err != nil {
				e.tel.ReportBroken(report_db_query, err, "CreateQuiz", param)
				return err
			}
			if url != "" {
				byUrl[url] = db.Quiz{ID: param.ID, Url: param.Url}
			}
		}

		if url == "" {
			e.tel.ReportWarning(report_url_less_item, c.course.Title, "quiz", name)
			continue
		}
		if !open || overdue {
			continue
		}

		if !found {
			if e.once(ctx, notify.QuizKey(c.student.ID, c.enrollment.ID, url, notify.TagNew), notify.DefaultTTL) {
				var deadline time.Time
				if hasClose {
					deadline = closes
				}
				fresh = append(fresh, notify.NewItem{Name: name, Deadline: deadline, Url: url})
			}
			if hasClose {
				if closes.Sub(c.now) <= 5*day {
					e.suppress(ctx, notify.QuizKey(c.student.ID, c.enrollment.ID, url, notify.TagClose5))
					e.suppress(ctx, notify.QuizKey(c.student.ID, c.enrollment.ID, url, notify.TagClose2))
				}
			}
		}

		if !hasClose {
			continue
		}
		left := closes.Sub(c.now)
		tag := tier(left, notify.TagClose1, notify.TagClose2, notify.TagClose5)
		if tag != "" && e.once(ctx, notify.QuizKey(c.student.ID, c.enrollment.ID, url, tag), notify.DefaultTTL) {
			e.queue(c.student, notify.QuizReminder(notify.Reminder{
				Subject:  c.subject,
				Name:     name,
				Deadline: closes,
				Left:     left,
				Url:      url,
				Urgent:   tag == notify.TagClose1,
			}))
		}
	}

	if len(fresh) > 0 {
		e.queue(c.student, notify.NewQuizzes(c.subject, fresh))
	}
	return nil
}
