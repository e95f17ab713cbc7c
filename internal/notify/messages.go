package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"eclassbot-backend/internal/scrapers/eclass"
)

// messages are Telegram HTML, every interpolated value goes through esc.

const divider = "━━━━━━━━━━━━━━"

const dateLayout = "02-01-2006 15:04"

func esc(s string) string {
	return html.EscapeString(s)
}

// SubjectLabel is how a course is titled in messages.
func SubjectLabel(code, name string) string {
	switch {
	case code != "" && name != "":
		return code + " - " + name
	case name != "":
		return name
	case code != "":
		return code
	}
	return "Subject"
}

// Count is one attendance counter before and after a sync. Old is nil when
// the counter was never stored.
type Count struct {
	Old       *int
	New       int
	Highlight bool
}

func (c Count) line(emoji, label string) string {
	before := "—"
	if c.Old != nil {
		before = strconv.Itoa(*c.Old)
	}
	if c.Highlight {
		return fmt.Sprintf("%s <b>%s:</b> <b>%s → %d</b>", emoji, label, before, c.New)
	}
	return fmt.Sprintf("%s <b>%s:</b> %s → %d", emoji, label, before, c.New)
}

type AttendanceUpdate struct {
	Subject    string
	Attendance Count
	Absence    Count
	Late       Count
	// Warning is set when absences or lates went up.
	Warning bool
}

func (u AttendanceUpdate) Text() string {
	header := "✅ <b>Attendance Update</b>"
	if u.Warning {
		header = "⚠️ <b>Warning: Attendance Update</b>"
	}
	return strings.Join([]string{
		header,
		"<b>" + esc(u.Subject) + "</b>",
		"",
		u.Attendance.line("✅", "Attendance"),
		u.Absence.line("⚠️", "Absence"),
		u.Late.line("⏳", "Late"),
		"",
		"Keep it up 💪",
	}, "\n")
}

// NewItem is one freshly seen assignment or quiz in a batched notice.
type NewItem struct {
	Name string
	// Deadline is zero when the item has none.
	Deadline time.Time
	Url      string
}

func deadlineText(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

func NewAssignments(subject string, items []NewItem) string {
	var b strings.Builder
	plural := ""
	if len(items) > 1 {
		plural = "s"
	}
	fmt.Fprintf(&b, "🆕 <b>%d New assignment%s added</b>\n%s\n📘 <b>%s</b>\n\n", len(items), plural, divider, esc(subject))
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(
			&b,
			"📝 <b>%s</b>\n📅 Deadline: <b>%s</b>\n🔗 <a href=\"%s\">Open</a>",
			esc(item.Name), deadlineText(item.Deadline), esc(item.Url),
		)
	}
	fmt.Fprintf(&b, "\n\n%s\n✅ Good luck! Submit early 💪", divider)
	return b.String()
}

func NewQuizzes(subject string, items []NewItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>New Quiz Available!</b>\n%s\n📘 <b>%s</b>\n\n", divider, esc(subject))
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(
			&b,
			"• <b>%s</b>\n  Closes: <b>%s</b>\n  <a href=\"%s\">Open</a>",
			esc(item.Name), deadlineText(item.Deadline), esc(item.Url),
		)
	}
	fmt.Fprintf(&b, "\n\n%s\n🚀 Don't forget to complete it on time!", divider)
	return b.String()
}

// Reminder is a deadline reminder for one assignment or quiz.
type Reminder struct {
	Subject  string
	Name     string
	Deadline time.Time
	Left     time.Duration
	Url      string
	// Urgent selects the last-day header.
	Urgent bool
}

func (r Reminder) body(deadlineLabel string) string {
	return fmt.Sprintf(
		"📘 <b>%s</b>\n\n📝 <b>%s</b>\n📅 %s: <b>%s</b>\n⏰ Time left: <b>%s</b>\n\n🔗 <a href=\"%s\">Open</a>",
		esc(r.Subject), esc(r.Name), deadlineLabel,
		r.Deadline.Format(dateLayout), eclass.FormatTimeLeft(r.Left), esc(r.Url),
	)
}

func AssignmentReminder(r Reminder) string {
	header := "⏳ <b>Assignment deadline is coming</b>"
	if r.Urgent {
		header = "🚨 <b>Assignment deadline in 24h!</b>"
	}
	return strings.Join([]string{
		header, divider, r.body("Deadline"), divider, "🚀 Don't miss the deadline!",
	}, "\n")
}

func QuizReminder(r Reminder) string {
	header := "⏳ <b>Quiz reminder</b>"
	if r.Urgent {
		header = "🚨 <b>Quiz closing soon!</b>"
	}
	return strings.Join([]string{
		header, divider, r.body("Closes"), divider, "⚡ Don't wait until the last minute!",
	}, "\n")
}

func AssignmentGraded(subject, name, grade, url string) string {
	return fmt.Sprintf(
		"✅ <b>Assignment graded</b>\n<b>%s</b>\n• %s\nGrade: <b>%s</b>\n%s",
		esc(subject), esc(name), esc(grade), esc(url),
	)
}

const Reregister = "⚠️ <b>Authentication Error</b>\n\n" +
	"Your password appears to be incorrect or recently changed.\n" +
	"For security reasons, please register again.\n\n" +
	"🚀 Tap /start to begin registration."

const ScrapeCompleted = "✅ Your e-class data is ready. Tap /start to continue."

// AbsenceWarningAt is the absence count from which class reminders carry a
// warning line.
const AbsenceWarningAt = 5

// ClassSession is one timetable slot as shown to a student.
type ClassSession struct {
	Subject   string
	Professor string
	Room      string
	Start     string
	End       string
	// Stats is the student's cached attendance for the subject, if known.
	Stats *eclass.Totals
}

func (s ClassSession) timeRange() string {
	if s.End == "" {
		return s.Start
	}
	return s.Start + " – " + s.End
}

func greetingName(firstName string) string {
	if firstName == "" {
		return "there"
	}
	return esc(firstName)
}

func ClassReminder(firstName, weekday string, session ClassSession) string {
	lines := []string{
		fmt.Sprintf("👋 Hey %s!", greetingName(firstName)),
		"",
		"⏰ Heads up! Your class is starting soon 👀",
		"",
		"📘 <b>" + esc(session.Subject) + "</b>",
	}
	if session.Professor != "" {
		lines = append(lines, "👨‍🏫 "+esc(session.Professor))
	}
	if session.Room != "" {
		lines = append(lines, "🏫 Room: "+esc(session.Room))
	}
	lines = append(lines, "", "🕒 "+session.timeRange(), "📅 "+capitalize(weekday))
	if session.Stats != nil {
		lines = append(lines, "", fmt.Sprintf(
			"📊 Attendance: %d · Absence: %d · Late: %d",
			session.Stats.Attendance, session.Stats.Absence, session.Stats.Late,
		))
		if session.Stats.Absence >= AbsenceWarningAt {
			lines = append(lines, fmt.Sprintf("⚠️ <b>You already have %d absences in this class.</b>", session.Stats.Absence))
		}
	}
	lines = append(lines, "", "Don't be late, your future self will thank you 😄")
	return strings.Join(lines, "\n")
}

// DailyDigest lists today's classes, sessions must already be sorted by start.
func DailyDigest(firstName, weekday string, sessions []ClassSession) string {
	if len(sessions) == 0 {
		return fmt.Sprintf(
			"Hello, %s 👋\n\n📅 You have <b>no classes today (%s)</b>.\nEnjoy your day! 😊",
			greetingName(firstName), capitalize(weekday),
		)
	}
	lines := []string{
		fmt.Sprintf("Hello, %s 👋", greetingName(firstName)),
		"",
		fmt.Sprintf("📅 <b>Your timetable for %s</b>", capitalize(weekday)),
		"",
	}
	for _, s := range sessions {
		lines = append(lines,
			"🕒 <b>"+s.timeRange()+"</b>",
			"📘 <b>"+esc(s.Subject)+"</b>",
		)
		if s.Professor != "" {
			lines = append(lines, "👨‍🏫 "+esc(s.Professor))
		}
		if s.Room != "" {
			lines = append(lines, "🏫 "+esc(s.Room))
		}
		if s.Stats != nil {
			lines = append(lines, fmt.Sprintf("⚠️ Absence: %d · ⏳ Late: %d", s.Stats.Absence, s.Stats.Late))
		}
		lines = append(lines, "")
	}
	lines = append(lines, "✅ Have a productive class!")
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
