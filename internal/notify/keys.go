package notify

import (
	"fmt"
	"time"
)

const (
	DefaultTTL    = 90 * 24 * time.Hour
	ReregisterTTL = 24 * time.Hour
	ClassTTL      = 3 * time.Hour
	DigestTTL     = 18 * time.Hour
)

// Tag names one notification kind for an assignment or quiz.
type Tag string

const (
	TagNew    Tag = "new"
	TagGraded Tag = "graded"

	TagDue1 Tag = "due1"
	TagDue2 Tag = "due2"
	TagDue5 Tag = "due5"

	TagClose1 Tag = "close1"
	TagClose2 Tag = "close2"
	TagClose5 Tag = "close5"
)

func AttendanceKey(studentID, enrollmentID, subjectCode string, attendance, absence, late int) string {
	return fmt.Sprintf(
		"notify:u:%s:e:%s:att:%s:%d:%d:%d",
		studentID, enrollmentID, subjectCode, attendance, absence, late,
	)
}

func AssignmentKey(studentID, enrollmentID, url string, tag Tag) string {
	return fmt.Sprintf("notify:u:%s:e:%s:a:%s:%s", studentID, enrollmentID, url, tag)
}

func QuizKey(studentID, enrollmentID, url string, tag Tag) string {
	return fmt.Sprintf("notify:u:%s:e:%s:q:%s:%s", studentID, enrollmentID, url, tag)
}

func ReregisterKey(studentID string) string {
	return fmt.Sprintf("notify:u:%s:reregister", studentID)
}

// ClassReminderKey identifies one occurrence of a class for one student.
func ClassReminderKey(studentID, classID string, start time.Time) string {
	return fmt.Sprintf("rem:30m:%s:%s:%s", studentID, classID, start.Format("20060102_1504"))
}

func DigestKey(studentID string, day time.Time) string {
	return fmt.Sprintf("rem:daily:%s:%s", studentID, day.Format("20060102"))
}
