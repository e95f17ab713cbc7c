package db

import (
	"database/sql"
)

type StudentGroup struct {
	ID   string
	Name string
}

type Subject struct {
	ID        string
	Name      string
	ShortName string
}

type Professor struct {
	ID   string
	Name string
}

type Class struct {
	ID          string
	GroupID     string
	SubjectID   string
	ProfessorID string
}

type ClassTime struct {
	ID        string
	ClassID   string
	WeekDay   string
	StartTime string
	EndTime   sql.NullString
	Room      sql.NullString
}

type Student struct {
	ID        string
	StudentID string
	FirstName sql.NullString
	LastName  sql.NullString
	Password  sql.NullString
	ChatID    sql.NullString
	GroupID   sql.NullString
}

type Enrollment struct {
	ID         string
	StudentID  string
	ClassID    string
	Attendance sql.NullInt64
	Absence    sql.NullInt64
	Late       sql.NullInt64
}

type AttendanceRecord struct {
	ID           string
	EnrollmentID string
	DateOfWeek   string
	ClassName    sql.NullString
	Attendance   bool
	Absence      bool
	Late         bool
}

type Assignment struct {
	ID               string
	EnrollmentID     string
	Week             sql.NullString
	Title            sql.NullString
	DueDate          sql.NullInt64
	SubmissionStatus sql.NullString
	Grade            sql.NullString
	Url              sql.NullString
}

type Quiz struct {
	ID           string
	EnrollmentID string
	Week         sql.NullString
	Name         sql.NullString
	CloseTime    sql.NullInt64
	Grade        sql.NullString
	Url          sql.NullString
	Status       sql.NullString
}

type Snapshot struct {
	StudentID string
	Payload   string
	UpdatedAt int64
}
