// source: queries.sql

package db

import (
	"context"
	"database/sql"
)

const createGroup = `-- name: CreateGroup :exec
insert into student_group(id, name) values (?, ?)
`

type CreateGroupParams struct {
	ID   string
	Name string
}

func (q *Queries) CreateGroup(ctx context.Context, arg CreateGroupParams) error {
	_, err := q.db.ExecContext(ctx, createGroup, arg.ID, arg.Name)
	return err
}

const getGroupByName = `-- name: GetGroupByName :one
select id, name from student_group where name = ?
`

func (q *Queries) GetGroupByName(ctx context.Context, name string) (StudentGroup, error) {
	row := q.db.QueryRowContext(ctx, getGroupByName, name)
	var i StudentGroup
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const createStudent = `-- name: CreateStudent :exec
insert into student(id, student_id, first_name, last_name, password, chat_id, group_id)
values (?, ?, ?, ?, ?, ?, ?)
`

type CreateStudentParams struct {
	ID        string
	StudentID string
	FirstName sql.NullString
	LastName  sql.NullString
	Password  sql.NullString
	ChatID    sql.NullString
	GroupID   sql.NullString
}

func (q *Queries) CreateStudent(ctx context.Context, arg CreateStudentParams) error {
	_, err := q.db.ExecContext(ctx, createStudent,
		arg.ID,
		arg.StudentID,
		arg.FirstName,
		arg.LastName,
		arg.Password,
		arg.ChatID,
		arg.GroupID,
	)
	return err
}

const getStudent = `-- name: GetStudent :one
select id, student_id, first_name, last_name, password, chat_id, group_id from student where id = ?
`

func (q *Queries) GetStudent(ctx context.Context, id string) (Student, error) {
	row := q.db.QueryRowContext(ctx, getStudent, id)
	var i Student
	err := row.Scan(
		&i.ID,
		&i.StudentID,
		&i.FirstName,
		&i.LastName,
		&i.Password,
		&i.ChatID,
		&i.GroupID,
	)
	return i, err
}

func scanStudents(rows *sql.Rows) ([]Student, error) {
	defer rows.Close()
	var items []Student
	for rows.Next() {
		var i Student
		if err := rows.Scan(
			&i.ID,
			&i.StudentID,
			&i.FirstName,
			&i.LastName,
			&i.Password,
			&i.ChatID,
			&i.GroupID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listScrapableStudents = `-- name: ListScrapableStudents :many
select id, student_id, first_name, last_name, password, chat_id, group_id from student
where password is not null and password != ''
    and chat_id is not null and chat_id != ''
order by student_id
`

func (q *Queries) ListScrapableStudents(ctx context.Context) ([]Student, error) {
	rows, err := q.db.QueryContext(ctx, listScrapableStudents)
	if err != nil {
		return nil, err
	}
	return scanStudents(rows)
}

const listStudentsWithChat = `-- name: ListStudentsWithChat :many
select id, student_id, first_name, last_name, password, chat_id, group_id from student
where chat_id is not null and chat_id != '' order by student_id
`

func (q *Queries) ListStudentsWithChat(ctx context.Context) ([]Student, error) {
	rows, err := q.db.QueryContext(ctx, listStudentsWithChat)
	if err != nil {
		return nil, err
	}
	return scanStudents(rows)
}

const listClassStudents = `-- name: ListClassStudents :many
select student.id, student.student_id, student.first_name, student.last_name,
    student.password, student.chat_id, student.group_id
from student
inner join enrollment on enrollment.student_id = student.id
where enrollment.class_id = ? and student.chat_id is not null
`

func (q *Queries) ListClassStudents(ctx context.Context, classID string) ([]Student, error) {
	rows, err := q.db.QueryContext(ctx, listClassStudents, classID)
	if err != nil {
		return nil, err
	}
	return scanStudents(rows)
}

const clearStudentPassword = `-- name: ClearStudentPassword :exec
update student set password = null where id = ?
`

func (q *Queries) ClearStudentPassword(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, clearStudentPassword, id)
	return err
}

const getSubjectByName = `-- name: GetSubjectByName :one
select id, name, short_name from subject where name = ?
`

func (q *Queries) GetSubjectByName(ctx context.Context, name string) (Subject, error) {
	row := q.db.QueryRowContext(ctx, getSubjectByName, name)
	var i Subject
	err := row.Scan(&i.ID, &i.Name, &i.ShortName)
	return i, err
}

const createSubject = `-- name: CreateSubject :exec
insert into subject(id, name, short_name) values (?, ?, ?)
`

type CreateSubjectParams struct {
	ID        string
	Name      string
	ShortName string
}

func (q *Queries) CreateSubject(ctx context.Context, arg CreateSubjectParams) error {
	_, err := q.db.ExecContext(ctx, createSubject, arg.ID, arg.Name, arg.ShortName)
	return err
}

const getProfessorByName = `-- name: GetProfessorByName :one
select id, name from professor where name = ?
`

func (q *Queries) GetProfessorByName(ctx context.Context, name string) (Professor, error) {
	row := q.db.QueryRowContext(ctx, getProfessorByName, name)
	var i Professor
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const createProfessor = `-- name: CreateProfessor :exec
insert into professor(id, name) values (?, ?)
`

type CreateProfessorParams struct {
	ID   string
	Name string
}

func (q *Queries) CreateProfessor(ctx context.Context, arg CreateProfessorParams) error {
	_, err := q.db.ExecContext(ctx, createProfessor, arg.ID, arg.Name)
	return err
}

const getClassByGroupSubject = `-- name: GetClassByGroupSubject :one
select id, group_id, subject_id, professor_id from class where group_id = ? and subject_id = ?
`

type GetClassByGroupSubjectParams struct {
	GroupID   string
	SubjectID string
}

func (q *Queries) GetClassByGroupSubject(ctx context.Context, arg GetClassByGroupSubjectParams) (Class, error) {
	row := q.db.QueryRowContext(ctx, getClassByGroupSubject, arg.GroupID, arg.SubjectID)
	var i Class
	err := row.Scan(&i.ID, &i.GroupID, &i.SubjectID, &i.ProfessorID)
	return i, err
}

const createClass = `-- name: CreateClass :exec
insert into class(id, group_id, subject_id, professor_id) values (?, ?, ?, ?)
`

type CreateClassParams struct {
	ID          string
	GroupID     string
	SubjectID   string
	ProfessorID string
}

func (q *Queries) CreateClass(ctx context.Context, arg CreateClassParams) error {
	_, err := q.db.ExecContext(ctx, createClass,
		arg.ID,
		arg.GroupID,
		arg.SubjectID,
		arg.ProfessorID,
	)
	return err
}

const setClassProfessor = `-- name: SetClassProfessor :exec
update class set professor_id = ? where id = ?
`

type SetClassProfessorParams struct {
	ProfessorID string
	ID          string
}

func (q *Queries) SetClassProfessor(ctx context.Context, arg SetClassProfessorParams) error {
	_, err := q.db.ExecContext(ctx, setClassProfessor, arg.ProfessorID, arg.ID)
	return err
}

const createClassTime = `-- name: CreateClassTime :exec
insert into class_time(id, class_id, week_day, start_time, end_time, room)
values (?, ?, ?, ?, ?, ?)
`

type CreateClassTimeParams struct {
	ID        string
	ClassID   string
	WeekDay   string
	StartTime string
	EndTime   sql.NullString
	Room      sql.NullString
}

func (q *Queries) CreateClassTime(ctx context.Context, arg CreateClassTimeParams) error {
	_, err := q.db.ExecContext(ctx, createClassTime,
		arg.ID,
		arg.ClassID,
		arg.WeekDay,
		arg.StartTime,
		arg.EndTime,
		arg.Room,
	)
	return err
}

const getEnrollment = `-- name: GetEnrollment :one
select id, student_id, class_id, attendance, absence, late from enrollment
where student_id = ? and class_id = ?
`

type GetEnrollmentParams struct {
	StudentID string
	ClassID   string
}

func (q *Queries) GetEnrollment(ctx context.Context, arg GetEnrollmentParams) (Enrollment, error) {
	row := q.db.QueryRowContext(ctx, getEnrollment, arg.StudentID, arg.ClassID)
	var i Enrollment
	err := row.Scan(
		&i.ID,
		&i.StudentID,
		&i.ClassID,
		&i.Attendance,
		&i.Absence,
		&i.Late,
	)
	return i, err
}

const createEnrollment = `-- name: CreateEnrollment :exec
insert into enrollment(id, student_id, class_id) values (?, ?, ?)
`

type CreateEnrollmentParams struct {
	ID        string
	StudentID string
	ClassID   string
}

func (q *Queries) CreateEnrollment(ctx context.Context, arg CreateEnrollmentParams) error {
	_, err := q.db.ExecContext(ctx, createEnrollment, arg.ID, arg.StudentID, arg.ClassID)
	return err
}

const setEnrollmentAttendance = `-- name: SetEnrollmentAttendance :exec
update enrollment set attendance = ?, absence = ?, late = ? where id = ?
`

type SetEnrollmentAttendanceParams struct {
	Attendance sql.NullInt64
	Absence    sql.NullInt64
	Late       sql.NullInt64
	ID         string
}

func (q *Queries) SetEnrollmentAttendance(ctx context.Context, arg SetEnrollmentAttendanceParams) error {
	_, err := q.db.ExecContext(ctx, setEnrollmentAttendance,
		arg.Attendance,
		arg.Absence,
		arg.Late,
		arg.ID,
	)
	return err
}

const listGroupEnrollments = `-- name: ListGroupEnrollments :many
select enrollment.id, enrollment.student_id, enrollment.class_id,
    enrollment.attendance, enrollment.absence, enrollment.late
from enrollment
inner join class on class.id = enrollment.class_id
where enrollment.student_id = ? and class.group_id = ?
`

type ListGroupEnrollmentsParams struct {
	StudentID string
	GroupID   string
}

func (q *Queries) ListGroupEnrollments(ctx context.Context, arg ListGroupEnrollmentsParams) ([]Enrollment, error) {
	rows, err := q.db.QueryContext(ctx, listGroupEnrollments, arg.StudentID, arg.GroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Enrollment
	for rows.Next() {
		var i Enrollment
		if err := rows.Scan(
			&i.ID,
			&i.StudentID,
			&i.ClassID,
			&i.Attendance,
			&i.Absence,
			&i.Late,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStudentEnrollments = `-- name: ListStudentEnrollments :many
select enrollment.id, enrollment.attendance, enrollment.absence, enrollment.late,
    subject.name as subject_name, subject.short_name as subject_code
from enrollment
inner join class on class.id = enrollment.class_id
inner join subject on subject.id = class.subject_id
where enrollment.student_id = ?
order by subject.name
`

type ListStudentEnrollmentsRow struct {
	ID          string
	Attendance  sql.NullInt64
	Absence     sql.NullInt64
	Late        sql.NullInt64
	SubjectName string
	SubjectCode string
}

func (q *Queries) ListStudentEnrollments(ctx context.Context, studentID string) ([]ListStudentEnrollmentsRow, error) {
	rows, err := q.db.QueryContext(ctx, listStudentEnrollments, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListStudentEnrollmentsRow
	for rows.Next() {
		var i ListStudentEnrollmentsRow
		if err := rows.Scan(
			&i.ID,
			&i.Attendance,
			&i.Absence,
			&i.Late,
			&i.SubjectName,
			&i.SubjectCode,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEnrollment = `-- name: DeleteEnrollment :exec
delete from enrollment where id = ?
`

func (q *Queries) DeleteEnrollment(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteEnrollment, id)
	return err
}

const deleteAttendanceRecords = `-- name: DeleteAttendanceRecords :exec
delete from attendance_record where enrollment_id = ?
`

func (q *Queries) DeleteAttendanceRecords(ctx context.Context, enrollmentID string) error {
	_, err := q.db.ExecContext(ctx, deleteAttendanceRecords, enrollmentID)
	return err
}

const createAttendanceRecord = `-- name: CreateAttendanceRecord :exec
insert into attendance_record(id, enrollment_id, date_of_week, class_name, attendance, absence, late)
values (?, ?, ?, ?, ?, ?, ?)
`

type CreateAttendanceRecordParams struct {
	ID           string
	EnrollmentID string
	DateOfWeek   string
	ClassName    sql.NullString
	Attendance   bool
	Absence      bool
	Late         bool
}

func (q *Queries) CreateAttendanceRecord(ctx context.Context, arg CreateAttendanceRecordParams) error {
	_, err := q.db.ExecContext(ctx, createAttendanceRecord,
		arg.ID,
		arg.EnrollmentID,
		arg.DateOfWeek,
		arg.ClassName,
		arg.Attendance,
		arg.Absence,
		arg.Late,
	)
	return err
}

const listAttendanceRecords = `-- name: ListAttendanceRecords :many
select id, enrollment_id, date_of_week, class_name, attendance, absence, late
from attendance_record where enrollment_id = ? order by date_of_week
`

func (q *Queries) ListAttendanceRecords(ctx context.Context, enrollmentID string) ([]AttendanceRecord, error) {
	rows, err := q.db.QueryContext(ctx, listAttendanceRecords, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttendanceRecord
	for rows.Next() {
		var i AttendanceRecord
		if err := rows.Scan(
			&i.ID,
			&i.EnrollmentID,
			&i.DateOfWeek,
			&i.ClassName,
			&i.Attendance,
			&i.Absence,
			&i.Late,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAssignments = `-- name: ListAssignments :many
select id, enrollment_id, week, title, due_date, submission_status, grade, url
from assignment where enrollment_id = ?
`

func (q *Queries) ListAssignments(ctx context.Context, enrollmentID string) ([]Assignment, error) {
	rows, err := q.db.QueryContext(ctx, listAssignments, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Assignment
	for rows.Next() {
		var i Assignment
		if err := rows.Scan(
			&i.ID,
			&i.EnrollmentID,
			&i.Week,
			&i.Title,
			&i.DueDate,
			&i.SubmissionStatus,
			&i.Grade,
			&i.Url,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createAssignment = `-- name: CreateAssignment :exec
insert into assignment(id, enrollment_id, week, title, due_date, submission_status, grade, url)
values (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateAssignmentParams struct {
	ID               string
	EnrollmentID     string
	Week             sql.NullString
	Title            sql.NullString
	DueDate          sql.NullInt64
	SubmissionStatus sql.NullString
	Grade            sql.NullString
	Url              sql.NullString
}

func (q *Queries) CreateAssignment(ctx context.Context, arg CreateAssignmentParams) error {
	_, err := q.db.ExecContext(ctx, createAssignment,
		arg.ID,
		arg.EnrollmentID,
		arg.Week,
		arg.Title,
		arg.DueDate,
		arg.SubmissionStatus,
		arg.Grade,
		arg.Url,
	)
	return err
}

const updateAssignment = `-- name: UpdateAssignment :exec
update assignment set week = ?, title = ?, due_date = ?, submission_status = ?, grade = ?
where id = ?
`

type UpdateAssignmentParams struct {
	Week             sql.NullString
	Title            sql.NullString
	DueDate          sql.NullInt64
	SubmissionStatus sql.NullString
	Grade            sql.NullString
	ID               string
}

func (q *Queries) UpdateAssignment(ctx context.Context, arg UpdateAssignmentParams) error {
	_, err := q.db.ExecContext(ctx, updateAssignment,
		arg.Week,
		arg.Title,
		arg.DueDate,
		arg.SubmissionStatus,
		arg.Grade,
		arg.ID,
	)
	return err
}

const deleteAssignments = `-- name: DeleteAssignments :exec
delete from assignment where enrollment_id = ?
`

func (q *Queries) DeleteAssignments(ctx context.Context, enrollmentID string) error {
	_, err := q.db.ExecContext(ctx, deleteAssignments, enrollmentID)
	return err
}

const listQuizzes = `-- name: ListQuizzes :many
select id, enrollment_id, week, name, close_time, grade, url, status
from quiz where enrollment_id = ?
`

func (q *Queries) ListQuizzes(ctx context.Context, enrollmentID string) ([]Quiz, error) {
	rows, err := q.db.QueryContext(ctx, listQuizzes, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Quiz
	for rows.Next() {
		var i Quiz
		if err := rows.Scan(
			&i.ID,
			&i.EnrollmentID,
			&i.Week,
			&i.Name,
			&i.CloseTime,
			&i.Grade,
			&i.Url,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createQuiz = `-- name: CreateQuiz :exec
insert into quiz(id, enrollment_id, week, name, close_time, grade, url, status)
values (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateQuizParams struct {
	ID           string
	EnrollmentID string
	Week         sql.NullString
	Name         sql.NullString
	CloseTime    sql.NullInt64
	Grade        sql.NullString
	Url          sql.NullString
	Status       sql.NullString
}

func (q *Queries) CreateQuiz(ctx context.Context, arg CreateQuizParams) error {
	_, err := q.db.ExecContext(ctx, createQuiz,
		arg.ID,
		arg.EnrollmentID,
		arg.Week,
		arg.Name,
		arg.CloseTime,
		arg.Grade,
		arg.Url,
		arg.Status,
	)
	return err
}

const updateQuiz = `-- name: UpdateQuiz :exec
update quiz set week = ?, name = ?, close_time = ?, grade = ?, status = ?
where id = ?
`

type UpdateQuizParams struct {
	Week      sql.NullString
	Name      sql.NullString
	CloseTime sql.NullInt64
	Grade     sql.NullString
	Status    sql.NullString
	ID        string
}

func (q *Queries) UpdateQuiz(ctx context.Context, arg UpdateQuizParams) error {
	_, err := q.db.ExecContext(ctx, updateQuiz,
		arg.Week,
		arg.Name,
		arg.CloseTime,
		arg.Grade,
		arg.Status,
		arg.ID,
	)
	return err
}

const deleteQuizzes = `-- name: DeleteQuizzes :exec
delete from quiz where enrollment_id = ?
`

func (q *Queries) DeleteQuizzes(ctx context.Context, enrollmentID string) error {
	_, err := q.db.ExecContext(ctx, deleteQuizzes, enrollmentID)
	return err
}

const upsertSnapshot = `-- name: UpsertSnapshot :exec
insert into snapshot(student_id, payload, updated_at) values (?, ?, ?)
on conflict(student_id) do update set payload = excluded.payload, updated_at = excluded.updated_at
`

type UpsertSnapshotParams struct {
	StudentID string
	Payload   string
	UpdatedAt int64
}

func (q *Queries) UpsertSnapshot(ctx context.Context, arg UpsertSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.StudentID, arg.Payload, arg.UpdatedAt)
	return err
}

const getSnapshot = `-- name: GetSnapshot :one
select student_id, payload, updated_at from snapshot where student_id = ?
`

func (q *Queries) GetSnapshot(ctx context.Context, studentID string) (Snapshot, error) {
	row := q.db.QueryRowContext(ctx, getSnapshot, studentID)
	var i Snapshot
	err := row.Scan(&i.StudentID, &i.Payload, &i.UpdatedAt)
	return i, err
}

const listClassSessionsOnDay = `-- name: ListClassSessionsOnDay :many
select class_time.id as class_time_id, class_time.class_id, class_time.start_time,
    class_time.end_time, class_time.room,
    subject.name as subject_name, subject.short_name as subject_code,
    professor.name as professor_name
from class_time
inner join class on class.id = class_time.class_id
inner join subject on subject.id = class.subject_id
inner join professor on professor.id = class.professor_id
where class_time.week_day = ?
order by class_time.start_time
`

type ListClassSessionsOnDayRow struct {
	ClassTimeID   string
	ClassID       string
	StartTime     string
	EndTime       sql.NullString
	Room          sql.NullString
	SubjectName   string
	SubjectCode   string
	ProfessorName string
}

func (q *Queries) ListClassSessionsOnDay(ctx context.Context, weekDay string) ([]ListClassSessionsOnDayRow, error) {
	rows, err := q.db.QueryContext(ctx, listClassSessionsOnDay, weekDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListClassSessionsOnDayRow
	for rows.Next() {
		var i ListClassSessionsOnDayRow
		if err := rows.Scan(
			&i.ClassTimeID,
			&i.ClassID,
			&i.StartTime,
			&i.EndTime,
			&i.Room,
			&i.SubjectName,
			&i.SubjectCode,
			&i.ProfessorName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
