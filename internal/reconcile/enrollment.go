package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/scrapers/eclass"

	"github.com/google/uuid"
)

// resolveEnrollment finds or creates the subject, professor, class and
// enrollment a scraped course belongs to within the student's group.
func (e *Engine) resolveEnrollment(ctx context.Context, student db.Student, course eclass.CourseData) (db.Enrollment, error) {
	name := strings.TrimSpace(course.SubjectName)
	if name == "" {
		name = eclass.StripTitle(course.Title)
	}
	code := strings.TrimSpace(course.SubjectCode)
	if code == "" {
		code = eclass.SubjectKey(name)
	}

	subject, err := e.subject(ctx, name, code)
	if err != nil {
		return db.Enrollment{}, err
	}
	professor, err := e.professor(ctx, strings.TrimSpace(course.ProfessorName))
	if err != nil {
		return db.Enrollment{}, err
	}
	class, err := e.class(ctx, student.GroupID.String, subject.ID, professor.ID)
	if err != nil {
		return db.Enrollment{}, err
	}

	param := db.GetEnrollmentParams{StudentID: student.ID, ClassID: class.ID}
	enrollment, err := e.q.GetEnrollment(ctx, param)
	if err == nil {
		return enrollment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		e.tel.ReportBroken(report_db_query, err, "GetEnrollment", param)
		return db.Enrollment{}, err
	}

	// counters stay null so the first sync can be told apart
	create := db.CreateEnrollmentParams{
		ID:        uuid.NewString(),
		StudentID: student.ID,
		ClassID:   class.ID,
	}
	err = e.q.CreateEnrollment(ctx, create)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "CreateEnrollment", create)
		return db.Enrollment{}, err
	}
	return db.Enrollment{ID: create.ID, StudentID: student.ID, ClassID: class.ID}, nil
}

func (e *Engine) subject(ctx context.Context, name, code string) (db.Subject, error) {
	if cached, ok := e.subjects[name]; ok {
		return cached, nil
	}
	subject, err := e.q.GetSubjectByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		subject = db.Subject{ID: uuid.NewString(), Name: name, ShortName: code}
		err = e.q.CreateSubject(ctx, db.CreateSubjectParams{
			ID:        subject.ID,
			Name:      subject.Name,
			ShortName: subject.ShortName,
		})
		if err != nil {
			e.tel.ReportBroken(report_db_query, err, "CreateSubject", name)
			return db.Subject{}, err
		}
	} else if err != nil {
		e.tel.ReportBroken(report_db_query, err, "GetSubjectByName", name)
		return db.Subject{}, err
	}
	e.subjects[name] = subject
	return subject, nil
}

func (e *Engine) professor(ctx context.Context, name string) (db.Professor, error) {
	if cached, ok := e.professors[name]; ok {
		return cached, nil
	}
	professor, err := e.q.GetProfessorByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		professor = db.Professor{ID: uuid.NewString(), Name: name}
		err = e.q.CreateProfessor(ctx, db.CreateProfessorParams{ID: professor.ID, Name: name})
		if err != nil {
			e.tel.ReportBroken(report_db_query, err, "CreateProfessor", name)
			return db.Professor{}, err
		}
	} else if err != nil {
		e.tel.ReportBroken(report_db_query, err, "GetProfessorByName", name)
		return db.Professor{}, err
	}
	e.professors[name] = professor
	return professor, nil
}

// class returns the group's class for a subject. A class is unique per
// (group, subject), a different professor updates it in place.
func (e *Engine) class(ctx context.Context, groupID, subjectID, professorID string) (db.Class, error) {
	key := classKey{group: groupID, subject: subjectID}
	class, ok := e.classes[key]
	if !ok {
		param := db.GetClassByGroupSubjectParams{GroupID: groupID, SubjectID: subjectID}
		var err error
		class, err = e.q.GetClassByGroupSubject(ctx, param)
		if errors.Is(err, sql.ErrNoRows) {
			class = db.Class{
				ID:          uuid.NewString(),
				GroupID:     groupID,
				SubjectID:   subjectID,
				ProfessorID: professorID,
			}
			err = e.q.CreateClass(ctx, db.CreateClassParams{
				ID:          class.ID,
				GroupID:     groupID,
				SubjectID:   subjectID,
				ProfessorID: professorID,
			})
			if err != nil {
				e.tel.ReportBroken(report_db_query, err, "CreateClass", param)
				return db.Class{}, err
			}
		} else if err != nil {
			e.tel.ReportBroken(report_db_query, err, "GetClassByGroupSubject", param)
			return db.Class{}, err
		}
	}

	if class.ProfessorID != professorID {
		param := db.SetClassProfessorParams{ProfessorID: professorID, ID: class.ID}
		err := e.q.SetClassProfessor(ctx, param)
		if err != nil {
			e.tel.ReportBroken(report_db_query, err, "SetClassProfessor", param)
			return db.Class{}, err
		}
		class.ProfessorID = professorID
	}
	e.classes[key] = class
	return class, nil
}
