package reconcile

import (
	"context"
	"database/sql"

	"eclassbot-backend/internal/components/db"
	"eclassbot-backend/internal/notify"
	"eclassbot-backend/internal/scrapers/eclass"

	"github.com/google/uuid"
)

// increased treats a never-stored counter as zero.
func increased(old sql.NullInt64, next int) bool {
	if !old.Valid {
		return next > 0
	}
	return int64(next) > old.Int64
}

func oldCount(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

// attendance stores the new totals and queues an update when any counter
// went up, or when this is the first sync and anything is non-zero. A
// course whose attendance could not be read leaves the stored totals alone.
func (e *Engine) attendance(ctx context.Context, c courseCtx) error {
	att := c.course.Attendance
	if !att.Ok() || att.Totals == nil {
		if att.Status != eclass.FacetAbsent {
			e.tel.ReportDebug(report_facet_skipped, c.course.Title, "attendance", att.Status, att.Message)
		}
		return nil
	}
	next := *att.Totals
	stored := c.enrollment

	firstSync := !stored.Attendance.Valid && !stored.Absence.Valid && !stored.Late.Valid

	param := db.SetEnrollmentAttendanceParams{
		Attendance: nullInt(next.Attendance),
		Absence:    nullInt(next.Absence),
		Late:       nullInt(next.Late),
		ID:         stored.ID,
	}
	err := e.q.SetEnrollmentAttendance(ctx, param)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "SetEnrollmentAttendance", param)
		return err
	}

	if att.Kind == eclass.AttendanceOffline && att.Records != nil {
		err = e.replaceRecords(ctx, stored.ID, att.Records)
		if err != nil {
			return err
		}
	}

	attInc := increased(stored.Attendance, next.Attendance)
	absInc := increased(stored.Absence, next.Absence)
	lateInc := increased(stored.Late, next.Late)
	firstNonZero := firstSync && (next.Attendance > 0 || next.Absence > 0 || next.Late > 0)
	if !attInc && !absInc && !lateInc && !firstNonZero {
		return nil
	}

	key := notify.AttendanceKey(
		c.student.ID, stored.ID, c.course.SubjectCode,
		next.Attendance, next.Absence, next.Late,
	)
	if !e.once(ctx, key, notify.DefaultTTL) {
		return nil
	}
	update := notify.AttendanceUpdate{
		Subject:    c.subject,
		Attendance: notify.Count{Old: oldCount(stored.Attendance), New: next.Attendance, Highlight: attInc || firstNonZero},
		Absence:    notify.Count{Old: oldCount(stored.Absence), New: next.Absence, Highlight: absInc || firstNonZero},
		Late:       notify.Count{Old: oldCount(stored.Late), New: next.Late, Highlight: lateInc || firstNonZero},
		Warning:    absInc || lateInc,
	}
	e.queue(c.student, update.Text())
	return nil
}

func (e *Engine) replaceRecords(ctx context.Context, enrollmentID string, records []eclass.AttendanceRecord) error {
	err := e.q.DeleteAttendanceRecords(ctx, enrollmentID)
	if err != nil {
		e.tel.ReportBroken(report_db_query, err, "DeleteAttendanceRecords", enrollmentID)
		return err
	}
	for _, record := range records {
		param := db.CreateAttendanceRecordParams{
			ID:           uuid.NewString(),
			EnrollmentID: enrollmentID,
			DateOfWeek:   record.DateOfWeek,
			ClassName:    nullString(record.ClassName),
			Attendance:   record.Attendance,
			Absence:      record.Absence,
			Late:         record.Late,
		}
		err = e.q.CreateAttendanceRecord(ctx, param)
		if err != nil {
			e.tel.ReportBroken(report_db_query, err, "CreateAttendanceRecord", param)
			return err
		}
	}
	return nil
}
