package eclass

import (
	"context"
	"strings"
	"time"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const countsBlockSelector = "div.user_attendance_table div.att_count, div.user_attendance div.att_count, div.att_count"

var attendanceMarks = map[string]bool{"○": true, "O": true, "o": true, "◯": true}

func isMarked(cell string) bool {
	return attendanceMarks[strings.TrimSpace(cell)]
}

// attendance locates the attendance link on the course page (offline takes
// precedence over online) and parses the linked page.
func (c *Client) attendance(ctx context.Context, coursePage page) (Attendance, error) {
	kind := AttendanceOffline
	link := FindLink(coursePage.doc, coursePage.url, offlineAttendanceLink)
	if link == nil {
		kind = AttendanceOnline
		link = FindLink(coursePage.doc, coursePage.url, onlineAttendanceLink)
	}
	if link == nil {
		return Attendance{Facet: Facet{Status: FacetAbsent, Message: "no attendance link"}}, nil
	}

	attPage, err := c.getAuthed(ctx, link.String(), "attendance page")
	if err != nil {
		return Attendance{}, err
	}

	var result Attendance
	if kind == AttendanceOffline {
		result = parseOfflineAttendance(attPage.doc)
	} else {
		result = parseOnlineAttendance(attPage.doc, coursePage.doc)
	}
	result.Kind = kind
	result.Url = link.String()
	if !result.Ok() {
		c.tel.ReportWarning(report_client_attendance, link.String(), string(result.Status), result.Message)
	}
	return result, nil
}

func notSetAttendance(doc *goquery.Document) (Attendance, bool) {
	if msg, ok := NotSetMessage(doc); ok {
		return Attendance{Facet: Facet{Status: FacetNotSet, Message: msg}}, true
	}
	return Attendance{}, false
}

// parseOfflineAttendance reads the dated rows of table.attendance_my and the
// totals in its footer, falling back to a counts block.
func parseOfflineAttendance(doc *goquery.Document) Attendance {
	if notSet, ok := notSetAttendance(doc); ok {
		return notSet
	}

	table := doc.Find("table.attendance_my").First()
	if table.Length() == 0 {
		box := doc.Find(countsBlockSelector).First()
		if box.Length() > 0 {
			if totals, ok := ParseCounts(box); ok {
				return Attendance{Facet: Facet{Status: FacetOk}, Totals: &totals}
			}
		}
		if totals, ok := parseFooterTotals(htmlutil.Text(doc.Find("body"))); ok {
			return Attendance{Facet: Facet{Status: FacetOk}, Totals: &totals}
		}
		return Attendance{Facet: Facet{Status: FacetUnknownFormat, Message: "offline attendance format not recognized"}}
	}

	records := []AttendanceRecord{}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 5 {
			return
		}
		cell := func(i int) string {
			return htmlutil.Text(tds.Eq(i))
		}
		records = append(records, AttendanceRecord{
			DateOfWeek: normalizeDate(cell(0)),
			ClassName:  cell(1),
			Attendance: isMarked(cell(2)),
			Absence:    isMarked(cell(3)),
			Late:       isMarked(cell(4)),
		})
	})

	totals, ok := parseFooterTotals(htmlutil.Text(table.Find("tfoot")))
	if !ok {
		totals = Totals{}
		for _, r := range records {
			if r.Attendance {
				totals.Attendance++
			}
			if r.Absence {
				totals.Absence++
			}
			if r.Late {
				totals.Late++
			}
		}
	}
	return Attendance{
		Facet:   Facet{Status: FacetOk},
		Totals:  &totals,
		Records: records,
	}
}

// parseOnlineAttendance reads the cumulative counts block, which the portal
// renders on the progress page or only on the course page.
func parseOnlineAttendance(attDoc, courseDoc *goquery.Document) Attendance {
	if notSet, ok := notSetAttendance(attDoc); ok {
		return notSet
	}

	box := attDoc.Find(countsBlockSelector).First()
	if box.Length() == 0 {
		box = courseDoc.Find(countsBlockSelector).First()
	}
	if box.Length() == 0 {
		return Attendance{Facet: Facet{Status: FacetUnknownFormat, Message: "online attendance block not found"}}
	}
	totals, ok := ParseCounts(box)
	if !ok {
		return Attendance{Facet: Facet{Status: FacetUnknownFormat, Message: "online attendance counts not found"}}
	}
	return Attendance{Facet: Facet{Status: FacetOk}, Totals: &totals}
}

// normalizeDate returns YYYY-MM-DD, or the raw text when it is not a date.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"2006-01-02", "2006.01.02", "2006/01/02"} {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.Format("2006-01-02")
		}
	}
	if len(raw) > 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
