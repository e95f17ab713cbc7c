package eclass

import (
	"context"
	"net/url"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

func (c *Client) assignments(ctx context.Context, coursePage page) (Facet, []Assignment, error) {
	link := FindLink(coursePage.doc, coursePage.url, assignmentIndexLink)
	if link == nil {
		return Facet{Status: FacetAbsent, Message: "no assignment index link"}, nil, nil
	}
	indexPage, err := c.getAuthed(ctx, link.String(), "assignment index")
	if err != nil {
		return Facet{}, nil, err
	}
	facet, items := parseAssignmentIndex(indexPage.doc, indexPage.url)
	if !facet.Ok() {
		c.tel.ReportWarning(report_client_assignments, link.String(), facet.Message)
	}
	return facet, items, nil
}

// parseAssignmentIndex reads week, title (+url), due date, submission and
// grade columns. Rows without a link are kept with an empty url.
func parseAssignmentIndex(doc *goquery.Document, base *url.URL) (Facet, []Assignment) {
	table := doc.Find("table.generaltable").First()
	if table.Length() == 0 {
		return Facet{Status: FacetUnknownFormat, Message: "assignments table not found"}, nil
	}

	items := []Assignment{}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 5 {
			// section dividers
			return
		}
		item := Assignment{
			Week:       htmlutil.Text(tds.Eq(0)),
			DueDate:    htmlutil.Text(tds.Eq(2)),
			Submission: htmlutil.Text(tds.Eq(3)),
			Grade:      htmlutil.Text(tds.Eq(4)),
		}
		anchor := tds.Eq(1).Find("a[href]").First()
		if anchor.Length() > 0 {
			item.Title = htmlutil.Text(anchor)
			if link := htmlutil.ResolveHref(base, anchor.AttrOr("href", "")); link != nil {
				item.Url = link.String()
			}
		} else {
			item.Title = htmlutil.Text(tds.Eq(1))
		}
		if item == (Assignment{}) {
			return
		}
		items = append(items, item)
	})
	return Facet{Status: FacetOk}, items
}
