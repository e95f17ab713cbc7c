package eclass

import (
	"context"
	"net/url"
	"strings"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

func (c *Client) quizzes(ctx context.Context, coursePage page) (Facet, []Quiz, error) {
	link := FindLink(coursePage.doc, coursePage.url, quizIndexLink)
	if link == nil {
		return Facet{Status: FacetAbsent, Message: "no quiz index link"}, nil, nil
	}
	indexPage, err := c.getAuthed(ctx, link.String(), "quiz index")
	if err != nil {
		return Facet{}, nil, err
	}
	facet, items := parseQuizIndex(indexPage.doc, indexPage.url)
	if !facet.Ok() {
		c.tel.ReportWarning(report_client_quizzes, link.String(), facet.Message)
		return facet, nil, nil
	}

	for i := range items {
		items[i].Status = c.quizStatus(ctx, items[i].Url)
	}
	return facet, items, nil
}

// parseQuizIndex reads week, name (+url), close time and grade columns, a
// row without a link is not a quiz.
func parseQuizIndex(doc *goquery.Document, base *url.URL) (Facet, []Quiz) {
	table := doc.Find("table.generaltable").First()
	if table.Length() == 0 {
		return Facet{Status: FacetUnknownFormat, Message: "quiz table not found"}, nil
	}

	items := []Quiz{}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		tds := tr.Find("td")
		if tds.Length() < 4 {
			return
		}
		anchor := tds.Eq(1).Find("a[href]").First()
		if anchor.Length() == 0 {
			return
		}
		link := htmlutil.ResolveHref(base, anchor.AttrOr("href", ""))
		if link == nil {
			return
		}
		items = append(items, Quiz{
			Week:   htmlutil.Text(tds.Eq(0)),
			Name:   htmlutil.Text(anchor),
			Closes: htmlutil.Text(tds.Eq(2)),
			Grade:  htmlutil.Text(tds.Eq(3)),
			Url:    link.String(),
			Status: QuizUnknown,
		})
	})
	return Facet{Status: FacetOk}, items
}

// quizStatus visits the quiz page, a failure only makes this one quiz unknown.
func (c *Client) quizStatus(ctx context.Context, quizUrl string) QuizStatus {
	p, err := c.get(ctx, quizUrl)
	if err != nil {
		c.tel.ReportWarning(report_client_quiz_status, quizUrl, err)
		return QuizUnknown
	}
	return QuizStatusFromPage(p.doc)
}

// QuizStatusFromPage classifies a quiz page by its attempt summary or the
// "no attempts" marker.
func QuizStatusFromPage(doc *goquery.Document) QuizStatus {
	if doc.Find(".quizattemptsummary").Length() > 0 {
		return QuizSubmitted
	}
	summary := false
	doc.Find("h3").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.Contains(htmlutil.Text(h), "Summary of your previous attempts") {
			summary = true
			return false
		}
		return true
	})
	if summary {
		return QuizSubmitted
	}
	if strings.Contains(strings.ToLower(htmlutil.Text(doc.Find("body"))), "no attempts have been made yet") {
		return QuizNotSubmitted
	}
	return QuizUnknown
}
