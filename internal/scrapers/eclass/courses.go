package eclass

import (
	"context"
	"fmt"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Courses lists the dashboard courses in the order the portal shows them.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	home, err := c.get(ctx, c.baseUrl.String())
	if err != nil {
		c.tel.ReportWarning(report_client_get_courses, err)
		return nil, err
	}
	if !IsLoggedIn(home.doc) {
		return nil, fmt.Errorf("%w: not logged in while fetching courses", ErrAuthExpired)
	}
	return coursesFromDashboard(home), nil
}

func coursesFromDashboard(home page) []Course {
	var courses []Course
	home.doc.Find("ul.my-course-lists a.course_link").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := htmlutil.ResolveHref(home.url, href)
		if link == nil {
			return
		}
		title := htmlutil.Text(a.Find("h3").First())
		if title == "" {
			title = htmlutil.Text(a)
		}
		if title == "" {
			return
		}
		courses = append(courses, Course{Title: title, Url: link})
	})
	return courses
}

// Scrape reads every course of the logged in student. Any typed client error
// aborts the whole scrape, parse problems only degrade the affected facet.
func (c *Client) Scrape(ctx context.Context) (StudentData, error) {
	courses, err := c.Courses(ctx)
	if err != nil {
		return StudentData{}, err
	}

	data := StudentData{Courses: make([]CourseData, 0, len(courses))}
	for _, course := range courses {
		result, err := c.ScrapeCourse(ctx, course)
		if err != nil {
			c.tel.ReportWarning(report_client_scrape, course.Url.String(), err)
			return StudentData{}, fmt.Errorf("course %q: %w", course.Title, err)
		}
		data.Courses = append(data.Courses, result)
	}
	c.tel.ReportCount(report_client_scrape, int64(len(data.Courses)))
	return data, nil
}
