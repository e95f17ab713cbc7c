package eclass

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"eclassbot-backend/internal/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// IsLoggedIn reports a logout link, or a user picture together with a user menu.
func IsLoggedIn(doc *goquery.Document) bool {
	if doc.Find(`a[href*="/login/logout.php"]`).Length() > 0 {
		return true
	}
	return doc.Find(".userpicture").Length() > 0 && doc.Find(".usermenu").Length() > 0
}

// LooksLikeLoginPage reports the login form or a password input, used to tell a
// silent redirect to the login page apart from other failures.
func LooksLikeLoginPage(doc *goquery.Document) bool {
	return doc.Find("form.form-login").Length() > 0 ||
		doc.Find(`input[type="password"][name="password"]`).Length() > 0
}

// LoginError returns the text of the first visible error box, if any.
func LoginError(doc *goquery.Document) string {
	return htmlutil.Text(doc.Find(".loginerrors, .error, .alert, .alert-danger").First())
}

// LinkRule is a three tier lookup for a link whose markup has changed over time:
// a CSS selector for the known class, then a substring of the href, then the
// visible anchor text (case-insensitive).
type LinkRule struct {
	Selector     string
	HrefContains string
	Text         string
	// TextExact requires the whole anchor text to equal Text instead of containing it.
	TextExact bool
}

var (
	offlineAttendanceLink = LinkRule{
		Selector:     "a.submenu-attendance[href]",
		HrefContains: "local/ubattendance/my_status.php",
		Text:         "offline-attendance",
	}
	onlineAttendanceLink = LinkRule{
		Selector:     "a.submenu-progress[href]",
		HrefContains: "report/ubcompletion/progress.php",
		Text:         "online-attendance",
	}
	assignmentIndexLink = LinkRule{
		Selector:     `a[href*="/mod/assign/index.php?id="]`,
		HrefContains: "/mod/assign/index.php",
		Text:         "assignment",
		TextExact:    true,
	}
	quizIndexLink = LinkRule{
		Selector:     `a[href*="/mod/quiz/index.php?id="]`,
		HrefContains: "/mod/quiz/index.php",
		Text:         "quiz",
		TextExact:    true,
	}
)

func (r LinkRule) textMatches(text string) bool {
	text = strings.ToLower(htmlutil.Clean(text))
	if r.TextExact {
		return text == r.Text
	}
	return strings.Contains(text, r.Text)
}

// FindLink resolves the first link matching rule against base, nil when no
// tier matches.
func FindLink(doc *goquery.Document, base *url.URL, rule LinkRule) *url.URL {
	if rule.Selector != "" {
		href, ok := doc.Find(rule.Selector).First().Attr("href")
		if ok {
			if link := htmlutil.ResolveHref(base, href); link != nil {
				return link
			}
		}
	}

	anchors := doc.Find("a[href]")
	if rule.HrefContains != "" {
		for _, n := range anchors.Nodes {
			href, _ := goquery.NewDocumentFromNode(n).Attr("href")
			if strings.Contains(href, rule.HrefContains) {
				if link := htmlutil.ResolveHref(base, href); link != nil {
					return link
				}
			}
		}
	}

	if rule.Text != "" {
		for _, anchor := range htmlutil.GetAnchors(base, anchors) {
			if rule.textMatches(anchor.Name) {
				return anchor.Url
			}
		}
	}
	return nil
}

// NotSetMessage detects the danger box the portal shows for a course whose
// attendance was never configured.
func NotSetMessage(doc *goquery.Document) (string, bool) {
	var message string
	doc.Find(".alert.alert-danger, .alert-danger, .error_message").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := htmlutil.Text(s)
		lower := strings.ToLower(text)
		if (strings.Contains(lower, "not been set") || strings.Contains(lower, "not set")) &&
			strings.Contains(lower, "course") {
			message = text
			return false
		}
		return true
	})
	return message, message != ""
}

var (
	attendanceLabels = []string{"attendance", "출석", "present"}
	absenceLabels    = []string{"absence", "결석"}
	lateLabels       = []string{"late", "지각"}
	numberRegex      = regexp.MustCompile(`\d+`)
)

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// ParseCounts reads "label <span>n</span>" pairs from an attendance counts
// block by label text, the order of the pairs is not stable between views.
// ok is false when the block holds no number at all.
func ParseCounts(box *goquery.Selection) (Totals, bool) {
	var totals Totals
	found := false
	box.Find("p").Each(func(_ int, p *goquery.Selection) {
		span := p.Find("span").First()
		if span.Length() == 0 {
			return
		}
		spanText := htmlutil.Text(span)
		fullText := htmlutil.Text(p)
		label := strings.ToLower(strings.Trim(strings.TrimSpace(strings.Replace(fullText, spanText, "", 1)), ": "))

		match := numberRegex.FindString(spanText)
		if match == "" {
			match = numberRegex.FindString(fullText)
		}
		if match == "" {
			return
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			return
		}

		switch {
		case containsAny(label, attendanceLabels):
			totals.Attendance = n
		case containsAny(label, absenceLabels):
			totals.Absence = n
		case containsAny(label, lateLabels):
			totals.Late = n
		default:
			return
		}
		found = true
	})
	if !found {
		// real zeros are still a valid reading as long as the block had digits
		found = numberRegex.MatchString(htmlutil.Text(box))
	}
	return totals, found
}

var footerRegexes = map[string]*regexp.Regexp{
	"attendance": regexp.MustCompile(`(?i)attendance\s*:\s*(\d+)`),
	"absence":    regexp.MustCompile(`(?i)absence\s*:\s*(\d+)`),
	"late":       regexp.MustCompile(`(?i)late\s*:\s*(\d+)`),
}

// parseFooterTotals reads "Attendance : n" style totals from free text.
func parseFooterTotals(text string) (Totals, bool) {
	grab := func(label string) (int, bool) {
		m := footerRegexes[label].FindStringSubmatch(text)
		if len(m) < 2 {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		return n, err == nil
	}
	var totals Totals
	a, okA := grab("attendance")
	b, okB := grab("absence")
	l, okL := grab("late")
	totals.Attendance, totals.Absence, totals.Late = a, b, l
	return totals, okA || okB || okL
}
