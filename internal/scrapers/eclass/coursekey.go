package eclass

import (
	"regexp"
	"strings"
)

// subjectAliases are exact historical overrides for subject codes.
var subjectAliases = map[string]string{
	"discrete mathematics": "DM",
	"academic english 4":   "AE4",
}

var subjectStopwords = map[string]bool{
	"of": true, "and": true, "the": true, "in": true, "to": true, "a": true,
	"an": true, "for": true, "on": true, "with": true, "by": true, "at": true,
}

const fallbackSubjectKey = "SB"

var (
	trailingBracket = regexp.MustCompile(`\s*\[.*?\]\s*$`)
	trailingNew     = regexp.MustCompile(`(?i)\s+NEW\s*$`)
	trailingNumber  = regexp.MustCompile(`(?:[-\s])(\d+)\s*$`)
	wordRegex       = regexp.MustCompile(`[A-Za-z]+`)
)

// StripTitle removes the trailing "[term-code]" and "NEW" markers from a
// course title, "Digital Logic Circuit[202601-SOC2020-004] NEW" becomes
// "Digital Logic Circuit".
func StripTitle(title string) string {
	s := strings.TrimSpace(title)
	// NEW can come on either side of the bracket
	s = strings.TrimSpace(trailingNew.ReplaceAllString(s, ""))
	s = strings.TrimSpace(trailingBracket.ReplaceAllString(s, ""))
	s = strings.TrimSpace(trailingNew.ReplaceAllString(s, ""))
	return s
}

// SubjectKey derives a short subject code from a course title: alias table
// first, then initials of significant words plus any trailing number.
func SubjectKey(title string) string {
	base := StripTitle(title)

	if alias, ok := subjectAliases[strings.ToLower(base)]; ok {
		return alias
	}

	tail := ""
	namePart := base
	if m := trailingNumber.FindStringSubmatch(base); m != nil {
		tail = m[1]
		namePart = strings.TrimSpace(trailingNumber.ReplaceAllString(base, ""))
	}

	var initials strings.Builder
	for _, w := range wordRegex.FindAllString(namePart, -1) {
		if subjectStopwords[strings.ToLower(w)] {
			continue
		}
		initials.WriteString(strings.ToUpper(w[:1]))
	}
	if initials.Len() == 0 {
		return fallbackSubjectKey + tail
	}
	return initials.String() + tail
}
