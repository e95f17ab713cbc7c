package eclass

import (
	"strconv"
	"strings"
	"time"
)

var deadlineLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseDeadline reads a due or close time as the portal prints it, in the
// portal's timezone. Empty and "-" mean the item has no deadline.
func ParseDeadline(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return time.Time{}, false
	}
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimeLeft renders a duration as "Xd Yh Zm", dropping leading zero
// units. Anything not positive is "0m".
func FormatTimeLeft(d time.Duration) string {
	total := int64(d / time.Second)
	if total <= 0 {
		return "0m"
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	mins := (total % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.FormatInt(days, 10)+"d")
	}
	if hours > 0 || days > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	parts = append(parts, strconv.FormatInt(mins, 10)+"m")
	return strings.Join(parts, " ")
}
