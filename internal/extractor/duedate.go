package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const datePattern = `(\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`

var dueDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)due[\s:]*` + datePattern),
	regexp.MustCompile(`(?i)pay(?:ment)?\s*by[\s:]*` + datePattern),
	regexp.MustCompile(`(?i)` + datePattern + `\s*due`),
}

// extractDueDate returns the first parseable date found next to a due or
// pay-by keyword. Only the first match of each pattern is considered.
func extractDueDate(body string) *time.Time {
	for _, re := range dueDatePatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		if d, ok := parseDate(m[1]); ok {
			return &d
		}
	}
	return nil
}

// parseDate reads a numeric date day-first (15/09/2024). If that is not a
// real calendar date it is read month-first (09/15/2024). Two-digit years
// are taken as 20yy. Dates are returned at midnight UTC.
func parseDate(s string) (time.Time, bool) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '-' })
	if len(parts) != 3 {
		return time.Time{}, false
	}

	a, errA := strconv.Atoi(parts[0])
	b, errB := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errA != nil || errB != nil || errY != nil {
		return time.Time{}, false
	}

	switch len(parts[2]) {
	case 2:
		year += 2000
	case 4:
	default:
		return time.Time{}, false
	}

	if d, ok := calendarDate(year, b, a); ok {
		return d, true
	}
	return calendarDate(year, a, b)
}

func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (31/02 -> 03/03); reject that.
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}
