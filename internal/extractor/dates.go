package extractor

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// dateRangeRe matches spans like "Jan 2020 - Mar 2023", "2019 – present",
// "01/2018 - 06/2021", "2020-03 - 2022-11".
var dateRangeRe = regexp.MustCompile(`(?i)([a-z]{3,9}\.?\s+\d{4}|\d{1,2}/\d{4}|\d{4}-\d{1,2}|\d{4})\s*(?:-|–|—|to|until)\s*(present|current|now|[a-z]{3,9}\.?\s+\d{4}|\d{1,2}/\d{4}|\d{4}-\d{1,2}|\d{4})`)

// parseDateToken parses a single side of a date range. Open-ended markers
// ("present") return ok with a nil time.
func parseDateToken(s string) (t time.Time, open, ok bool) {
	s = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(s, ".")))
	switch s {
	case "present", "current", "now":
		return time.Time{}, true, true
	}

	// "jan 2020"
	if fields := strings.Fields(s); len(fields) == 2 {
		if m, found := monthNames[strings.TrimSuffix(fields[0], ".")]; found {
			if y, err := strconv.Atoi(fields[1]); err == nil && y >= 1950 && y <= 2100 {
				return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC), false, true
			}
		}
		return time.Time{}, false, false
	}

	// "01/2020"
	if i := strings.Index(s, "/"); i > 0 {
		m, err1 := strconv.Atoi(s[:i])
		y, err2 := strconv.Atoi(s[i+1:])
		if err1 == nil && err2 == nil && m >= 1 && m <= 12 && y >= 1950 && y <= 2100 {
			return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), false, true
		}
		return time.Time{}, false, false
	}

	// "2020-01"
	if i := strings.Index(s, "-"); i == 4 {
		y, err1 := strconv.Atoi(s[:i])
		m, err2 := strconv.Atoi(s[i+1:])
		if err1 == nil && err2 == nil && m >= 1 && m <= 12 && y >= 1950 && y <= 2100 {
			return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), false, true
		}
		return time.Time{}, false, false
	}

	// bare year
	if y, err := strconv.Atoi(s); err == nil && y >= 1950 && y <= 2100 {
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), false, true
	}
	return time.Time{}, false, false
}

type interval struct {
	start, end time.Time
}

// unionYears sums the covered time of a set of intervals with overlap
// removed, in fractional years. Concurrent roles never double count.
func unionYears(spans []interval, now time.Time) float64 {
	if len(spans) == 0 {
		return 0
	}
	norm := make([]interval, 0, len(spans))
	for _, s := range spans {
		end := s.end
		if end.IsZero() {
			end = now
		}
		if !end.After(s.start) {
			continue
		}
		norm = append(norm, interval{start: s.start, end: end})
	}
	if len(norm) == 0 {
		return 0
	}
	sort.Slice(norm, func(i, j int) bool { return norm[i].start.Before(norm[j].start) })

	var total time.Duration
	cur := norm[0]
	for _, s := range norm[1:] {
		if s.start.After(cur.end) {
			total += cur.end.Sub(cur.start)
			cur = s
			continue
		}
		if s.end.After(cur.end) {
			cur.end = s.end
		}
	}
	total += cur.end.Sub(cur.start)

	return total.Hours() / 24 / 365.25
}
