package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	inDaysPattern   = regexp.MustCompile(`\bin (\d{1,3}) days?\b`)
	inWeeksPattern  = regexp.MustCompile(`\bin (\d{1,2}) weeks?\b`)
	weekdayPattern  = regexp.MustCompile(`\b(?:on |next )?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	monthDayPattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december) (\d{1,2})(?:st|nd|rd|th)?\b`)
	numericPattern  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
)

var monthsByName = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June, "july": time.July,
	"august": time.August, "september": time.September, "october": time.October,
	"november": time.November, "december": time.December,
}

// ParseRelativeDate extracts a natural-language date from text, resolved
// against the reference time. Returns false when no pattern matches.
// Absolute dates resolve to noon; relative phrases keep the reference
// clock time. Patterns are tried in fixed precedence order so mixed
// phrasings resolve deterministically.
func ParseRelativeDate(text string, ref time.Time) (time.Time, bool) {
	text = strings.ToLower(text)

	if strings.Contains(text, "tomorrow") {
		return ref.AddDate(0, 0, 1), true
	}
	if strings.Contains(text, "tonight") || strings.Contains(text, "today") {
		return ref, true
	}

	if m := inDaysPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return ref.AddDate(0, 0, n), true
	}
	if m := inWeeksPattern.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return ref.AddDate(0, 0, n*7), true
	}

	if m := weekdayPattern.FindStringSubmatch(text); m != nil {
		target := weekdayByName(m[1])
		days := (int(target) - int(ref.Weekday()) + 7) % 7
		if days == 0 {
			days = 7 // bare weekday always means the upcoming one
		}
		return ref.AddDate(0, 0, days), true
	}

	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month := monthsByName[m[1]]
		day, _ := strconv.Atoi(m[2])
		if day >= 1 && day <= 31 {
			candidate := time.Date(ref.Year(), month, day, 12, 0, 0, 0, ref.Location())
			// A date earlier in the year refers to next year.
			if candidate.Before(ref.AddDate(0, 0, -1)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	if m := numericPattern.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			year := ref.Year()
			if m[3] != "" {
				year, _ = strconv.Atoi(m[3])
				if year < 100 {
					year += 2000
				}
			}
			candidate := time.Date(year, time.Month(month), day, 12, 0, 0, 0, ref.Location())
			if m[3] == "" && candidate.Before(ref.AddDate(0, 0, -1)) {
				candidate = candidate.AddDate(1, 0, 0)
			}
			return candidate, true
		}
	}

	return time.Time{}, false
}

func weekdayByName(name string) time.Weekday {
	switch name {
	case "sunday":
		return time.Sunday
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	default:
		return time.Saturday
	}
}
