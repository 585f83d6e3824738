package dose

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// strictTime requires minutes: "8:00AM", "8:00 pm", "12:30Am".
	strictTime = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([ap])m$`)
	// looseTime also allows a bare hour and dotted meridiem: "8am", "8 p.m.".
	looseTime = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([ap])\.?m\.?$`)
)

// ValidTime reports whether s is H:MM followed by AM or PM, in any case,
// with an optional space before the meridiem.
func ValidTime(s string) bool {
	_, _, _, err := parseTime(s, strictTime)
	return err == nil
}

// CanonicalTime normalizes a time-of-day to H:MM plus an uppercase meridiem
// with no space, e.g. "8:00 am" and "8am" both become "8:00AM".
func CanonicalTime(s string) (string, error) {
	hour, minute, pm, err := parseTime(s, looseTime)
	if err != nil {
		return "", err
	}
	return format(hour, minute, pm), nil
}

// Minutes returns minutes since midnight for a time CanonicalTime accepts.
// 12AM maps to 0 and 12PM to 720.
func Minutes(s string) (int, error) {
	hour, minute, pm, err := parseTime(s, looseTime)
	if err != nil {
		return 0, err
	}
	total := (hour%12)*60 + minute
	if pm {
		total += 12 * 60
	}
	return total, nil
}

func parseTime(s string, pattern *regexp.Regexp) (hour, minute int, pm bool, err error) {
	m := pattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, 0, false, fmt.Errorf("invalid time %q: want H:MM AM/PM", s)
	}

	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour < 1 || hour > 12 {
		return 0, 0, false, fmt.Errorf("invalid time %q: hour out of range", s)
	}
	if minute > 59 {
		return 0, 0, false, fmt.Errorf("invalid time %q: minutes out of range", s)
	}
	return hour, minute, m[3] == "p", nil
}

func format(hour, minute int, pm bool) string {
	meridiem := "AM"
	if pm {
		meridiem = "PM"
	}
	return fmt.Sprintf("%d:%02d%s", hour, minute, meridiem)
}
