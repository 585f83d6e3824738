// Package dose canonicalizes medication dose entries and groups them by
// frequency for display.
package dose

import (
	"fmt"
	"strings"
)

// Day is a short weekday token as carried on the wire.
type Day string

const (
	Monday    Day = "M"
	Tuesday   Day = "T"
	Wednesday Day = "W"
	Thursday  Day = "Th"
	Friday    Day = "F"
	Saturday  Day = "S"
	Sunday    Day = "Su"

	// AsNeeded is the sentinel day-set for doses taken on demand.
	AsNeeded Day = "A"
)

// Week lists the weekday tokens in display order.
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var dayLabels = map[Day]string{
	Monday:    "Mon",
	Tuesday:   "Tues",
	Wednesday: "Wed",
	Thursday:  "Thurs",
	Friday:    "Fri",
	Saturday:  "Sat",
	Sunday:    "Sun",
}

var dayAliases = map[string][]Day{
	"m": {Monday}, "mo": {Monday}, "mon": {Monday}, "monday": {Monday},
	"t": {Tuesday}, "tu": {Tuesday}, "tue": {Tuesday}, "tues": {Tuesday}, "tuesday": {Tuesday},
	"w": {Wednesday}, "we": {Wednesday}, "wed": {Wednesday}, "wednesday": {Wednesday},
	"th": {Thursday}, "thu": {Thursday}, "thur": {Thursday}, "thurs": {Thursday}, "thursday": {Thursday},
	"f": {Friday}, "fr": {Friday}, "fri": {Friday}, "friday": {Friday},
	"s": {Saturday}, "sa": {Saturday}, "sat": {Saturday}, "saturday": {Saturday},
	"su": {Sunday}, "sun": {Sunday}, "sunday": {Sunday},

	"a": {AsNeeded}, "as-needed": {AsNeeded}, "as needed": {AsNeeded}, "asneeded": {AsNeeded}, "prn": {AsNeeded},

	"everyday": Week, "every day": Week, "daily": Week,
}

func (d Day) index() int {
	for i, w := range Week {
		if w == d {
			return i
		}
	}
	return len(Week)
}

// Label returns the display abbreviation for a weekday token.
func (d Day) Label() string {
	if l, ok := dayLabels[d]; ok {
		return l
	}
	return string(d)
}

// ParseDays canonicalizes raw day tokens into a weekday-ordered, de-duplicated
// set. Full names, abbreviations, "daily" and the as-needed aliases are accepted.
// The as-needed sentinel cannot be mixed with weekdays.
func ParseDays(raw []string) ([]Day, error) {
	seen := make(map[Day]bool, len(Week))
	for _, r := range raw {
		key := strings.ToLower(strings.TrimSpace(r))
		if key == "" {
			continue
		}
		days, ok := dayAliases[key]
		if !ok {
			return nil, fmt.Errorf("unknown day %q", r)
		}
		for _, d := range days {
			seen[d] = true
		}
	}

	if len(seen) == 0 {
		return nil, fmt.Errorf("day set is empty")
	}
	if seen[AsNeeded] {
		if len(seen) > 1 {
			return nil, fmt.Errorf("as-needed cannot be combined with weekdays")
		}
		return []Day{AsNeeded}, nil
	}

	out := make([]Day, 0, len(seen))
	for _, d := range Week {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out, nil
}

// IsAsNeeded reports whether the day-set is the as-needed sentinel.
func IsAsNeeded(days []Day) bool {
	return len(days) == 1 && days[0] == AsNeeded
}

// FrequencyLabel describes a canonical day-set: "Everyday", "As-needed" or a
// comma-joined weekday list such as "Mon, Wed, Fri".
func FrequencyLabel(days []Day) string {
	if IsAsNeeded(days) {
		return LabelAsNeeded
	}
	if len(days) == len(Week) {
		return LabelEveryday
	}
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Label()
	}
	return strings.Join(labels, ", ")
}

func daysKey(days []Day) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}
