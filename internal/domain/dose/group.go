package dose

import (
	"encoding/json"
	"sort"
	"strings"
)

// Display labels for the two special frequencies.
const (
	LabelEveryday = "Everyday"
	LabelAsNeeded = "As-needed"
)

// Entry is one scheduled administration of a medication.
type Entry struct {
	TimeOfDay string `json:"timeOfDay"`
	Days      []Day  `json:"days"`
	PillCount int    `json:"pillCount"`
}

// Key identifies an entry within its medication: canonical time plus canonical
// day-set. The second return is false when either part does not parse.
func (e Entry) Key() (string, bool) {
	t, err := CanonicalTime(e.TimeOfDay)
	if err != nil {
		return "", false
	}
	days, err := ParseDays(dayStrings(e.Days))
	if err != nil {
		return "", false
	}
	return t + "|" + daysKey(days), true
}

// PillCount is a scalar when every time in a group shares one count, and a
// per-time mapping otherwise.
type PillCount struct {
	Uniform int
	PerTime map[string]int
}

// IsUniform reports whether the count is a single scalar.
func (p PillCount) IsUniform() bool {
	return p.PerTime == nil
}

// For returns the pill count that applies at a canonical time.
func (p PillCount) For(time string) int {
	if p.PerTime != nil {
		return p.PerTime[time]
	}
	return p.Uniform
}

// MarshalJSON encodes a number for uniform counts and an object otherwise.
func (p PillCount) MarshalJSON() ([]byte, error) {
	if p.PerTime != nil {
		return json.Marshal(p.PerTime)
	}
	return json.Marshal(p.Uniform)
}

// Group is one frequency bucket ready for display.
type Group struct {
	Label     string    `json:"label"`
	Times     []string  `json:"times"`
	PillCount PillCount `json:"pillCount"`

	days []Day
}

// Groups is an ordered list of frequency buckets.
type Groups []Group

// ByLabel indexes the groups by frequency label.
func (g Groups) ByLabel() map[string]Group {
	out := make(map[string]Group, len(g))
	for _, grp := range g {
		out[grp.Label] = grp
	}
	return out
}

type timedCount struct {
	time    string
	minutes int
	count   int
}

// GroupByFrequency buckets doses by canonical day-set and orders each bucket's
// times chronologically. Buckets come out as Everyday, then weekday lists by
// their first day, then As-needed. Entries with an unparseable time or day-set
// are skipped. The input is not modified.
func GroupByFrequency(entries []Entry) Groups {
	type bucket struct {
		days  []Day
		times map[string]timedCount
	}
	buckets := make(map[string]*bucket)

	for _, e := range entries {
		days, err := ParseDays(dayStrings(e.Days))
		if err != nil {
			continue
		}
		t, err := CanonicalTime(e.TimeOfDay)
		if err != nil {
			continue
		}
		mins, _ := Minutes(t)

		label := FrequencyLabel(days)
		b, ok := buckets[label]
		if !ok {
			b = &bucket{days: days, times: make(map[string]timedCount)}
			buckets[label] = b
		}
		// A later entry for the same time wins, matching upsert semantics.
		b.times[t] = timedCount{time: t, minutes: mins, count: e.PillCount}
	}

	out := make(Groups, 0, len(buckets))
	for label, b := range buckets {
		timed := make([]timedCount, 0, len(b.times))
		for _, tc := range b.times {
			timed = append(timed, tc)
		}
		sort.Slice(timed, func(i, j int) bool { return timed[i].minutes < timed[j].minutes })

		grp := Group{Label: label, Times: make([]string, len(timed)), days: b.days}
		counts := make(map[string]int, len(timed))
		uniform := true
		for i, tc := range timed {
			grp.Times[i] = tc.time
			counts[tc.time] = tc.count
			if tc.count != timed[0].count {
				uniform = false
			}
		}
		if uniform && len(timed) > 0 {
			grp.PillCount = PillCount{Uniform: timed[0].count}
		} else {
			grp.PillCount = PillCount{PerTime: counts}
		}
		out = append(out, grp)
	}

	sort.Slice(out, func(i, j int) bool { return groupLess(out[i], out[j]) })
	return out
}

// Schedule groups a medication's doses and, when asNeeded is positive, adds an
// As-needed bucket with no fixed times carrying that pill count. If the doses
// already produce an As-needed group, the medication's count replaces the
// group's dose counts and the group keeps its times.
func Schedule(entries []Entry, asNeeded int) Groups {
	groups := GroupByFrequency(entries)
	if asNeeded <= 0 {
		return groups
	}
	for i := range groups {
		if groups[i].Label == LabelAsNeeded {
			groups[i].PillCount = PillCount{Uniform: asNeeded}
			return groups
		}
	}
	return append(groups, Group{
		Label:     LabelAsNeeded,
		Times:     []string{},
		PillCount: PillCount{Uniform: asNeeded},
		days:      []Day{AsNeeded},
	})
}

func groupLess(a, b Group) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	for k := 0; k < len(a.days) && k < len(b.days); k++ {
		if ia, ib := a.days[k].index(), b.days[k].index(); ia != ib {
			return ia < ib
		}
	}
	if len(a.days) != len(b.days) {
		return len(a.days) > len(b.days)
	}
	return strings.Compare(a.Label, b.Label) < 0
}

func rank(g Group) int {
	switch g.Label {
	case LabelEveryday:
		return 0
	case LabelAsNeeded:
		return 2
	default:
		return 1
	}
}

func dayStrings(days []Day) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}
