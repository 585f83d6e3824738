package dose_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-intake-api/internal/domain/dose"
)

var everyDay = []dose.Day{"M", "T", "W", "Th", "F", "S", "Su"}

func TestCanonicalTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8:00 am", "8:00AM"},
		{"8:00AM", "8:00AM"},
		{"8:00am", "8:00AM"},
		{"08:30 pm", "8:30PM"},
		{"8am", "8:00AM"},
		{"8 PM", "8:00PM"},
		{"12:00 a.m.", "12:00AM"},
		{" 9:05Pm ", "9:05PM"},
	}
	for _, tt := range tests {
		got, err := dose.CanonicalTime(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCanonicalTime_Invalid(t *testing.T) {
	for _, in := range []string{"", "8:00", "13:00PM", "0:30AM", "8:60AM", "noon", "8:0AM"} {
		_, err := dose.CanonicalTime(in)
		assert.Error(t, err, in)
	}
}

func TestValidTime_RequiresMinutes(t *testing.T) {
	assert.True(t, dose.ValidTime("8:00 am"))
	assert.True(t, dose.ValidTime("11:45PM"))
	assert.False(t, dose.ValidTime("8am"))
	assert.False(t, dose.ValidTime("8:00"))
}

func TestMinutes(t *testing.T) {
	cases := map[string]int{
		"12:00AM": 0,
		"12:30AM": 30,
		"1:00AM":  60,
		"12:00PM": 720,
		"1:15PM":  795,
		"11:59PM": 1439,
	}
	for in, want := range cases {
		got, err := dose.Minutes(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestParseDays(t *testing.T) {
	days, err := dose.ParseDays([]string{"F", "monday", "W", "Mon"})
	require.NoError(t, err)
	assert.Equal(t, []dose.Day{"M", "W", "F"}, days)

	days, err = dose.ParseDays([]string{"daily"})
	require.NoError(t, err)
	assert.Equal(t, everyDay, days)

	days, err = dose.ParseDays([]string{"A"})
	require.NoError(t, err)
	assert.True(t, dose.IsAsNeeded(days))

	_, err = dose.ParseDays(nil)
	assert.Error(t, err)
	_, err = dose.ParseDays([]string{"A", "M"})
	assert.Error(t, err)
	_, err = dose.ParseDays([]string{"Funday"})
	assert.Error(t, err)
}

func TestFrequencyLabel(t *testing.T) {
	assert.Equal(t, "Everyday", dose.FrequencyLabel(everyDay))
	assert.Equal(t, "As-needed", dose.FrequencyLabel([]dose.Day{dose.AsNeeded}))
	assert.Equal(t, "Mon, Wed, Fri", dose.FrequencyLabel([]dose.Day{"M", "W", "F"}))
	assert.Equal(t, "Tues, Thurs, Sat, Sun", dose.FrequencyLabel([]dose.Day{"T", "Th", "S", "Su"}))
}

func TestGroupByFrequency_Chronological(t *testing.T) {
	groups := dose.GroupByFrequency([]dose.Entry{
		{TimeOfDay: "9:00PM", Days: everyDay, PillCount: 1},
		{TimeOfDay: "9:00AM", Days: everyDay, PillCount: 1},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, "Everyday", groups[0].Label)
	assert.Equal(t, []string{"9:00AM", "9:00PM"}, groups[0].Times)
	assert.True(t, groups[0].PillCount.IsUniform())
	assert.Equal(t, 1, groups[0].PillCount.Uniform)
}

func TestGroupByFrequency_MixedCountsAndOrdering(t *testing.T) {
	entries := []dose.Entry{
		{TimeOfDay: "as-needed-garbage", Days: everyDay, PillCount: 9},
		{TimeOfDay: "8:00 pm", Days: []dose.Day{"F", "M", "W"}, PillCount: 2},
		{TimeOfDay: "12:00AM", Days: []dose.Day{dose.AsNeeded}, PillCount: 1},
		{TimeOfDay: "8:00am", Days: everyDay, PillCount: 1},
		{TimeOfDay: "12:00PM", Days: everyDay, PillCount: 2},
		{TimeOfDay: "7:00AM", Days: []dose.Day{"T", "Th"}, PillCount: 1},
	}
	before := make([]dose.Entry, len(entries))
	copy(before, entries)

	groups := dose.GroupByFrequency(entries)

	labels := make([]string, len(groups))
	for i, g := range groups {
		labels[i] = g.Label
	}
	assert.Equal(t, []string{"Everyday", "Mon, Wed, Fri", "Tues, Thurs", "As-needed"}, labels)

	everyday := groups.ByLabel()["Everyday"]
	assert.Equal(t, []string{"8:00AM", "12:00PM"}, everyday.Times)
	assert.False(t, everyday.PillCount.IsUniform())
	assert.Equal(t, 1, everyday.PillCount.For("8:00AM"))
	assert.Equal(t, 2, everyday.PillCount.For("12:00PM"))

	assert.Equal(t, []string{"8:00PM"}, groups.ByLabel()["Mon, Wed, Fri"].Times)
	assert.Equal(t, entries, before, "input must not be mutated")
}

func TestGroupByFrequency_Idempotent(t *testing.T) {
	entries := []dose.Entry{
		{TimeOfDay: "8:00PM", Days: []dose.Day{"M", "W", "F"}, PillCount: 2},
		{TimeOfDay: "8:00AM", Days: everyDay, PillCount: 1},
	}
	first := dose.GroupByFrequency(entries)
	second := dose.GroupByFrequency(entries)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestPillCount_JSONShapes(t *testing.T) {
	raw, err := json.Marshal(dose.PillCount{Uniform: 2})
	require.NoError(t, err)
	assert.Equal(t, "2", string(raw))

	raw, err = json.Marshal(dose.PillCount{PerTime: map[string]int{"8:00AM": 1, "8:00PM": 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"8:00AM":1,"8:00PM":2}`, string(raw))
}

func TestSchedule_AddsAsNeeded(t *testing.T) {
	groups := dose.Schedule(nil, 3)
	require.Len(t, groups, 1)
	assert.Equal(t, "As-needed", groups[0].Label)
	assert.Equal(t, 3, groups[0].PillCount.Uniform)
	assert.Empty(t, groups[0].Times)

	groups = dose.Schedule([]dose.Entry{{TimeOfDay: "8:00AM", Days: everyDay, PillCount: 1}}, 0)
	require.Len(t, groups, 1)
	assert.Equal(t, "Everyday", groups[0].Label)
}

func TestSchedule_AsNeededCountOverridesDoses(t *testing.T) {
	entries := []dose.Entry{
		{TimeOfDay: "8:00AM", Days: []dose.Day{dose.AsNeeded}, PillCount: 1},
		{TimeOfDay: "9:00PM", Days: everyDay, PillCount: 2},
	}

	groups := dose.Schedule(entries, 3)
	require.Len(t, groups, 2)

	var asNeeded *dose.Group
	for i := range groups {
		if groups[i].Label == dose.LabelAsNeeded {
			asNeeded = &groups[i]
		}
	}
	require.NotNil(t, asNeeded)
	assert.Equal(t, []string{"8:00AM"}, asNeeded.Times)
	assert.True(t, asNeeded.PillCount.IsUniform())
	assert.Equal(t, 3, asNeeded.PillCount.Uniform)

	groups = dose.Schedule(entries[:1], 0)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, groups[0].PillCount.For("8:00AM"))
}

func TestEntryKey(t *testing.T) {
	a, ok := dose.Entry{TimeOfDay: "8:00 am", Days: []dose.Day{"W", "M", "F"}}.Key()
	require.True(t, ok)
	b, ok := dose.Entry{TimeOfDay: "8:00AM", Days: []dose.Day{"M", "W", "F"}}.Key()
	require.True(t, ok)
	assert.Equal(t, a, b)

	_, ok = dose.Entry{TimeOfDay: "nope", Days: everyDay}.Key()
	assert.False(t, ok)
}
