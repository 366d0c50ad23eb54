package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseRecurrenceKind(t *testing.T) {
	cases := map[string]RecurrenceKind{
		"NONE":     RecurrenceNone,
		"":         RecurrenceNone,
		"daily":    RecurrenceDaily,
		"Weekly":   RecurrenceWeekly,
		"BIWEEKLY": RecurrenceBiweekly,
		"monthly":  RecurrenceMonthly,
		" DAILY ":  RecurrenceDaily,
	}
	for raw, want := range cases {
		got, err := ParseRecurrenceKind(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, want, got, "input %q", raw)
	}

	_, err := ParseRecurrenceKind("FORTNIGHTLY")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidRecurrence.Code, appErr.Code)
}

func TestRecurrenceKindZeroValueIsNone(t *testing.T) {
	// An Event literal without an explicit recurrence is a one-off entry.
	var zero RecurrenceKind
	assert.True(t, zero.Valid())
	assert.False(t, zero.IsRecurring())
	anchor := day(2026, time.January, 1)
	assert.Equal(t, anchor, zero.AdvanceDate(anchor, 5))

	// Anything else outside the closed set stays invalid.
	assert.False(t, RecurrenceKind("FORTNIGHTLY").Valid())
}

func TestAdvanceDateFixedSteps(t *testing.T) {
	anchor := day(2026, time.January, 1)
	assert.Equal(t, day(2026, time.January, 4), RecurrenceDaily.AdvanceDate(anchor, 3))
	assert.Equal(t, day(2026, time.January, 15), RecurrenceWeekly.AdvanceDate(anchor, 2))
	assert.Equal(t, day(2026, time.January, 29), RecurrenceBiweekly.AdvanceDate(anchor, 2))
}

func TestAdvanceDateMonthlyClamp(t *testing.T) {
	anchor := day(2026, time.January, 31)

	assert.Equal(t, day(2026, time.February, 28), RecurrenceMonthly.AdvanceDate(anchor, 1))
	// Stepping from the original anchor keeps the day-of-month when the
	// target month is long enough.
	assert.Equal(t, day(2026, time.March, 31), RecurrenceMonthly.AdvanceDate(anchor, 2))
	assert.Equal(t, day(2026, time.April, 30), RecurrenceMonthly.AdvanceDate(anchor, 3))
	// Leap year February keeps the 29th.
	assert.Equal(t, day(2028, time.February, 29), RecurrenceMonthly.AdvanceDate(anchor, 25))
}

func TestParseEventRoundTrip(t *testing.T) {
	enc := EventEncoding{
		Description: "dentist",
		Date:        "2026-03-15",
		Time:        "14:30",
		Duration:    "PT1H30M",
		Recurrence:  "MONTHLY",
	}

	e, err := ParseEvent(enc)
	require.NoError(t, err)
	assert.Equal(t, "dentist", e.Description)
	assert.Equal(t, day(2026, time.March, 15), e.Date)
	assert.Equal(t, 14*time.Hour+30*time.Minute, e.Start)
	assert.Equal(t, 90*time.Minute, e.Duration)
	assert.Equal(t, RecurrenceMonthly, e.Recurrence)

	assert.Equal(t, enc, e.Encode())
}

func TestParseEventFieldErrors(t *testing.T) {
	valid := EventEncoding{
		Description: "standup",
		Date:        "2026-01-05",
		Time:        "09:00",
		Duration:    "PT30M",
		Recurrence:  "DAILY",
	}

	cases := []struct {
		name   string
		mutate func(*EventEncoding)
		code   string
	}{
		{"blank description", func(e *EventEncoding) { e.Description = "   " }, appErrors.ErrBlankDescription.Code},
		{"bad date", func(e *EventEncoding) { e.Date = "05/01/2026" }, appErrors.ErrInvalidDate.Code},
		{"bad time", func(e *EventEncoding) { e.Time = "25:00" }, appErrors.ErrInvalidTime.Code},
		{"bad duration", func(e *EventEncoding) { e.Duration = "90m" }, appErrors.ErrInvalidDuration.Code},
		{"bad recurrence", func(e *EventEncoding) { e.Recurrence = "YEARLY" }, appErrors.ErrInvalidRecurrence.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := valid
			tc.mutate(&enc)
			_, err := ParseEvent(enc)
			require.Error(t, err)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tc.code, appErr.Code)
		})
	}
}

func TestParseISODuration(t *testing.T) {
	cases := map[string]time.Duration{
		"PT1H":     time.Hour,
		"PT1H30M":  90 * time.Minute,
		"P1D":      24 * time.Hour,
		"P2DT3H":   51 * time.Hour,
		"PT45S":    45 * time.Second,
		"pt15m":    15 * time.Minute,
		"P1DT0H5M": 24*time.Hour + 5*time.Minute,
	}
	for raw, want := range cases {
		got, err := ParseISODuration(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, want, got, "input %q", raw)
	}

	for _, raw := range []string{"", "P", "PT", "1H", "PT1X", "PTM", "PT30M1H", "P1DT"} {
		_, err := ParseISODuration(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestFormatISODuration(t *testing.T) {
	assert.Equal(t, "PT0S", FormatISODuration(0))
	assert.Equal(t, "PT1H30M", FormatISODuration(90*time.Minute))
	assert.Equal(t, "P1D", FormatISODuration(24*time.Hour))
	assert.Equal(t, "P2DT3H", FormatISODuration(51*time.Hour))
	assert.Equal(t, "PT45S", FormatISODuration(45*time.Second))
}

func TestEventSpanAndEnd(t *testing.T) {
	e := Event{
		Date:     day(2026, time.January, 1),
		Start:    23 * time.Hour,
		Duration: 2 * time.Hour,
	}
	assert.Equal(t, 1, e.SpanDays())
	assert.Equal(t, day(2026, time.January, 2), e.EndDate())
	assert.Equal(t, time.Hour, e.EndTime())

	short := Event{Date: day(2026, time.January, 1), Start: 9 * time.Hour, Duration: time.Hour}
	assert.Equal(t, 0, short.SpanDays())
	assert.Equal(t, day(2026, time.January, 1), short.EndDate())
	assert.Equal(t, 10*time.Hour, short.EndTime())
}

func TestEqualsIgnoresIdentity(t *testing.T) {
	a := Event{
		ID:          "a",
		PersonID:    "p1",
		Description: "gym",
		Date:        day(2026, time.January, 5),
		Start:       18 * time.Hour,
		Duration:    time.Hour,
		Recurrence:  RecurrenceWeekly,
	}
	b := a
	b.ID = "b"
	b.PersonID = "p2"
	assert.True(t, a.Equals(b))

	c := a
	c.Duration = 2 * time.Hour
	assert.False(t, a.Equals(c))
}

func TestSortsBeforeIsNotEquality(t *testing.T) {
	a := Event{Description: "one", Date: day(2026, time.January, 5), Start: 9 * time.Hour, Duration: time.Hour}
	b := Event{Description: "two", Date: day(2026, time.January, 5), Start: 9 * time.Hour, Duration: 2 * time.Hour}

	// Neither sorts before the other, yet they are distinct events.
	assert.False(t, a.SortsBefore(b))
	assert.False(t, b.SortsBefore(a))
	assert.False(t, a.Equals(b))
}

func TestScheduleDuplicateDetection(t *testing.T) {
	a := Event{Description: "gym", Date: day(2026, time.January, 5), Start: 18 * time.Hour, Duration: time.Hour, Recurrence: RecurrenceWeekly}
	s := NewSchedule([]Event{a})

	dup := a
	dup.ID = "other-id"
	assert.True(t, s.HasEvent(dup))

	other := a
	other.Recurrence = RecurrenceBiweekly
	assert.False(t, s.HasEvent(other))
}

func TestScheduleKeepsSortOrder(t *testing.T) {
	late := Event{Description: "late", Date: day(2026, time.January, 5), Start: 20 * time.Hour}
	early := Event{Description: "early", Date: day(2026, time.January, 5), Start: 8 * time.Hour}
	prior := Event{Description: "prior", Date: day(2026, time.January, 1), Start: 23 * time.Hour}

	s := NewSchedule([]Event{late, early})
	s.AddEvent(prior)

	got := s.Events()
	require.Len(t, got, 3)
	assert.Equal(t, "prior", got[0].Description)
	assert.Equal(t, "early", got[1].Description)
	assert.Equal(t, "late", got[2].Description)
}

func TestScheduleIsEmpty(t *testing.T) {
	var s Schedule
	assert.True(t, s.IsEmpty())

	fresh := NewSchedule(nil)
	assert.True(t, fresh.IsEmpty())

	s.AddEvent(Event{Description: "gym", Date: day(2026, time.January, 5)})
	assert.False(t, s.IsEmpty())

	s.SetEvents(nil)
	assert.True(t, s.IsEmpty())
}
