// Package recurrence answers date questions about recurring events: which
// occurrence of an event's series brackets a reference date, whether the
// series touches a given calendar day, and which portions of an occurrence
// fall inside that day's 24-hour window. Every function is pure; callers
// pass the event and a reference date and get values back.
package recurrence

import (
	"fmt"
	"time"

	"github.com/noah-isme/kontak-api/internal/models"
)

const day = 24 * time.Hour

// Slice is the portion of one occurrence that falls within a single calendar
// date. An occurrence crossing midnight produces a slice on each date it
// touches, each clipped to that date's window.
type Slice struct {
	Date     time.Time
	Start    time.Duration
	Duration time.Duration
}

// End returns the slice's end offset within its date. It never exceeds 24h.
func (s Slice) End() time.Duration {
	return s.Start + s.Duration
}

// mustValidKind guards the package boundary. A kind outside the closed set
// is a programming error (or a corrupt row), never a value to guess around.
func mustValidKind(e models.Event) {
	if !e.Recurrence.Valid() {
		panic(fmt.Sprintf("recurrence: unknown recurrence kind %q", string(e.Recurrence)))
	}
}

// occurrenceIndex returns the number of whole recurrence steps between the
// event's anchor and ref, negative when the anchor is still in the future.
// For monthly kinds the index counts calendar months, corrected so the
// indexed occurrence never starts after ref.
func occurrenceIndex(e models.Event, ref time.Time) int {
	if e.Recurrence == models.RecurrenceMonthly {
		k := (ref.Year()-e.Date.Year())*12 + int(ref.Month()) - int(e.Date.Month())
		if k > 0 && e.Recurrence.AdvanceDate(e.Date, k).After(ref) {
			k--
		}
		return k
	}
	return floorDiv(daysBetween(e.Date, ref), e.Recurrence.StepDays())
}

// ClosestStartDate returns the start date of the occurrence bracketing ref.
// For a non-recurring event this is the anchor. For recurring events it is
// the latest occurrence starting on or before ref, except that an earlier
// occurrence still running at ref's midnight is preferred, so that multi-day
// runs spilling into ref are not skipped over.
func ClosestStartDate(e models.Event, ref time.Time) time.Time {
	mustValidKind(e)
	if !e.Recurrence.IsRecurring() {
		return e.Date
	}
	k := occurrenceIndex(e, ref)
	if k < 0 {
		return e.Date
	}
	if k >= 1 {
		prev := e.Recurrence.AdvanceDate(e.Date, k-1)
		if prev.Add(e.Start + e.Duration).After(ref) {
			return prev
		}
	}
	return e.Recurrence.AdvanceDate(e.Date, k)
}

// ClosestEndDate returns the end date of the first occurrence whose end does
// not precede ref, walking forward from the bracketing occurrence when that
// one already finished.
func ClosestEndDate(e models.Event, ref time.Time) time.Time {
	mustValidKind(e)
	if !e.Recurrence.IsRecurring() {
		return e.EndDate()
	}
	k := occurrenceIndex(e, ref)
	if k < 0 {
		k = 0
	}
	span := e.SpanDays()
	for {
		end := e.Recurrence.AdvanceDate(e.Date, k).AddDate(0, 0, span)
		if !end.Before(ref) {
			return end
		}
		k++
	}
}

// NextEvent returns a copy of the event with its anchor advanced by one
// recurrence step. Non-recurring events are returned unchanged.
func NextEvent(e models.Event) models.Event {
	mustValidKind(e)
	if !e.Recurrence.IsRecurring() {
		return e
	}
	e.Date = e.Recurrence.AdvanceDate(e.Date, 1)
	return e
}

// NextRecurringEvent rolls a recurring event forward until its anchor is no
// longer strictly before today. Non-recurring events pass through unchanged
// regardless of their date.
func NextRecurringEvent(e models.Event, today time.Time) models.Event {
	mustValidKind(e)
	if !e.Recurrence.IsRecurring() {
		return e
	}
	for e.Date.Before(today) {
		e = NextEvent(e)
	}
	return e
}

// WillDateCollide reports whether date lies within the inclusive
// [ClosestStartDate, ClosestEndDate] window computed relative to date
// itself. This is a coarse date-level test; EventsAtDate performs the exact
// clipping and may still produce no slices for a colliding date.
func WillDateCollide(e models.Event, date time.Time) bool {
	return !date.Before(ClosestStartDate(e, date)) && !date.After(ClosestEndDate(e, date))
}

// IsCollidingAtDate is the strict half-open overlap test: true iff the
// bracketing occurrence overlaps [date 00:00, date+1d 00:00).
func IsCollidingAtDate(e models.Event, date time.Time) bool {
	start := ClosestStartDate(e, date).Add(e.Start)
	end := start.Add(e.Duration)
	return start.Before(date.Add(day)) && end.After(date)
}

// EventsAtDate materialises the occurrence slices touching date, in
// chronological order. A date can carry at most two: the tail of an earlier
// occurrence spilling past midnight, and the head of the occurrence anchored
// on the date itself, clipped to the date's boundary.
func EventsAtDate(e models.Event, date time.Time) []Slice {
	if !WillDateCollide(e, date) {
		return nil
	}

	var slices []Slice

	closest := ClosestStartDate(e, date)
	if closest.Before(date) {
		remaining := closest.Add(e.Start + e.Duration).Sub(date)
		if remaining > 0 {
			if remaining > day {
				remaining = day
			}
			slices = append(slices, Slice{Date: date, Start: 0, Duration: remaining})
		}
	}

	if anchoredOn(e, date) {
		dur := e.Duration
		if e.Start+dur > day {
			dur = day - e.Start
		}
		slices = append(slices, Slice{Date: date, Start: e.Start, Duration: dur})
	}

	return slices
}

// anchoredOn reports whether one of the series' occurrences starts exactly
// on the given date.
func anchoredOn(e models.Event, date time.Time) bool {
	if !e.Recurrence.IsRecurring() {
		return e.Date.Equal(date)
	}
	k := occurrenceIndex(e, date)
	if k < 0 {
		return false
	}
	return e.Recurrence.AdvanceDate(e.Date, k).Equal(date)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// floorDiv divides rounding toward negative infinity, so anchors in the
// future yield a negative occurrence index rather than zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
