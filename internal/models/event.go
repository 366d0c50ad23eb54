package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

// RecurrenceKind is the closed set of repetition patterns an event supports.
// Exactly one definition exists in the codebase; every consumer switches over
// these values or goes through the step table below.
type RecurrenceKind string

const (
	RecurrenceNone     RecurrenceKind = "NONE"
	RecurrenceDaily    RecurrenceKind = "DAILY"
	RecurrenceWeekly   RecurrenceKind = "WEEKLY"
	RecurrenceBiweekly RecurrenceKind = "BIWEEKLY"
	RecurrenceMonthly  RecurrenceKind = "MONTHLY"
)

// recurrenceSteps is the single tag-to-step table. A kind steps either by a
// fixed number of calendar days or by one calendar month, never both.
var recurrenceSteps = map[RecurrenceKind]struct {
	days   int
	months int
}{
	RecurrenceNone:     {},
	RecurrenceDaily:    {days: 1},
	RecurrenceWeekly:   {days: 7},
	RecurrenceBiweekly: {days: 14},
	RecurrenceMonthly:  {months: 1},
}

var recurrenceCodes = map[string]RecurrenceKind{
	"":         RecurrenceNone,
	"N":        RecurrenceNone,
	"NONE":     RecurrenceNone,
	"D":        RecurrenceDaily,
	"DAILY":    RecurrenceDaily,
	"W":        RecurrenceWeekly,
	"WEEKLY":   RecurrenceWeekly,
	"BW":       RecurrenceBiweekly,
	"BIWEEKLY": RecurrenceBiweekly,
	"M":        RecurrenceMonthly,
	"MONTHLY":  RecurrenceMonthly,
}

// ParseRecurrenceKind resolves a short or long recurrence code,
// case-insensitively. The empty string defaults to NONE.
func ParseRecurrenceKind(raw string) (RecurrenceKind, error) {
	kind, ok := recurrenceCodes[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return RecurrenceNone, appErrors.Clone(appErrors.ErrInvalidRecurrence, "")
	}
	return kind, nil
}

// orNone maps the empty string to NONE. The zero value of an Event literal
// carries no recurrence, mirroring the parse table where "" reads as NONE.
func (k RecurrenceKind) orNone() RecurrenceKind {
	if k == "" {
		return RecurrenceNone
	}
	return k
}

// Valid reports whether the kind belongs to the closed set.
func (k RecurrenceKind) Valid() bool {
	_, ok := recurrenceSteps[k.orNone()]
	return ok
}

// IsRecurring reports whether the kind repeats at all.
func (k RecurrenceKind) IsRecurring() bool {
	k = k.orNone()
	return k.Valid() && k != RecurrenceNone
}

// StepDays returns the day step for day-based kinds and 0 for NONE/MONTHLY.
func (k RecurrenceKind) StepDays() int {
	return recurrenceSteps[k.orNone()].days
}

// AdvanceDate moves a date forward by the given number of recurrence steps.
// Monthly steps preserve the day of month, clamping to the last day when the
// target month is shorter. A kind outside the closed set is a programming
// error and panics.
func (k RecurrenceKind) AdvanceDate(date time.Time, steps int) time.Time {
	k = k.orNone()
	step, ok := recurrenceSteps[k]
	if !ok {
		panic(fmt.Sprintf("models: unknown recurrence kind %q", string(k)))
	}
	if steps == 0 || k == RecurrenceNone {
		return date
	}
	if step.days > 0 {
		return date.AddDate(0, 0, step.days*steps)
	}
	return addMonthsClamped(date, step.months*steps)
}

// addMonthsClamped adds calendar months without the normalisation AddDate
// performs (Jan 31 + 1 month must be Feb 28/29, not Mar 3).
func addMonthsClamped(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1
	if m < 1 {
		m += 12
		year--
	}
	if last := daysInMonth(year, time.Month(m)); day > last {
		day = last
	}
	return time.Date(year, time.Month(m), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Event is an immutable calendar entry owned by one person. Date is the
// anchor of the occurrence series, normalised to midnight UTC; Start is the
// offset into the day; Duration may exceed 24 hours.
type Event struct {
	ID          string
	PersonID    string
	Description string
	Date        time.Time
	Start       time.Duration
	Duration    time.Duration
	Recurrence  RecurrenceKind
}

// EndTime returns the time of day the event run ends, wrapped past midnight.
func (e Event) EndTime() time.Duration {
	return (e.Start + e.Duration) % (24 * time.Hour)
}

// SpanDays returns how many midnights a single occurrence crosses.
func (e Event) SpanDays() int {
	return int((e.Start + e.Duration) / (24 * time.Hour))
}

// EndDate returns the calendar date the anchor occurrence ends on.
func (e Event) EndDate() time.Time {
	return e.Date.AddDate(0, 0, e.SpanDays())
}

// StartDateTime returns the anchor occurrence's starting instant.
func (e Event) StartDateTime() time.Time {
	return e.Date.Add(e.Start)
}

// EndDateTime returns the anchor occurrence's ending instant.
func (e Event) EndDateTime() time.Time {
	return e.Date.Add(e.Start + e.Duration)
}

// Equals is full structural equality over the five value fields. Identity
// columns are deliberately excluded: two rows describing the same entry are
// duplicates even under different ids.
func (e Event) Equals(other Event) bool {
	return e.Description == other.Description &&
		e.Date.Equal(other.Date) &&
		e.Start == other.Start &&
		e.Duration == other.Duration &&
		e.Recurrence == other.Recurrence
}

// SortsBefore is the display ordering over (date, start) only. It is a
// partial order: events equal under it may still differ under Equals, so it
// must never be used for deduplication.
func (e Event) SortsBefore(other Event) bool {
	if !e.Date.Equal(other.Date) {
		return e.Date.Before(other.Date)
	}
	return e.Start < other.Start
}

// SortEvents orders events in place by (date, start). The sort is stable so
// equal-keyed events keep their insertion order.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].SortsBefore(events[j])
	})
}

// EventEncoding is the textual round-trip form of an event used by the API
// and by schedule import/export.
type EventEncoding struct {
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Duration    string `json:"duration"`
	Recurrence  string `json:"recurrence"`
}

// ParseEvent validates the five textual fields and constructs an Event.
// Each malformed field is reported through its own error kind carrying the
// fixed constraint message for that field.
func ParseEvent(enc EventEncoding) (Event, error) {
	description := strings.TrimSpace(enc.Description)
	if description == "" {
		return Event{}, appErrors.Clone(appErrors.ErrBlankDescription, "")
	}

	date, err := ParseDate(enc.Date)
	if err != nil {
		return Event{}, appErrors.Clone(appErrors.ErrInvalidDate, "")
	}

	start, err := ParseTimeOfDay(enc.Time)
	if err != nil {
		return Event{}, appErrors.Clone(appErrors.ErrInvalidTime, "")
	}

	duration, err := ParseISODuration(enc.Duration)
	if err != nil {
		return Event{}, appErrors.Clone(appErrors.ErrInvalidDuration, "")
	}

	kind, err := ParseRecurrenceKind(enc.Recurrence)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Description: description,
		Date:        date,
		Start:       start,
		Duration:    duration,
		Recurrence:  kind,
	}, nil
}

// Encode renders the event back into its textual form. Encode and ParseEvent
// round-trip.
func (e Event) Encode() EventEncoding {
	return EventEncoding{
		Description: e.Description,
		Date:        e.Date.Format("2006-01-02"),
		Time:        FormatTimeOfDay(e.Start),
		Duration:    FormatISODuration(e.Duration),
		Recurrence:  string(e.Recurrence),
	}
}

// ParseDate parses an ISO calendar date and normalises it to midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, err
	}
	return d, nil
}

// DateOf truncates any instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseTimeOfDay parses 24-hour HH:MM or HH:MM:SS into an offset from
// midnight.
func ParseTimeOfDay(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	layout := "15:04"
	if strings.Count(raw, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// FormatTimeOfDay renders an offset from midnight as HH:MM or, when seconds
// are present, HH:MM:SS.
func FormatTimeOfDay(d time.Duration) string {
	d = d % (24 * time.Hour)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if s > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseISODuration parses the ISO-8601 duration subset P[nD][T[nH][nM][nS]].
// Negative or malformed tokens are rejected.
func ParseISODuration(raw string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !strings.HasPrefix(s, "P") || len(s) < 2 {
		return 0, fmt.Errorf("malformed duration %q", raw)
	}
	s = s[1:]

	datePart := s
	timePart := ""
	if idx := strings.Index(s, "T"); idx >= 0 {
		datePart, timePart = s[:idx], s[idx+1:]
		if timePart == "" {
			return 0, fmt.Errorf("malformed duration %q", raw)
		}
	}

	var total time.Duration

	consume := func(part string, units map[byte]time.Duration, order string) error {
		seen := -1
		for len(part) > 0 {
			i := 0
			for i < len(part) && part[i] >= '0' && part[i] <= '9' {
				i++
			}
			if i == 0 || i == len(part) {
				return fmt.Errorf("malformed duration %q", raw)
			}
			unit, ok := units[part[i]]
			if !ok {
				return fmt.Errorf("malformed duration %q", raw)
			}
			pos := strings.IndexByte(order, part[i])
			if pos <= seen {
				return fmt.Errorf("malformed duration %q", raw)
			}
			seen = pos
			n, err := strconv.Atoi(part[:i])
			if err != nil {
				return err
			}
			total += time.Duration(n) * unit
			part = part[i+1:]
		}
		return nil
	}

	if err := consume(datePart, map[byte]time.Duration{'D': 24 * time.Hour}, "D"); err != nil {
		return 0, err
	}
	if err := consume(timePart, map[byte]time.Duration{
		'H': time.Hour,
		'M': time.Minute,
		'S': time.Second,
	}, "HMS"); err != nil {
		return 0, err
	}

	return total, nil
}

// FormatISODuration renders a duration as an ISO-8601 token. The zero
// duration renders as PT0S.
func FormatISODuration(d time.Duration) string {
	if d == 0 {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteByte('P')
	if days := d / (24 * time.Hour); days > 0 {
		fmt.Fprintf(&b, "%dD", days)
		d -= days * 24 * time.Hour
	}
	if d > 0 {
		b.WriteByte('T')
		if h := d / time.Hour; h > 0 {
			fmt.Fprintf(&b, "%dH", h)
			d -= h * time.Hour
		}
		if m := d / time.Minute; m > 0 {
			fmt.Fprintf(&b, "%dM", m)
			d -= m * time.Minute
		}
		if s := d / time.Second; s > 0 {
			fmt.Fprintf(&b, "%dS", s)
		}
	}
	return b.String()
}
