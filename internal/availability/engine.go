// Package availability reduces schedules to half-hour busy/free bitmaps and
// renders them as human-readable free-time ranges.
package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/kontak-api/internal/models"
	"github.com/noah-isme/kontak-api/internal/recurrence"
)

// SlotsPerDay partitions a day into half-hour slots indexed 0..47; slot i
// spans [i*30min, (i+1)*30min).
const SlotsPerDay = 48

const slotWidth = 30 * time.Minute

const (
	// MessageWholeDayFree is reported when no slot is busy.
	MessageWholeDayFree = "whole day free"
	// MessageNoFreeTimings is reported when every slot is busy.
	MessageNoFreeTimings = "no free timings"
)

// Bitmap is a day's busy mask in its low 48 bits. The zero value is a fully
// free day.
type Bitmap uint64

// fullDay has all 48 slot bits set.
const fullDay Bitmap = (1 << SlotsPerDay) - 1

// IsBusy reports whether the given slot is marked.
func (b Bitmap) IsBusy(slot int) bool {
	return b&(1<<uint(slot)) != 0
}

// Union overlays another bitmap; a slot busy for either side stays busy.
func (b Bitmap) Union(other Bitmap) Bitmap {
	return b | other
}

func (b *Bitmap) mark(from, to int) {
	for i := from; i < to && i < SlotsPerDay; i++ {
		*b |= 1 << uint(i)
	}
}

// BlockSlots marks the slots occupied by the event's occurrence slices on
// the given date. Marking only ever sets bits, so adding events never frees
// a previously busy slot. A slice ending exactly on a half-hour boundary
// leaves that slot free; any partial occupation marks it.
func BlockSlots(b *Bitmap, e models.Event, date time.Time) {
	for _, slice := range recurrence.EventsAtDate(e, date) {
		startSlot := int(slice.Start / slotWidth)
		end := slice.End()
		endSlot := int((end + slotWidth - 1) / slotWidth)
		b.mark(startSlot, endSlot)
	}
}

// DayBitmap builds the busy mask for one person's events on a date.
func DayBitmap(events []models.Event, date time.Time) Bitmap {
	var b Bitmap
	for _, e := range events {
		BlockSlots(&b, e, date)
	}
	return b
}

// CommonBitmap unions every schedule's mask onto one shared bitmap: a slot
// is busy if it is busy for any included person.
func CommonBitmap(schedules []models.Schedule, date time.Time) Bitmap {
	var b Bitmap
	for i := range schedules {
		b = b.Union(DayBitmap(schedules[i].Events(), date))
	}
	return b
}

// FreeRanges coalesces consecutive free slots into closed-open clock ranges.
// The end of the last slot renders as 23:59 rather than 00:00 of the next
// day.
func FreeRanges(b Bitmap) []string {
	var ranges []string
	start := -1
	for i := 0; i <= SlotsPerDay; i++ {
		free := i < SlotsPerDay && !b.IsBusy(i)
		switch {
		case free && start < 0:
			start = i
		case !free && start >= 0:
			ranges = append(ranges, fmt.Sprintf("%s - %s", slotClock(start), slotClock(i)))
			start = -1
		}
	}
	return ranges
}

// Describe renders the bitmap for display: the coalesced free ranges, or the
// fixed whole-day/no-free messages at the extremes.
func Describe(b Bitmap) string {
	switch b & fullDay {
	case 0:
		return MessageWholeDayFree
	case fullDay:
		return MessageNoFreeTimings
	}
	return strings.Join(FreeRanges(b), ", ")
}

// IsFreeAt reports whether no occurrence slice on the date contains the
// given time of day (start inclusive, end exclusive). A person with no
// events is free at any instant.
func IsFreeAt(events []models.Event, date time.Time, at time.Duration) bool {
	for _, e := range events {
		for _, slice := range recurrence.EventsAtDate(e, date) {
			if at >= slice.Start && at < slice.End() {
				return false
			}
		}
	}
	return true
}

// CommonFreeRanges reports the clock ranges during which every supplied
// schedule is free on the date.
func CommonFreeRanges(schedules []models.Schedule, date time.Time) []string {
	return FreeRanges(CommonBitmap(schedules, date))
}

func slotClock(slot int) string {
	if slot == SlotsPerDay {
		return "23:59"
	}
	return models.FormatTimeOfDay(time.Duration(slot) * slotWidth)
}
