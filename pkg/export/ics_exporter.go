package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ICSEvent is one calendar entry to serialise. RRule, when non-empty, is the
// raw RRULE value describing the entry's repetition.
type ICSEvent struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	RRule   string
}

// ICSExporter renders events into an iCalendar document.
type ICSExporter struct {
	prodID string
}

// NewICSExporter constructs an ICS exporter.
func NewICSExporter(prodID string) *ICSExporter {
	if prodID == "" {
		prodID = "-//kontak//kontak-api//EN"
	}
	return &ICSExporter{prodID: prodID}
}

// Render serialises the events into ICS bytes.
func (e *ICSExporter) Render(name string, events []ICSEvent) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.prodID)
	if name != "" {
		cal.SetName(name)
	}

	now := time.Now().UTC()
	for _, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event %q missing uid", ev.Summary)
		}
		ve := cal.AddEvent(ev.UID)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Summary)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		if ev.RRule != "" {
			ve.AddRrule(ev.RRule)
		}
	}

	return []byte(cal.Serialize()), nil
}
