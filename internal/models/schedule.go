package models

// Schedule is the ordered collection of events belonging to one person. The
// backing sequence is kept sorted by the (date, start) display order and is
// owned exclusively by the person record; callers replace it wholesale
// through SetEvents rather than mutating elements in place.
type Schedule struct {
	events []Event
}

// NewSchedule builds a schedule from the given events, sorting them.
func NewSchedule(events []Event) Schedule {
	s := Schedule{}
	s.SetEvents(events)
	return s
}

// Events returns the sorted backing sequence. It is a read-only view;
// callers must not mutate it.
func (s *Schedule) Events() []Event {
	return s.events
}

// HasEvent reports whether some element is structurally equal to the
// candidate over all five value fields. This is the duplicate test the add
// path relies on; the (date, start) sort order plays no part here.
func (s *Schedule) HasEvent(candidate Event) bool {
	for _, e := range s.events {
		if e.Equals(candidate) {
			return true
		}
	}
	return false
}

// AddEvent appends an event and restores the sort order.
func (s *Schedule) AddEvent(e Event) {
	s.events = append(s.events, e)
	SortEvents(s.events)
}

// SetEvents replaces the backing sequence with a sorted copy.
func (s *Schedule) SetEvents(events []Event) {
	s.events = make([]Event, len(events))
	copy(s.events, events)
	SortEvents(s.events)
}

// IsEmpty reports whether the schedule holds no events.
func (s *Schedule) IsEmpty() bool {
	return len(s.events) == 0
}
