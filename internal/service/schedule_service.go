package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kontak-api/internal/models"
	"github.com/noah-isme/kontak-api/internal/recurrence"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

type scheduleEventRepository interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Event, error)
	FindByID(ctx context.Context, personID, eventID string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, personID, eventID string) error
	ReplaceForPerson(ctx context.Context, personID string, events []models.Event) error
	ListStaleRecurring(ctx context.Context, before time.Time) ([]models.Event, error)
	UpdateAnchorDate(ctx context.Context, eventID string, date time.Time) error
}

type schedulePersonReader interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
}

type scheduleInvalidator interface {
	InvalidatePerson(ctx context.Context, personID string)
}

// EventView is the API shape of one schedule entry: the event's textual
// encoding plus its identity.
type EventView struct {
	ID string `json:"id"`
	models.EventEncoding
}

// ScheduleService manages per-person event schedules.
type ScheduleService struct {
	events      scheduleEventRepository
	persons     schedulePersonReader
	invalidator scheduleInvalidator
	logger      *zap.Logger
	now         func() time.Time
}

// NewScheduleService instantiates ScheduleService. The invalidator may be
// nil when availability caching is disabled.
func NewScheduleService(events scheduleEventRepository, persons schedulePersonReader, invalidator scheduleInvalidator, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		events:      events,
		persons:     persons,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns a person's schedule for display. Recurring events whose
// anchor already passed are shown at their next live occurrence.
func (s *ScheduleService) List(ctx context.Context, personID string) ([]EventView, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	today := models.DateOf(s.now())
	normalized := make([]models.Event, len(events))
	for i, e := range events {
		normalized[i] = recurrence.NextRecurringEvent(e, today)
	}
	models.SortEvents(normalized)

	views := make([]EventView, len(normalized))
	for i, e := range normalized {
		views[i] = EventView{ID: e.ID, EventEncoding: e.Encode()}
	}
	return views, nil
}

// Add validates and inserts a new event, rejecting exact duplicates of an
// existing entry.
func (s *ScheduleService) Add(ctx context.Context, personID string, enc models.EventEncoding) (*EventView, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	event, err := models.ParseEvent(enc)
	if err != nil {
		return nil, err
	}
	event.PersonID = personID

	existing, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	schedule := models.NewSchedule(existing)
	if schedule.HasEvent(event) {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEvent, "")
	}

	if err := s.events.Create(ctx, &event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.invalidate(ctx, personID)
	return &EventView{ID: event.ID, EventEncoding: event.Encode()}, nil
}

// Update replaces an event's five value fields. Editing produces a new
// value; the stored row simply adopts it under the same id.
func (s *ScheduleService) Update(ctx context.Context, personID, eventID string, enc models.EventEncoding) (*EventView, error) {
	existing, err := s.events.FindByID(ctx, personID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	event, err := models.ParseEvent(enc)
	if err != nil {
		return nil, err
	}
	event.ID = existing.ID
	event.PersonID = personID

	all, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	for _, other := range all {
		if other.ID != eventID && other.Equals(event) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEvent, "")
		}
	}

	if err := s.events.Update(ctx, &event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	s.invalidate(ctx, personID)
	return &EventView{ID: event.ID, EventEncoding: event.Encode()}, nil
}

// Delete removes one event from a person's schedule.
func (s *ScheduleService) Delete(ctx context.Context, personID, eventID string) error {
	if _, err := s.events.FindByID(ctx, personID, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if err := s.events.Delete(ctx, personID, eventID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.invalidate(ctx, personID)
	return nil
}

// Clear empties a person's schedule.
func (s *ScheduleService) Clear(ctx context.Context, personID string) error {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return err
	}

	if err := s.events.ReplaceForPerson(ctx, personID, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}

	s.invalidate(ctx, personID)
	return nil
}

// Import replaces a person's schedule wholesale from textual encodings. The
// payload must be internally duplicate-free; the swap is atomic, so a
// rejected import leaves the previous schedule untouched. An empty payload
// is a valid empty schedule.
func (s *ScheduleService) Import(ctx context.Context, personID string, encs []models.EventEncoding) ([]EventView, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	var schedule models.Schedule
	for _, enc := range encs {
		event, err := models.ParseEvent(enc)
		if err != nil {
			return nil, err
		}
		if schedule.HasEvent(event) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEvent, "")
		}
		event.PersonID = personID
		schedule.AddEvent(event)
	}

	if err := s.events.ReplaceForPerson(ctx, personID, schedule.Events()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import schedule")
	}

	s.invalidate(ctx, personID)
	return s.List(ctx, personID)
}

// Export returns a person's schedule as round-trippable encodings, in
// stored order and without forward-normalisation.
func (s *ScheduleService) Export(ctx context.Context, personID string) ([]models.EventEncoding, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	encs := make([]models.EventEncoding, len(events))
	for i, e := range events {
		encs[i] = e.Encode()
	}
	return encs, nil
}

// NormalizeStale rolls every stored recurring event with a past anchor
// forward to its next live occurrence. Run nightly and once at boot.
func (s *ScheduleService) NormalizeStale(ctx context.Context) (int, error) {
	today := models.DateOf(s.now())
	stale, err := s.events.ListStaleRecurring(ctx, today)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale events")
	}

	rolled := 0
	touched := make(map[string]struct{})
	for _, e := range stale {
		next := recurrence.NextRecurringEvent(e, today)
		if next.Date.Equal(e.Date) {
			continue
		}
		if err := s.events.UpdateAnchorDate(ctx, e.ID, next.Date); err != nil {
			return rolled, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to roll event forward")
		}
		rolled++
		touched[e.PersonID] = struct{}{}
	}

	for personID := range touched {
		s.invalidate(ctx, personID)
	}

	if rolled > 0 {
		s.logger.Info("normalized recurring events", zap.Int("rolled", rolled))
	}
	return rolled, nil
}

func (s *ScheduleService) ensurePerson(ctx context.Context, personID string) error {
	if _, err := s.persons.FindByID(ctx, personID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context, personID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidatePerson(ctx, personID)
	}
}
