package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kontak-api/internal/availability"
	"github.com/noah-isme/kontak-api/internal/models"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

type availabilityPersonReader interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
	ListByTag(ctx context.Context, tag string) ([]models.Person, error)
}

type availabilityEventLister interface {
	ListByPerson(ctx context.Context, personID string) ([]models.Event, error)
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Increment(ctx context.Context, key string) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// FreeAtResult answers a point-in-time availability query.
type FreeAtResult struct {
	PersonID string `json:"person_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Free     bool   `json:"free"`
}

// FreeRangesResult carries one person's free ranges for a date.
type FreeRangesResult struct {
	PersonID   string   `json:"person_id"`
	Date       string   `json:"date"`
	FreeRanges []string `json:"free_ranges"`
	Summary    string   `json:"summary"`
}

// CommonFreeResult carries the group free ranges for a date.
type CommonFreeResult struct {
	Date        string   `json:"date"`
	Tag         string   `json:"tag,omitempty"`
	PersonCount int      `json:"person_count"`
	FreeRanges  []string `json:"free_ranges"`
	Summary     string   `json:"summary"`
}

// AvailabilityConfig tunes bitmap caching.
type AvailabilityConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// AvailabilityService answers busy/free queries over one or many schedules.
type AvailabilityService struct {
	persons availabilityPersonReader
	events  availabilityEventLister
	cache   availabilityCache
	metrics cacheObserver
	config  AvailabilityConfig
	logger  *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService. Cache and metrics
// may be nil.
func NewAvailabilityService(persons availabilityPersonReader, events availabilityEventLister, cache availabilityCache, metrics cacheObserver, config AvailabilityConfig, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		persons: persons,
		events:  events,
		cache:   cache,
		metrics: metrics,
		config:  config,
		logger:  logger,
	}
}

// FreeAt reports whether the person is free at the given instant. A person
// with an empty schedule is free at any instant.
func (s *AvailabilityService) FreeAt(ctx context.Context, personID string, date time.Time, at time.Duration) (*FreeAtResult, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	events, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	return &FreeAtResult{
		PersonID: personID,
		Date:     date.Format("2006-01-02"),
		Time:     models.FormatTimeOfDay(at),
		Free:     availability.IsFreeAt(events, date, at),
	}, nil
}

// FreeRanges reports one person's free half-hour ranges for a date.
func (s *AvailabilityService) FreeRanges(ctx context.Context, personID string, date time.Time) (*FreeRangesResult, error) {
	if err := s.ensurePerson(ctx, personID); err != nil {
		return nil, err
	}

	bitmap, err := s.dayBitmap(ctx, personID, date)
	if err != nil {
		return nil, err
	}

	return &FreeRangesResult{
		PersonID:   personID,
		Date:       date.Format("2006-01-02"),
		FreeRanges: availability.FreeRanges(bitmap),
		Summary:    availability.Describe(bitmap),
	}, nil
}

// CommonFree reports the half-hour ranges during which every person matching
// the tag filter is free on the date. A slot is busy when busy for any
// included person.
func (s *AvailabilityService) CommonFree(ctx context.Context, tag string, date time.Time) (*CommonFreeResult, error) {
	persons, err := s.persons.ListByTag(ctx, tag)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list persons")
	}

	var combined availability.Bitmap
	for _, p := range persons {
		bitmap, err := s.dayBitmap(ctx, p.ID, date)
		if err != nil {
			return nil, err
		}
		combined = combined.Union(bitmap)
	}

	return &CommonFreeResult{
		Date:        date.Format("2006-01-02"),
		Tag:         tag,
		PersonCount: len(persons),
		FreeRanges:  availability.FreeRanges(combined),
		Summary:     availability.Describe(combined),
	}, nil
}

// InvalidatePerson bumps the person's cache generation so previously cached
// bitmaps stop being served. Called by the schedule service on mutation.
func (s *AvailabilityService) InvalidatePerson(ctx context.Context, personID string) {
	if s.cache == nil || !s.config.CacheEnabled {
		return
	}
	if _, err := s.cache.Increment(ctx, generationKey(personID)); err != nil {
		s.logger.Warn("failed to bump availability cache generation", zap.String("person_id", personID), zap.Error(err))
	}
}

func (s *AvailabilityService) dayBitmap(ctx context.Context, personID string, date time.Time) (availability.Bitmap, error) {
	if s.cache == nil || !s.config.CacheEnabled {
		return s.computeBitmap(ctx, personID, date)
	}

	gen, err := s.cache.GetInt(ctx, generationKey(personID))
	if err != nil {
		s.logger.Warn("availability cache generation lookup failed", zap.Error(err))
		return s.computeBitmap(ctx, personID, date)
	}

	key := fmt.Sprintf("availability:%s:%d:%s", personID, gen, date.Format("2006-01-02"))

	start := time.Now()
	var cached uint64
	lookupErr := s.cache.Get(ctx, key, &cached)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(lookupErr == nil, time.Since(start))
	}
	if lookupErr == nil {
		return availability.Bitmap(cached), nil
	}
	if !errors.Is(lookupErr, appErrors.ErrCacheMiss) {
		s.logger.Warn("availability cache lookup failed", zap.Error(lookupErr))
	}

	bitmap, err := s.computeBitmap(ctx, personID, date)
	if err != nil {
		return 0, err
	}

	if err := s.cache.Set(ctx, key, uint64(bitmap), s.config.CacheTTL); err != nil {
		s.logger.Warn("availability cache store failed", zap.Error(err))
	}
	return bitmap, nil
}

func (s *AvailabilityService) computeBitmap(ctx context.Context, personID string, date time.Time) (availability.Bitmap, error) {
	events, err := s.events.ListByPerson(ctx, personID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return availability.DayBitmap(events, date), nil
}

func (s *AvailabilityService) ensurePerson(ctx context.Context, personID string) error {
	if _, err := s.persons.FindByID(ctx, personID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return nil
}

func generationKey(personID string) string {
	return "availability:gen:" + personID
}
