package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kontak-api/internal/availability"
	"github.com/noah-isme/kontak-api/internal/models"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

type availabilityPersonsMock struct {
	persons map[string]*models.Person
	byTag   []models.Person
}

func (m *availabilityPersonsMock) FindByID(ctx context.Context, id string) (*models.Person, error) {
	if p, ok := m.persons[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *availabilityPersonsMock) ListByTag(ctx context.Context, tag string) ([]models.Person, error) {
	return m.byTag, nil
}

type availabilityEventsMock struct {
	byPerson map[string][]models.Event
	calls    int
}

func (m *availabilityEventsMock) ListByPerson(ctx context.Context, personID string) ([]models.Event, error) {
	m.calls++
	return m.byPerson[personID], nil
}

type fakeCache struct {
	values      map[string][]byte
	generations map[string]int64
	sets        int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, generations: map[string]int64{}}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.sets++
	return nil
}

func (c *fakeCache) Increment(ctx context.Context, key string) (int64, error) {
	c.generations[key]++
	return c.generations[key], nil
}

func (c *fakeCache) GetInt(ctx context.Context, key string) (int64, error) {
	return c.generations[key], nil
}

func availabilityFixture(t *testing.T, cacheBacked *fakeCache) (*AvailabilityService, *availabilityEventsMock) {
	t.Helper()
	busyDay := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	persons := &availabilityPersonsMock{
		persons: map[string]*models.Person{
			"p1": {ID: "p1", Name: "Ayu"},
			"p2": {ID: "p2", Name: "Budi"},
		},
		byTag: []models.Person{{ID: "p1"}, {ID: "p2"}},
	}
	events := &availabilityEventsMock{byPerson: map[string][]models.Event{
		"p1": {{Description: "standup", Date: busyDay, Start: 9 * time.Hour, Duration: time.Hour}},
		"p2": {{Description: "review", Date: busyDay, Start: 14 * time.Hour, Duration: time.Hour}},
	}}

	var cacheDep availabilityCache
	cfg := AvailabilityConfig{}
	if cacheBacked != nil {
		cacheDep = cacheBacked
		cfg = AvailabilityConfig{CacheEnabled: true, CacheTTL: time.Minute}
	}
	return NewAvailabilityService(persons, events, cacheDep, nil, cfg, nil), events
}

func TestFreeAt(t *testing.T) {
	svc, _ := availabilityFixture(t, nil)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	busy, err := svc.FreeAt(context.Background(), "p1", day, 9*time.Hour+30*time.Minute)
	require.NoError(t, err)
	assert.False(t, busy.Free)

	free, err := svc.FreeAt(context.Background(), "p1", day, 11*time.Hour)
	require.NoError(t, err)
	assert.True(t, free.Free)
	assert.Equal(t, "2026-01-05", free.Date)
	assert.Equal(t, "11:00", free.Time)
}

func TestFreeAtUnknownPerson(t *testing.T) {
	svc, _ := availabilityFixture(t, nil)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.FreeAt(context.Background(), "ghost", day, 9*time.Hour)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFreeRanges(t *testing.T) {
	svc, _ := availabilityFixture(t, nil)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	result, err := svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:00 - 09:00", "10:00 - 23:59"}, result.FreeRanges)
	assert.Equal(t, "00:00 - 09:00, 10:00 - 23:59", result.Summary)
}

func TestFreeRangesEmptySchedule(t *testing.T) {
	svc, events := availabilityFixture(t, nil)
	events.byPerson["p1"] = nil
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	result, err := svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	assert.Equal(t, availability.MessageWholeDayFree, result.Summary)
}

func TestCommonFree(t *testing.T) {
	svc, _ := availabilityFixture(t, nil)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	result, err := svc.CommonFree(context.Background(), "team", day)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PersonCount)
	assert.Equal(t, []string{"00:00 - 09:00", "10:00 - 14:00", "15:00 - 23:59"}, result.FreeRanges)
}

func TestDayBitmapCaching(t *testing.T) {
	cache := newFakeCache()
	svc, events := availabilityFixture(t, cache)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	_, err := svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	firstCalls := events.calls
	assert.Equal(t, 1, cache.sets)

	// Second query is served from the cache without touching the repository.
	_, err = svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	assert.Equal(t, firstCalls, events.calls)
}

func TestInvalidatePersonBumpsGeneration(t *testing.T) {
	cache := newFakeCache()
	svc, events := availabilityFixture(t, cache)
	day := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	first, err := svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:00 - 09:00", "10:00 - 23:59"}, first.FreeRanges)

	// Mutate the schedule, then invalidate. The stale cached bitmap keys on
	// the old generation and is no longer consulted.
	events.byPerson["p1"] = nil
	svc.InvalidatePerson(context.Background(), "p1")

	second, err := svc.FreeRanges(context.Background(), "p1", day)
	require.NoError(t, err)
	assert.Equal(t, []string{"00:00 - 23:59"}, second.FreeRanges)
}
