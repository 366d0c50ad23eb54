package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kontak-api/internal/models"
)

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func eventRowFixture(id, personID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "person_id", "description", "anchor_date", "start_seconds", "duration_seconds", "recurrence", "created_at", "updated_at"}).
		AddRow(id, personID, "gym", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), int64(18*3600), int64(3600), "WEEKLY", now, now)
}

func TestEventRepositoryListByPerson(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, person_id, description, anchor_date")).
		WithArgs("p1").
		WillReturnRows(eventRowFixture("ev-1", "p1"))

	events, err := repo.ListByPerson(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "ev-1", events[0].ID)
	require.Equal(t, 18*time.Hour, events[0].Start)
	require.Equal(t, time.Hour, events[0].Duration)
	require.Equal(t, models.RecurrenceWeekly, events[0].Recurrence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.Event{
		PersonID:    "p1",
		Description: "gym",
		Date:        time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		Start:       18 * time.Hour,
		Duration:    time.Hour,
		Recurrence:  models.RecurrenceWeekly,
	}
	require.NoError(t, repo.Create(context.Background(), event))
	require.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryReplaceForPersonCommits(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE person_id")).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	events := []models.Event{{
		Description: "gym",
		Date:        time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
		Start:       18 * time.Hour,
		Duration:    time.Hour,
		Recurrence:  models.RecurrenceWeekly,
	}}
	require.NoError(t, repo.ReplaceForPerson(context.Background(), "p1", events))
	require.Equal(t, "p1", events[0].PersonID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryReplaceForPersonRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE person_id")).
		WithArgs("p1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceForPerson(context.Background(), "p1", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListStaleRecurring(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("recurrence <> 'NONE' AND anchor_date <")).
		WithArgs(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(eventRowFixture("ev-1", "p1"))

	events, err := repo.ListStaleRecurring(context.Background(), time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateAnchorDate(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()

	repo := NewEventRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET anchor_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateAnchorDate(context.Background(), "ev-1", time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
