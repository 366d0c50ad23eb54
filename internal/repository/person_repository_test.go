package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kontak-api/internal/models"
)

func newPersonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func personRows(ids ...string) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "address", "tags", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Ayu", "0812", "ayu@example.com", "Jakarta", pq.StringArray{"team"}, now, now)
	}
	return rows
}

func TestPersonRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newPersonRepoMock(t)
	defer cleanup()

	repo := NewPersonRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, phone, email, address, tags")).
		WithArgs("%ayu%", "team").
		WillReturnRows(personRows("p1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("%ayu%", "team").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	persons, total, err := repo.List(context.Background(), models.PersonFilter{
		Search: "ayu",
		Tag:    "team",
	})
	require.NoError(t, err)
	require.Len(t, persons, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "p1", persons[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryListByTag(t *testing.T) {
	db, mock, cleanup := newPersonRepoMock(t)
	defer cleanup()

	repo := NewPersonRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("= ANY(tags)")).
		WithArgs("team").
		WillReturnRows(personRows("p1", "p2"))

	persons, err := repo.ListByTag(context.Background(), "team")
	require.NoError(t, err)
	require.Len(t, persons, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryListByTagEmptyReturnsAll(t *testing.T) {
	db, mock, cleanup := newPersonRepoMock(t)
	defer cleanup()

	repo := NewPersonRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM persons ORDER BY name ASC")).
		WillReturnRows(personRows("p1", "p2", "p3"))

	persons, err := repo.ListByTag(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, persons, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newPersonRepoMock(t)
	defer cleanup()

	repo := NewPersonRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO persons")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	person := &models.Person{Name: "Ayu"}
	require.NoError(t, repo.Create(context.Background(), person))
	require.NotEmpty(t, person.ID)
	require.False(t, person.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
