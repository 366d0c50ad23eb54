package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kontak-api/internal/models"
)

const eventColumns = "id, person_id, description, anchor_date, start_seconds, duration_seconds, recurrence, created_at, updated_at"

// eventRow is the database shape of an event; offsets are stored as whole
// seconds so durations beyond 24 hours round-trip exactly.
type eventRow struct {
	ID              string    `db:"id"`
	PersonID        string    `db:"person_id"`
	Description     string    `db:"description"`
	AnchorDate      time.Time `db:"anchor_date"`
	StartSeconds    int64     `db:"start_seconds"`
	DurationSeconds int64     `db:"duration_seconds"`
	Recurrence      string    `db:"recurrence"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row eventRow) toModel() models.Event {
	return models.Event{
		ID:          row.ID,
		PersonID:    row.PersonID,
		Description: row.Description,
		Date:        models.DateOf(row.AnchorDate),
		Start:       time.Duration(row.StartSeconds) * time.Second,
		Duration:    time.Duration(row.DurationSeconds) * time.Second,
		Recurrence:  models.RecurrenceKind(row.Recurrence),
	}
}

// EventRepository provides persistence for schedule events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListByPerson returns a person's events in (anchor date, start) order.
func (r *EventRepository) ListByPerson(ctx context.Context, personID string) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE person_id = $1 ORDER BY anchor_date ASC, start_seconds ASC", eventColumns)
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, personID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]models.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toModel()
	}
	return events, nil
}

// FindByID loads one event scoped to its owning person.
func (r *EventRepository) FindByID(ctx context.Context, personID, eventID string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE person_id = $1 AND id = $2", eventColumns)
	var row eventRow
	if err := r.db.GetContext(ctx, &row, query, personID, eventID); err != nil {
		return nil, err
	}
	event := row.toModel()
	return &event, nil
}

// Create inserts a new event for a person.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	const query = `INSERT INTO events (id, person_id, description, anchor_date, start_seconds, duration_seconds, recurrence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.PersonID, event.Description, event.Date,
		int64(event.Start/time.Second), int64(event.Duration/time.Second),
		string(event.Recurrence), now, now,
	); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update replaces an event's five value fields.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	const query = `UPDATE events SET description = $3, anchor_date = $4, start_seconds = $5, duration_seconds = $6, recurrence = $7, updated_at = $8
		WHERE person_id = $1 AND id = $2`
	if _, err := r.db.ExecContext(ctx, query,
		event.PersonID, event.ID, event.Description, event.Date,
		int64(event.Start/time.Second), int64(event.Duration/time.Second),
		string(event.Recurrence), time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Delete removes one event.
func (r *EventRepository) Delete(ctx context.Context, personID, eventID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM events WHERE person_id = $1 AND id = $2", personID, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ReplaceForPerson swaps a person's whole schedule in one transaction, so an
// import either fully applies or leaves the previous schedule intact.
func (r *EventRepository) ReplaceForPerson(ctx context.Context, personID string, events []models.Event) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE person_id = $1", personID); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	now := time.Now().UTC()
	const query = `INSERT INTO events (id, person_id, description, anchor_date, start_seconds, duration_seconds, recurrence, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		events[i].PersonID = personID
		if _, err := tx.ExecContext(ctx, query,
			events[i].ID, personID, events[i].Description, events[i].Date,
			int64(events[i].Start/time.Second), int64(events[i].Duration/time.Second),
			string(events[i].Recurrence), now, now,
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ListStaleRecurring returns recurring events whose anchor fell strictly
// before the given date. The normalizer rolls these forward.
func (r *EventRepository) ListStaleRecurring(ctx context.Context, before time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE recurrence <> 'NONE' AND anchor_date < $1", eventColumns)
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, before); err != nil {
		return nil, fmt.Errorf("list stale recurring events: %w", err)
	}
	events := make([]models.Event, len(rows))
	for i, row := range rows {
		events[i] = row.toModel()
	}
	return events, nil
}

// UpdateAnchorDate moves an event's anchor, used when rolling a recurring
// series forward to its next live occurrence.
func (r *EventRepository) UpdateAnchorDate(ctx context.Context, eventID string, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE events SET anchor_date = $2, updated_at = $3 WHERE id = $1", eventID, date, time.Now().UTC()); err != nil {
		return fmt.Errorf("update anchor date: %w", err)
	}
	return nil
}
