package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/kontak-api/internal/models"
)

const personColumns = "id, name, phone, email, address, tags, created_at, updated_at"

// PersonRepository provides persistence for contact records.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository creates a new person repository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// List returns persons with optional filtering and pagination.
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error) {
	base := "FROM persons WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Tag != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", len(args)+1))
		args = append(args, filter.Tag)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"email":      true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", personColumns, base, sortBy, order, size, offset)
	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list persons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}

	return persons, total, nil
}

// ListByTag returns every person carrying the given tag, or all persons when
// the tag is empty. Used by group availability queries.
func (r *PersonRepository) ListByTag(ctx context.Context, tag string) ([]models.Person, error) {
	query := fmt.Sprintf("SELECT %s FROM persons ORDER BY name ASC", personColumns)
	args := []interface{}{}
	if tag != "" {
		query = fmt.Sprintf("SELECT %s FROM persons WHERE $1 = ANY(tags) ORDER BY name ASC", personColumns)
		args = append(args, tag)
	}
	var persons []models.Person
	if err := r.db.SelectContext(ctx, &persons, query, args...); err != nil {
		return nil, fmt.Errorf("list persons by tag: %w", err)
	}
	return persons, nil
}

// FindByID loads a person by id.
func (r *PersonRepository) FindByID(ctx context.Context, id string) (*models.Person, error) {
	query := fmt.Sprintf("SELECT %s FROM persons WHERE id = $1", personColumns)
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// Create inserts a new person.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	now := time.Now().UTC()
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	person.CreatedAt = now
	person.UpdatedAt = now
	if person.Tags == nil {
		person.Tags = pq.StringArray{}
	}

	const query = `INSERT INTO persons (id, name, phone, email, address, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		person.ID, person.Name, person.Phone, person.Email, person.Address, person.Tags,
		person.CreatedAt, person.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// Update replaces a person's contact fields.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	if person.Tags == nil {
		person.Tags = pq.StringArray{}
	}

	const query = `UPDATE persons SET name = $2, phone = $3, email = $4, address = $5, tags = $6, updated_at = $7
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		person.ID, person.Name, person.Phone, person.Email, person.Address, person.Tags, person.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return nil
}

// Delete removes a person; owned events cascade at the database level.
func (r *PersonRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM persons WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}
