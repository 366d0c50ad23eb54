package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/kontak-api/internal/models"
	appErrors "github.com/noah-isme/kontak-api/pkg/errors"
)

type personRepository interface {
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
	FindByID(ctx context.Context, id string) (*models.Person, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	Delete(ctx context.Context, id string) error
}

// CreatePersonRequest describes payload for creating a contact.
type CreatePersonRequest struct {
	Name    string   `json:"name" validate:"required"`
	Phone   string   `json:"phone" validate:"omitempty,min=3"`
	Email   string   `json:"email" validate:"omitempty,email"`
	Address string   `json:"address"`
	Tags    []string `json:"tags" validate:"dive,alphanum"`
}

// UpdatePersonRequest updates an existing contact.
type UpdatePersonRequest struct {
	Name    string   `json:"name" validate:"required"`
	Phone   string   `json:"phone" validate:"omitempty,min=3"`
	Email   string   `json:"email" validate:"omitempty,email"`
	Address string   `json:"address"`
	Tags    []string `json:"tags" validate:"dive,alphanum"`
}

// PersonService coordinates contact records.
type PersonService struct {
	repo      personRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPersonService instantiates PersonService.
func NewPersonService(repo personRepository, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, validator: validate, logger: logger}
}

// List returns persons with pagination metadata.
func (s *PersonService) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	persons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list persons")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return persons, pagination, nil
}

// Get loads one person.
func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	person, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "person not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load person")
	}
	return person, nil
}

// Create inserts a new contact.
func (s *PersonService) Create(ctx context.Context, req CreatePersonRequest) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	person := models.Person{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		Tags:    pq.StringArray(req.Tags),
	}

	if err := s.repo.Create(ctx, &person); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create person")
	}
	return &person, nil
}

// Update modifies an existing contact.
func (s *PersonService) Update(ctx context.Context, id string, req UpdatePersonRequest) (*models.Person, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid person payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := models.Person{
		ID:        existing.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Tags:      pq.StringArray(req.Tags),
		CreatedAt: existing.CreatedAt,
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update person")
	}
	return &updated, nil
}

// Delete removes a contact together with its schedule.
func (s *PersonService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete person")
	}
	return nil
}
