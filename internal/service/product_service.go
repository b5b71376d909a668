package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLimit  = 10
	DefaultOffset = 0
)

// NotFoundError reports a lookup that matched no product. It carries the
// offending identifier or term.
type NotFoundError struct {
	Term string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product with term %q not found", e.Term)
}

// ConflictError reports a title or slug collision. Detail is the store's
// constraint message so the client can identify the colliding field.
type ConflictError struct {
	Detail string
}

func (e *ConflictError) Error() string {
	return e.Detail
}

// ErrInternal is returned for any persistence failure that is not a
// conflict or a missing record. The original error is logged server-side
// and never crosses this boundary.
var ErrInternal = errors.New("unexpected error, check server logs")

// CreateProductInput carries a validated create payload. Optional fields
// are pointers so absence is distinguishable from the zero value.
type CreateProductInput struct {
	Title       string
	Price       *float64
	Description *string
	Slug        *string
	Stock       *int
	Sizes       []string
	Gender      string
	Tags        []string
	Images      []string
}

// UpdateProductInput carries a validated partial-update payload. Nil
// fields keep their prior value; a non-nil Images slice replaces the
// image collection wholesale.
type UpdateProductInput struct {
	Title       *string
	Price       *float64
	Description *string
	Slug        *string
	Stock       *int
	Sizes       []string
	Gender      *string
	Tags        []string
	Images      []string
}

// ProductService defines the catalog business logic.
type ProductService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	FindAll(ctx context.Context, limit, offset *int) ([]*domain.Product, error)
	FindOne(ctx context.Context, term string) (*domain.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error)
	Remove(ctx context.Context, id uuid.UUID) (string, error)
}

type productService struct {
	repo   repository.ProductRepository
	logger *zap.Logger
}

// NewProductService creates a new instance of ProductService
func NewProductService(repo repository.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		repo:   repo,
		logger: logger,
	}
}

// Create builds a product from the input, normalizes its slug and
// persists it together with its image rows.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()

	product := &domain.Product{
		ID:        uuid.New(),
		Title:     input.Title,
		Sizes:     input.Sizes,
		Gender:    input.Gender,
		Tags:      []string{},
		Images:    []domain.ProductImage{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}

	slug := ""
	if input.Slug != nil {
		slug = *input.Slug
	}
	product.Slug = domain.Slugify(slug, product.Title)

	for _, url := range input.Images {
		product.Images = append(product.Images, domain.ProductImage{
			ID:        uuid.New(),
			URL:       url,
			ProductID: product.ID,
		})
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, s.mapWriteError(err, product.ID.String())
	}

	return product, nil
}

// FindAll returns a page of products including their images. Absent
// pagination values fall back to limit 10 / offset 0.
func (s *productService) FindAll(ctx context.Context, limit, offset *int) ([]*domain.Product, error) {
	take := DefaultLimit
	if limit != nil {
		take = *limit
	}
	skip := DefaultOffset
	if offset != nil {
		skip = *offset
	}

	products, err := s.repo.List(ctx, take, skip)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, ErrInternal
	}

	return products, nil
}

// FindOne resolves a term that is either a product ID or a
// human-readable slug/title. IDs are matched exactly; other terms match
// the title case-insensitively or the slug exactly.
func (s *productService) FindOne(ctx context.Context, term string) (*domain.Product, error) {
	var (
		product *domain.Product
		err     error
	)

	if id, parseErr := uuid.Parse(term); parseErr == nil {
		product, err = s.repo.FindByID(ctx, id)
	} else {
		product, err = s.repo.FindByTerm(ctx, term)
	}

	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Term: term}
		}
		s.logger.Error("Failed to find product", zap.String("term", term), zap.Error(err))
		return nil, ErrInternal
	}

	return product, nil
}

// Update merges the supplied fields into the existing product and
// persists the result. Omitted fields keep their prior value, including
// the image collection; a supplied Images slice replaces it wholesale.
func (s *productService) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &NotFoundError{Term: id.String()}
		}
		s.logger.Error("Failed to load product for update", zap.String("id", id.String()), zap.Error(err))
		return nil, ErrInternal
	}

	if input.Title != nil {
		product.Title = *input.Title
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Sizes != nil {
		product.Sizes = input.Sizes
	}
	if input.Gender != nil {
		product.Gender = *input.Gender
	}
	if input.Tags != nil {
		product.Tags = input.Tags
	}

	// Re-normalize only when the caller touched the slug or the title, so
	// an untouched slug survives a partial update.
	if input.Slug != nil {
		product.Slug = domain.Slugify(*input.Slug, product.Title)
	} else if input.Title != nil {
		product.Slug = domain.Slugify(product.Slug, product.Title)
	}

	replaceImages := input.Images != nil
	if replaceImages {
		product.Images = make([]domain.ProductImage, 0, len(input.Images))
		for _, url := range input.Images {
			product.Images = append(product.Images, domain.ProductImage{
				ID:        uuid.New(),
				URL:       url,
				ProductID: product.ID,
			})
		}
	}

	product.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, product, replaceImages); err != nil {
		return nil, s.mapWriteError(err, id.String())
	}

	return product, nil
}

// Remove deletes a product; its images go with it via cascade.
func (s *productService) Remove(ctx context.Context, id uuid.UUID) (string, error) {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return "", &NotFoundError{Term: id.String()}
		}
		s.logger.Error("Failed to delete product", zap.String("id", id.String()), zap.Error(err))
		return "", ErrInternal
	}

	return fmt.Sprintf("product with id %s deleted successfully", id), nil
}

// mapWriteError applies the shared error mapping policy for mutating
// operations: duplicates surface as conflicts with the constraint
// detail, everything else is logged in full and sanitized.
func (s *productService) mapWriteError(err error, id string) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return &ConflictError{Detail: dup.Detail}
	}

	if errors.Is(err, repository.ErrProductNotFound) {
		return &NotFoundError{Term: id}
	}

	s.logger.Error("Unexpected persistence failure", zap.String("id", id), zap.Error(err))
	return ErrInternal
}
