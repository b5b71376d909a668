package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

// DuplicateError reports a unique constraint violation on title or slug.
// It carries the constraint detail so callers can tell the colliding
// field without inspecting driver-specific error strings.
type DuplicateError struct {
	Constraint string
	Detail     string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate key violates constraint %s: %s", e.Constraint, e.Detail)
}

// duplicate returns the typed duplicate error when err is a unique
// constraint violation, or nil otherwise.
func duplicate(err error) *DuplicateError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		detail := pgErr.Detail
		if detail == "" {
			detail = pgErr.Message
		}
		return &DuplicateError{Constraint: pgErr.ConstraintName, Detail: detail}
	}
	return nil
}

// ProductRepository defines the interface for product data access.
// Products are always read and written together with their image rows.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product, replaceImages bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByTerm(ctx context.Context, term string) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Product, error)
}

type productRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *pgxpool.Pool) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, title, price, description, slug, stock, sizes, gender, tags, created_at, updated_at`

// Create inserts a product and its image rows in a single transaction.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO products (id, title, price, description, slug, stock, sizes, gender, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Price,
		product.Description,
		product.Slug,
		product.Stock,
		product.Sizes,
		product.Gender,
		product.Tags,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if dup := duplicate(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	if err := insertImages(ctx, tx, product.ID, product.Images); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Update rewrites a product row. When replaceImages is set the image
// collection is deleted and rewritten from product.Images; otherwise
// existing image rows are left untouched.
func (r *productRepository) Update(ctx context.Context, product *domain.Product, replaceImages bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE products
		SET title = $2, price = $3, description = $4, slug = $5,
		    stock = $6, sizes = $7, gender = $8, tags = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := tx.Exec(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Price,
		product.Description,
		product.Slug,
		product.Stock,
		product.Sizes,
		product.Gender,
		product.Tags,
		product.UpdatedAt,
	)
	if err != nil {
		if dup := duplicate(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	if replaceImages {
		if _, err := tx.Exec(ctx, `DELETE FROM product_images WHERE product_id = $1`, product.ID); err != nil {
			return fmt.Errorf("failed to clear product images: %w", err)
		}
		if err := insertImages(ctx, tx, product.ID, product.Images); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes a product; image rows go with it via ON DELETE CASCADE.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID including its images.
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return r.findOne(ctx, query, id)
}

// FindByTerm retrieves a product by case-insensitive title or exact slug.
func (r *productRepository) FindByTerm(ctx context.Context, term string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE upper(title) = upper($1) OR slug = $1`, productColumns)
	return r.findOne(ctx, query, term)
}

func (r *productRepository) findOne(ctx context.Context, query string, arg any) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&product.ID,
		&product.Title,
		&product.Price,
		&product.Description,
		&product.Slug,
		&product.Stock,
		&product.Sizes,
		&product.Gender,
		&product.Tags,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	if err := r.loadImages(ctx, []*domain.Product{product}); err != nil {
		return nil, err
	}

	return product, nil
}

// List retrieves a page of products with their images. Pages are ordered
// by (created_at, id) so consecutive offsets yield disjoint, contiguous
// slices of the catalog.
func (r *productRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, productColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Title,
			&product.Price,
			&product.Description,
			&product.Slug,
			&product.Stock,
			&product.Sizes,
			&product.Gender,
			&product.Tags,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if err := r.loadImages(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// loadImages attaches image rows to the given products in stored order.
func (r *productRepository) loadImages(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Product, len(products))
	ids := make([]uuid.UUID, len(products))
	for i, p := range products {
		p.Images = []domain.ProductImage{}
		byID[p.ID] = p
		ids[i] = p.ID
	}

	query := `
		SELECT id, url, product_id
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, position
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		image := domain.ProductImage{}
		if err := rows.Scan(&image.ID, &image.URL, &image.ProductID); err != nil {
			return fmt.Errorf("failed to scan product image: %w", err)
		}
		if p, ok := byID[image.ProductID]; ok {
			p.Images = append(p.Images, image)
		}
	}

	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating product images: %w", err)
	}

	return nil
}

func insertImages(ctx context.Context, tx pgx.Tx, productID uuid.UUID, images []domain.ProductImage) error {
	for i, image := range images {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO product_images (id, url, product_id, position) VALUES ($1, $2, $3, $4)`,
			image.ID,
			image.URL,
			productID,
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product image: %w", err)
		}
	}
	return nil
}
