package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Genders lists the accepted values for a product's gender field.
var Genders = []string{"men", "women", "kids", "unisex"}

// Product represents a catalog entry. Title and Slug are unique across
// all products; Images are owned rows that never outlive the product.
type Product struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Price       float64        `json:"price" db:"price"`
	Description string         `json:"description" db:"description"`
	Slug        string         `json:"slug" db:"slug"`
	Stock       int            `json:"stock" db:"stock"`
	Sizes       []string       `json:"sizes" db:"sizes"`
	Gender      string         `json:"gender" db:"gender"`
	Tags        []string       `json:"tags" db:"tags"`
	Images      []ProductImage `json:"images"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// ProductImage is an image URL owned by exactly one product.
type ProductImage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
}

// ImageURLs returns the product's image URLs in stored order.
func (p *Product) ImageURLs() []string {
	urls := make([]string, len(p.Images))
	for i, img := range p.Images {
		urls[i] = img.URL
	}
	return urls
}

// Slugify derives the canonical slug for a product. An empty slug is
// seeded from the title; the result is lowercased with spaces replaced
// by underscores and apostrophes removed.
func Slugify(slug, title string) string {
	if slug == "" {
		slug = title
	}
	slug = strings.ToLower(slug)
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ReplaceAll(slug, "'", "")
	return slug
}
