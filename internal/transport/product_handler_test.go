package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-api/internal/domain"
	"catalog-api/internal/repository"
	"catalog-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repository for testing
type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	failWith error
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func (m *mockProductRepository) checkUnique(product *domain.Product) error {
	for id, existing := range m.products {
		if id == product.ID {
			continue
		}
		if existing.Title == product.Title {
			return &repository.DuplicateError{
				Constraint: "products_title_key",
				Detail:     fmt.Sprintf("Key (title)=(%s) already exists.", product.Title),
			}
		}
		if existing.Slug == product.Slug {
			return &repository.DuplicateError{
				Constraint: "products_slug_key",
				Detail:     fmt.Sprintf("Key (slug)=(%s) already exists.", product.Slug),
			}
		}
	}
	return nil
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.checkUnique(product); err != nil {
		return err
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product, replaceImages bool) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, exists := m.products[product.ID]; !exists {
		return repository.ErrProductNotFound
	}
	if err := m.checkUnique(product); err != nil {
		return err
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, exists := m.products[id]; !exists {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) FindByTerm(ctx context.Context, term string) (*domain.Product, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, product := range m.products {
		if product.Slug == term || strings.EqualFold(product.Title, term) {
			return product, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	all := make([]*domain.Product, 0, len(m.products))
	for _, product := range m.products {
		all = append(all, product)
	}
	if offset >= len(all) {
		return []*domain.Product{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func newTestRouter(repo repository.ProductRepository) chi.Router {
	logger := zap.NewNop()
	productService := service.NewProductService(repo, logger)
	handler := NewProductHandler(productService, logger)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func validCreateBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":  title,
		"price":  19.99,
		"stock":  5,
		"sizes":  []string{"S", "M"},
		"gender": "men",
	}
}

func TestCreate_ReturnsCreatedProduct(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	body, _ := json.Marshal(validCreateBody("Basic Tee"))
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var response ProductResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Title != "Basic Tee" {
		t.Errorf("expected title %q, got %q", "Basic Tee", response.Title)
	}
	if response.Slug != "basic_tee" {
		t.Errorf("expected slug %q, got %q", "basic_tee", response.Slug)
	}
	if response.Images == nil {
		t.Error("expected images to be an empty array, got null")
	}
	if _, err := uuid.Parse(response.ID); err != nil {
		t.Errorf("expected a UUID id, got %q", response.ID)
	}
}

// Feature: product-catalog, Property: invalid create payloads are rejected
func TestProperty_InvalidCreateDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("creation with invalid data returns validation errors", prop.ForAll(
		func(invalidCase int) bool {
			router := newTestRouter(newMockProductRepository())

			reqBody := validCreateBody("Basic Tee")

			switch invalidCase % 4 {
			case 0:
				// Missing title
				delete(reqBody, "title")
			case 1:
				// Unknown gender value
				reqBody["gender"] = "aliens"
			case 2:
				// Negative price
				reqBody["price"] = -1.0
			case 3:
				// Empty sizes
				reqBody["sizes"] = []string{}
			}

			body, _ := json.Marshal(reqBody)
			req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: expected 400 status code, got %d", w.Code)
				return false
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Logf("FAIL: could not decode error response: %v", err)
				return false
			}
			if _, exists := response["error"]; !exists {
				t.Logf("FAIL: response missing 'error' field")
				return false
			}

			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestCreate_DuplicateTitleReturnsConflict(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	body, _ := json.Marshal(validCreateBody("Basic Tee"))
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)

	body, _ = json.Marshal(validCreateBody("Basic Tee"))
	req = httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "already exists") {
		t.Errorf("expected constraint detail in response, got %s", w.Body.String())
	}
}

func TestFindOne_ByIDSlugAndTitle(t *testing.T) {
	repo := newMockProductRepository()
	router := newTestRouter(repo)

	body, _ := json.Marshal(validCreateBody("Women's Coat"))
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	created := httptest.NewRecorder()
	router.ServeHTTP(created, req)

	var createdProduct ProductResponse
	if err := json.NewDecoder(created.Body).Decode(&createdProduct); err != nil {
		t.Fatalf("failed to decode created product: %v", err)
	}

	terms := []string{
		createdProduct.ID,
		"womens_coat",
		"WOMEN'S COAT",
	}

	for _, term := range terms {
		req := httptest.NewRequest(http.MethodGet, "/api/products/"+strings.ReplaceAll(term, " ", "%20"), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("term %q: expected 200, got %d: %s", term, w.Code, w.Body.String())
			continue
		}

		var response ProductResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Errorf("term %q: failed to decode response: %v", term, err)
			continue
		}
		if response.ID != createdProduct.ID {
			t.Errorf("term %q: expected product %s, got %s", term, createdProduct.ID, response.ID)
		}
	}
}

func TestFindOne_UnknownTermReturnsNotFound(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/products/no_such_product", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no_such_product") {
		t.Errorf("expected term in error message, got %s", w.Body.String())
	}
}

func TestFindAll_RejectsInvalidPagination(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	cases := []struct {
		name  string
		query string
	}{
		{"non-numeric limit", "?limit=abc"},
		{"negative limit", "?limit=-1"},
		{"zero limit", "?limit=0"},
		{"negative offset", "?offset=-3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/products"+tc.query, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestFindAll_ReturnsEmptyArrayWhenNoProducts(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestUpdate_InvalidIDReturnsBadRequest(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	req := httptest.NewRequest(http.MethodPatch, "/api/products/not-a-uuid", strings.NewReader(`{"title":"New"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdate_MissingProductReturnsNotFound(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	id := uuid.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/products/"+id.String(), strings.NewReader(`{"title":"New"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRemove_ReturnsConfirmationMessage(t *testing.T) {
	router := newTestRouter(newMockProductRepository())

	body, _ := json.Marshal(validCreateBody("Basic Tee"))
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	created := httptest.NewRecorder()
	router.ServeHTTP(created, req)

	var createdProduct ProductResponse
	if err := json.NewDecoder(created.Body).Decode(&createdProduct); err != nil {
		t.Fatalf("failed to decode created product: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/products/"+createdProduct.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response DeleteResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	expected := fmt.Sprintf("product with id %s deleted successfully", createdProduct.ID)
	if response.Message != expected {
		t.Errorf("expected message %q, got %q", expected, response.Message)
	}

	// Deleting again reports not found
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/products/"+createdProduct.ID, nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestStorageFailuresAreSanitized(t *testing.T) {
	repo := newMockProductRepository()
	repo.failWith = errors.New("connection refused")
	router := newTestRouter(repo)

	body, _ := json.Marshal(validCreateBody("Basic Tee"))
	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("internal error detail leaked to client: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "check server logs") {
		t.Errorf("expected generic error message, got %s", w.Body.String())
	}
}
