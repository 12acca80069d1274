package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	pfirestore "github.com/silverline-jewels/storefront-api/internal/platform/firestore"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const (
	categoryCollection = "categories"
	productCollection  = "products"

	defaultProductPageSize = 24
	maxProductPageSize     = 100
)

type categoryDocument struct {
	Name        string    `firestore:"name"`
	Slug        string    `firestore:"slug"`
	Description string    `firestore:"description"`
	IsActive    bool      `firestore:"isActive"`
	IsFeatured  bool      `firestore:"isFeatured"`
	ImagePath   string    `firestore:"imagePath"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type productDocument struct {
	CategoryID  string                 `firestore:"categoryId"`
	Title       string                 `firestore:"title"`
	Slug        string                 `firestore:"slug"`
	Description string                 `firestore:"description"`
	Material    string                 `firestore:"material"`
	Price       string                 `firestore:"price"`
	SalePrice   string                 `firestore:"salePrice,omitempty"`
	Stock       int                    `firestore:"stock"`
	IsActive    bool                   `firestore:"isActive"`
	Highlights  []string               `firestore:"highlights,omitempty"`
	Images      []productImageDocument `firestore:"images,omitempty"`
	CreatedAt   time.Time              `firestore:"createdAt"`
	UpdatedAt   time.Time              `firestore:"updatedAt"`
}

type productImageDocument struct {
	ID        string `firestore:"id"`
	ImagePath string `firestore:"imagePath"`
	AltText   string `firestore:"altText"`
	IsPrimary bool   `firestore:"isPrimary"`
}

// CategoryRepository serves the catalog category tree from Firestore.
type CategoryRepository struct {
	categories *pfirestore.BaseRepository[categoryDocument]
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{
		categories: pfirestore.NewBaseRepository[categoryDocument](provider, categoryCollection, nil, nil),
	}, nil
}

// List returns active categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	if r == nil || r.categories == nil {
		return nil, errors.New("category repository not initialised")
	}

	docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isActive", "==", true).OrderBy("name", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, toDomainCategory(doc.ID, doc.Data))
	}
	return categories, nil
}

// FindBySlug resolves a category by its URL slug.
func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (domain.Category, error) {
	if r == nil || r.categories == nil {
		return domain.Category{}, errors.New("category repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Category{}, pfirestore.NewNotFound("categories.findBySlug", errors.New("slug is empty"))
	}

	docs, err := r.categories.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Category{}, err
	}
	if len(docs) == 0 {
		return domain.Category{}, pfirestore.NewNotFound("categories.findBySlug", fmt.Errorf("category %q not found", slug))
	}
	return toDomainCategory(docs[0].ID, docs[0].Data), nil
}

// ProductRepository serves catalog products from Firestore.
type ProductRepository struct {
	products *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		products: pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
	}, nil
}

// List returns a page of products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.products == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit <= 0 {
		limit = defaultProductPageSize
	}
	if limit > maxProductPageSize {
		limit = maxProductPageSize
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, fmt.Errorf("product repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("isActive", "==", true)
		}
		if categoryID := strings.TrimSpace(filter.CategoryID); categoryID != "" {
			q = q.Where("categoryId", "==", categoryID)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc)
		if len(startAfter) > 0 {
			q = q.StartAfter(startAfter...)
		}
		return q.Limit(limit + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	page := domain.CursorPage[domain.Product]{}
	for i, doc := range docs {
		if i == limit {
			last := docs[limit-1]
			page.NextPageToken = encodeListToken(last.Data.CreatedAt, last.ID)
			break
		}
		product, err := toDomainProduct(doc.ID, doc.Data)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, err
		}
		page.Items = append(page.Items, product)
	}
	return page, nil
}

// FindByID loads a product by its document ID.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}

	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data)
}

// FindBySlug resolves a product by its URL slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, pfirestore.NewNotFound("products.findBySlug", errors.New("slug is empty"))
	}

	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.NewNotFound("products.findBySlug", fmt.Errorf("product %q not found", slug))
	}
	return toDomainProduct(docs[0].ID, docs[0].Data)
}

// FindByIDs loads each requested product, keyed by ID. Missing products are
// simply absent from the result.
func (r *ProductRepository) FindByIDs(ctx context.Context, productIDs []string) (map[string]domain.Product, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("product repository not initialised")
	}

	result := make(map[string]domain.Product, len(productIDs))
	for _, id := range productIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := result[id]; ok {
			continue
		}
		product, err := r.FindByID(ctx, id)
		if err != nil {
			var repoErr repositories.RepositoryError
			if errors.As(err, &repoErr) && repoErr.IsNotFound() {
				continue
			}
			return nil, err
		}
		result[id] = product
	}
	return result, nil
}

func toDomainCategory(id string, doc categoryDocument) domain.Category {
	return domain.Category{
		ID:          id,
		Name:        doc.Name,
		Slug:        doc.Slug,
		Description: doc.Description,
		IsActive:    doc.IsActive,
		IsFeatured:  doc.IsFeatured,
		ImagePath:   doc.ImagePath,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func toDomainProduct(id string, doc productDocument) (domain.Product, error) {
	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s has invalid price %q: %w", id, doc.Price, err)
	}

	var salePrice *decimal.Decimal
	if strings.TrimSpace(doc.SalePrice) != "" {
		parsed, err := decimal.NewFromString(doc.SalePrice)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s has invalid sale price %q: %w", id, doc.SalePrice, err)
		}
		salePrice = &parsed
	}

	images := make([]domain.ProductImage, 0, len(doc.Images))
	for _, img := range doc.Images {
		images = append(images, domain.ProductImage{
			ID:        img.ID,
			ImagePath: img.ImagePath,
			AltText:   img.AltText,
			IsPrimary: img.IsPrimary,
		})
	}

	return domain.Product{
		ID:          id,
		CategoryID:  doc.CategoryID,
		Title:       doc.Title,
		Slug:        doc.Slug,
		Description: doc.Description,
		Material:    doc.Material,
		Price:       price,
		SalePrice:   salePrice,
		Stock:       doc.Stock,
		IsActive:    doc.IsActive,
		Highlights:  doc.Highlights,
		Images:      images,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func encodeListToken(ts time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", ts.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}
