package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/platform/textutil"
	"github.com/silverline-jewels/storefront-api/internal/repositories"
)

const (
	// OrderingNewest sorts products newest first (the storage order).
	OrderingNewest = "newest"
	// OrderingPriceAsc sorts the returned page by effective price ascending.
	OrderingPriceAsc = "price"
	// OrderingPriceDesc sorts the returned page by effective price descending.
	OrderingPriceDesc = "-price"
)

var (
	// ErrCatalogInvalidInput indicates a malformed listing query.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the category or product does not exist.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogUnavailable indicates the catalog store is unavailable.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// mediaURLResolver abstracts the storage signer for easier testing.
type mediaURLResolver interface {
	ResolveURL(ctx context.Context, ref string) (string, error)
}

// CatalogServiceDeps wires the dependencies for the catalog read surface.
type CatalogServiceDeps struct {
	Categories repositories.CategoryRepository
	Products   repositories.ProductRepository
	// Media resolves stored image paths into client-usable URLs. Optional;
	// without it image paths pass through untouched.
	Media  mediaURLResolver
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	categories repositories.CategoryRepository
	products   repositories.ProductRepository
	media      mediaURLResolver
	logger     func(ctx context.Context, event string, fields map[string]any)
}

// NewCatalogService constructs a CatalogService validating required dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Categories == nil {
		return nil, errors.New("catalog service: category repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		categories: deps.Categories,
		products:   deps.Products,
		media:      deps.Media,
		logger:     logger,
	}, nil
}

// ListCategories returns the active categories, optionally featured only.
func (s *catalogService) ListCategories(ctx context.Context, filter CategoryListFilter) ([]Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, s.translateRepoError(err)
	}

	out := make([]Category, 0, len(categories))
	for _, category := range categories {
		if filter.FeaturedOnly && !category.IsFeatured {
			continue
		}
		category.ImagePath = s.resolveMediaURL(ctx, category.ImagePath)
		out = append(out, category)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// ListProducts returns a page of active products. Category and search
// filters narrow the result; price orderings apply within the page.
func (s *catalogService) ListProducts(ctx context.Context, query ProductListQuery) (domain.CursorPage[Product], error) {
	filter := repositories.ProductListFilter{
		ActiveOnly: true,
		Pagination: query.Pagination,
	}

	if slug := strings.TrimSpace(query.CategorySlug); slug != "" {
		category, err := s.categories.FindBySlug(ctx, textutil.Slugify(slug))
		if err != nil {
			return domain.CursorPage[Product]{}, s.translateRepoError(err)
		}
		filter.CategoryID = category.ID
	}

	page, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateRepoError(err)
	}

	if search := strings.TrimSpace(query.Search); search != "" {
		page.Items = filterProductsBySearch(page.Items, search)
	}

	switch strings.TrimSpace(query.Ordering) {
	case "", OrderingNewest:
	case OrderingPriceAsc:
		sortProductsByPrice(page.Items, true)
	case OrderingPriceDesc:
		sortProductsByPrice(page.Items, false)
	default:
		return domain.CursorPage[Product]{}, fmt.Errorf("%w: unknown ordering %q", ErrCatalogInvalidInput, query.Ordering)
	}

	for i := range page.Items {
		s.resolveProductMedia(ctx, &page.Items[i])
	}
	return page, nil
}

// GetProductBySlug loads a single product by its URL slug.
func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	slug = textutil.Slugify(strings.TrimSpace(slug))
	if slug == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindBySlug(ctx, slug)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	s.resolveProductMedia(ctx, &product)
	return product, nil
}

func filterProductsBySearch(products []Product, search string) []Product {
	needle := strings.ToLower(search)
	out := make([]Product, 0, len(products))
	for _, product := range products {
		haystack := strings.ToLower(product.Title + " " + product.Description + " " + product.Material)
		if strings.Contains(haystack, needle) {
			out = append(out, product)
		}
	}
	return out
}

func sortProductsByPrice(products []Product, ascending bool) {
	sort.SliceStable(products, func(i, j int) bool {
		a := effectivePrice(products[i])
		b := effectivePrice(products[j])
		if ascending {
			return a.LessThan(b)
		}
		return b.LessThan(a)
	})
}

func effectivePrice(product Product) decimal.Decimal {
	if product.SalePrice != nil {
		return *product.SalePrice
	}
	return product.Price
}

func (s *catalogService) resolveProductMedia(ctx context.Context, product *Product) {
	for i := range product.Images {
		product.Images[i].ImagePath = s.resolveMediaURL(ctx, product.Images[i].ImagePath)
	}
}

// resolveMediaURL is best-effort: on failure the stored path passes through
// so the listing still renders.
func (s *catalogService) resolveMediaURL(ctx context.Context, ref string) string {
	if s.media == nil || strings.TrimSpace(ref) == "" {
		return ref
	}
	resolved, err := s.media.ResolveURL(ctx, ref)
	if err != nil {
		s.logger(ctx, "catalog.media.resolve_failed", map[string]any{
			"ref":   ref,
			"error": err.Error(),
		})
		return ref
	}
	return resolved
}

func (s *catalogService) translateRepoError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsNotFound() {
		return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
}
