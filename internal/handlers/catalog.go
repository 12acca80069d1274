package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/silverline-jewels/storefront-api/internal/domain"
	"github.com/silverline-jewels/storefront-api/internal/platform/httpx"
	"github.com/silverline-jewels/storefront-api/internal/services"
)

// CatalogHandlers exposes the public category and product endpoints.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs the catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the catalog endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/categories", h.listCategories)
	r.Get("/products", h.listProducts)
	r.Get("/products/{slug}", h.getProduct)
}

type categoryResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	IsFeatured  bool   `json:"is_featured"`
	Image       string `json:"image,omitempty"`
}

type productImageResponse struct {
	ID        string `json:"id"`
	Image     string `json:"image"`
	AltText   string `json:"alt_text,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

type productResponse struct {
	ID          string                 `json:"id"`
	CategoryID  string                 `json:"category_id"`
	Title       string                 `json:"title"`
	Slug        string                 `json:"slug"`
	Description string                 `json:"description,omitempty"`
	Material    string                 `json:"material,omitempty"`
	Price       string                 `json:"price"`
	SalePrice   string                 `json:"sale_price,omitempty"`
	Stock       int                    `json:"stock"`
	Highlights  []string               `json:"highlights,omitempty"`
	Images      []productImageResponse `json:"images"`
}

type productListResponse struct {
	Items         []productResponse `json:"items"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := services.CategoryListFilter{}
	query := r.URL.Query()
	if v := query.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "featured must be a boolean", http.StatusBadRequest))
			return
		}
		filter.FeaturedOnly = featured
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a positive integer", http.StatusBadRequest))
			return
		}
		filter.Limit = limit
	}

	categories, err := h.catalog.ListCategories(ctx, filter)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		out = append(out, categoryResponse{
			ID:          category.ID,
			Name:        category.Name,
			Slug:        category.Slug,
			Description: category.Description,
			IsFeatured:  category.IsFeatured,
			Image:       category.ImagePath,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	listQuery := services.ProductListQuery{
		CategorySlug: query.Get("category"),
		Search:       query.Get("search"),
		Ordering:     query.Get("ordering"),
		Pagination: services.Pagination{
			PageToken: query.Get("page_token"),
		},
	}
	if v := query.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "page_size must be a positive integer", http.StatusBadRequest))
			return
		}
		listQuery.Pagination.PageSize = size
	}

	page, err := h.catalog.ListProducts(ctx, listQuery)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	out := productListResponse{
		Items:         make([]productResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, product := range page.Items {
		out.Items = append(out.Items, toProductResponse(product))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))

	product, err := h.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProductResponse(product))
}

func toProductResponse(product services.Product) productResponse {
	images := make([]productImageResponse, 0, len(product.Images))
	for _, image := range product.Images {
		images = append(images, productImageResponse{
			ID:        image.ID,
			Image:     image.ImagePath,
			AltText:   image.AltText,
			IsPrimary: image.IsPrimary,
		})
	}

	out := productResponse{
		ID:          product.ID,
		CategoryID:  product.CategoryID,
		Title:       product.Title,
		Slug:        product.Slug,
		Description: product.Description,
		Material:    product.Material,
		Price:       domain.FormatAmount(product.Price),
		Stock:       product.Stock,
		Highlights:  product.Highlights,
		Images:      images,
	}
	if product.SalePrice != nil {
		out.SalePrice = domain.FormatAmount(*product.SalePrice)
	}
	return out
}

func (h *CatalogHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "catalog entry not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "catalog lookup failed", http.StatusInternalServerError))
	}
}
