package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/fetch"
)

type CatalogHandler struct {
	catalog *fetch.Coordinator
	timeout time.Duration
}

func NewCatalogHandler(catalog *fetch.Coordinator, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := listingQueryFromRequest(r)
	res, err := h.catalog.Products(ctx, q)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	writeCacheHeader(w, res.FromCache)
	respondJSON(w, http.StatusOK, res.Payload)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "productID")
	res, err := h.catalog.Product(ctx, id)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	writeCacheHeader(w, res.FromCache)
	respondJSON(w, http.StatusOK, res.Payload)
}

func (h *CatalogHandler) BestSellers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.catalog.BestSellers(ctx)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	writeCacheHeader(w, res.FromCache)
	respondJSON(w, http.StatusOK, res.Payload)
}

func (h *CatalogHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.catalog.Featured(ctx)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	writeCacheHeader(w, res.FromCache)
	respondJSON(w, http.StatusOK, res.Payload)
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.catalog.Categories(ctx)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	writeCacheHeader(w, res.FromCache)
	respondJSON(w, http.StatusOK, res.Payload)
}

func listingQueryFromRequest(r *http.Request) domain.ListingQuery {
	values := r.URL.Query()
	q := domain.ListingQuery{
		Sort: values.Get("sort"),
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil {
		q.Page = page
	}
	if perPage, err := strconv.Atoi(values.Get("per_page")); err == nil {
		q.PerPage = perPage
	}

	filters := make(map[string]string)
	if category := values.Get("category"); category != "" {
		filters["category"] = category
	}
	if search := values.Get("q"); search != "" {
		filters["q"] = search
	}
	if len(filters) > 0 {
		q.Filters = filters
	}
	return q
}
