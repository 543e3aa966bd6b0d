package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/gowthamvetri/bestea/internal/domain"
	"github.com/gowthamvetri/bestea/internal/fetch"
	"github.com/gowthamvetri/bestea/internal/service"
)

type CartHandler struct {
	carts   *service.CartService
	catalog *fetch.Coordinator
	timeout time.Duration
}

func NewCartHandler(carts *service.CartService, catalog *fetch.Coordinator, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variant_id,omitempty"`
}

type ApplyCouponRequestDTO struct {
	Code  string          `json:"code"`
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	totals, err := h.carts.Totals(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

// AddItem resolves the product through the catalog coordinator (cache-first)
// so the cart always carries current price data, then merges it into the
// cart.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	res, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		handleFetchError(w, err)
		return
	}
	product := res.Payload

	var variant *domain.Variant
	if req.VariantID != "" {
		for i := range product.Variants {
			if product.Variants[i].ID == req.VariantID {
				variant = &product.Variants[i]
				break
			}
		}
		if variant == nil {
			respondError(w, http.StatusBadRequest, "invalid_variant", "variant does not exist")
			return
		}
	}

	if err := h.carts.AddItem(ctx, sessionID, product, req.Quantity, variant); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusCreated)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	productID := chi.URLParam(r, "productID")

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.carts.SetQuantity(ctx, sessionID, productID, req.Quantity, variantRef(req.VariantID)); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	productID := chi.URLParam(r, "productID")
	variantID := r.URL.Query().Get("variant_id")

	if err := h.carts.RemoveItem(ctx, sessionID, productID, variantRef(variantID)); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	if err := h.carts.ClearCart(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusOK)
}

func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	var req ApplyCouponRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "invalid_coupon", "code is required")
		return
	}
	if req.Kind != domain.CouponPercentage && req.Kind != domain.CouponFixed {
		respondError(w, http.StatusBadRequest, "invalid_coupon", "kind must be percentage or fixed")
		return
	}
	if req.Value.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_coupon", "value must not be negative")
		return
	}

	coupon := domain.Coupon{Code: req.Code, Kind: req.Kind, Value: req.Value}
	if err := h.carts.ApplyCoupon(ctx, sessionID, coupon); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusOK)
}

func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionID(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	if err := h.carts.RemoveCoupon(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	h.respondCart(ctx, w, sessionID, http.StatusOK)
}

func (h *CartHandler) respondCart(ctx context.Context, w http.ResponseWriter, sessionID string, status int) {
	totals, err := h.carts.Totals(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "cart_unavailable", err.Error())
		return
	}
	respondJSON(w, status, totals)
}

func variantRef(variantID string) *domain.Variant {
	if variantID == "" {
		return nil
	}
	return &domain.Variant{ID: variantID}
}
