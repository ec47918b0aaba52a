// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/padaria-hortal/hortal/internal/logging"
	"github.com/padaria-hortal/hortal/internal/models"
)

// ListProducts returns the active catalog. Admins may pass ?all=true to
// include deactivated products. The storefront list is snapshotted to
// the device cache and served from it when the store is unavailable.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if r.URL.Query().Get("all") == "true" {
		if c := h.claimsOrNil(r); c != nil && c.Role == models.RoleAdmin {
			activeOnly = false
		}
	}

	products, err := h.store.ListProducts(r.Context(), activeOnly)
	if err != nil {
		if activeOnly && h.cache != nil {
			if cached, cacheErr := h.cache.LoadProducts(); cacheErr == nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Serving catalog from device cache")
				respondSuccess(w, http.StatusOK, cached)
				return
			}
		}
		respondStoreError(w, err)
		return
	}
	if activeOnly && h.cache != nil {
		if err := h.cache.SaveProducts(products); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Catalog snapshot save failed")
		}
	}
	respondSuccess(w, http.StatusOK, products)
}

// ListCategories returns the active categories in display order.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context(), true)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, categories)
}

type productRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	OldPrice    float64 `json:"old_price"`
	Category    string  `json:"category" validate:"required"`
	Image       string  `json:"image"`
	Active      *bool   `json:"active"`
}

func (req *productRequest) apply(p *models.Product) {
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.OldPrice = req.OldPrice
	p.Category = req.Category
	p.Image = req.Image
	p.Active = true
	if req.Active != nil {
		p.Active = *req.Active
	}
}

// CreateProduct adds a catalog product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	var p models.Product
	req.apply(&p)
	if err := h.store.CreateProduct(r.Context(), &p); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, p)
}

// UpdateProduct replaces a product's fields.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	p, err := h.store.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	req.apply(p)
	if err := h.store.UpdateProduct(r.Context(), p); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, p)
}

// DeleteProduct soft deletes a product. Placed orders keep their copies.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeactivateProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, nil)
}

type categoryRequest struct {
	Name         string `json:"name" validate:"required"`
	Emoji        string `json:"emoji"`
	DisplayOrder int    `json:"display_order"`
	Active       *bool  `json:"active"`
}

// CreateCategory adds a catalog category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c := models.Category{
		Name:         req.Name,
		Emoji:        req.Emoji,
		DisplayOrder: req.DisplayOrder,
		Active:       true,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := h.store.CreateCategory(r.Context(), &c); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, c)
}

// UpdateCategory replaces a category's fields.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	c := models.Category{
		ID:           chi.URLParam(r, "categoryID"),
		Name:         req.Name,
		Emoji:        req.Emoji,
		DisplayOrder: req.DisplayOrder,
		Active:       true,
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := h.store.UpdateCategory(r.Context(), &c); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, c)
}

// DeleteCategory soft deletes a category.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeactivateCategory(r.Context(), chi.URLParam(r, "categoryID")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, nil)
}
