// Hortal - Bakery Ordering and Realtime Order Sync
// Copyright 2026 Padaria Hortal
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/padaria-hortal/hortal

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padaria-hortal/hortal/internal/auth"
	"github.com/padaria-hortal/hortal/internal/middleware"
)

// Routes assembles the chi router for the whole HTTP surface.
func (h *Handler) Routes(cfg Config) http.Handler {
	r := chi.NewRouter()

	h.corsOrigins = cfg.CORSOrigins

	rateReqs := cfg.RateLimitReqs
	if rateReqs <= 0 {
		rateReqs = 300
	}
	rateWindow := cfg.RateLimitWindow
	if rateWindow <= 0 {
		rateWindow = time.Minute
	}

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Route("/health", func(r chi.Router) {
			r.Get("/", h.Health)
			r.Get("/live", h.HealthLive)
			r.Get("/ready", h.HealthReady)
		})

		// Login gets its own tight limit against brute force.
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(rateReqs, rateWindow))

			r.Get("/catalog/products", h.ListProducts)
			r.Get("/catalog/categories", h.ListCategories)
			r.Get("/cep/{code}", h.LookupCEP)

			r.Group(func(r chi.Router) {
				r.Use(h.auth.RequireAuth)

				r.Get("/profile", h.GetProfile)
				r.Put("/profile", h.UpdateProfile)
				r.Get("/loyalty", h.LoyaltyStatus)
				r.Get("/settings", h.GetSettings)

				r.Route("/cart", func(r chi.Router) {
					r.Get("/", h.GetCart)
					r.Post("/items", h.AddCartItem)
					r.Patch("/items/{productID}", h.UpdateCartItem)
					r.Delete("/", h.ClearCart)
				})

				r.Post("/checkout", h.Checkout)
				r.Get("/orders", h.ListOrders)
				r.Post("/orders/{orderID}/rating", h.RateOrder)

				r.Get("/messages", h.ListMessages)
				r.Post("/messages", h.SendMessage)
				r.Post("/assistant/chat", h.ChatAssistant)

				r.Get("/ws", h.WebSocket)

				r.Route("/admin", func(r chi.Router) {
					r.Use(auth.RequireAdmin)

					r.Post("/products", h.CreateProduct)
					r.Put("/products/{productID}", h.UpdateProduct)
					r.Delete("/products/{productID}", h.DeleteProduct)
					r.Post("/categories", h.CreateCategory)
					r.Put("/categories/{categoryID}", h.UpdateCategory)
					r.Delete("/categories/{categoryID}", h.DeleteCategory)

					r.Post("/orders", h.CreateManualOrder)
					r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
					r.Post("/orders/{orderID}/cancel", h.CancelOrder)
					r.Post("/orders/{orderID}/verify-code", h.VerifyDeliveryCode)
					r.Get("/orders/{orderID}/receipt", h.OrderReceipt)

					r.Get("/customers", h.ListCustomers)
					r.Post("/customers", h.CreateCustomer)
					r.Put("/settings", h.UpdateSettings)

					r.Post("/ai/description", h.SuggestDescription)
					r.Post("/ai/price", h.SuggestPrice)
				})
			})
		})
	})

	return r
}
