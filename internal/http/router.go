package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/receiptwise/receiptwise/internal/http/category"
	"github.com/receiptwise/receiptwise/internal/http/claim"
	"github.com/receiptwise/receiptwise/internal/http/currencyrates"
	"github.com/receiptwise/receiptwise/internal/http/notification"
	"github.com/receiptwise/receiptwise/internal/http/receipt"
)

func New(
	allowedOrigins []string,
	notificationsV1 *notification.Handler,
	receiptsV1 *receipt.Handler,
	claimsV1 *claim.Handler,
	categoriesV1 *category.Handler,
	ratesV1 *currencyrates.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/notifications", func(r chi.Router) {
			notificationsV1.Routes(r)
		})

		r.Route("/receipts", receiptsV1.Routes)

		r.Route("/claims", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			claimsV1.Routes(r)
		})

		r.Route("/categories", func(r chi.Router) {
			categoriesV1.Routes(r)
		})

		r.Route("/rates", ratesV1.Routes)
	})

	return router
}
