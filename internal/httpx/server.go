package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/metrics"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/payos"
)

// Deps carries everything the router needs.
type Deps struct {
	Catalog   catalog.Store
	Orders    *orders.Service
	Billing   *billing.Service
	Gateway   *payos.Client
	Auth      *auth.Service
	JWTSecret string
	Log       *zap.Logger
}

// NewRouter wires middleware and all API routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	ch := &CatalogHandler{Store: d.Catalog, Log: d.Log}
	oh := &OrdersHandler{Svc: d.Orders, Log: d.Log}
	ph := &PaymentHandler{Bills: d.Billing, Gateway: d.Gateway, Orders: d.Orders, Log: d.Log}
	ah := &AuthHandler{Svc: d.Auth, Log: d.Log}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)
		r.Post("/auth/forgot-password", ah.ForgotPassword)
		r.Post("/auth/reset-password-otp", ah.ResetPassword)

		r.Get("/menu", ch.Menu)
		r.Get("/categories", ch.Categories)
		r.Get("/categories/{id}/products", ch.ProductsByCategory)
		r.Get("/products/{id}", ch.Product)

		// Gateway callbacks are unauthenticated by design of the provider.
		r.Post("/customer/payos/webhook", ph.Webhook)
		r.Get("/payment/success", ph.Success)
		r.Get("/payment/cancel", ph.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(d.JWTSecret))

			r.Post("/orders", oh.Create)
			r.Get("/orders", oh.List)
			r.Get("/orders/{id}", oh.Get)
			r.Get("/orders/{id}/items", oh.Items)
			r.Post("/orders/{id}/items", oh.AddItem)
			r.Patch("/orders/{id}/items/{productID}", oh.UpdateItemQty)
			r.Delete("/orders/{id}/items/{productID}", oh.RemoveItem)
			r.Post("/orders/{id}/confirm", oh.Confirm)
			r.Post("/orders/{id}/cancel", oh.Cancel)
			r.Get("/orders/{id}/calculate", oh.Calculate)

			r.Post("/orders/{id}/pay", ph.Pay)
			r.Get("/orders/{id}/bill", ph.Bill)

			r.With(auth.RequireRole(auth.RoleAdmin)).
				Patch("/admin/orders/{id}/status", oh.UpdateStatus)
		})
	})

	return r
}
