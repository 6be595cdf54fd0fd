package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerly-in/ledgerly/internal/billing"
	"github.com/ledgerly-in/ledgerly/internal/customers"
	"github.com/ledgerly-in/ledgerly/internal/observability"
	"github.com/ledgerly-in/ledgerly/internal/payments"
	"github.com/ledgerly-in/ledgerly/internal/reports"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
	"github.com/ledgerly-in/ledgerly/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	TenantHandler    *tenant.Handler
	TenantMiddleware *tenant.Middleware
	CustomersHandler *customers.Handler
	BillingHandler   *billing.Handler
	PaymentsHandler  *payments.Handler
	ReportsHandler   *reports.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Ledgerly defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Tenant signup is the only unauthenticated business route.
	r.Route("/tenants", func(r chi.Router) {
		params.TenantHandler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(params.TenantMiddleware.Require)
			params.TenantHandler.MountAuthenticatedRoutes(r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(params.TenantMiddleware.Require)

		r.Route("/customers", params.CustomersHandler.MountRoutes)
		r.Route("/invoices", func(r chi.Router) {
			params.BillingHandler.MountRoutes(r)
			params.PaymentsHandler.MountInvoiceRoutes(r)
		})
		r.Route("/payments", params.PaymentsHandler.MountRoutes)
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
