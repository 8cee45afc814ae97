package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/ap"
	"github.com/meridian-books/meridian/internal/ar"
	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/ledger"
	"github.com/meridian-books/meridian/internal/ledger/reports"
	"github.com/meridian-books/meridian/internal/masterdata/customers"
	"github.com/meridian-books/meridian/internal/masterdata/vendors"
	"github.com/meridian-books/meridian/internal/observability"
	"github.com/meridian-books/meridian/internal/tax"
	"github.com/meridian-books/meridian/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Pool             *pgxpool.Pool
	LedgerHandler    *ledger.Handler
	ReportsHandler   *reports.Handler
	TaxHandler       *tax.Handler
	BankingHandler   *banking.Handler
	ARHandler        *ar.Handler
	APHandler        *ap.Handler
	CustomersHandler *customers.Handler
	VendorsHandler   *vendors.Handler
	JobsHandler      *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				params.Logger.Error("health check", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.LedgerHandler != nil {
		r.Route("/finance", func(fr chi.Router) {
			params.LedgerHandler.MountRoutes(fr)
			if params.ReportsHandler != nil {
				fr.Route("/reports", params.ReportsHandler.MountRoutes)
			}
		})
	}
	if params.TaxHandler != nil {
		r.Route("/tax", params.TaxHandler.MountRoutes)
	}
	if params.BankingHandler != nil {
		r.Route("/banking", params.BankingHandler.MountRoutes)
	}
	if params.ARHandler != nil {
		r.Route("/ar", params.ARHandler.MountRoutes)
	}
	if params.APHandler != nil {
		r.Route("/ap", params.APHandler.MountRoutes)
	}
	r.Route("/masterdata", func(mr chi.Router) {
		if params.CustomersHandler != nil {
			mr.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.VendorsHandler != nil {
			mr.Route("/vendors", params.VendorsHandler.MountRoutes)
		}
	})
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
