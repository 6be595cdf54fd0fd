package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
)

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/aging", h.aging)
	r.Get("/summary", h.summary)
	r.Get("/dashboard", h.dashboard)
}

func (h *Handler) asOf(r *http.Request) time.Time {
	if v := r.URL.Query().Get("as_of"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			return parsed
		}
	}
	return time.Now()
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	asOf := h.asOf(r)
	buckets, err := h.service.Aging(r.Context(), tenant.IDFromContext(r.Context()), asOf)
	if err != nil {
		h.logger.Error("aging report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf.Format("2006-01-02"),
		"buckets": buckets,
		"total":   buckets.Total(),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	asOf := h.asOf(r)
	summary, err := h.service.Overview(r.Context(), tenant.IDFromContext(r.Context()), asOf)
	if err != nil {
		h.logger.Error("summary report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// dashboard loads aging and summary concurrently.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	asOf := h.asOf(r)
	tenantID := tenant.IDFromContext(r.Context())

	var (
		buckets AgingBuckets
		summary Summary
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		buckets, err = h.service.Aging(ctx, tenantID, asOf)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = h.service.Overview(ctx, tenantID, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"as_of":   asOf.Format("2006-01-02"),
		"aging":   buckets,
		"total":   buckets.Total(),
		"summary": summary,
	})
}
