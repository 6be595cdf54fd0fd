package tenant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
)

// Handler manages tenant endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers tenant routes. Signup is unauthenticated; the rest
// requires an API key and is mounted by the router behind Middleware.Require.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
}

// MountAuthenticatedRoutes registers routes that require a resolved tenant.
func (h *Handler) MountAuthenticatedRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

type createTenantRequest struct {
	Name      string `json:"name"`
	GSTIN     string `json:"gstin"`
	StateCode string `json:"state_code"`
}

type tenantResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	GSTIN     string `json:"gstin,omitempty"`
	StateCode string `json:"state_code,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.Name == "" {
		httpx.ValidationProblem(w, map[string]string{"name": "required"})
		return
	}

	creds, err := h.service.Create(r.Context(), CreateTenantInput{
		Name:      req.Name,
		GSTIN:     req.GSTIN,
		StateCode: req.StateCode,
	})
	if err != nil {
		if err == ErrDuplicateName {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "tenant name already registered")
			return
		}
		h.logger.Error("create tenant", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, tenantResponse{
		ID:        creds.Tenant.ID,
		Name:      creds.Tenant.Name,
		GSTIN:     creds.Tenant.GSTIN,
		StateCode: creds.Tenant.StateCode,
		APIKey:    creds.APIKey,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	t := FromContext(r.Context())
	if t == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	httpx.JSON(w, http.StatusOK, tenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		GSTIN:     t.GSTIN,
		StateCode: t.StateCode,
	})
}
