package customers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
	"github.com/ledgerly-in/ledgerly/internal/shared"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
)

// Handler manages customer endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Create(r.Context(), Customer{
		TenantID:  tenant.IDFromContext(r.Context()),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		GSTIN:     req.GSTIN,
		StateCode: req.StateCode,
		Address:   req.Address,
	})
	if err != nil {
		h.logger.Error("create customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewCustomerResponse(c))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, 0)

	items, err := h.repo.List(r.Context(), tenant.IDFromContext(r.Context()), p.PerPage, (p.Page-1)*p.PerPage)
	if err != nil {
		h.logger.Error("list customers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]CustomerResponse, 0, len(items))
	for i := range items {
		out = append(out, NewCustomerResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"customers": out, "page": p.Page, "per_page": p.PerPage})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}

	c, err := h.repo.Get(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewCustomerResponse(c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer id")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	c, err := h.repo.Update(r.Context(), Customer{
		ID:        id,
		TenantID:  tenant.IDFromContext(r.Context()),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		GSTIN:     req.GSTIN,
		StateCode: req.StateCode,
		Address:   req.Address,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("update customer", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewCustomerResponse(c))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CustomerRequest, bool) {
	var req CustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		fields := map[string]string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		httpx.ValidationProblem(w, fields)
		return req, false
	}
	return req, true
}
