package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)

	r.Post("/{id}/send", h.send)
	r.Post("/{id}/viewed", h.markViewed)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if fields := h.validateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}

	inv, err := h.service.CreateInvoice(r.Context(), tenant.IDFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := ListInvoicesRequest{Status: InvoiceStatus(q.Get("status"))}
	if v := q.Get("customer_id"); v != "" {
		req.CustomerID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("from"); v != "" {
		req.FromDate, _ = time.Parse(dateLayout, v)
	}
	if v := q.Get("to"); v != "" {
		req.ToDate, _ = time.Parse(dateLayout, v)
	}
	if v := q.Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}

	invoices, err := h.service.ListInvoices(r.Context(), tenant.IDFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, "list invoices", err)
		return
	}

	now := time.Now()
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, NewInvoiceResponse(&invoices[i], now))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if fields := h.validateStruct(req); fields != nil {
		httpx.ValidationProblem(w, fields)
		return
	}

	inv, err := h.service.UpdateInvoice(r.Context(), tenant.IDFromContext(r.Context()), id, req)
	if err != nil {
		h.respondError(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteInvoice(r.Context(), tenant.IDFromContext(r.Context()), id); err != nil {
		h.respondError(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.SendInvoice(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "send invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) markViewed(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.MarkViewed(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "mark invoice viewed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	var req CancelInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}

	inv, err := h.service.CancelInvoice(r.Context(), tenant.IDFromContext(r.Context()), id, req.Reason)
	if err != nil {
		h.respondError(w, "cancel invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewInvoiceResponse(inv, time.Now()))
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) validateStruct(req any) map[string]string {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fe.Tag()
	}
	return fields
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var te *TransitionError
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrCustomerNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &te):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", te.Error())
	case errors.Is(err, ErrNotDraft), errors.Is(err, ErrNotPayable):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrOverpayment):
		httpx.Problem(w, http.StatusConflict, "Overpayment", err.Error())
	case errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
