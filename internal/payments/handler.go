package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerly-in/ledgerly/internal/billing"
	"github.com/ledgerly-in/ledgerly/internal/platform/httpx"
	"github.com/ledgerly-in/ledgerly/internal/tenant"
)

// Handler manages payment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.record)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

// MountInvoiceRoutes registers payment-adjacent invoice routes.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Post("/{id}/payment-link", h.createPaymentLink)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
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
		return
	}

	payment, inv, err := h.service.Record(r.Context(), tenant.IDFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newPaymentResponse(payment, inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var invoiceID int64
	if v := q.Get("invoice_id"); v != "" {
		invoiceID, _ = strconv.ParseInt(v, 10, 64)
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, err := h.service.List(r.Context(), tenant.IDFromContext(r.Context()), invoiceID, limit, offset)
	if err != nil {
		h.respondError(w, "list payments", err)
		return
	}

	out := make([]PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, newPaymentResponse(&items[i], nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}

	payment, err := h.service.Get(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "get payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPaymentResponse(payment, nil))
}

func (h *Handler) createPaymentLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}

	inv, err := h.service.GeneratePaymentLink(r.Context(), tenant.IDFromContext(r.Context()), id)
	if err != nil {
		h.respondError(w, "generate payment link", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"invoice_id":   inv.ID,
		"payment_link": inv.PaymentLink,
	})
}

func newPaymentResponse(p *Payment, inv *billing.Invoice) PaymentResponse {
	resp := PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		Number:        p.Number,
		Amount:        p.Amount,
		Method:        p.Method,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		Status:        string(p.Status),
		Note:          p.Note,
		CreatedAt:     p.CreatedAt,
	}
	if inv != nil {
		resp.InvoiceStatus = string(inv.Status)
		resp.Balance = inv.Balance
	}
	return resp
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var te *billing.TransitionError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, billing.ErrInvoiceNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicatePayment):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, billing.ErrOverpayment):
		httpx.Problem(w, http.StatusConflict, "Overpayment", err.Error())
	case errors.Is(err, billing.ErrNotPayable), errors.As(err, &te):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
