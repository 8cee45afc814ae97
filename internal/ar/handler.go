package ar

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/shared"
)

// Handler serves receivables endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers AR routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.listInvoices)
	r.Post("/invoices", h.createInvoice)
	r.Get("/invoices/{id}", h.showInvoice)
	r.Put("/invoices/{id}", h.updateInvoice)
	r.Post("/invoices/{id}/post", h.postInvoice)
	r.Post("/invoices/{id}/void", h.voidInvoice)
	r.Post("/payments", h.recordPayment)
	r.Get("/aging", h.aging)
}

type invoiceRequest struct {
	CustomerID int64         `json:"customer_id" validate:"required,gt=0"`
	Date       string        `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate    string        `json:"due_date" validate:"required,datetime=2006-01-02"`
	Memo       string        `json:"memo" validate:"omitempty,max=400"`
	VATRate    float64       `json:"vat_rate" validate:"gte=0,lte=100"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	Description string  `json:"description" validate:"required,max=400"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

func (req invoiceRequest) toInput(actorID int64) (InvoiceInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return InvoiceInput{}, fmt.Errorf("%w: invalid date", httpx.ErrValidation)
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return InvoiceInput{}, fmt.Errorf("%w: invalid due date", httpx.ErrValidation)
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, LineInput{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return InvoiceInput{
		CustomerID: req.CustomerID,
		Date:       date,
		DueDate:    due,
		Memo:       req.Memo,
		VATRate:    req.VATRate,
		ActorID:    actorID,
		Lines:      lines,
	}, nil
}

type paymentRequest struct {
	CustomerID  int64               `json:"customer_id" validate:"required,gt=0"`
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64             `json:"amount" validate:"gt=0"`
	Reference   string              `json:"reference" validate:"omitempty,max=120"`
	Allocations []allocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type allocationRequest struct {
	InvoiceID int64   `json:"invoice_id" validate:"required,gt=0"`
	Amount    float64 `json:"amount" validate:"gt=0"`
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, _ := strconv.ParseInt(q.Get("customer_id"), 10, 64)
	invoices, err := h.service.ListInvoices(r.Context(), customerID, InvoiceStatus(q.Get("status")))
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoice(r.Context(), pathID(r))
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.toInput(actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.CreateInvoice(r.Context(), input)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.toInput(actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.UpdateInvoice(r.Context(), pathID(r), input)
	if err != nil {
		h.logger.Error("update invoice", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.PostInvoice(r.Context(), pathID(r), actorID(r))
	if err != nil {
		h.logger.Error("post invoice", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &req)
	inv, err := h.service.VoidInvoice(r.Context(), pathID(r), actorID(r), req.Reason)
	if err != nil {
		h.logger.Error("void invoice", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: invalid date", httpx.ErrValidation))
		return
	}
	input := PaymentInput{
		CustomerID:     req.CustomerID,
		Date:           date,
		Amount:         req.Amount,
		Reference:      req.Reference,
		ActorID:        actorID(r),
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
	}
	for _, alloc := range req.Allocations {
		input.Allocations = append(input.Allocations, AllocationInput{
			InvoiceID: alloc.InvoiceID,
			Amount:    alloc.Amount,
		})
	}
	payment, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) aging(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid as_of date", httpx.ErrValidation))
			return
		}
		asOf = parsed
	}
	report, err := h.service.Aging(r.Context(), asOf)
	if err != nil {
		h.logger.Error("ar aging", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ErrPaymentNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrHasPayments),
		errors.Is(err, shared.ErrIdempotencyConflict):
		return fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error())
	case errors.Is(err, ErrNoLines), errors.Is(err, ErrOverAllocated), errors.Is(err, ErrCustomerMismatch):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return err
}
