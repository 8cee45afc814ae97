package ap

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

// Handler serves payables endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers AP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/bills", h.listBills)
	r.Post("/bills", h.createBill)
	r.Get("/bills/{id}", h.showBill)
	r.Put("/bills/{id}", h.updateBill)
	r.Post("/bills/{id}/post", h.postBill)
	r.Post("/bills/{id}/void", h.voidBill)
	r.Post("/payments", h.recordPayment)
	r.Get("/aging", h.aging)
}

type billRequest struct {
	VendorID  int64         `json:"vendor_id" validate:"required,gt=0"`
	VendorRef string        `json:"vendor_ref" validate:"omitempty,max=120"`
	Date      string        `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate   string        `json:"due_date" validate:"required,datetime=2006-01-02"`
	Memo      string        `json:"memo" validate:"omitempty,max=400"`
	VATRate   float64       `json:"vat_rate" validate:"gte=0,lte=100"`
	Lines     []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type lineRequest struct {
	Description string  `json:"description" validate:"required,max=400"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

func (req billRequest) toInput(actorID int64) (BillInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return BillInput{}, fmt.Errorf("%w: invalid date", httpx.ErrValidation)
	}
	due, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return BillInput{}, fmt.Errorf("%w: invalid due date", httpx.ErrValidation)
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, LineInput{
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return BillInput{
		VendorID:  req.VendorID,
		VendorRef: req.VendorRef,
		Date:      date,
		DueDate:   due,
		Memo:      req.Memo,
		VATRate:   req.VATRate,
		ActorID:   actorID,
		Lines:     lines,
	}, nil
}

type paymentRequest struct {
	VendorID    int64               `json:"vendor_id" validate:"required,gt=0"`
	Date        string              `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      float64             `json:"amount" validate:"gt=0"`
	Reference   string              `json:"reference" validate:"omitempty,max=120"`
	Allocations []allocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type allocationRequest struct {
	BillID int64   `json:"bill_id" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"gt=0"`
}

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vendorID, _ := strconv.ParseInt(q.Get("vendor_id"), 10, 64)
	bills, err := h.service.ListBills(r.Context(), vendorID, BillStatus(q.Get("status")))
	if err != nil {
		h.logger.Error("list bills", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bills": bills})
}

func (h *Handler) showBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.GetBill(r.Context(), pathID(r))
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.toInput(actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.CreateBill(r.Context(), input)
	if err != nil {
		h.logger.Error("create bill", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) updateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.toInput(actorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.UpdateBill(r.Context(), pathID(r), input)
	if err != nil {
		h.logger.Error("update bill", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) postBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.service.PostBill(r.Context(), pathID(r), actorID(r))
	if err != nil {
		h.logger.Error("post bill", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) voidBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &req)
	bill, err := h.service.VoidBill(r.Context(), pathID(r), actorID(r), req.Reason)
	if err != nil {
		h.logger.Error("void bill", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
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
		VendorID:       req.VendorID,
		Date:           date,
		Amount:         req.Amount,
		Reference:      req.Reference,
		ActorID:        actorID(r),
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
	}
	for _, alloc := range req.Allocations {
		input.Allocations = append(input.Allocations, AllocationInput{
			BillID: alloc.BillID,
			Amount: alloc.Amount,
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
		h.logger.Error("ap aging", slog.Any("error", err))
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
	case errors.Is(err, ErrBillNotFound), errors.Is(err, ErrPaymentNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrHasPayments),
		errors.Is(err, shared.ErrIdempotencyConflict):
		return fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error())
	case errors.Is(err, ErrNoLines), errors.Is(err, ErrOverAllocated), errors.Is(err, ErrVendorMismatch):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return err
}
