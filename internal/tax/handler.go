package tax

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	mdshared "github.com/meridian-books/meridian/internal/masterdata/shared"
	"github.com/meridian-books/meridian/internal/platform/httpx"
	"github.com/meridian-books/meridian/internal/shared"
)

// Handler serves tax configuration and filing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers tax routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/rates", h.listRates)
	r.Post("/rates", h.createRate)
	r.Put("/rates/{id}", h.updateRate)
	r.Delete("/rates/{id}", h.deleteRate)
	r.Get("/vat-return", h.vatReturn)
	r.Get("/corporate", h.corporateTax)
}

type rateRequest struct {
	Code string  `json:"code" validate:"required,max=20"`
	Name string  `json:"name" validate:"required,max=120"`
	Rate float64 `json:"rate" validate:"gte=0,lte=100"`
	Kind string  `json:"kind" validate:"required,oneof=VAT CORPORATE"`
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	rates, total, err := h.service.List(r.Context(), mdshared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort_by"),
		SortDir: q.Get("sort_dir"),
	})
	if err != nil {
		h.logger.Error("list tax rates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rates":      rates,
		"pagination": shared.NewPagination(page, limit, total),
	})
}

func (h *Handler) createRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rate, err := h.service.Create(r.Context(), Rate{Code: req.Code, Name: req.Name, Rate: req.Rate, Kind: Kind(req.Kind)})
	if err != nil {
		h.logger.Error("create tax rate", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

func (h *Handler) updateRate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req rateRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err := h.service.Update(r.Context(), id, Rate{Code: req.Code, Name: req.Name, Rate: req.Rate, Kind: Kind(req.Kind)})
	if err != nil {
		h.logger.Error("update tax rate", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) deleteRate(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) vatReturn(w http.ResponseWriter, r *http.Request) {
	from, to, err := filingWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ret, err := h.service.VATReturn(r.Context(), from, to, r.URL.Query().Get("rate_code"))
	if err != nil {
		h.logger.Error("vat return", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ret)
}

func (h *Handler) corporateTax(w http.ResponseWriter, r *http.Request) {
	from, to, err := filingWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	threshold, _ := strconv.ParseFloat(r.URL.Query().Get("threshold"), 64)
	ct, err := h.service.CorporateTax(r.Context(), from, to, r.URL.Query().Get("rate_code"), threshold)
	if err != nil {
		h.logger.Error("corporate tax", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ct)
}

func filingWindow(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from date", httpx.ErrValidation)
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to date", httpx.ErrValidation)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to precedes from", httpx.ErrValidation)
	}
	return from, to, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, mdshared.ErrNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error())
	case errors.Is(err, mdshared.ErrDuplicate):
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, err.Error())
	case errors.Is(err, mdshared.ErrInvalidID), errors.Is(err, mdshared.ErrValidation):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return err
}
