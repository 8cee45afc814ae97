package reports

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
)

// Handler serves report endpoints with optional CSV/XLSX export.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/trial-balance", h.trialBalance)
	r.Get("/pl", h.profitAndLoss)
	r.Get("/bs", h.balanceSheet)
}

func reportWindow(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from and to query params required", httpx.ErrValidation)
	}
	from, err := time.Parse(layout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid from date", httpx.ErrValidation)
	}
	to, err := time.Parse(layout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: invalid to date", httpx.ErrValidation)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to precedes from", httpx.ErrValidation)
	}
	return from, to, nil
}

func exportHeaders(w http.ResponseWriter, format, name string) {
	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", name))
	}
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), from, to)
	if err != nil {
		h.logger.Error("trial balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		exportHeaders(w, "csv", "trial-balance")
		if err := WriteTrialBalanceCSV(w, "Trial Balance "+from.Format("2006-01-02")+" to "+to.Format("2006-01-02"), tb); err != nil {
			h.logger.Error("trial balance csv", slog.Any("error", err))
		}
	case "xlsx":
		exportHeaders(w, "xlsx", "trial-balance")
		if err := WriteTrialBalanceXLSX(w, tb); err != nil {
			h.logger.Error("trial balance xlsx", slog.Any("error", err))
		}
	default:
		httpx.JSON(w, http.StatusOK, map[string]any{"report": tb, "balanced": tb.Balanced()})
	}
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		h.logger.Error("profit and loss", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		exportHeaders(w, "csv", "profit-and-loss")
		if err := WriteProfitAndLossCSV(w, "Profit and Loss "+from.Format("2006-01-02")+" to "+to.Format("2006-01-02"), pl); err != nil {
			h.logger.Error("profit and loss csv", slog.Any("error", err))
		}
	case "xlsx":
		exportHeaders(w, "xlsx", "profit-and-loss")
		if err := WriteProfitAndLossXLSX(w, pl); err != nil {
			h.logger.Error("profit and loss xlsx", slog.Any("error", err))
		}
	default:
		httpx.JSON(w, http.StatusOK, map[string]any{"report": pl})
	}
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	from, to, err := reportWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), from, to)
	if err != nil {
		h.logger.Error("balance sheet", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "csv":
		exportHeaders(w, "csv", "balance-sheet")
		if err := WriteBalanceSheetCSV(w, "Balance Sheet as of "+to.Format("2006-01-02"), bs); err != nil {
			h.logger.Error("balance sheet csv", slog.Any("error", err))
		}
	case "xlsx":
		exportHeaders(w, "xlsx", "balance-sheet")
		if err := WriteBalanceSheetXLSX(w, bs); err != nil {
			h.logger.Error("balance sheet xlsx", slog.Any("error", err))
		}
	default:
		httpx.JSON(w, http.StatusOK, map[string]any{"report": bs, "balanced": bs.Balanced()})
	}
}
