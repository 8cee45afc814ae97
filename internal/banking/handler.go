package banking

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
)

// maxStatementBytes caps uploaded workbook size at 20 MiB unless
// overridden by configuration.
const maxStatementBytes = 20 << 20

// Handler serves banking endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	maxBytes int64
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, maxBytes: maxStatementBytes}
}

// WithStatementLimit overrides the upload size cap.
func (h *Handler) WithStatementLimit(n int64) *Handler {
	if n > 0 {
		h.maxBytes = n
	}
	return h
}

// MountRoutes registers banking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Post("/accounts/{id}/statement", h.importStatement)
	r.Get("/accounts/{id}/transactions", h.listTransactions)
	r.Post("/accounts/{id}/sync", h.sync)
	r.Post("/transactions/{id}/ignore", h.ignore)
	r.Get("/registry/detect", h.detectBank)
}

type createAccountRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	BankCode        string `json:"bank_code" validate:"max=20"`
	Currency        string `json:"currency" validate:"required,len=3"`
	LedgerAccountID int64  `json:"ledger_account_id" validate:"required,gt=0"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list bank accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), BankAccount{
		Name:            req.Name,
		BankCode:        req.BankCode,
		Currency:        req.Currency,
		LedgerAccountID: req.LedgerAccountID,
	})
	if err != nil {
		h.logger.Error("create bank account", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) importStatement(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	defer body.Close()

	result, err := h.service.ImportStatement(r.Context(), body, r.URL.Query().Get("hint"), id)
	if err != nil {
		h.logger.Error("import statement", slog.Any("error", err), slog.Int64("bank_account_id", id))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txs, err := h.service.ListTransactions(r.Context(), id, TxStatus(r.URL.Query().Get("status")))
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Sync(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNothingToSync) {
			httpx.JSON(w, http.StatusOK, SyncResult{})
			return
		}
		h.logger.Error("bank sync", slog.Any("error", err), slog.Int64("bank_account_id", id))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) ignore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Ignore(r.Context(), id); err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) detectBank(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if text == "" {
		httpx.RespondError(w, fmt.Errorf("%w: text query param required", httpx.ErrValidation))
		return
	}
	httpx.JSON(w, http.StatusOK, DetectBank(text))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTransactionNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error())
	case errors.Is(err, ErrNoHeaderRow), errors.Is(err, ErrUnknownCurrency):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return err
}
