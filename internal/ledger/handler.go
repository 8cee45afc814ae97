package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-books/meridian/internal/platform/httpx"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	mappings *Repository
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mappings *Repository) *Handler {
	return &Handler{logger: logger, service: service, mappings: mappings}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/journals", h.listJournals)
	r.Post("/journals", h.postJournal)
	r.Get("/journals/{id}", h.getJournal)
	r.Post("/journals/{id}/void", h.voidJournal)
	r.Post("/journals/{id}/reverse", h.reverseJournal)
	r.Get("/accounts", h.listAccounts)
	r.Post("/accounts", h.createAccount)
	r.Put("/accounts/{id}", h.updateAccount)
	r.Get("/periods", h.listPeriods)
	r.Post("/periods", h.createPeriod)
	r.Post("/periods/{id}/close", h.closePeriod)
	r.Post("/periods/{id}/lock", h.lockPeriod)
	r.Get("/mappings", h.listMappings)
	r.Put("/mappings", h.upsertMapping)
}

func (h *Handler) listJournals(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListJournalEntries(r.Context())
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, domainError(err))
		return
	}
	out := make([]journalResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toJournalResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journals": out})
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	var req postJournalRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.PostJournal(r.Context(), input)
	if err != nil {
		h.logger.Error("post journal", slog.Any("error", err))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, toJournalResponse(entry))
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.GetJournal(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toJournalResponse(entry))
}

func (h *Handler) voidJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req voidJournalRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.VoidJournal(r.Context(), VoidInput{EntryID: id, ActorID: req.ActorID, Reason: req.Reason})
	if err != nil {
		h.logger.Error("void journal", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toJournalResponse(entry))
}

func (h *Handler) reverseJournal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reverseJournalRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := ReverseInput{EntryID: id, ActorID: req.ActorID, Memo: req.Memo, Override: req.Override}
	if req.TargetDate != "" {
		date, perr := time.Parse("2006-01-02", req.TargetDate)
		if perr == nil {
			input.TargetDate = &date
		}
	}
	entry, err := h.service.ReverseJournal(r.Context(), input)
	if err != nil {
		h.logger.Error("reverse journal", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, toJournalResponse(entry))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httpx.RespondError(w, domainError(err))
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), req.toInput(), actorID(r))
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req accountRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id, req.toInput(), actorID(r))
	if err != nil {
		h.logger.Error("update account", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.ListPeriods(r.Context())
	if err != nil {
		httpx.RespondError(w, domainError(err))
		return
	}
	out := make([]periodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	period, err := h.service.CreatePeriod(r.Context(), PeriodInput{Code: req.Code, StartDate: start, EndDate: end}, actorID(r))
	if err != nil {
		h.logger.Error("create period", slog.Any("error", err))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodResponse(period))
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, h.service.ClosePeriod)
}

func (h *Handler) lockPeriod(w http.ResponseWriter, r *http.Request) {
	h.transitionPeriod(w, r, h.service.LockPeriod)
}

func (h *Handler) transitionPeriod(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, periodID, actorID int64) error) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := fn(r.Context(), id, actorID(r)); err != nil {
		h.logger.Error("transition period", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) listMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.mappings.ListAccountMappings(r.Context())
	if err != nil {
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (h *Handler) upsertMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := httpx.DecodeValid(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	mapping := AccountMapping{Module: req.Module, Key: req.Key, AccountID: req.AccountID}
	if err := h.mappings.UpsertAccountMapping(r.Context(), mapping); err != nil {
		h.logger.Error("upsert mapping", slog.Any("error", err))
		httpx.RespondError(w, domainError(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrValidation
	}
	return id, nil
}

func actorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
