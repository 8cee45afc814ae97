package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-books/meridian/internal/platform/httpx"
)

type postingLineDTO struct {
	AccountID int64   `json:"account_id" validate:"required,gt=0"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
}

type postJournalRequest struct {
	PeriodID     int64            `json:"period_id" validate:"required,gt=0"`
	Date         string           `json:"date" validate:"required,datetime=2006-01-02"`
	SourceModule string           `json:"source_module" validate:"required,max=40"`
	SourceID     string           `json:"source_id" validate:"omitempty,uuid"`
	Memo         string           `json:"memo" validate:"max=500"`
	PostedBy     int64            `json:"posted_by"`
	Lines        []postingLineDTO `json:"lines" validate:"required,min=2,dive"`
}

func (req postJournalRequest) toInput() (PostingInput, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return PostingInput{}, fmt.Errorf("%w: invalid date", httpx.ErrValidation)
	}
	sourceID := uuid.New()
	if req.SourceID != "" {
		sourceID, err = uuid.Parse(req.SourceID)
		if err != nil {
			return PostingInput{}, fmt.Errorf("%w: invalid source_id", httpx.ErrValidation)
		}
	}
	lines := make([]PostingLineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, PostingLineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	return PostingInput{
		PeriodID:     req.PeriodID,
		Date:         date,
		SourceModule: req.SourceModule,
		SourceID:     sourceID,
		Memo:         req.Memo,
		PostedBy:     req.PostedBy,
		Lines:        lines,
	}, nil
}

type voidJournalRequest struct {
	ActorID int64  `json:"actor_id"`
	Reason  string `json:"reason" validate:"required,max=500"`
}

type reverseJournalRequest struct {
	ActorID    int64  `json:"actor_id"`
	Memo       string `json:"memo" validate:"max=500"`
	Override   bool   `json:"override"`
	TargetDate string `json:"target_date" validate:"omitempty,datetime=2006-01-02"`
}

type accountRequest struct {
	Code     string `json:"code" validate:"required,max=20"`
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ParentID *int64 `json:"parent_id"`
	IsActive *bool  `json:"is_active"`
}

func (req accountRequest) toInput() AccountInput {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return AccountInput{
		Code:     req.Code,
		Name:     req.Name,
		Type:     AccountType(req.Type),
		ParentID: req.ParentID,
		IsActive: active,
	}
}

type periodRequest struct {
	Code      string `json:"code" validate:"required,max=20"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type mappingRequest struct {
	Module    string `json:"module" validate:"required,max=40"`
	Key       string `json:"key" validate:"required,max=80"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
}

type journalLineResponse struct {
	ID        int64   `json:"id"`
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
}

type journalResponse struct {
	ID           int64                 `json:"id"`
	Number       int64                 `json:"number"`
	PeriodID     int64                 `json:"period_id"`
	Date         string                `json:"date"`
	SourceModule string                `json:"source_module"`
	SourceID     string                `json:"source_id"`
	Memo         string                `json:"memo,omitempty"`
	Status       string                `json:"status"`
	PostedAt     time.Time             `json:"posted_at"`
	Lines        []journalLineResponse `json:"lines,omitempty"`
}

func toJournalResponse(e JournalEntry) journalResponse {
	resp := journalResponse{
		ID:           e.ID,
		Number:       e.Number,
		PeriodID:     e.PeriodID,
		Date:         e.Date.Format("2006-01-02"),
		SourceModule: e.SourceModule,
		SourceID:     e.SourceID.String(),
		Memo:         e.Memo,
		Status:       string(e.Status),
		PostedAt:     e.PostedAt,
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, journalLineResponse{
			ID:        l.ID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
	}
	return resp
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID *int64 `json:"parent_id,omitempty"`
	IsActive bool   `json:"is_active"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:       a.ID,
		Code:     a.Code,
		Name:     a.Name,
		Type:     string(a.Type),
		ParentID: a.ParentID,
		IsActive: a.IsActive,
	}
}

type periodResponse struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

func toPeriodResponse(p Period) periodResponse {
	return periodResponse{
		ID:        p.ID,
		Code:      p.Code,
		StartDate: p.StartDate.Format("2006-01-02"),
		EndDate:   p.EndDate.Format("2006-01-02"),
		Status:    string(p.Status),
	}
}

// domainError translates ledger sentinels into httpx sentinels so that
// RespondError picks the right status code.
func domainError(err error) error {
	switch {
	case errors.Is(err, ErrJournalNotFound),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrMappingNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err.Error())
	case errors.Is(err, ErrSourceAlreadyLinked),
		errors.Is(err, ErrDuplicateCode):
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, err.Error())
	case errors.Is(err, ErrPeriodLocked),
		errors.Is(err, ErrInvalidStatus):
		return fmt.Errorf("%w: %s", httpx.ErrConflict, err.Error())
	case errors.Is(err, ErrUnbalanced),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrInvalidPeriod),
		errors.Is(err, ErrDateOutOfRange):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	return err
}
