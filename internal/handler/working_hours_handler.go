package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/middleware"
	"github.com/hitoshi/hrportal/internal/model"
)

// WorkingHoursServiceInterface はWorkingHoursHandlerが使用するサービスのインターフェース。
type WorkingHoursServiceInterface interface {
	Location() *time.Location
	ListEntries(ctx context.Context, employeeID string, month duty.Month) ([]model.WorkingHoursEntry, error)
	CreateEntries(ctx context.Context, employeeID string, entries []duty.ManualEntry) ([]model.WorkingHoursEntry, error)
	UpdateEntry(ctx context.Context, employeeID, entryID string, checkIn, checkOut time.Time) (*model.WorkingHoursEntry, error)
	DeleteEntry(ctx context.Context, employeeID, entryID string) error
}

// WorkingHoursHandler は勤務記録の一覧と管理者による修正を扱う。
type WorkingHoursHandler struct {
	service WorkingHoursServiceInterface
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorkingHoursHandler は新しいWorkingHoursHandlerを生成する。
func NewWorkingHoursHandler(service WorkingHoursServiceInterface, logger *slog.Logger, now func() time.Time) *WorkingHoursHandler {
	if now == nil {
		now = time.Now
	}
	return &WorkingHoursHandler{service: service, logger: logger, now: now}
}

type workingHoursListResponse struct {
	Month   string          `json:"month"`
	Entries []entryResponse `json:"entries"`
	Summary duty.Summary    `json:"summary"`
}

type intervalRequest struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type createEntriesRequest struct {
	Entries []intervalRequest `json:"entries"`
}

type createEntriesResponse struct {
	Entries []entryResponse `json:"entries"`
}

// List は指定月の勤務記録と月次集計を返す。monthを省略した場合は当月。
// GET /api/employees/{id}/working-hours?month=YYYY-MM
func (h *WorkingHoursHandler) List(w http.ResponseWriter, r *http.Request) {
	month, err := monthParam(r, h.now(), h.service.Location())
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), chi.URLParam(r, "id"), month)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, workingHoursListResponse{
		Month:   month.String(),
		Entries: toEntryResponses(entries),
		Summary: duty.MonthlySummary(entries, month),
	})
}

// Create は手動の勤務記録を登録する。月をまたぐ記録は月ごとに分割される。
// POST /api/employees/{id}/working-hours
func (h *WorkingHoursHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEntriesRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	if len(req.Entries) == 0 {
		middleware.WriteError(w, h.logger, model.NewValidationError("entriesが空です。"))
		return
	}

	manual := make([]duty.ManualEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		manual = append(manual, duty.ManualEntry{CheckIn: e.CheckIn, CheckOut: e.CheckOut})
	}

	created, err := h.service.CreateEntries(r.Context(), chi.URLParam(r, "id"), manual)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, createEntriesResponse{Entries: toEntryResponses(created)})
}

// Update は終了済みの勤務記録を修正する。
// PUT /api/employees/{id}/working-hours/{entryID}
func (h *WorkingHoursHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req intervalRequest
	if err := decodeJSON(r, &req); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "entryID"), req.CheckIn, req.CheckOut)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

// Delete は勤務記録を削除する。
// DELETE /api/employees/{id}/working-hours/{entryID}
func (h *WorkingHoursHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteEntry(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "entryID"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// monthParam はクエリのmonthを解析する。空の場合はnowが属する月を返す。
func monthParam(r *http.Request, now time.Time, loc *time.Location) (duty.Month, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return duty.MonthOf(now, loc), nil
	}
	return duty.ParseMonth(raw)
}
