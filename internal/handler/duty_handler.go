package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/hrportal/internal/middleware"
	"github.com/hitoshi/hrportal/internal/model"
)

// DutyServiceInterface はDutyHandlerが使用するサービスのインターフェース。
type DutyServiceInterface interface {
	GetEmployee(ctx context.Context, id string) (*model.Employee, error)
	StartDuty(ctx context.Context, employee *model.Employee) (*model.WorkingHoursEntry, error)
	EndDuty(ctx context.Context, employee *model.Employee) ([]model.WorkingHoursEntry, error)
}

// DutyHandler は従業員の参照と出勤・退勤を扱う。
type DutyHandler struct {
	service DutyServiceInterface
	logger  *slog.Logger
}

// NewDutyHandler は新しいDutyHandlerを生成する。
func NewDutyHandler(service DutyServiceInterface, logger *slog.Logger) *DutyHandler {
	return &DutyHandler{service: service, logger: logger}
}

// endDutyResponse は退勤のレスポンス。長時間勤務は複数の記録に分割される。
type endDutyResponse struct {
	Entries    []entryResponse `json:"entries"`
	TotalHours float64         `json:"total_hours"`
}

// GetEmployee は従業員と勤務記録を返す。
// GET /api/employees/{id}
func (h *DutyHandler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.service.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeResponse(emp))
}

// StartDuty は勤務を開始する。
// POST /api/employees/{id}/duty/start
func (h *DutyHandler) StartDuty(w http.ResponseWriter, r *http.Request) {
	emp, err := h.service.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	entry, err := h.service.StartDuty(r.Context(), emp)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(*entry))
}

// EndDuty は勤務を終了する。
// POST /api/employees/{id}/duty/end
func (h *DutyHandler) EndDuty(w http.ResponseWriter, r *http.Request) {
	emp, err := h.service.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	entries, err := h.service.EndDuty(r.Context(), emp)
	if err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	var total float64
	for _, e := range entries {
		total += e.TotalHours
	}
	writeJSON(w, http.StatusOK, endDutyResponse{
		Entries:    toEntryResponses(entries),
		TotalHours: total,
	})
}
