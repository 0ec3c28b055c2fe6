package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

// entryResponse は勤務記録のAPIレスポンス形式。
type entryResponse struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employee_id"`
	Date       string     `json:"date"`
	CheckIn    time.Time  `json:"check_in"`
	CheckOut   *time.Time `json:"check_out"`
	TotalHours float64    `json:"total_hours"`
	OnDuty     bool       `json:"on_duty"`
}

// employeeResponse は従業員のAPIレスポンス形式。
type employeeResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Position     string          `json:"position"`
	OnDuty       bool            `json:"on_duty"`
	WorkingHours []entryResponse `json:"working_hours"`
}

func toEntryResponse(e model.WorkingHoursEntry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		Date:       e.Date.Format(time.DateOnly),
		CheckIn:    e.CheckIn,
		CheckOut:   e.CheckOut,
		TotalHours: e.TotalHours,
		OnDuty:     e.IsOpen(),
	}
}

func toEntryResponses(entries []model.WorkingHoursEntry) []entryResponse {
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}

func toEmployeeResponse(emp *model.Employee) employeeResponse {
	last := emp.LastEntry()
	return employeeResponse{
		ID:           emp.ID,
		Name:         emp.Name,
		Position:     emp.Position,
		OnDuty:       last != nil && last.IsOpen(),
		WorkingHours: toEntryResponses(emp.WorkingHours),
	}
}

// writeJSON はvをJSONとして書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvにデコードする。失敗時はバリデーションエラーを返す。
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return model.NewValidationError("リクエストボディが不正です。")
	}
	return nil
}
