package duty

import (
	"math"

	"github.com/hitoshi/hrportal/internal/model"
)

// Summary は従業員1人の1か月分の勤務集計。
type Summary struct {
	Month          string  `json:"month"`
	TotalHours     float64 `json:"total_hours"`
	Sessions       int     `json:"sessions"`
	HasOpenSession bool    `json:"has_open_session"`
}

// MonthlySummary はentriesのうちmonthに計上された記録を集計する。
// 勤務中の記録は時間に含めず、HasOpenSessionで示す。
func MonthlySummary(entries []model.WorkingHoursEntry, month Month) Summary {
	s := Summary{Month: month.String()}
	for _, e := range entries {
		if !month.Contains(e.Date) {
			continue
		}
		if e.IsOpen() {
			s.HasOpenSession = true
			continue
		}
		s.TotalHours += e.TotalHours
		s.Sessions++
	}
	s.TotalHours = roundHours(s.TotalHours)
	return s
}

// roundHours は浮動小数点の誤差を除くため小数第6位で丸める。
func roundHours(h float64) float64 {
	return math.Round(h*1e6) / 1e6
}
