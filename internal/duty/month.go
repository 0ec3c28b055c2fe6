package duty

import (
	"fmt"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

// Month は暦月（YYYY-MM）を表す。
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth は "2006-01" 形式の文字列をMonthに変換する。
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, model.NewValidationError(fmt.Sprintf("月の形式が不正です（YYYY-MM）: %q", s))
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf はtが属するloc上の月を返す。
func MonthOf(t time.Time, loc *time.Location) Month {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return Month{Year: lt.Year(), Month: lt.Month()}
}

// String は "2006-01" 形式の文字列を返す。
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Range はloc上の月の範囲 [月初0時, 翌月初0時) を返す。
func (m Month) Range(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	from := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 1, 0)
}

// Contains は暦日dayがこの月に属するかを返す。
// dayは保存時のタイムゾーンの0時として扱い、タイムゾーン変換は行わない。
func (m Month) Contains(day time.Time) bool {
	return day.Year() == m.Year && day.Month() == m.Month
}
