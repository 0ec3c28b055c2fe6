// Package model はドメインモデルを定義する。
package model

import "time"

// WorkingHoursEntry は1回の勤務セッション（チェックイン〜チェックアウト）を表す。
// CheckOutがnilの間はセッションが継続中（オープン）とみなす。
type WorkingHoursEntry struct {
	ID         string
	EmployeeID string
	Date       time.Time // セッションを計上する暦日（設定タイムゾーンの0時）
	CheckIn    time.Time
	CheckOut   *time.Time
	TotalHours float64 // CheckOutが設定されている場合のみ有効
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsOpen はセッションが継続中かどうかを返す。
func (e *WorkingHoursEntry) IsOpen() bool {
	return e.CheckOut == nil
}

// CalendarDay は時刻tをloc上の暦日（0時0分）に切り詰める。
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}
