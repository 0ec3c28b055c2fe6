// Package duty は勤務セッション（出勤・退勤）のドメインロジックを提供する。
// 経過時間の計算、月跨ぎ・長時間セッションの分割、
// 従業員ごとに勤務中セッションを高々1件に保つ検証を含む。
package duty

import (
	"fmt"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

const (
	// MaxSessionDuration は分割後の1セッションあたりの最大長（24時間）。
	MaxSessionDuration = 24 * time.Hour
	// LongSessionThreshold はこれを超えると退勤時に分割する経過時間（48時間）。
	// ちょうど48時間は分割しない。
	LongSessionThreshold = 48 * time.Hour
)

// Interval は半開区間 [Start, End) の勤務時間帯。
// 分割結果は連続しており、n番目のEndとn+1番目のStartは等しい。
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration は区間の長さを返す。
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Hours は区間の長さを時間単位で返す。
func (iv Interval) Hours() float64 {
	return durationHours(iv.Duration())
}

// Hours はstartからendまでの経過時間を時間単位で返す。
// endがstart以前の場合は検証エラーを返す。
func Hours(start, end time.Time) (float64, error) {
	if !end.After(start) {
		return 0, model.NewValidationError(fmt.Sprintf(
			"退勤時刻は出勤時刻より後である必要があります（check_in=%s, check_out=%s）",
			start.Format(time.RFC3339), end.Format(time.RFC3339),
		))
	}
	return durationHours(end.Sub(start)), nil
}

// durationHours は経過時間を時間に換算する。
// ミリ秒精度の時刻では (end − start) ms / 3,600,000 と一致する。
func durationHours(d time.Duration) float64 {
	return d.Hours()
}

// SplitAcrossMonths はloc上で月を跨ぐ区間を月ごとに分割する。
// 同じ月に収まる区間はそのまま1要素で返す。
// 3か月以上に跨る場合は跨いだ月の数だけ区間を返す。
func SplitAcrossMonths(checkIn, checkOut time.Time, loc *time.Location) ([]Interval, error) {
	if !checkOut.After(checkIn) {
		_, err := Hours(checkIn, checkOut)
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	var intervals []Interval
	start := checkIn
	for {
		boundary := nextMonthStart(start, loc)
		if !checkOut.After(boundary) {
			intervals = append(intervals, Interval{Start: start, End: checkOut})
			return intervals, nil
		}
		intervals = append(intervals, Interval{Start: start, End: boundary})
		start = boundary
	}
}

// SplitByMaxDuration は区間をmaxDuration以下の連続した区間に分割する。
// 区間数はceil(総時間 / maxDuration)で、最後の区間はcheckOutで切り詰める。
// 総時間がmaxDurationの倍数の場合、長さ0の区間は生成しない。
func SplitByMaxDuration(checkIn, checkOut time.Time, maxDuration time.Duration) ([]Interval, error) {
	if !checkOut.After(checkIn) {
		_, err := Hours(checkIn, checkOut)
		return nil, err
	}
	if maxDuration <= 0 {
		return nil, model.NewValidationError(fmt.Sprintf("最大セッション長が不正です: %s", maxDuration))
	}

	total := checkOut.Sub(checkIn)
	count := int((total + maxDuration - 1) / maxDuration)

	intervals := make([]Interval, 0, count)
	for i := 0; i < count; i++ {
		start := checkIn.Add(time.Duration(i) * maxDuration)
		end := start.Add(maxDuration)
		if end.After(checkOut) {
			end = checkOut
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}
	return intervals, nil
}

// NeedsLongSessionSplit は経過時間が分割閾値を厳密に超えるかを返す。
func NeedsLongSessionSplit(checkIn, checkOut time.Time) bool {
	return checkOut.Sub(checkIn) > LongSessionThreshold
}

// MonthEnd はtが属するloc上の月の最終ミリ秒（23:59:59.999）を返す。
func MonthEnd(t time.Time, loc *time.Location) time.Time {
	return nextMonthStart(t, loc).Add(-time.Millisecond)
}

// nextMonthStart はtが属するloc上の月の翌月1日0時を返す。
func nextMonthStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month()+1, 1, 0, 0, 0, 0, loc)
}

// MonthSplitEntries は月跨ぎ分割の結果を締め済みの勤務記録に変換する。
// 月末で区切られた区間の退勤時刻は月の最終ミリ秒（23:59:59.999）として記録し、
// TotalHoursは記録した出退勤時刻の差から算出する。
func MonthSplitEntries(employeeID string, intervals []Interval, loc *time.Location) []model.WorkingHoursEntry {
	entries := make([]model.WorkingHoursEntry, 0, len(intervals))
	for i, iv := range intervals {
		checkOut := iv.End
		if i < len(intervals)-1 {
			checkOut = iv.End.Add(-time.Millisecond)
		}
		entries = append(entries, model.WorkingHoursEntry{
			EmployeeID: employeeID,
			Date:       model.CalendarDay(iv.Start, loc),
			CheckIn:    iv.Start,
			CheckOut:   &checkOut,
			TotalHours: durationHours(checkOut.Sub(iv.Start)),
		})
	}
	return entries
}
