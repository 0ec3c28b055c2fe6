package duty

import (
	"math"
	"testing"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

const hoursTolerance = 1e-9

var wib = time.FixedZone("WIB", 7*60*60)

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

// --- Hours のテスト ---

func TestHours(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  float64
	}{
		{"eight and a half hours", date(2024, 1, 15, 9, 0), date(2024, 1, 15, 17, 30), 8.5},
		{"one millisecond", date(2024, 1, 15, 9, 0), date(2024, 1, 15, 9, 0).Add(time.Millisecond), 1.0 / 3600000},
		{"overnight", date(2024, 1, 15, 22, 0), date(2024, 1, 16, 6, 0), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hours(tt.start, tt.end)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > hoursTolerance {
				t.Errorf("Hours = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHours_RejectsNonPositiveRange(t *testing.T) {
	start := date(2024, 1, 15, 9, 0)

	if _, err := Hours(start, start); !model.IsKind(err, model.KindValidation) {
		t.Errorf("equal times: expected validation error, got %v", err)
	}
	if _, err := Hours(start, start.Add(-time.Hour)); !model.IsKind(err, model.KindValidation) {
		t.Errorf("reversed times: expected validation error, got %v", err)
	}
}

// --- SplitAcrossMonths のテスト ---

func TestSplitAcrossMonths_SameMonthIsUnchanged(t *testing.T) {
	in, out := date(2024, 1, 15, 9, 0), date(2024, 1, 15, 17, 0)

	got, err := SplitAcrossMonths(in, out, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !got[0].Start.Equal(in) || !got[0].End.Equal(out) {
		t.Errorf("interval = %+v", got[0])
	}
}

func TestSplitAcrossMonths_TwoMonths(t *testing.T) {
	in, out := date(2024, 1, 31, 20, 0), date(2024, 2, 1, 4, 0)

	got, err := SplitAcrossMonths(in, out, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	boundary := date(2024, 2, 1, 0, 0)
	if !got[0].End.Equal(boundary) || !got[1].Start.Equal(boundary) {
		t.Errorf("boundary mismatch: %+v", got)
	}
	if math.Abs(got[0].Hours()-4) > hoursTolerance || math.Abs(got[1].Hours()-4) > hoursTolerance {
		t.Errorf("hours = %v / %v, want 4 / 4", got[0].Hours(), got[1].Hours())
	}
}

func TestSplitAcrossMonths_SpansSeveralMonths(t *testing.T) {
	in, out := date(2024, 1, 30, 0, 0), date(2024, 3, 2, 0, 0)

	got, err := SplitAcrossMonths(in, out, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[1].Start.Month() != time.February || got[1].End.Month() != time.March {
		t.Errorf("middle interval = %+v", got[1])
	}
}

func TestSplitAcrossMonths_UsesLocation(t *testing.T) {
	// UTCでは1月31日だが、WIBでは2月1日になる
	in := time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	out := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)

	utc, _ := SplitAcrossMonths(in, out, time.UTC)
	if len(utc) != 1 {
		t.Errorf("UTC: len = %d, want 1", len(utc))
	}

	local, _ := SplitAcrossMonths(in, out, wib)
	if len(local) != 2 {
		t.Fatalf("WIB: len = %d, want 2", len(local))
	}
	want := time.Date(2024, 2, 1, 0, 0, 0, 0, wib)
	if !local[0].End.Equal(want) {
		t.Errorf("WIB boundary = %s, want %s", local[0].End, want)
	}
}

func TestSplitAcrossMonths_EndingExactlyAtMonthStart(t *testing.T) {
	in, out := date(2024, 1, 31, 20, 0), date(2024, 2, 1, 0, 0)

	got, err := SplitAcrossMonths(in, out, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1 (no zero-length tail)", len(got))
	}
}

func TestSplitAcrossMonths_RejectsInvalidRange(t *testing.T) {
	in := date(2024, 1, 31, 20, 0)
	if _, err := SplitAcrossMonths(in, in.Add(-time.Minute), time.UTC); !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// --- SplitByMaxDuration のテスト ---

func TestSplitByMaxDuration_SeventyHours(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)
	out := in.Add(70 * time.Hour)

	got, err := SplitByMaxDuration(in, out, MaxSessionDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantHours := []float64{24, 24, 22}
	if len(got) != len(wantHours) {
		t.Fatalf("len = %d, want %d", len(got), len(wantHours))
	}
	for i, want := range wantHours {
		if math.Abs(got[i].Hours()-want) > hoursTolerance {
			t.Errorf("chunk %d hours = %v, want %v", i, got[i].Hours(), want)
		}
	}
	if !got[0].Start.Equal(in) || !got[2].End.Equal(out) {
		t.Error("chunks should start at check-in and end at check-out")
	}
}

func TestSplitByMaxDuration_ExactMultipleHasNoEmptyChunk(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)

	got, err := SplitByMaxDuration(in, in.Add(72*time.Hour), MaxSessionDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestSplitByMaxDuration_JustOverFortyEightHours(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)
	// 48.0001時間
	out := in.Add(48*time.Hour + 360*time.Millisecond)

	got, err := SplitByMaxDuration(in, out, MaxSessionDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	want := []time.Duration{24 * time.Hour, 24 * time.Hour, 360 * time.Millisecond}
	for i, d := range want {
		if got[i].Duration() != d {
			t.Errorf("chunk %d duration = %v, want %v", i, got[i].Duration(), d)
		}
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Start.Equal(got[i-1].End) {
			t.Errorf("chunk %d starts at %v, want %v", i, got[i].Start, got[i-1].End)
		}
	}
	if !got[2].End.Equal(out) {
		t.Errorf("last chunk ends at %v, want %v", got[2].End, out)
	}
}

func TestSplitByMaxDuration_ShorterThanMax(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)

	got, err := SplitByMaxDuration(in, in.Add(5*time.Hour), MaxSessionDuration)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Duration() != 5*time.Hour {
		t.Errorf("got %+v, want one 5h chunk", got)
	}
}

func TestSplitByMaxDuration_RejectsInvalidMax(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)
	if _, err := SplitByMaxDuration(in, in.Add(time.Hour), 0); !model.IsKind(err, model.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

// 分割後の合計時間は元の区間の時間と一致し、区間は連続する
func TestSplit_RoundTripPreservesTotalHours(t *testing.T) {
	cases := []struct {
		in  time.Time
		out time.Time
	}{
		{date(2024, 1, 31, 20, 0), date(2024, 2, 1, 4, 0)},
		{date(2024, 1, 1, 0, 0), date(2024, 1, 3, 23, 0)},
		{date(2023, 12, 30, 13, 17).Add(123 * time.Millisecond), date(2024, 3, 4, 5, 6).Add(789 * time.Millisecond)},
		{date(2024, 2, 28, 0, 0), date(2024, 3, 1, 0, 0).Add(time.Millisecond)},
	}

	for _, c := range cases {
		total, err := Hours(c.in, c.out)
		if err != nil {
			t.Fatalf("Hours: %v", err)
		}

		monthly, err := SplitAcrossMonths(c.in, c.out, time.UTC)
		if err != nil {
			t.Fatalf("SplitAcrossMonths: %v", err)
		}
		assertContiguous(t, monthly, c.in, c.out)
		assertHoursSum(t, monthly, total)

		chunks, err := SplitByMaxDuration(c.in, c.out, MaxSessionDuration)
		if err != nil {
			t.Fatalf("SplitByMaxDuration: %v", err)
		}
		assertContiguous(t, chunks, c.in, c.out)
		assertHoursSum(t, chunks, total)
		for i, ch := range chunks {
			if ch.Duration() > MaxSessionDuration || ch.Duration() <= 0 {
				t.Errorf("chunk %d duration = %s", i, ch.Duration())
			}
		}
	}
}

func assertContiguous(t *testing.T, ivs []Interval, in, out time.Time) {
	t.Helper()
	if len(ivs) == 0 {
		t.Fatal("no intervals")
	}
	if !ivs[0].Start.Equal(in) || !ivs[len(ivs)-1].End.Equal(out) {
		t.Errorf("intervals do not cover [%s, %s)", in, out)
	}
	for i := 1; i < len(ivs); i++ {
		if !ivs[i].Start.Equal(ivs[i-1].End) {
			t.Errorf("gap between interval %d and %d", i-1, i)
		}
	}
}

func assertHoursSum(t *testing.T, ivs []Interval, want float64) {
	t.Helper()
	var sum float64
	for _, iv := range ivs {
		sum += iv.Hours()
	}
	if math.Abs(sum-want) > hoursTolerance {
		t.Errorf("sum of hours = %v, want %v", sum, want)
	}
}

// --- NeedsLongSessionSplit のテスト ---

func TestNeedsLongSessionSplit(t *testing.T) {
	in := date(2024, 1, 10, 8, 0)
	tests := []struct {
		elapsed time.Duration
		want    bool
	}{
		{47 * time.Hour, false},
		{48 * time.Hour, false},
		{48*time.Hour + time.Millisecond, true},
		{70 * time.Hour, true},
	}
	for _, tt := range tests {
		if got := NeedsLongSessionSplit(in, in.Add(tt.elapsed)); got != tt.want {
			t.Errorf("NeedsLongSessionSplit(%s) = %v, want %v", tt.elapsed, got, tt.want)
		}
	}
}

// --- MonthEnd / MonthSplitEntries のテスト ---

func TestMonthEnd(t *testing.T) {
	got := MonthEnd(date(2024, 2, 10, 12, 0), time.UTC)
	want := time.Date(2024, 2, 29, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if !got.Equal(want) {
		t.Errorf("MonthEnd = %s, want %s", got, want)
	}
}

func TestMonthSplitEntries(t *testing.T) {
	in, out := date(2024, 1, 31, 20, 0), date(2024, 2, 1, 4, 0)
	ivs, err := SplitAcrossMonths(in, out, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := MonthSplitEntries("emp-1", ivs, time.UTC)
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}

	first, second := entries[0], entries[1]
	wantFirstOut := time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	if first.CheckOut == nil || !first.CheckOut.Equal(wantFirstOut) {
		t.Errorf("first CheckOut = %v, want %s", first.CheckOut, wantFirstOut)
	}
	if !second.CheckIn.Equal(date(2024, 2, 1, 0, 0)) {
		t.Errorf("second CheckIn = %s", second.CheckIn)
	}
	if second.CheckOut == nil || !second.CheckOut.Equal(out) {
		t.Errorf("second CheckOut = %v, want %s", second.CheckOut, out)
	}
	if !first.Date.Equal(date(2024, 1, 31, 0, 0)) || !second.Date.Equal(date(2024, 2, 1, 0, 0)) {
		t.Errorf("dates = %s / %s", first.Date, second.Date)
	}

	for i, e := range entries {
		if e.EmployeeID != "emp-1" {
			t.Errorf("entry %d EmployeeID = %q", i, e.EmployeeID)
		}
		if e.IsOpen() {
			t.Errorf("entry %d should be closed", i)
		}
		want, _ := Hours(e.CheckIn, *e.CheckOut)
		if math.Abs(e.TotalHours-want) > hoursTolerance {
			t.Errorf("entry %d TotalHours = %v, want %v", i, e.TotalHours, want)
		}
	}
}
