package duty

import (
	"testing"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-02")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.Year != 2024 || m.Month != time.February {
		t.Errorf("got %+v", m)
	}
	if m.String() != "2024-02" {
		t.Errorf("String() = %q", m.String())
	}

	for _, bad := range []string{"", "2024-13", "2024/02", "24-02", "2024-02-01"} {
		if _, err := ParseMonth(bad); !model.IsKind(err, model.KindValidation) {
			t.Errorf("ParseMonth(%q): expected validation error, got %v", bad, err)
		}
	}
}

func TestMonth_Range(t *testing.T) {
	from, to := Month{Year: 2024, Month: time.December}.Range(wib)
	if !from.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, wib)) {
		t.Errorf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, wib)) {
		t.Errorf("to = %v", to)
	}
}

func TestMonthOf(t *testing.T) {
	// UTCでは1月31日だがWIBでは2月1日
	at := time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)
	if got := MonthOf(at, wib); got != (Month{Year: 2024, Month: time.February}) {
		t.Errorf("MonthOf(WIB) = %v", got)
	}
	if got := MonthOf(at, nil); got != (Month{Year: 2024, Month: time.January}) {
		t.Errorf("MonthOf(nil) = %v", got)
	}
}

func TestMonth_Contains(t *testing.T) {
	m := Month{Year: 2024, Month: time.March}
	if !m.Contains(time.Date(2024, 3, 31, 0, 0, 0, 0, wib)) {
		t.Error("March 31 should be contained")
	}
	if m.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, wib)) {
		t.Error("April 1 should not be contained")
	}
}
