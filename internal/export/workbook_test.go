package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/model"
)

func closed(employeeID string, in time.Time, hours float64) model.WorkingHoursEntry {
	out := in.Add(time.Duration(hours * float64(time.Hour)))
	return model.WorkingHoursEntry{
		EmployeeID: employeeID,
		Date:       model.CalendarDay(in, time.UTC),
		CheckIn:    in,
		CheckOut:   &out,
		TotalHours: hours,
	}
}

func readRows(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("failed to read %s: %v", sheet, err)
	}
	return rows
}

func TestWriteMonth(t *testing.T) {
	month := duty.Month{Year: 2024, Month: time.January}
	employees := []*model.Employee{
		{ID: "emp-a", Name: "Andi", Position: "Officer"},
		{ID: "emp-b", Name: "Budi", Position: "Sergeant"},
	}
	entries := []model.WorkingHoursEntry{
		closed("emp-a", time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC), 2.5),
		closed("emp-a", time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), 8),
		{EmployeeID: "emp-a", Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), CheckIn: time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)},
		closed("emp-x", time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC), 1),
	}

	var buf bytes.Buffer
	if err := WriteMonth(&buf, month, employees, entries, time.UTC); err != nil {
		t.Fatalf("WriteMonth: %v", err)
	}

	summary := readRows(t, &buf, "Summary")
	if len(summary) != 4 {
		t.Fatalf("summary rows = %d, want 4: %v", len(summary), summary)
	}
	if summary[0][0] != "Employee" || summary[0][3] != "Total Hours" {
		t.Errorf("header = %v", summary[0])
	}
	andi := summary[1]
	if andi[0] != "Andi" || andi[2] != "2" || andi[3] != "10.5" || andi[4] != "yes" {
		t.Errorf("Andi row = %v", andi)
	}
	if summary[2][0] != "Budi" || summary[2][2] != "0" {
		t.Errorf("Budi row = %v", summary[2])
	}
	if summary[3][0] != "emp-x" {
		t.Errorf("unknown employee row = %v", summary[3])
	}

	rows := readRows(t, &buf, "Entries")
	if len(rows) != 5 {
		t.Fatalf("entry rows = %d, want 5: %v", len(rows), rows)
	}
	if rows[1][1] != "2024-01-02" || rows[1][2] != "2024-01-02 09:00" || rows[1][3] != "2024-01-02 17:00" || rows[1][4] != "8" {
		t.Errorf("first entry = %v", rows[1])
	}
	if len(rows[3]) > 3 && rows[3][3] != "" {
		t.Errorf("open entry should have no check-out: %v", rows[3])
	}
}

func TestWriteMonth_UsesLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	in := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)
	entry := closed("emp-a", in, 1)
	entry.Date = model.CalendarDay(in, wib)

	var buf bytes.Buffer
	err := WriteMonth(&buf, duty.Month{Year: 2024, Month: time.January},
		[]*model.Employee{{ID: "emp-a", Name: "Andi"}}, []model.WorkingHoursEntry{entry}, wib)
	if err != nil {
		t.Fatalf("WriteMonth: %v", err)
	}

	rows := readRows(t, &buf, "Entries")
	if rows[1][2] != "2024-01-10 09:00" {
		t.Errorf("check-in = %q, want local WIB time", rows[1][2])
	}
}

func TestWriteMonth_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMonth(&buf, duty.Month{Year: 2024, Month: time.January}, nil, nil, nil); err != nil {
		t.Fatalf("WriteMonth: %v", err)
	}
	if rows := readRows(t, &buf, "Summary"); len(rows) != 1 {
		t.Errorf("summary rows = %d, want header only", len(rows))
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(duty.Month{Year: 2024, Month: time.March}); got != "working-hours-2024-03.xlsx" {
		t.Errorf("FileName = %q", got)
	}
}
