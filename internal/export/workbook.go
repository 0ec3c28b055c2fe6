// Package export は勤務記録の表計算ファイル出力を提供する。
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/model"
)

// ContentType はxlsxのMIMEタイプ。
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "Summary"
	entriesSheet = "Entries"
)

var (
	summaryHeader = []any{"Employee", "Position", "Sessions", "Total Hours", "On Duty"}
	entriesHeader = []any{"Employee", "Date", "Check In", "Check Out", "Hours"}
)

// FileName は月次エクスポートのファイル名を返す。
func FileName(month duty.Month) string {
	return fmt.Sprintf("working-hours-%s.xlsx", month.String())
}

// WriteMonth は1か月分の勤務記録をxlsxとしてwに書き出す。
// Summaryシートに従業員ごとの集計、Entriesシートに記録の明細を出力する。
// 名簿にない従業員の記録は従業員IDを名前として出力する。
func WriteMonth(w io.Writer, month duty.Month, employees []*model.Employee, entries []model.WorkingHoursEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(entriesSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	hoursStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	names, byEmployee := groupEntries(employees, entries)

	if err := writeHeader(f, summarySheet, summaryHeader, headerStyle); err != nil {
		return err
	}
	ids := orderedIDs(employees, byEmployee)
	for i, id := range ids {
		s := duty.MonthlySummary(byEmployee[id], month)
		onDuty := ""
		if s.HasOpenSession {
			onDuty = "yes"
		}
		row := []any{names[id].name, names[id].position, s.Sessions, s.TotalHours, onDuty}
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}
	if err := styleColumn(f, summarySheet, "D", len(ids)+1, hoursStyle); err != nil {
		return err
	}

	if err := writeHeader(f, entriesSheet, entriesHeader, headerStyle); err != nil {
		return err
	}
	rowNum := 2
	for _, id := range ids {
		for _, e := range byEmployee[id] {
			if !month.Contains(e.Date) {
				continue
			}
			checkOut, hours := "", any("")
			if !e.IsOpen() {
				checkOut = e.CheckOut.In(loc).Format("2006-01-02 15:04")
				hours = e.TotalHours
			}
			row := []any{
				names[id].name,
				e.Date.Format(time.DateOnly),
				e.CheckIn.In(loc).Format("2006-01-02 15:04"),
				checkOut,
				hours,
			}
			if err := writeRow(f, entriesSheet, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}
	if err := styleColumn(f, entriesSheet, "E", rowNum-1, hoursStyle); err != nil {
		return err
	}

	for _, sheet := range []string{summarySheet, entriesSheet} {
		if err := f.SetColWidth(sheet, "A", "E", 20); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type label struct {
	name     string
	position string
}

// groupEntries は記録を従業員IDごとに出勤時刻順でまとめる。
func groupEntries(employees []*model.Employee, entries []model.WorkingHoursEntry) (map[string]label, map[string][]model.WorkingHoursEntry) {
	names := make(map[string]label, len(employees))
	for _, e := range employees {
		names[e.ID] = label{name: e.Name, position: e.Position}
	}

	byEmployee := make(map[string][]model.WorkingHoursEntry)
	for _, e := range entries {
		byEmployee[e.EmployeeID] = append(byEmployee[e.EmployeeID], e)
		if _, ok := names[e.EmployeeID]; !ok {
			names[e.EmployeeID] = label{name: e.EmployeeID}
		}
	}
	for id := range byEmployee {
		rows := byEmployee[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CheckIn.Before(rows[j].CheckIn) })
	}
	return names, byEmployee
}

// orderedIDs は名簿順の従業員IDに、名簿にない従業員のIDを昇順で続けて返す。
func orderedIDs(employees []*model.Employee, byEmployee map[string][]model.WorkingHoursEntry) []string {
	ids := make([]string, 0, len(employees))
	known := make(map[string]bool, len(employees))
	for _, e := range employees {
		ids = append(ids, e.ID)
		known[e.ID] = true
	}
	var unknown []string
	for id := range byEmployee {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	sort.Strings(unknown)
	return append(ids, unknown...)
}

func writeHeader(f *excelize.File, sheet string, header []any, style int) error {
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

// styleColumn はcolの2行目からlastRow行目までにstyleを適用する。
func styleColumn(f *excelize.File, sheet, col string, lastRow, style int) error {
	if lastRow < 2 {
		return nil
	}
	if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, lastRow), style); err != nil {
		return fmt.Errorf("failed to style column %s of %s: %w", col, sheet, err)
	}
	return nil
}
