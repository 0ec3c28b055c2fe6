package repository

import (
	"errors"
	"testing"
	"time"
)

// PostgresWorkingHoursRepoはWorkingHoursRepositoryインターフェースを満たすことを検証
func TestPostgresWorkingHoursRepo_ImplementsInterface(t *testing.T) {
	var _ WorkingHoursRepository = (*PostgresWorkingHoursRepo)(nil)
}

// PostgresEmployeeRepoはEmployeeRepositoryインターフェースを満たすことを検証
func TestPostgresEmployeeRepo_ImplementsInterface(t *testing.T) {
	var _ EmployeeRepository = (*PostgresEmployeeRepo)(nil)
}

func TestNewPostgresWorkingHoursRepo_Initializes(t *testing.T) {
	if repo := NewPostgresWorkingHoursRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func TestNewPostgresEmployeeRepo_Initializes(t *testing.T) {
	if repo := NewPostgresEmployeeRepo(nil); repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// fakeRow はScanに渡された値を順に書き込むrowScanner。
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *float64:
			*p = r.values[i].(float64)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case interface{ Scan(any) error }:
			if err := p.Scan(r.values[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestScanWorkingHours_OpenEntry(t *testing.T) {
	checkIn := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"wh-1", "emp-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), checkIn,
		nil, 0.0, checkIn, checkIn,
	}}

	e, err := scanWorkingHours(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "wh-1" || e.EmployeeID != "emp-1" {
		t.Errorf("ids = %q / %q", e.ID, e.EmployeeID)
	}
	if !e.IsOpen() {
		t.Error("entry with NULL check_out should be open")
	}
}

func TestScanWorkingHours_ClosedEntry(t *testing.T) {
	checkIn := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	checkOut := checkIn.Add(8 * time.Hour)
	row := fakeRow{values: []any{
		"wh-1", "emp-1", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), checkIn,
		checkOut, 8.0, checkIn, checkOut,
	}}

	e, err := scanWorkingHours(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CheckOut == nil || !e.CheckOut.Equal(checkOut) {
		t.Errorf("CheckOut = %v, want %s", e.CheckOut, checkOut)
	}
	if e.TotalHours != 8 {
		t.Errorf("TotalHours = %v, want 8", e.TotalHours)
	}
}

func TestScanWorkingHours_PropagatesError(t *testing.T) {
	want := errors.New("scan failed")
	if _, err := scanWorkingHours(fakeRow{err: want}); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestNullTime(t *testing.T) {
	if nt := nullTime(nil); nt.Valid {
		t.Error("nil time should be invalid")
	}
	now := time.Now()
	if nt := nullTime(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("nullTime = %+v", nt)
	}
}
