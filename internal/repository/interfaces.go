// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

// EmployeeRepository は従業員データの永続化インターフェース。
type EmployeeRepository interface {
	// FindByID は指定IDの従業員を勤務記録（出勤時刻の昇順）付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Employee, error)

	// List は全従業員を名前順で返す。勤務記録は含まない。
	List(ctx context.Context) ([]*model.Employee, error)
}

// WorkingHoursRepository は勤務記録の永続化インターフェース。
// IDは呼び出し側で採番する。同じIDでの再挿入は何もせず既存の行を返すため、
// リトライされた書き込みは冪等になる。
type WorkingHoursRepository interface {
	// Insert は勤務記録を1件挿入し、保存された行を返す。
	// 従業員ごとの勤務中（check_out IS NULL）の行は一意インデックスで高々1件に制限される。
	Insert(ctx context.Context, entry *model.WorkingHoursEntry) (*model.WorkingHoursEntry, error)

	// InsertBatch は締め済みの勤務記録を同一トランザクションで挿入する。
	InsertBatch(ctx context.Context, entries []model.WorkingHoursEntry) ([]model.WorkingHoursEntry, error)

	// Close は勤務中の行を締め、extraの締め済み行を同一トランザクションで挿入する。
	// 既に同じ退勤時刻で締められている場合はその行を返す。
	// 対象の行が存在しないか別の時刻で締められている場合はnilを返す。
	Close(ctx context.Context, id string, checkOut time.Time, totalHours float64, extra []model.WorkingHoursEntry) ([]model.WorkingHoursEntry, error)

	// Update は締め済みの行の暦日、出退勤時刻、合計時間を更新する。
	// entry.IDとentry.EmployeeIDの両方に一致する締め済みの行がない場合はnilを返す。
	Update(ctx context.Context, entry *model.WorkingHoursEntry) (*model.WorkingHoursEntry, error)

	// Delete は従業員の勤務記録を1件削除する。削除した場合はtrueを返す。
	Delete(ctx context.Context, employeeID, id string) (bool, error)

	// FindOpenByEmployee は従業員の勤務中の行を返す。見つからない場合はnilを返す。
	FindOpenByEmployee(ctx context.Context, employeeID string) (*model.WorkingHoursEntry, error)

	// ListByEmployee は出勤時刻が[from, to)に含まれる従業員の勤務記録を昇順で返す。
	ListByEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]model.WorkingHoursEntry, error)

	// ListBetween は出勤時刻が[from, to)に含まれる全従業員の勤務記録を返す。
	// 従業員ID、出勤時刻の順に並ぶ。
	ListBetween(ctx context.Context, from, to time.Time) ([]model.WorkingHoursEntry, error)
}

// querier は*sql.DBと*sql.Txに共通するクエリ操作。
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
