package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/hrportal/internal/model"
)

const workingHoursColumns = `id, employee_id, date, check_in, check_out, total_hours, created_at, updated_at`

// PostgresWorkingHoursRepo はPostgreSQLを使用した勤務記録リポジトリ。
type PostgresWorkingHoursRepo struct {
	db *sql.DB
}

// NewPostgresWorkingHoursRepo はPostgresWorkingHoursRepoを生成する。
func NewPostgresWorkingHoursRepo(db *sql.DB) *PostgresWorkingHoursRepo {
	return &PostgresWorkingHoursRepo{db: db}
}

// Insert は勤務記録を1件挿入し、保存された行を返す。
// 同じIDの行が既に存在する場合は挿入せず、既存の行を返す。
func (r *PostgresWorkingHoursRepo) Insert(ctx context.Context, entry *model.WorkingHoursEntry) (*model.WorkingHoursEntry, error) {
	return insertWorkingHours(ctx, r.db, entry)
}

// InsertBatch は締め済みの勤務記録を同一トランザクションで挿入する。
func (r *PostgresWorkingHoursRepo) InsertBatch(ctx context.Context, entries []model.WorkingHoursEntry) ([]model.WorkingHoursEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	saved := make([]model.WorkingHoursEntry, 0, len(entries))
	for i := range entries {
		e, err := insertWorkingHours(ctx, tx, &entries[i])
		if err != nil {
			return nil, err
		}
		saved = append(saved, *e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return saved, nil
}

// Close は勤務中の行を締め、extraの締め済み行を同一トランザクションで挿入する。
// 既に同じ退勤時刻で締められている場合は更新済みの行として扱う。
func (r *PostgresWorkingHoursRepo) Close(
	ctx context.Context,
	id string,
	checkOut time.Time,
	totalHours float64,
	extra []model.WorkingHoursEntry,
) ([]model.WorkingHoursEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	closed, err := scanWorkingHours(tx.QueryRowContext(ctx,
		`UPDATE working_hours
		 SET check_out = $2, total_hours = $3, updated_at = now()
		 WHERE id = $1 AND (check_out IS NULL OR check_out = $2)
		 RETURNING `+workingHoursColumns,
		id, checkOut, totalHours,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("勤務記録の締めに失敗しました: %w", err)
	}

	result := make([]model.WorkingHoursEntry, 0, len(extra)+1)
	result = append(result, closed)
	for i := range extra {
		e, err := insertWorkingHours(ctx, tx, &extra[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return result, nil
}

// Update は締め済みの行の暦日、出退勤時刻、合計時間を更新する。
func (r *PostgresWorkingHoursRepo) Update(ctx context.Context, entry *model.WorkingHoursEntry) (*model.WorkingHoursEntry, error) {
	e, err := scanWorkingHours(r.db.QueryRowContext(ctx,
		`UPDATE working_hours
		 SET date = $3, check_in = $4, check_out = $5, total_hours = $6, updated_at = now()
		 WHERE id = $1 AND employee_id = $2 AND check_out IS NOT NULL
		 RETURNING `+workingHoursColumns,
		entry.ID, entry.EmployeeID, entry.Date.Format(time.DateOnly),
		entry.CheckIn, nullTime(entry.CheckOut), entry.TotalHours,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("勤務記録の更新に失敗しました: %w", err)
	}
	return &e, nil
}

// Delete は従業員の勤務記録を1件削除する。
func (r *PostgresWorkingHoursRepo) Delete(ctx context.Context, employeeID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM working_hours WHERE id = $1 AND employee_id = $2`,
		id, employeeID,
	)
	if err != nil {
		return false, fmt.Errorf("勤務記録の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FindOpenByEmployee は従業員の勤務中の行を返す。見つからない場合はnilを返す。
func (r *PostgresWorkingHoursRepo) FindOpenByEmployee(ctx context.Context, employeeID string) (*model.WorkingHoursEntry, error) {
	e, err := scanWorkingHours(r.db.QueryRowContext(ctx,
		`SELECT `+workingHoursColumns+`
		 FROM working_hours
		 WHERE employee_id = $1 AND check_out IS NULL
		 ORDER BY check_in DESC
		 LIMIT 1`,
		employeeID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("勤務中の記録の取得に失敗しました: %w", err)
	}
	return &e, nil
}

// ListByEmployee は出勤時刻が[from, to)に含まれる従業員の勤務記録を昇順で返す。
func (r *PostgresWorkingHoursRepo) ListByEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]model.WorkingHoursEntry, error) {
	return listWorkingHours(ctx, r.db,
		`SELECT `+workingHoursColumns+`
		 FROM working_hours
		 WHERE employee_id = $1 AND check_in >= $2 AND check_in < $3
		 ORDER BY check_in`,
		employeeID, from, to,
	)
}

// ListBetween は出勤時刻が[from, to)に含まれる全従業員の勤務記録を返す。
func (r *PostgresWorkingHoursRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.WorkingHoursEntry, error) {
	return listWorkingHours(ctx, r.db,
		`SELECT `+workingHoursColumns+`
		 FROM working_hours
		 WHERE check_in >= $1 AND check_in < $2
		 ORDER BY employee_id, check_in`,
		from, to,
	)
}

// insertWorkingHours は1行挿入する。IDが衝突した場合は既存の行を返す。
func insertWorkingHours(ctx context.Context, q querier, entry *model.WorkingHoursEntry) (*model.WorkingHoursEntry, error) {
	saved, err := scanWorkingHours(q.QueryRowContext(ctx,
		`INSERT INTO working_hours (id, employee_id, date, check_in, check_out, total_hours, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		 ON CONFLICT (id) DO NOTHING
		 RETURNING `+workingHoursColumns,
		entry.ID, entry.EmployeeID, entry.Date.Format(time.DateOnly),
		entry.CheckIn, nullTime(entry.CheckOut), entry.TotalHours,
	))
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := scanWorkingHours(q.QueryRowContext(ctx,
			`SELECT `+workingHoursColumns+` FROM working_hours WHERE id = $1`,
			entry.ID,
		))
		if findErr != nil {
			return nil, fmt.Errorf("既存の勤務記録の取得に失敗しました: %w", findErr)
		}
		return &existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("勤務記録の作成に失敗しました: %w", err)
	}
	return &saved, nil
}

// listWorkingHours はクエリ結果を勤務記録のスライスとして返す。
// 該当行がない場合は空のスライス（nilではない）を返す。
func listWorkingHours(ctx context.Context, q querier, query string, args ...any) ([]model.WorkingHoursEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("勤務記録一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	entries := []model.WorkingHoursEntry{}
	for rows.Next() {
		e, err := scanWorkingHours(rows)
		if err != nil {
			return nil, fmt.Errorf("勤務記録行の読み取りに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("勤務記録一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkingHours(s rowScanner) (model.WorkingHoursEntry, error) {
	var e model.WorkingHoursEntry
	var checkOut sql.NullTime
	if err := s.Scan(
		&e.ID, &e.EmployeeID, &e.Date, &e.CheckIn, &checkOut,
		&e.TotalHours, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return model.WorkingHoursEntry{}, err
	}
	if checkOut.Valid {
		t := checkOut.Time
		e.CheckOut = &t
	}
	return e, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// compile-time interface check
var _ WorkingHoursRepository = (*PostgresWorkingHoursRepo)(nil)
