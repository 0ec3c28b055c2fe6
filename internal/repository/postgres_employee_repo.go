package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hrportal/internal/model"
)

// PostgresEmployeeRepo はPostgreSQLを使用した従業員リポジトリ。
type PostgresEmployeeRepo struct {
	db *sql.DB
}

// NewPostgresEmployeeRepo はPostgresEmployeeRepoを生成する。
func NewPostgresEmployeeRepo(db *sql.DB) *PostgresEmployeeRepo {
	return &PostgresEmployeeRepo{db: db}
}

// FindByID は指定IDの従業員を勤務記録付きで取得する。見つからない場合はnilを返す。
func (r *PostgresEmployeeRepo) FindByID(ctx context.Context, id string) (*model.Employee, error) {
	employee := &model.Employee{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, position, created_at, updated_at FROM employees WHERE id = $1`,
		id,
	).Scan(&employee.ID, &employee.Name, &employee.Position, &employee.CreatedAt, &employee.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find employee by ID: %w", err)
	}

	entries, err := listWorkingHours(ctx, r.db,
		`SELECT `+workingHoursColumns+`
		 FROM working_hours
		 WHERE employee_id = $1
		 ORDER BY check_in`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load working hours: %w", err)
	}
	employee.WorkingHours = entries

	return employee, nil
}

// List は全従業員を名前順で返す。
func (r *PostgresEmployeeRepo) List(ctx context.Context) ([]*model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, position, created_at, updated_at FROM employees ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []*model.Employee{}
	for rows.Next() {
		e := &model.Employee{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}

	return employees, nil
}

// compile-time interface check
var _ EmployeeRepository = (*PostgresEmployeeRepo)(nil)
