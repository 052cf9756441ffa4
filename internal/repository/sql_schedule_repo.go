package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/planmate/internal/database"
	"github.com/hitoshi/planmate/internal/model"
)

// SQLScheduleRepo はSQLデータベースを使用したスケジュールリポジトリ。
// PostgreSQLとSQLiteで同じスキーマを共有する。
type SQLScheduleRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewPostgresScheduleRepo はPostgreSQL用のSQLScheduleRepoを生成する。
func NewPostgresScheduleRepo(db *sql.DB) *SQLScheduleRepo {
	return &SQLScheduleRepo{db: db, dialect: database.DialectPostgres}
}

// NewSQLiteScheduleRepo はSQLite用のSQLScheduleRepoを生成する。
func NewSQLiteScheduleRepo(db *sql.DB) *SQLScheduleRepo {
	return &SQLScheduleRepo{db: db, dialect: database.DialectSQLite}
}

// Append はタスクを1件追記する。
func (r *SQLScheduleRepo) Append(ctx context.Context, userID string, task model.Task) error {
	_, err := r.db.ExecContext(ctx,
		rebind(r.dialect, `INSERT INTO tasks (user_id, date, start_time, end_time, task, source)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		userID, task.Date, task.StartTime, task.EndTime, task.Name, string(task.Source),
	)
	if err != nil {
		return fmt.Errorf("タスクの追記に失敗しました: %w", err)
	}
	return nil
}

// ListByUser はユーザーのタスクを追記順（id昇順）で返す。
func (r *SQLScheduleRepo) ListByUser(ctx context.Context, userID, date string) ([]model.Task, error) {
	query := `SELECT date, start_time, end_time, task, source FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if date != "" {
		query += ` AND date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, rebind(r.dialect, query), args...)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		var source string
		if err := rows.Scan(&t.Date, &t.StartTime, &t.EndTime, &t.Name, &source); err != nil {
			return nil, fmt.Errorf("タスクのスキャンに失敗しました: %w", err)
		}
		t.Source = model.Source(source)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の読み出しに失敗しました: %w", err)
	}

	return tasks, nil
}
