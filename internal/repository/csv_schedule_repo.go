package repository

import (
	"context"

	"github.com/hitoshi/planmate/internal/model"
)

// CSVScheduleRepo はCSVファイルを使用したスケジュールリポジトリ。
type CSVScheduleRepo struct {
	store *CSVStore
}

// NewCSVScheduleRepo はCSVScheduleRepoを生成する。
func NewCSVScheduleRepo(store *CSVStore) *CSVScheduleRepo {
	return &CSVScheduleRepo{store: store}
}

// Append はタスクを1件追記する。
func (r *CSVScheduleRepo) Append(ctx context.Context, userID string, task model.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.store.filePath(userID, tasksFileName)
	if err != nil {
		return err
	}
	return r.store.appendRecord(path, tasksHeader, []string{
		task.Date, task.StartTime, task.EndTime, task.Name, string(task.Source),
	})
}

// ListByUser はユーザーのタスクをファイル上の順序で返す。
func (r *CSVScheduleRepo) ListByUser(ctx context.Context, userID, date string) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.store.filePath(userID, tasksFileName)
	if err != nil {
		return nil, err
	}
	records, err := r.store.readRecords(path)
	if err != nil {
		return nil, err
	}

	tasks := []model.Task{}
	for _, rec := range records {
		if date != "" && rec["date"] != date {
			continue
		}
		tasks = append(tasks, model.Task{
			Date:      rec["date"],
			StartTime: rec["start_time"],
			EndTime:   rec["end_time"],
			Name:      rec["task"],
			Source:    model.Source(rec["source"]),
		})
	}
	return tasks, nil
}
