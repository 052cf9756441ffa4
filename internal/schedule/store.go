// Package schedule はユーザーごとのタスク（スケジュール）の保存と読み出しを提供する。
package schedule

import (
	"context"
	"sort"

	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/repository"
)

// Store はスケジュールストア。
// タスクは追記のみで、既存のエントリを書き換えることはない。
type Store struct {
	repo repository.ScheduleRepository
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(repo repository.ScheduleRepository) *Store {
	return &Store{repo: repo}
}

// Append はタスクを1件追記する。
// 書き込みに失敗した場合は*model.StorageErrorを返す。
func (s *Store) Append(ctx context.Context, userID string, task model.Task) error {
	if err := s.repo.Append(ctx, userID, task); err != nil {
		return &model.StorageError{Op: "append task", Err: err}
	}
	return nil
}

// LoadForDate は指定日のタスクを開始時刻の昇順で返す。
// dateが空の場合はユーザーの全タスクを返す。開始時刻が同じタスクは追記順を保つ。
func (s *Store) LoadForDate(ctx context.Context, userID, date string) ([]model.Task, error) {
	tasks, err := s.repo.ListByUser(ctx, userID, date)
	if err != nil {
		return nil, &model.StorageError{Op: "load tasks", Err: err}
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	// HH:MMのゼロ埋め表記なので文字列比較で時刻順になる
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].StartTime < tasks[j].StartTime
	})
	return tasks, nil
}
