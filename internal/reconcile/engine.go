package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/planmate/internal/metrics"
	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/userlock"
)

// ScheduleWriter はスケジュールへの追記を行う。
type ScheduleWriter interface {
	Append(ctx context.Context, userID string, task model.Task) error
}

// AcceptResult は一括承認の結果。
// Rejectedが非nilの場合、その要素以降は処理されていない。
type AcceptResult struct {
	Appended int
	Rejected *model.ValidationError
}

// ManualEntry はユーザーが手入力したタスク。日付は当日、作成元はUserになる。
type ManualEntry struct {
	Name      string
	StartTime string
	EndTime   string
}

// ManualResult は手入力の結果。Addedがfalseの場合Reasonに理由が入る。
// 理由はログとメトリクス用で、ユーザーには表示しない。
type ManualResult struct {
	Added  bool
	Task   model.Task
	Reason string
}

// Engine はタスクの検証とスケジュールへの書き込みを行う。
// 同一ユーザーの書き込みは会話ターンと同じロックで直列化する。
type Engine struct {
	store     ScheduleWriter
	validator *Validator
	locks     *userlock.Locker
	metrics   metrics.MetricsCollector
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine(store ScheduleWriter, validator *Validator, locks *userlock.Locker, mc metrics.MetricsCollector, loc *time.Location) *Engine {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		store:     store,
		validator: validator,
		locks:     locks,
		metrics:   mc,
		loc:       loc,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// SetClock は"今日"の判定に使う時刻関数を差し替える（テスト用）。
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// AcceptBatch はアシスタントが提案したタスク配列（JSON文字列）を承認してスケジュールに追記する。
// 要素は配列の順に検証と追記を行い、不正な要素が見つかった時点で残りを処理せずに終了する。
// それより前の要素は追記済みのまま残る。検証エラーは結果で返し、errorは永続化の失敗のみ。
func (e *Engine) AcceptBatch(ctx context.Context, userID, batch string) (*AcceptResult, error) {
	result := &AcceptResult{}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(batch)), &items); err != nil || items == nil {
		result.Rejected = &model.ValidationError{Index: -1, Reason: "タスクの配列として解釈できません"}
		e.metrics.RecordValidationFailure(metrics.PathAccept)
		e.logger.Warn("task batch rejected",
			slog.String("user_id", userID),
			slog.String("reason", result.Rejected.Reason),
		)
		return result, nil
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーロックの取得に失敗しました: %w", err)
	}
	defer unlock()

	for i, raw := range items {
		task, err := e.validator.ValidateRecord(raw)
		if err != nil {
			var ve *model.ValidationError
			if !errors.As(err, &ve) {
				ve = &model.ValidationError{Reason: err.Error()}
			}
			ve.Index = i
			result.Rejected = ve
			e.metrics.RecordValidationFailure(metrics.PathAccept)
			e.logger.Warn("task batch aborted at invalid element",
				slog.String("user_id", userID),
				slog.Int("index", i),
				slog.Int("appended", result.Appended),
				slog.String("error", ve.Error()),
			)
			break
		}

		if err := e.store.Append(ctx, userID, task); err != nil {
			return result, err
		}
		result.Appended++
		e.metrics.RecordTasksAppended(string(task.Source), 1)
	}

	e.logger.Info("task batch accepted",
		slog.String("user_id", userID),
		slog.Int("appended", result.Appended),
		slog.Int("batch_size", len(items)),
	)
	return result, nil
}

// AddManual はユーザーが手入力したタスクを当日の予定として追記する。
// 名前、開始時刻、終了時刻のいずれかが空、または検証に失敗した場合は何もしない。
func (e *Engine) AddManual(ctx context.Context, userID string, in ManualEntry) (*ManualResult, error) {
	name := strings.TrimSpace(in.Name)
	start := strings.TrimSpace(in.StartTime)
	end := strings.TrimSpace(in.EndTime)
	if name == "" || start == "" || end == "" {
		e.metrics.RecordValidationFailure(metrics.PathManual)
		e.logger.Debug("manual entry ignored: empty field", slog.String("user_id", userID))
		return &ManualResult{Reason: "task name, start time and end time are required"}, nil
	}

	task, err := e.validator.Validate(model.Task{
		Date:      model.CalendarDate(e.now().In(e.loc)),
		StartTime: start,
		EndTime:   end,
		Name:      name,
		Source:    model.SourceUser,
	})
	if err != nil {
		e.metrics.RecordValidationFailure(metrics.PathManual)
		e.logger.Warn("manual entry ignored",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return &ManualResult{Reason: err.Error()}, nil
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーロックの取得に失敗しました: %w", err)
	}
	defer unlock()

	if err := e.store.Append(ctx, userID, task); err != nil {
		return nil, err
	}
	e.metrics.RecordTasksAppended(string(model.SourceUser), 1)

	return &ManualResult{Added: true, Task: task}, nil
}
