package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/planmate/internal/model"
)

// TaskReader は指定日のタスクを開始時刻順で読み出す。
type TaskReader interface {
	LoadForDate(ctx context.Context, userID, date string) ([]model.Task, error)
}

// HistoryReader は会話ログを追記順で読み出す。
type HistoryReader interface {
	LoadAll(ctx context.Context, userID string) ([]model.ChatTurn, error)
}

// HistoryEntry はモデルへ渡す会話履歴の1件。
type HistoryEntry struct {
	Sender  model.Sender `json:"sender"`
	Message string       `json:"message"`
}

// Payload はモデルへ渡すコンテキスト。
// フィールド順がそのままJSONのキー順になる。
type Payload struct {
	UserInput      string         `json:"user_input"`
	ChatHistory    []HistoryEntry `json:"chat_history"`
	ScheduledTasks []model.Task   `json:"scheduled_tasks"`
}

// Encode はPayloadを2スペースインデントのJSONに変換する。
func (p *Payload) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("コンテキストのエンコードに失敗しました: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// ContextBuilder はユーザー入力、会話履歴、今日のタスクからPayloadを組み立てる。
type ContextBuilder struct {
	tasks        TaskReader
	history      HistoryReader
	historyLimit int
	loc          *time.Location
	now          func() time.Time
}

// NewContextBuilder はContextBuilderを生成する。
// historyLimitが0以下の場合は会話履歴をすべて含める。
func NewContextBuilder(tasks TaskReader, history HistoryReader, historyLimit int, loc *time.Location) *ContextBuilder {
	if loc == nil {
		loc = time.Local
	}
	return &ContextBuilder{
		tasks:        tasks,
		history:      history,
		historyLimit: historyLimit,
		loc:          loc,
		now:          time.Now,
	}
}

// SetClock は"今日"の判定に使う時刻関数を差し替える（テスト用）。
func (b *ContextBuilder) SetClock(now func() time.Time) {
	b.now = now
}

// Today は呼び出し時点の暦日を返す。
func (b *ContextBuilder) Today() string {
	return model.CalendarDate(b.now().In(b.loc))
}

// Build はPayloadを組み立てる。会話履歴とタスクは並行に読み出す。
// 日付は呼び出しごとに評価するため、日付をまたいだ場合は新しい日のタスクが入る。
func (b *ContextBuilder) Build(ctx context.Context, userID, input string) (*Payload, error) {
	today := b.Today()

	var turns []model.ChatTurn
	var tasks []model.Task

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		turns, err = b.history.LoadAll(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = b.tasks.LoadForDate(gctx, userID, today)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.historyLimit > 0 && len(turns) > b.historyLimit {
		turns = turns[len(turns)-b.historyLimit:]
	}

	history := make([]HistoryEntry, 0, len(turns))
	for _, t := range turns {
		history = append(history, HistoryEntry{Sender: t.Sender, Message: t.Message})
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	return &Payload{
		UserInput:      input,
		ChatHistory:    history,
		ScheduledTasks: tasks,
	}, nil
}
