// Package conversation はユーザーごとの会話ログを提供する。
package conversation

import (
	"context"
	"time"

	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/repository"
)

// Log は会話ログ。ターンは追記順に保持され、書き換えられない。
type Log struct {
	repo repository.ConversationRepository
	now  func() time.Time
}

// NewLog はLogの新しいインスタンスを生成する。
func NewLog(repo repository.ConversationRepository) *Log {
	return &Log{repo: repo, now: time.Now}
}

// SetClock はタイムスタンプに使う時刻関数を差し替える（テスト用）。
func (l *Log) SetClock(now func() time.Time) {
	l.now = now
}

// Append はサーバー時刻を付与して会話ターンを1件追記する。
func (l *Log) Append(ctx context.Context, userID string, sender model.Sender, message string) error {
	turn := model.ChatTurn{
		Sender:    sender,
		Message:   message,
		Timestamp: l.now(),
	}
	if err := l.repo.Append(ctx, userID, turn); err != nil {
		return &model.StorageError{Op: "append chat turn", Err: err}
	}
	return nil
}

// AppendExchange はユーザー発話とAI応答の1往復を同じサーバー時刻でまとめて追記する。
// どちらか一方だけが記録されることはない。
func (l *Log) AppendExchange(ctx context.Context, userID, userMessage, aiMessage string) error {
	now := l.now()
	turns := []model.ChatTurn{
		{Sender: model.SenderUser, Message: userMessage, Timestamp: now},
		{Sender: model.SenderAI, Message: aiMessage, Timestamp: now},
	}
	if err := l.repo.Append(ctx, userID, turns...); err != nil {
		return &model.StorageError{Op: "append chat exchange", Err: err}
	}
	return nil
}

// LoadAll はユーザーの全会話ターンを追記順で返す。
func (l *Log) LoadAll(ctx context.Context, userID string) ([]model.ChatTurn, error) {
	turns, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, &model.StorageError{Op: "load chat turns", Err: err}
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	return turns, nil
}
