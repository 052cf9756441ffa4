// Package repository はデータ永続化のインターフェースを定義する。
//
// 2つの論理テーブル（スケジュールと会話ログ）をユーザーIDで分割した追記専用ログとして扱う。
// 既存レコードの更新・削除は提供しない。
package repository

import (
	"context"

	"github.com/hitoshi/planmate/internal/model"
)

// ScheduleRepository はタスクの永続化インターフェース。
type ScheduleRepository interface {
	// Append はタスクを1件追記する。1レコード単位で原子的に書き込む。
	Append(ctx context.Context, userID string, task model.Task) error

	// ListByUser はユーザーのタスクを追記順で返す。
	// dateが空文字でなければその日付のタスクのみを返す。
	// 未登録ユーザーの場合は空スライスを返す。
	ListByUser(ctx context.Context, userID, date string) ([]model.Task, error)
}

// ConversationRepository は会話ログの永続化インターフェース。
type ConversationRepository interface {
	// Append は会話ターンを追記する。渡されたターンはまとめて原子的に書き込み、
	// 一部だけが残ることはない。
	Append(ctx context.Context, userID string, turns ...model.ChatTurn) error

	// ListByUser はユーザーの会話ターンを追記順で返す。
	// 未登録ユーザーの場合は空スライスを返す。
	ListByUser(ctx context.Context, userID string) ([]model.ChatTurn, error)
}

// Pinger はストレージの疎通確認インターフェース。*sql.DBも満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}
