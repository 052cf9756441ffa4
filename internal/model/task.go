// Package model はドメインモデルを定義する。
package model

import "time"

const (
	// DateLayout はタスクの日付フォーマット（YYYY-MM-DD）。
	DateLayout = "2006-01-02"
	// ClockLayout はタスクの時刻フォーマット（24時間表記のHH:MM）。
	ClockLayout = "15:04"
)

// Source はタスクの作成元を表す。
type Source string

const (
	// SourceUser はユーザーが手入力したタスク。
	SourceUser Source = "User"
	// SourceAI はアシスタントが提案し、ユーザーが承認したタスク。
	SourceAI Source = "AI"
)

// Valid はSourceが定義済みの値かどうかを返す。
func (s Source) Valid() bool {
	return s == SourceUser || s == SourceAI
}

// Task はスケジュールに登録された1件のタスクを表す。
// 追記後は変更されない。同一内容のタスクが複数存在することも許容する。
// JSONのフィールド順はモデルへ渡すコンテキストの正規形を兼ねるため変更しないこと。
type Task struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM（24時間、ゼロ埋め）
	EndTime   string `json:"end_time"`   // HH:MM（24時間、ゼロ埋め）
	Name      string `json:"task"`
	Source    Source `json:"source"`
}

// CalendarDate は時刻tの暦日をDateLayout形式で返す。
// タイムゾーンは呼び出し側でtに設定しておくこと。
func CalendarDate(t time.Time) string {
	return t.Format(DateLayout)
}
