package model

import "time"

// Sender は会話ターンの発言者を表す。
type Sender string

const (
	// SenderUser はユーザーの発言。
	SenderUser Sender = "User"
	// SenderAI はアシスタントの発言。
	SenderAI Sender = "AI"
)

// ChatTurn は会話ログの1ターンを表す。書き込み後は変更されない。
// 順序は追記順のみで保証され、シーケンス番号は持たない。
type ChatTurn struct {
	Sender    Sender
	Message   string
	Timestamp time.Time
}
