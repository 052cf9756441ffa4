// Package assistant は会話ターンの処理を提供する。
// コンテキストの組み立て、外部モデルの呼び出し、応答の分類、会話ログへの記録を行う。
package assistant

import (
	"encoding/json"
	"strings"
)

// Kind はモデル応答の分類結果。
type Kind int

const (
	// TextReply は通常の会話応答。
	TextReply Kind = iota
	// TaskBatch はタスク提案の配列。
	TaskBatch
)

// String はメトリクスやログで使うラベルを返す。
func (k Kind) String() string {
	if k == TaskBatch {
		return "task_batch"
	}
	return "text"
}

// Reply は分類済みのモデル応答。
// Rawは受け取った文字列そのもので、会話ログにはこの値を記録する。
// Itemsは分類がTaskBatchの場合の配列要素で、この時点では形式を検証しない。
type Reply struct {
	Kind  Kind
	Raw   string
	Items []json.RawMessage
}

// Classify はモデル応答を分類する。
// 応答全体が1つのJSON配列として解釈できればTaskBatch、それ以外はすべてTextReplyとする。
// JSONの文字列やオブジェクト、null、解釈できないテキストはTextReplyになる。
func Classify(raw string) Reply {
	reply := Reply{Kind: TextReply, Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		return reply
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return reply
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	reply.Kind = TaskBatch
	reply.Items = items
	return reply
}
