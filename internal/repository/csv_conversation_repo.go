package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/planmate/internal/model"
)

// legacyTimestampLayout は既存データのchat.csvで使われている時刻フォーマット。
const legacyTimestampLayout = "2006-01-02 15:04:05"

// CSVConversationRepo はCSVファイルを使用した会話ログリポジトリ。
type CSVConversationRepo struct {
	store *CSVStore
}

// NewCSVConversationRepo はCSVConversationRepoを生成する。
func NewCSVConversationRepo(store *CSVStore) *CSVConversationRepo {
	return &CSVConversationRepo{store: store}
}

// Append は会話ターンを1回の書き込みで追記する。時刻はRFC 3339で書き込む。
func (r *CSVConversationRepo) Append(ctx context.Context, userID string, turns ...model.ChatTurn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}
	path, err := r.store.filePath(userID, chatFileName)
	if err != nil {
		return err
	}
	records := make([][]string, 0, len(turns))
	for _, turn := range turns {
		records = append(records, []string{
			string(turn.Sender), turn.Message, turn.Timestamp.Format(time.RFC3339),
		})
	}
	return r.store.appendRecords(path, chatHeader, records)
}

// ListByUser はユーザーの会話ターンをファイル上の順序で返す。
func (r *CSVConversationRepo) ListByUser(ctx context.Context, userID string) ([]model.ChatTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.store.filePath(userID, chatFileName)
	if err != nil {
		return nil, err
	}
	records, err := r.store.readRecords(path)
	if err != nil {
		return nil, err
	}

	turns := []model.ChatTurn{}
	for i, rec := range records {
		ts, err := parseChatTimestamp(rec["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("chat.csvの%d行目の時刻を解釈できません: %w", i+2, err)
		}
		turns = append(turns, model.ChatTurn{
			Sender:    model.Sender(rec["sender"]),
			Message:   rec["message"],
			Timestamp: ts,
		})
	}
	return turns, nil
}

// parseChatTimestamp はRFC 3339と既存データのローカル時刻フォーマットの両方を受け付ける。
func parseChatTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimestampLayout, s, time.Local)
}
