package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/planmate/internal/database"
	"github.com/hitoshi/planmate/internal/model"
)

// SQLConversationRepo はSQLデータベースを使用した会話ログリポジトリ。
type SQLConversationRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewPostgresConversationRepo はPostgreSQL用のSQLConversationRepoを生成する。
func NewPostgresConversationRepo(db *sql.DB) *SQLConversationRepo {
	return &SQLConversationRepo{db: db, dialect: database.DialectPostgres}
}

// NewSQLiteConversationRepo はSQLite用のSQLConversationRepoを生成する。
func NewSQLiteConversationRepo(db *sql.DB) *SQLConversationRepo {
	return &SQLConversationRepo{db: db, dialect: database.DialectSQLite}
}

// Append は会話ターンを1つのトランザクションで追記する。
func (r *SQLConversationRepo) Append(ctx context.Context, userID string, turns ...model.ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	query := rebind(r.dialect, `INSERT INTO chat_turns (user_id, sender, message, created_at) VALUES (?, ?, ?, ?)`)
	for _, turn := range turns {
		if _, err := tx.ExecContext(ctx, query,
			userID, string(turn.Sender), turn.Message, turn.Timestamp.UTC(),
		); err != nil {
			return fmt.Errorf("会話ターンの追記に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("会話ターンのコミットに失敗しました: %w", err)
	}
	return nil
}

// ListByUser はユーザーの会話ターンを追記順（id昇順）で返す。
func (r *SQLConversationRepo) ListByUser(ctx context.Context, userID string) ([]model.ChatTurn, error) {
	rows, err := r.db.QueryContext(ctx,
		rebind(r.dialect, `SELECT sender, message, created_at FROM chat_turns WHERE user_id = ? ORDER BY id ASC`),
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("会話ログの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	turns := []model.ChatTurn{}
	for rows.Next() {
		var turn model.ChatTurn
		var sender string
		var createdAt any
		if err := rows.Scan(&sender, &turn.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("会話ターンのスキャンに失敗しました: %w", err)
		}
		ts, err := scanTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("会話ターンの時刻の解釈に失敗しました: %w", err)
		}
		turn.Sender = model.Sender(sender)
		turn.Timestamp = ts
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("会話ログの読み出しに失敗しました: %w", err)
	}

	return turns, nil
}
