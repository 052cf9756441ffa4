// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidUser        = "INVALID_USER"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewInvalidUserError は利用者名が不正な場合のエラーを生成する。
func NewInvalidUserError(name, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUser,
		Message:  fmt.Sprintf("利用者名が不正です（%q）: %s", name, reason),
		Category: "validation",
		Action:   "英数字などを使った別の名前を入力してください。",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "フォームまたはJSON形式で送信してください。",
	}
}

// NewStorageUnavailableError は永続化層の障害時のエラーを生成する。
func NewStorageUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageUnavailable,
		Message:  "スケジュールまたは会話履歴の保存先にアクセスできません。",
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// ValidationError はタスクレコードの必須項目欠落や形式不正を表す。
// Indexは一括承認時のバッチ内位置で、バッチ外の検証では-1となる。
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	target := "task"
	if e.Index >= 0 {
		target = fmt.Sprintf("task[%d]", e.Index)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s.%s: %s", target, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", target, e.Reason)
}

// StorageError は永続化層の読み書き失敗を表す。
// 書き込みは1レコード単位で原子的なため、失敗しても既存データは壊れない。
type StorageError struct {
	Op  string
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *StorageError) Unwrap() error {
	return e.Err
}

// InvocationError は外部モデル呼び出しの失敗またはタイムアウトを表す。
type InvocationError struct {
	Err     error
	Timeout bool
	Elapsed time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *InvocationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("model invocation timed out after %s: %v", e.Elapsed, e.Err)
	}
	return fmt.Sprintf("model invocation failed: %v", e.Err)
}

// Unwrap は元のエラーを返す。
func (e *InvocationError) Unwrap() error {
	return e.Err
}
