package model

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeUserID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "小文字化と空白除去", raw: "  Alice ", want: "alice"},
		{name: "そのまま", raw: "bob", want: "bob"},
		{name: "空文字", raw: "   ", wantErr: true},
		{name: "親ディレクトリ", raw: "..", wantErr: true},
		{name: "スラッシュ", raw: "a/b", wantErr: true},
		{name: "バックスラッシュ", raw: `a\b`, wantErr: true},
		{name: "予約語", raw: "Health", wantErr: true},
		{name: "上限ちょうど", raw: strings.Repeat("a", MaxUserIDBytes), want: strings.Repeat("a", MaxUserIDBytes)},
		{name: "上限超過", raw: strings.Repeat("a", MaxUserIDBytes+1), wantErr: true},
		{name: "ファイル名の上限超過", raw: strings.Repeat("a", 300), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUserID(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NormalizeUserID(%q) error = nil, want error", tt.raw)
				}
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Code != ErrCodeInvalidUser {
					t.Errorf("error = %v, want APIError with code %s", err, ErrCodeInvalidUser)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeUserID(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeUserID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Index: 2, Field: "end_time", Reason: "必須項目です"}
	if got, want := err.Error(), "task[2].end_time: 必須項目です"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = &ValidationError{Index: -1, Reason: "配列ではありません"}
	if got, want := err.Error(), "task: 配列ではありません"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Op: "append task", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestSource_Valid(t *testing.T) {
	if !SourceUser.Valid() || !SourceAI.Valid() {
		t.Error("expected User and AI to be valid sources")
	}
	if Source("ai").Valid() {
		t.Error("expected lowercase source to be invalid")
	}
}
