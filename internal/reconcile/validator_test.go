package reconcile

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hitoshi/planmate/internal/model"
)

func TestValidator_ValidateRecord(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name      string
		raw       string
		want      model.Task
		wantField string
		wantErr   bool
	}{
		{
			name: "正常なレコード",
			raw:  `{"date":"2026-02-02","start_time":"14:00","end_time":"15:00","task":"Study math","source":"AI"}`,
			want: model.Task{Date: "2026-02-02", StartTime: "14:00", EndTime: "15:00", Name: "Study math", Source: model.SourceAI},
		},
		{
			name: "12時間表記は24時間表記に変換",
			raw:  `{"date":"2026-02-02","start_time":"2:00 pm","end_time":"3:30 PM","task":"Walk","source":"User"}`,
			want: model.Task{Date: "2026-02-02", StartTime: "14:00", EndTime: "15:30", Name: "Walk", Source: model.SourceUser},
		},
		{
			name: "1桁の時はゼロ埋め",
			raw:  `{"date":"2026-02-02","start_time":"9:00","end_time":"9:45","task":"Read","source":"AI"}`,
			want: model.Task{Date: "2026-02-02", StartTime: "09:00", EndTime: "09:45", Name: "Read", Source: model.SourceAI},
		},
		{
			name: "未知のフィールドは無視",
			raw:  `{"date":"2026-02-02","start_time":"08:00","end_time":"08:30","task":"Run","source":"AI","priority":"high"}`,
			want: model.Task{Date: "2026-02-02", StartTime: "08:00", EndTime: "08:30", Name: "Run", Source: model.SourceAI},
		},
		{
			name:      "end_time欠落",
			raw:       `{"date":"2026-02-02","start_time":"14:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "end_time",
		},
		{
			name:      "taskが空文字",
			raw:       `{"date":"2026-02-02","start_time":"14:00","end_time":"15:00","task":"  ","source":"AI"}`,
			wantErr:   true,
			wantField: "task",
		},
		{
			name:      "taskが数値",
			raw:       `{"date":"2026-02-02","start_time":"14:00","end_time":"15:00","task":5,"source":"AI"}`,
			wantErr:   true,
			wantField: "task",
		},
		{
			name:      "未知のsource",
			raw:       `{"date":"2026-02-02","start_time":"14:00","end_time":"15:00","task":"Study","source":"Bot"}`,
			wantErr:   true,
			wantField: "source",
		},
		{
			name:      "日付形式の誤り",
			raw:       `{"date":"02/02/2026","start_time":"14:00","end_time":"15:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "存在しない日付",
			raw:       `{"date":"2026-02-30","start_time":"14:00","end_time":"15:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "date",
		},
		{
			name:      "時刻の形式が不正",
			raw:       `{"date":"2026-02-02","start_time":"afternoon","end_time":"15:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "start_time",
		},
		{
			name:      "25時",
			raw:       `{"date":"2026-02-02","start_time":"14:00","end_time":"25:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "end_time",
		},
		{
			name:      "終了が開始より前",
			raw:       `{"date":"2026-02-02","start_time":"15:00","end_time":"14:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "end_time",
		},
		{
			name:      "開始と終了が同じ",
			raw:       `{"date":"2026-02-02","start_time":"15:00","end_time":"15:00","task":"Study","source":"AI"}`,
			wantErr:   true,
			wantField: "end_time",
		},
		{
			name:    "オブジェクトではない",
			raw:     `"Study math"`,
			wantErr: true,
		},
		{
			name:    "JSONではない",
			raw:     `{date: 2026-02-02}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateRecord(json.RawMessage(tt.raw))
			if tt.wantErr {
				var ve *model.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("error = %v, want *model.ValidationError", err)
				}
				if tt.wantField != "" && ve.Field != tt.wantField {
					t.Errorf("Field = %q, want %q (reason: %s)", ve.Field, tt.wantField, ve.Reason)
				}
				if ve.Reason == "" {
					t.Error("Reason should not be empty")
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateRecord returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateRecord = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidator_Validate_TrimsFields(t *testing.T) {
	v := NewValidator()

	got, err := v.Validate(model.Task{
		Date:      " 2026-02-02 ",
		StartTime: " 10:00",
		EndTime:   "11:00 ",
		Name:      "  Gym  ",
		Source:    model.SourceUser,
	})
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	want := model.Task{Date: "2026-02-02", StartTime: "10:00", EndTime: "11:00", Name: "Gym", Source: model.SourceUser}
	if got != want {
		t.Errorf("Validate = %+v, want %+v", got, want)
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"14:00", "14:00", true},
		{"7:05", "07:05", true},
		{"12:00 AM", "00:00", true},
		{"12:15 pm", "12:15", true},
		{"11:59PM", "23:59", true},
		{"13:00 PM", "", false},
		{"14", "", false},
		{"14:5", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := normalizeClock(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("normalizeClock(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
