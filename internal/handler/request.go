package handler

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// maxBodyBytes は利用者ページへのPOSTボディの上限。
const maxBodyBytes = 1 << 20

// 利用者ページのフォーム項目名
const (
	fieldAccept    = "accept_task_btn"
	fieldTaskName  = "task_name"
	fieldStartTime = "start_time"
	fieldEndTime   = "end_time"
	fieldChatInput = "chat_input"
)

// pageRequest は利用者ページへのPOSTを解釈した結果。
// 項目の有無で処理を振り分けるため、存在しない項目はnilとする。
type pageRequest struct {
	Accept    *string
	TaskName  *string
	StartTime string
	EndTime   string
	ChatInput string
}

// parsePageRequest はフォーム形式またはJSON形式のボディを解釈する。
// JSON形式のaccept_task_btnは文字列でも配列そのものでもよい。
func parsePageRequest(w http.ResponseWriter, r *http.Request) (*pageRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return parseJSONRequest(r)
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("フォームの解析に失敗しました: %w", err)
	}

	req := &pageRequest{
		StartTime: r.PostForm.Get(fieldStartTime),
		EndTime:   r.PostForm.Get(fieldEndTime),
		ChatInput: r.PostForm.Get(fieldChatInput),
	}
	if _, ok := r.PostForm[fieldAccept]; ok {
		v := r.PostForm.Get(fieldAccept)
		req.Accept = &v
	}
	if _, ok := r.PostForm[fieldTaskName]; ok {
		v := r.PostForm.Get(fieldTaskName)
		req.TaskName = &v
	}
	return req, nil
}

func parseJSONRequest(r *http.Request) (*pageRequest, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("JSONの解析に失敗しました: %w", err)
	}

	req := &pageRequest{}
	if raw, ok := body[fieldAccept]; ok {
		v, err := acceptValue(raw)
		if err != nil {
			return nil, err
		}
		req.Accept = &v
	}
	if raw, ok := body[fieldTaskName]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%sは文字列で指定してください", fieldTaskName)
		}
		req.TaskName = &v
	}

	for key, dst := range map[string]*string{
		fieldStartTime: &req.StartTime,
		fieldEndTime:   &req.EndTime,
		fieldChatInput: &req.ChatInput,
	} {
		raw, ok := body[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("%sは文字列で指定してください", key)
		}
	}
	return req, nil
}

// acceptValue はaccept_task_btnの値をタスク配列のJSON文字列として取り出す。
func acceptValue(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", fmt.Errorf("%sの解析に失敗しました: %w", fieldAccept, err)
		}
		return v, nil
	}
	return trimmed, nil
}
