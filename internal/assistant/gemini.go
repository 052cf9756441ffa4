package assistant

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Model は外部の言語モデル。
// 指示文とペイロードを渡し、応答テキストを受け取る。
type Model interface {
	Invoke(ctx context.Context, systemInstructions, payload string) (string, error)
}

// GeminiModel はGemini APIを使用したModel実装。
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel はGeminiModelを生成する。クライアントは起動時に1度だけ作成する。
func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Geminiクライアントの生成に失敗しました: %w", err)
	}

	return &GeminiModel{client: client, model: modelName}, nil
}

// Invoke はGenerateContentを呼び出し、応答テキストを返す。
func (m *GeminiModel) Invoke(ctx context.Context, systemInstructions, payload string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model,
		genai.Text(payload),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstructions, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("GenerateContent failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("model returned no candidates")
	}

	return resp.Text(), nil
}
