// Package render は会話ログのメッセージを画面表示用の安全なHTMLに変換する。
//
// アシスタントの応答はMarkdownとしてHTMLに変換し、bluemondayの許可リストで
// サニタイズする。タスク提案（JSON配列）はコードブロックとして表示し、
// ユーザーの発言はHTMLエスケープのみ行う。
package render

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hitoshi/planmate/internal/model"
)

// Renderer はメッセージのHTML変換のインターフェース。
type Renderer interface {
	// Message は発言者に応じてメッセージをHTMLに変換する。
	// 同一入力に対して常に同一出力を返す。
	Message(sender model.Sender, message string) string
}

// markdownRenderer はRendererの実装。
// goldmarkとbluemondayのポリシーは生成時に1度だけ構築し、並行に利用できる。
type markdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer はRendererの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, pre, code, strong, em, h1-h6, table系, a
//   - aタグ: httpとhttpsのみ、target="_blank" と rel="noopener noreferrer" を自動付与
//   - 画像、script、iframe、styleおよびon*イベント属性は除去
func NewRenderer() Renderer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)

	return &markdownRenderer{md: md, policy: p}
}

// Message は発言者に応じてメッセージをHTMLに変換する。
func (r *markdownRenderer) Message(sender model.Sender, message string) string {
	if message == "" {
		return ""
	}
	if sender != model.SenderAI {
		return "<p>" + strings.ReplaceAll(html.EscapeString(message), "\n", "<br>") + "</p>"
	}

	src := message
	if isJSONArray(message) {
		src = "```json\n" + strings.TrimSpace(message) + "\n```"
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "<p>" + html.EscapeString(message) + "</p>"
	}
	return r.policy.Sanitize(buf.String())
}

// isJSONArray はタスク提案として記録されたメッセージかどうかを判定する。
func isJSONArray(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "[") && json.Valid([]byte(s))
}
