package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/planmate/internal/assistant"
	"github.com/hitoshi/planmate/internal/middleware"
	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/reconcile"
	"github.com/hitoshi/planmate/internal/render"
)

// TurnServiceInterface は会話ターンを処理するサービスインターフェース。
type TurnServiceInterface interface {
	// HandleTurn はユーザー入力1件を処理し、分類済みの応答を返す。
	HandleTurn(ctx context.Context, userID, input string) (*assistant.TurnResult, error)
}

// ReconcilerInterface はスケジュールへの書き込みを行うサービスインターフェース。
type ReconcilerInterface interface {
	// AcceptBatch は提案されたタスク配列を承認する。
	AcceptBatch(ctx context.Context, userID, batch string) (*reconcile.AcceptResult, error)
	// AddManual は手入力のタスクを当日の予定として追加する。
	AddManual(ctx context.Context, userID string, in reconcile.ManualEntry) (*reconcile.ManualResult, error)
}

// ScheduleReader は日付を指定してスケジュールを読み込む。
type ScheduleReader interface {
	LoadForDate(ctx context.Context, userID, date string) ([]model.Task, error)
}

// ChatReader は会話ログ全体を読み込む。
type ChatReader interface {
	LoadAll(ctx context.Context, userID string) ([]model.ChatTurn, error)
}

// Calendar は"今日"の日付を返す。
type Calendar interface {
	Today() string
}

// PageHandler は利用者ページのHTTPハンドラー。
type PageHandler struct {
	turns      TurnServiceInterface
	reconciler ReconcilerInterface
	schedule   ScheduleReader
	chat       ChatReader
	calendar   Calendar
	renderer   render.Renderer
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(
	turns TurnServiceInterface,
	reconciler ReconcilerInterface,
	schedule ScheduleReader,
	chat ChatReader,
	calendar Calendar,
	renderer render.Renderer,
) *PageHandler {
	return &PageHandler{
		turns:      turns,
		reconciler: reconciler,
		schedule:   schedule,
		chat:       chat,
		calendar:   calendar,
		renderer:   renderer,
	}
}

// chatMessageResponse は会話ログ1件のAPIレスポンス。
type chatMessageResponse struct {
	Sender      model.Sender `json:"sender"`
	Message     string       `json:"message"`
	MessageHTML string       `json:"message_html"`
	Timestamp   time.Time    `json:"timestamp"`
}

// pageResponse は利用者ページの表示状態。
// PendingTasksはこのリクエストで提案されたタスク配列で、提案がなければnull。
type pageResponse struct {
	UserID       string                `json:"user_id"`
	Today        string                `json:"today"`
	Chat         []chatMessageResponse `json:"chat"`
	Tasks        []model.Task          `json:"tasks"`
	PendingTasks json.RawMessage       `json:"pending_tasks"`
	Notice       string                `json:"notice"`
}

// Get は利用者ページの表示状態を返す。
// GET /{userID}
func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.writeView(w, r, userID, nil, "")
}

// Post は利用者ページへの送信を処理する。
// 振り分けの優先順位は accept_task_btn、task_name、chat_input の順。
// POST /{userID}
func (h *PageHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	req, err := parsePageRequest(w, r)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	switch {
	case req.Accept != nil:
		h.acceptBatch(w, r, userID, *req.Accept)
	case req.TaskName != nil:
		h.addManual(w, r, userID, req)
	default:
		h.chatTurn(w, r, userID, strings.TrimSpace(req.ChatInput))
	}
}

func (h *PageHandler) acceptBatch(w http.ResponseWriter, r *http.Request, userID, batch string) {
	result, err := h.reconciler.AcceptBatch(r.Context(), userID, batch)
	if err != nil {
		slog.Error("failed to accept task batch",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, err)
		return
	}

	notice := ""
	if result.Rejected != nil {
		notice = fmt.Sprintf("%d件のタスクを追加しました。%s のため残りは追加していません。",
			result.Appended, result.Rejected.Error())
	}
	h.writeView(w, r, userID, nil, notice)
}

func (h *PageHandler) addManual(w http.ResponseWriter, r *http.Request, userID string, req *pageRequest) {
	_, err := h.reconciler.AddManual(r.Context(), userID, reconcile.ManualEntry{
		Name:      *req.TaskName,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		slog.Error("failed to add manual task",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, err)
		return
	}
	h.writeView(w, r, userID, nil, "")
}

func (h *PageHandler) chatTurn(w http.ResponseWriter, r *http.Request, userID, input string) {
	if input == "" {
		h.writeView(w, r, userID, nil, "")
		return
	}

	result, err := h.turns.HandleTurn(r.Context(), userID, input)
	if err != nil {
		slog.Error("failed to handle chat turn",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, err)
		return
	}

	if result.Degraded {
		h.writeView(w, r, userID, nil, result.Reply.Raw)
		return
	}

	var pending json.RawMessage
	if result.Reply.Kind == assistant.TaskBatch && len(result.Reply.Items) > 0 {
		pending = json.RawMessage(strings.TrimSpace(result.Reply.Raw))
	}
	h.writeView(w, r, userID, pending, "")
}

// writeView は最新の会話ログと当日のスケジュールを読み込んで表示状態を書き込む。
func (h *PageHandler) writeView(w http.ResponseWriter, r *http.Request, userID string, pending json.RawMessage, notice string) {
	ctx := r.Context()
	today := h.calendar.Today()

	turns, err := h.chat.LoadAll(ctx, userID)
	if err != nil {
		slog.Error("failed to load chat", slog.String("user_id", userID), slog.String("error", err.Error()))
		middleware.WriteError(w, err)
		return
	}
	tasks, err := h.schedule.LoadForDate(ctx, userID, today)
	if err != nil {
		slog.Error("failed to load schedule", slog.String("user_id", userID), slog.String("error", err.Error()))
		middleware.WriteError(w, err)
		return
	}

	chat := make([]chatMessageResponse, 0, len(turns))
	for _, t := range turns {
		chat = append(chat, chatMessageResponse{
			Sender:      t.Sender,
			Message:     t.Message,
			MessageHTML: h.renderer.Message(t.Sender, t.Message),
			Timestamp:   t.Timestamp,
		})
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(pageResponse{
		UserID:       userID,
		Today:        today,
		Chat:         chat,
		Tasks:        tasks,
		PendingTasks: pending,
		Notice:       notice,
	})
}

// userID はIdentityMiddlewareが注入したユーザーIDを取り出す。
func (h *PageHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserError("", "利用者名が指定されていません"))
		return "", false
	}
	return userID, true
}
