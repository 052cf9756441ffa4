package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/planmate/internal/metrics"
	"github.com/hitoshi/planmate/internal/model"
	"github.com/hitoshi/planmate/internal/userlock"
)

// UnavailableMessage はモデル呼び出しに失敗したときに返す応答。会話ログには記録しない。
const UnavailableMessage = "The assistant is temporarily unavailable. Please try again in a moment."

// TurnWriter は会話ログへの追記を行う。
// AppendExchangeはユーザー発話とAI応答をまとめて記録し、片方だけを残さない。
type TurnWriter interface {
	AppendExchange(ctx context.Context, userID, userMessage, aiMessage string) error
}

// TurnResult は1ターンの処理結果。
// Degradedがtrueの場合、モデル呼び出しに失敗しておりこのターンは記録されていない。
type TurnResult struct {
	Reply    Reply
	Degraded bool
}

// Service は会話ターンを処理するサービス層。
type Service struct {
	builder *ContextBuilder
	log     TurnWriter
	model   Model
	locks   *userlock.Locker
	metrics metrics.MetricsCollector
	timeout time.Duration
	logger  *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// timeoutが0以下の場合、モデル呼び出しは呼び出し元のコンテキストのみで打ち切られる。
func NewService(
	builder *ContextBuilder,
	log TurnWriter,
	m Model,
	locks *userlock.Locker,
	mc metrics.MetricsCollector,
	timeout time.Duration,
) *Service {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &Service{
		builder: builder,
		log:     log,
		model:   m,
		locks:   locks,
		metrics: mc,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// HandleTurn はユーザー入力1件を処理する。
// 同一ユーザーのターンは直列化され、コンテキスト組み立てからAIターンの記録までロックを保持する。
// ユーザーターンとAIターンはモデル呼び出しの成功後にまとめて記録する。
func (s *Service) HandleTurn(ctx context.Context, userID, input string) (*TurnResult, error) {
	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーロックの取得に失敗しました: %w", err)
	}
	defer unlock()

	payload, err := s.builder.Build(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	body, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	raw, err := s.invoke(ctx, body)
	if err != nil {
		var invErr *model.InvocationError
		reason := metrics.FailureError
		if errors.As(err, &invErr) && invErr.Timeout {
			reason = metrics.FailureTimeout
		}
		s.metrics.RecordModelFailure(reason)
		s.metrics.RecordTurn(metrics.TurnDegraded)
		s.logger.Warn("model invocation failed",
			slog.String("user_id", userID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return &TurnResult{
			Reply:    Reply{Kind: TextReply, Raw: UnavailableMessage},
			Degraded: true,
		}, nil
	}

	reply := Classify(raw)

	// モデル応答を得た後はクライアントの切断で記録を中断しない。
	if err := s.log.AppendExchange(context.WithoutCancel(ctx), userID, input, reply.Raw); err != nil {
		s.logger.Error("failed to log chat exchange",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.metrics.RecordTurn(reply.Kind.String())
	s.logger.Info("turn completed",
		slog.String("user_id", userID),
		slog.String("kind", reply.Kind.String()),
		slog.Int("items", len(reply.Items)),
	)

	return &TurnResult{Reply: reply}, nil
}

// invoke は上限時間付きでモデルを呼び出す。失敗は*model.InvocationErrorで返す。
func (s *Service) invoke(ctx context.Context, payload string) (string, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.model.Invoke(callCtx, SystemInstructions, payload)
	elapsed := time.Since(start)
	s.metrics.RecordModelLatency(elapsed)

	if err != nil {
		return "", &model.InvocationError{
			Err:     err,
			Timeout: errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded),
			Elapsed: elapsed,
		}
	}
	return raw, nil
}
