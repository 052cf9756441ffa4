package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/planmate/internal/metrics"
	"github.com/hitoshi/planmate/internal/middleware"
	"github.com/hitoshi/planmate/internal/repository"
)

// userIDParam は利用者名のURLパラメータ名。
const userIDParam = "userID"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// ヘルスチェック
	Storage repository.Pinger

	// 利用者ページ
	Page *PageHandler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Recovery → HTTPMetrics → SecurityHeaders → CORS
//	  /{userID}: Identity → RateLimit(General) → RateLimit(Chat, POSTのみ)
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewHTTPMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// --- 固定ルート ---
	r.Get("/", Landing)
	r.Post("/entry", Entry)
	r.Get("/health", NewHealthHandler(deps.Storage))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- 利用者ページ ---
	// ミドルウェアスタック: Identity → RateLimit(General) → RateLimit(Chat)
	r.Route("/{"+userIDParam+"}", func(r chi.Router) {
		r.Use(middleware.NewIdentityMiddleware(userIDParam))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.ChatMiddleware())

		r.Get("/", deps.Page.Get)
		r.Post("/", deps.Page.Post)
	})

	return r
}
