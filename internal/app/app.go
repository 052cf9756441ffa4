package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/planmate/internal/assistant"
	"github.com/hitoshi/planmate/internal/config"
	"github.com/hitoshi/planmate/internal/conversation"
	"github.com/hitoshi/planmate/internal/handler"
	"github.com/hitoshi/planmate/internal/logger"
	"github.com/hitoshi/planmate/internal/metrics"
	"github.com/hitoshi/planmate/internal/middleware"
	"github.com/hitoshi/planmate/internal/reconcile"
	"github.com/hitoshi/planmate/internal/render"
	"github.com/hitoshi/planmate/internal/schedule"
	"github.com/hitoshi/planmate/internal/userlock"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	if !logger.SetLevel(cfg.LogLevel) {
		slog.Warn("unknown LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストレージ
	st, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 3. 外部モデル
	model, err := assistant.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}

	// 4. ドメインサービスの初期化
	tasks := schedule.NewStore(st.Schedule)
	chat := conversation.NewLog(st.Conversation)
	locks := userlock.New()

	builder := assistant.NewContextBuilder(tasks, chat, cfg.HistoryLimit, cfg.Location)
	turnService := assistant.NewService(builder, chat, model, locks, mc, cfg.ModelTimeout)
	engine := reconcile.NewEngine(tasks, reconcile.NewValidator(), locks, mc, cfg.Location)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitChat),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Metrics:           mc,
		Gatherer:          reg,
		Storage:           st.Pinger,
		Page:              handler.NewPageHandler(turnService, engine, tasks, chat, builder, render.NewRenderer()),
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: serverWriteTimeout(cfg.ModelTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("model", cfg.GeminiModel),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。CSVドライバでは何もしない。
func runMigrate(cfg *config.Config) error {
	dialect, dsn, ok := sqlTarget(cfg)
	if !ok {
		slog.Info("storage driver has no schema, skipping migrations",
			slog.String("storage_driver", cfg.StorageDriver),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("dialect", string(dialect)),
		slog.String("dsn", maskDatabaseURL(dsn)),
	)

	if err := migrateDatabase(dialect, dsn); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

// serverWriteTimeout はモデル呼び出しの上限時間より先に書き込みタイムアウトが来ないよう
// HTTPサーバーの書き込みタイムアウトを決める。
// モデル呼び出しに上限がない場合(0以下)は書き込みタイムアウトも無効にする。
func serverWriteTimeout(modelTimeout time.Duration) time.Duration {
	if modelTimeout <= 0 {
		return 0
	}
	return modelTimeout + 15*time.Second
}
