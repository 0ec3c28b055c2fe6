package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/hrportal/internal/cache"
	"github.com/hitoshi/hrportal/internal/config"
	"github.com/hitoshi/hrportal/internal/database"
	"github.com/hitoshi/hrportal/internal/duty"
	"github.com/hitoshi/hrportal/internal/handler"
	"github.com/hitoshi/hrportal/internal/logger"
	"github.com/hitoshi/hrportal/internal/metrics"
	"github.com/hitoshi/hrportal/internal/notify"
	"github.com/hitoshi/hrportal/internal/ratelimit"
	"github.com/hitoshi/hrportal/internal/remote"
	"github.com/hitoshi/hrportal/internal/repository"
	"github.com/hitoshi/hrportal/internal/worker/sweep"
)

// shutdownTimeout はグレースフルシャットダウンの待機上限。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// APP_ENV=developmentの場合はDebugレベルのログに切り替える。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	log := logger.SetupDefault(w, false)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.IsDevelopment() {
		log = logger.SetupDefault(w, true)
	}
	return cfg, log, nil
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

	cfg, log, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("timezone", cfg.Timezone),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log)
	default:
		return runServe(cfg, log)
	}
}

// server はserveモードで組み立てたコンポーネント一式。
type server struct {
	handler  http.Handler
	sweep    *sweep.Job
	registry *prometheus.Registry
}

// newServer はDB接続から上の全依存関係をワイヤリングする。
//
// 依存関係の順序:
//
//	repositories → cache/limiters → remote client → notifier → duty service → router
func newServer(cfg *config.Config, db *sql.DB, log *slog.Logger) *server {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. リポジトリの初期化
	employeeRepo := repository.NewPostgresEmployeeRepo(db)
	hoursRepo := repository.NewPostgresWorkingHoursRepo(db)

	// 3. キャッシュとレートリミッター
	store := cache.New[any](cfg.CacheTTL)
	limiters := ratelimit.NewSet(cfg.RateLimits)

	// 4. リモート呼び出しのオーケストレーター
	client := remote.NewClient(store, limiters.Store, remote.Config{
		Timeout:     cfg.RequestTimeout,
		Attempts:    cfg.RequestAttempts,
		BaseBackoff: remote.DefaultBaseBackoff,
	},
		remote.WithRecorder(collector),
		remote.WithLogger(log),
	)

	// 5. 通知
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Webhooks.Empty() {
		log.Warn("no webhook configured, notifications are disabled")
	} else {
		notifier = notify.NewDiscord(
			notify.NewSafeClient(cfg.RequestTimeout),
			cfg.Webhooks,
			log,
			notify.WithLimiter(limiters.Notify),
			notify.WithLocation(cfg.Location),
		)
	}

	// 6. ドメインサービス
	service := duty.NewService(employeeRepo, hoursRepo, client, notifier,
		duty.WithLocation(cfg.Location),
		duty.WithRecorder(collector),
		duty.WithLogger(log),
	)

	// 7. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Service:       service,
		Notifier:      notifier,
		Limiters:      limiters,
		AdminToken:    cfg.AdminToken,
		HTTPRecorder:  collector,
		LimitRecorder: collector,
		HealthChecker: db,
		Gatherer:      registry,
		Logger:        log,
	})

	return &server{
		handler:  router,
		sweep:    sweep.NewJob(limiters, store, log),
		registry: registry,
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと掃除ジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config, log *slog.Logger) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established")

	srv := newServer(cfg, db, log)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.sweep.Start(ctx, cfg.SweepInterval)

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
