package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/hrportal/internal/metrics"
	"github.com/hitoshi/hrportal/internal/middleware"
	"github.com/hitoshi/hrportal/internal/notify"
	"github.com/hitoshi/hrportal/internal/ratelimit"
)

// healthCheckTimeout は/healthでのDB疎通確認の上限時間。
const healthCheckTimeout = 2 * time.Second

// ServiceInterface はルーターに登録する全ハンドラーが使用するサービス。
// duty.Serviceが実装する。
type ServiceInterface interface {
	DutyServiceInterface
	WorkingHoursServiceInterface
	ExportServiceInterface
}

// HealthChecker はDBの疎通確認を行う。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Service  ServiceInterface
	Notifier notify.Notifier

	// ミドルウェア依存
	Limiters      *ratelimit.Set
	AdminToken    string
	HTTPRecorder  middleware.HTTPRecorder
	LimitRecorder middleware.LimitRecorder

	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	Logger *slog.Logger
	Now    func() time.Time
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → SecurityHeaders → RateLimit(API)
//
// 管理者ルートはさらにAdmin（認証失敗をauthリミッターで計数）を通る。
// /healthと/metricsはAPIのレート制限の対象外。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	dutyHandler := NewDutyHandler(deps.Service, logger)
	hoursHandler := NewWorkingHoursHandler(deps.Service, logger, deps.Now)
	exportHandler := NewExportHandler(deps.Service, logger, deps.Now)
	notifyHandler := NewNotificationHandler(deps.Notifier, logger, deps.Service.Location())

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API ---
	// ミドルウェアスタック: RateLimit(API)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewRateLimitMiddleware(deps.Limiters.API, logger, deps.LimitRecorder))
		admin := middleware.NewAdminMiddleware(deps.AdminToken, deps.Limiters.Auth, logger)

		r.Route("/api/employees/{id}", func(r chi.Router) {
			r.Get("/", dutyHandler.GetEmployee)
			r.Post("/duty/start", dutyHandler.StartDuty)
			r.Post("/duty/end", dutyHandler.EndDuty)

			r.Route("/working-hours", func(r chi.Router) {
				r.Get("/", hoursHandler.List)
				r.With(admin).Post("/", hoursHandler.Create)
				r.With(admin).Put("/{entryID}", hoursHandler.Update)
				r.With(admin).Delete("/{entryID}", hoursHandler.Delete)
			})
		})

		// GET /api/working-hours/export - エクスポート専用レート制限を追加
		r.With(admin, middleware.NewRateLimitMiddleware(deps.Limiters.Export, logger, deps.LimitRecorder)).
			Get("/api/working-hours/export", exportHandler.Export)

		r.With(admin).Post("/api/requests/{kind}/notifications", notifyHandler.Relay)
	})

	return r
}

// healthHandler はDBへの疎通を確認する。checkerがnilの場合は常に200を返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
