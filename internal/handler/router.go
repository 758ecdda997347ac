package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/dakoku/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger         *slog.Logger
	StatusObserver middleware.StatusObserver
	RateLimiter    *middleware.RateLimiter
	APIToken       string

	// サービス
	RegistrationService RegistrationServiceInterface
	TimeclockService    TimeclockServiceInterface
	CatalogService      CatalogServiceInterface
	AuditService        AuditServiceInterface

	// システム
	Version      string
	StoreChecker StoreChecker

	// /metrics で公開するハンドラー（promhttp）。nilの場合はマウントしない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → (APIルートのみ: APIToken → RateLimit)
//
// /health・/status・/info・/metrics は認証・レート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusObserver))

	regHandler := NewRegistrationHandler(deps.RegistrationService)
	clockHandler := NewTimeclockHandler(deps.TimeclockService)
	catalogHandler := NewCatalogHandler(deps.CatalogService)
	adminHandler := NewAdminHandler(deps.AuditService)
	systemHandler := NewSystemHandler(deps.Version, deps.StoreChecker)

	// --- 認証不要のルート ---

	r.Get("/health", systemHandler.Health)
	r.Get("/status", systemHandler.Status)
	r.Get("/info", systemHandler.Info)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- ボットレイヤー向けルート ---
	// ミドルウェアスタック: APIToken → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPITokenMiddleware(deps.APIToken))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// ユーザー登録管理
		r.Route("/api/users", func(r chi.Router) {
			// POST /api/users - ユーザー登録（登録専用レート制限を追加）
			if deps.RateLimiter != nil {
				r.With(deps.RateLimiter.RegistrationMiddleware()).Post("/", regHandler.Register)
			} else {
				r.Post("/", regHandler.Register)
			}
			r.Get("/", regHandler.ListUsers)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", regHandler.GetUser)
				r.Delete("/", regHandler.Unregister)
			})
		})

		// 打刻操作
		r.Post("/api/clockin", clockHandler.ClockIn)
		r.Post("/api/clockout", clockHandler.ClockOut)
		r.Get("/api/status", clockHandler.Status)
		r.Get("/api/timesheet", clockHandler.Timesheet)

		// カタログ
		r.Get("/api/projects", catalogHandler.ListProjects)
		r.Get("/api/team", catalogHandler.ListTeam)

		// 管理
		r.Route("/admin", func(r chi.Router) {
			r.Get("/logs", adminHandler.ListLogs)
			r.Get("/stats", adminHandler.GetStats)
		})
	})

	return r
}
