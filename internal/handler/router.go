package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/fechamento/internal/metrics"
	"github.com/hitoshi/fechamento/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// サービス
	AuthService      AuthServiceInterface
	ClosingService   ClosingServiceInterface
	SelectionService SelectionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 未認証ルート（ログイン、パスワードリセット）にはIP単位のレート制限を、
// それ以外の/api/*にはトークン認証を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	closingHandler := NewClosingHandler(deps.ClosingService)
	selectionHandler := NewSelectionHandler(deps.SelectionService)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.AuthMiddleware())

		r.Post("/api/login", authHandler.Login)
		r.Post("/api/forgot-password", authHandler.ForgotPassword)
		r.Post("/api/reset-password", authHandler.ResetPassword)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenAuthMiddleware(deps.AuthService))

		r.Get("/api/me", authHandler.Me)

		r.Route("/api/selecionado", func(r chi.Router) {
			r.Get("/", selectionHandler.GetSelection)
			r.Put("/", selectionHandler.SetSelection)
		})

		r.Route("/api/fechamentos", func(r chi.Router) {
			r.Get("/", closingHandler.ListClosings)
			r.Post("/", closingHandler.CreateClosings)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/dia/{day}", closingHandler.SetDayValue)
				r.Put("/meta", closingHandler.UpdateGoals)
				r.Put("/dias-trabalhados", closingHandler.UpdateDaysWorked)
			})
		})
	})

	return r
}
