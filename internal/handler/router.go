package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kudos/internal/auth"
	"github.com/hitoshi/kudos/internal/geo"
	"github.com/hitoshi/kudos/internal/metrics"
	"github.com/hitoshi/kudos/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 監視（nilの場合は無効）
	HealthChecker   HealthChecker
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	// 認証
	AuthService   AuthServiceInterface
	AuthConfig    AuthHandlerConfig
	ProfileLoader auth.ProfileLoader
	DraftStore    auth.DraftStore

	// 機能
	FeedService        FeedServiceInterface
	LeaderboardService LeaderboardServiceInterface
	ComplimentService  ComplimentServiceInterface
	ConfessionService  ConfessionServiceInterface
	ProfileService     ProfileServiceInterface
	Office             geo.Office
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → CSRF
//	  └ /api/* (認証必須): Session → RateLimit(General) → [RateLimit(AI)]
//
// /health、/metrics、/api/csrf-tokenはCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	var recorder SignInRecorder
	if deps.Metrics != nil {
		recorder = deps.Metrics
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.ProfileLoader, deps.DraftStore, recorder, deps.AuthConfig, logger)
	feedHandler := NewFeedHandler(deps.FeedService)
	leaderboardHandler := NewLeaderboardHandler(deps.LeaderboardService)
	complimentHandler := NewComplimentHandler(deps.ComplimentService)
	confessionHandler := NewConfessionHandler(deps.ConfessionService)
	userHandler := NewUserHandler(deps.ProfileService)
	locationHandler := NewLocationHandler(deps.Office)
	routeHandler := NewRouteHandler(deps.SessionFinder)

	// --- 監視 ---
	r.Get("/health", Health(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// --- 認証不要のルート ---
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.Post("/signout", authHandler.SignOut)
			r.Post("/session/restore", authHandler.RestoreSession)
			r.Get("/me", authHandler.Me)
			r.Get("/confirm", authHandler.ConfirmEmail)
			r.Post("/password/reset", authHandler.ResetPassword)
			r.Post("/password/reset/confirm", authHandler.CompletePasswordReset)
		})

		r.Get("/api/organizations", complimentHandler.ListOrganizations)
		r.Get("/api/route", routeHandler.Resolve)

		// --- 認証が必要なルート ---
		// ミドルウェアスタック: Session → RateLimit(General)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Get("/api/feed", feedHandler.ListFeed)
			r.Get("/api/leaderboard", leaderboardHandler.GetLeaderboard)
			r.Get("/api/users", complimentHandler.ListRecipients)

			// AIを呼び出すエンドポイントには専用のレート制限を追加
			r.Route("/api/compliments", func(r chi.Router) {
				r.Use(deps.RateLimiter.AIMiddleware())
				r.Post("/", complimentHandler.SubmitCompliment)
				r.Post("/enhance", complimentHandler.EnhanceMessage)
			})

			r.Route("/api/confessions", func(r chi.Router) {
				r.Get("/", confessionHandler.ListConfessions)
				r.Post("/", confessionHandler.SubmitConfession)
			})

			r.Route("/api/profile", func(r chi.Router) {
				r.Get("/", userHandler.GetProfile)
				r.Patch("/", userHandler.UpdateProfile)
				r.Put("/password", userHandler.ChangePassword)
				r.Put("/avatar", userHandler.UpdateAvatar)
				r.Get("/compliments", userHandler.ReceivedCompliments)
			})

			r.Post("/api/location/check", locationHandler.CheckLocation)
		})
	})

	return r
}
