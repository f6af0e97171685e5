package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/accounts/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Envelope          *middleware.Envelope
	Authenticator     middleware.Authenticator
	CORSAllowedOrigin string
	Metrics           middleware.HTTPRecorder // nilの場合は記録しない
	MetricsHandler    http.Handler            // nilの場合は/metricsを公開しない

	// ヘルスチェック
	HealthChecker HealthChecker

	// サービス
	AuthService  AuthServiceInterface
	UserService  UserServiceInterface
	AdminService AdminServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → Metrics → (BearerAuth)
//
// 登録・ログイン・ヘルスチェックはBearerAuthの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewLoggingMiddleware(deps.Envelope.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Envelope))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Envelope)
	userHandler := NewUserHandler(deps.UserService, deps.Envelope)
	adminHandler := NewAdminHandler(deps.AdminService, deps.Envelope)

	// --- 認証不要のルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator, deps.Envelope))

		r.Post("/logout", authHandler.Logout)

		// ユーザー管理
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Patch("/", userHandler.Update)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Show)
				r.Delete("/", userHandler.SoftDelete)
				r.Patch("/restore", userHandler.Restore)
				r.Delete("/purge", userHandler.Purge)
			})
		})

		// 管理者権限管理
		r.Route("/admins", func(r chi.Router) {
			r.Get("/", adminHandler.List)
			r.Patch("/{id}", adminHandler.SetStatus)
		})
	})

	return r
}
