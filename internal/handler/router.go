package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/authgate/internal/metrics"
	"github.com/hitoshi/authgate/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	AuthHandler       *AuthHandler
	TokenVerifier     middleware.TokenVerifier
	DB                *sql.DB
	Logger            *slog.Logger
	Collector         metrics.AuthCollector
	MetricsGatherer   prometheus.Gatherer
	CORSAllowedOrigin string
}

// NewRouter はアプリケーションのルーターを構築する。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Collector != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Collector))
	}

	// 公開エンドポイント
	r.Get("/hello", deps.AuthHandler.Hello)
	r.Post("/hello", deps.AuthHandler.Hello)
	r.Post("/signup", deps.AuthHandler.Signup)
	r.Post("/login", deps.AuthHandler.Login)
	r.Get("/token/validate", deps.AuthHandler.ValidateToken)
	r.Get("/health", NewHealthHandler(deps.DB))

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.MetricsGatherer))
	}

	// 認証必須エンドポイント
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier))
		pr.Get("/user", deps.AuthHandler.Me)
	})

	return r
}

// NewHealthHandler はヘルスチェックハンドラーを生成する。
// DBが設定されていればpingを行い、到達不能なら503を返す。
func NewHealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
