package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"ourfish-bknd/internal/auth"
	"ourfish-bknd/internal/config"
	"ourfish-bknd/internal/dataset"
	"ourfish-bknd/internal/handlers"
	"ourfish-bknd/internal/logger"
	mdlwr "ourfish-bknd/internal/middleware"
	"ourfish-bknd/internal/services"
	"ourfish-bknd/internal/session"
)

// NewRouter wires the API. db is only used for accounts and may be nil when
// auth is disabled.
func NewRouter(db *bun.DB, snap *dataset.Snapshot, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mdlwr.RequestLogger(logr.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	store := session.NewStore(cfg.SessionTTL, cfg.MaxSessions)
	dashSvc := services.NewDashboardService(snap, store, cfg.DefaultWindowMonths, logr.Logger)
	dashHandler := handlers.NewDashboardHandler(dashSvc, logr.Logger)
	geoHandler := handlers.NewGeoHandler(dashSvc, logr.Logger)

	var authMW *mdlwr.AuthMiddleware
	var authHandler *handlers.AuthHandler
	if cfg.AuthEnabled {
		jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
		if err != nil {
			logr.Fatal("failed to init jwt manager", zap.Error(err))
		}
		authSvc := services.NewAuthService(db, jwtMgr, cfg, logr)
		authMW = mdlwr.NewAuthMiddleware(jwtMgr, authSvc, logr.Logger)
		authHandler = handlers.NewAuthHandler(authSvc, logr, cfg)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if authHandler != nil {
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.LoginLocal)
				r.Post("/ldap", authHandler.LoginLDAP)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)
			})
		}

		r.Group(func(r chi.Router) {
			if authMW != nil {
				r.Use(authMW.JWTAuth)
			}
			r.Use(mdlwr.Session(cfg.SessionTTL))

			r.Get("/geo/{level}", geoHandler.ListNodes)

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/state", dashHandler.GetState)
				r.Post("/selection", dashHandler.UpdateSelection)
				r.Post("/apply", dashHandler.Apply)
				r.Get("/tables", dashHandler.GetTables)
				r.Get("/tables/{name}", dashHandler.GetTable)
				r.Get("/map", dashHandler.GetMap)
				r.Get("/charts/{name}", dashHandler.GetChart)
				r.Get("/export", dashHandler.Export)
			})
		})
	})

	return r
}
