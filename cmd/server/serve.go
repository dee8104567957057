package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/yukikurage/project-management-api/internal/auth"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/router"
	"github.com/yukikurage/project-management-api/internal/services"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store, err := newSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	jwtService := auth.NewJWTService([]byte(cfg.JWTSecret), constants.SessionTokenTTL)
	invites := auth.NewInviteTokens([]byte(cfg.InviteSecret), constants.InviteTokenTTL)

	var ai services.TaskGenerator
	if cfg.OpenAIAPIKey != "" {
		ai = services.NewAIService(cfg.OpenAIAPIKey)
	} else {
		log.Warn("OPENAI_API_KEY not set, task generation disabled")
	}

	activity := services.NewActivityService(repository.NewActivityRepository(db), log)
	workspaces := services.NewWorkspaceService(repository.NewWorkspaceRepository(db), invites, activity, cfg.FrontendURL, log)
	projects := services.NewProjectService(repository.NewProjectRepository(db), workspaces, activity)

	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	stop := make(chan struct{})
	defer close(stop)
	go limiter.Run(time.Minute, stop)

	engine := router.New(router.Options{
		Log:          log,
		Verbose:      cfg.Log.Verbose,
		FrontendURL:  cfg.FrontendURL,
		SessionStore: store,
		JWT:          jwtService,
		Limiter:      limiter,
		Auth:         services.NewAuthService(repository.NewUserRepository(db), jwtService, log),
		Workspaces:   workspaces,
		Projects:     projects,
		Tasks:        services.NewTaskService(repository.NewTaskRepository(db), projects, activity, ai),
		Stats:        services.NewStatsService(repository.NewStatsRepository(db), repository.NewProjectRepository(db), workspaces),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", cfg.Addr, "version", version, "db", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	case err := <-errChan:
		return fmt.Errorf("listen: %w", err)
	}
}

// newSessionStore returns a redis store when redis is configured, otherwise
// a cookie store.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	if addr := cfg.Redis.Addr(); addr != "" {
		rs, err := redisStore.NewStore(10, "tcp", addr, "", "", []byte(cfg.SessionSecret))
		if err != nil {
			return nil, err
		}
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(constants.SessionTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}
