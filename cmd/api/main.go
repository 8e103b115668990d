// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskdock/internal/auth"
	"github.com/yourusername/taskdock/internal/config"
	"github.com/yourusername/taskdock/internal/logging"
	"github.com/yourusername/taskdock/internal/middleware"
	"github.com/yourusername/taskdock/internal/tasks"
	"github.com/yourusername/taskdock/internal/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", logging.Err(err))
		os.Exit(1)
	}

	log := logging.Setup(cfg.LogLevel, os.Stdout)
	slog.SetDefault(log)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := setupDeps(ctx, cfg, log)
	if err != nil {
		log.Error("failed to set up dependencies", logging.Err(err))
		os.Exit(1)
	}
	defer deps.Close(log)

	// gin.Default() のロガーは使わず、slog でリクエストを記録する
	router := gin.New()
	// Recovery を内側に置き、パニック時もアクセスログに 500 が残るようにする
	router.Use(middleware.RequestLogger(log), middleware.Recovery())

	// CORSミドルウェアの設定（クッキーを送るため AllowCredentials が必要）
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	router.Use(cors.New(corsConfig))

	if err := setupRoutes(router, cfg, deps); err != nil {
		log.Error("failed to set up routes", logging.Err(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting API server", "addr", srv.Addr, "mode", cfg.GinMode, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped unexpectedly", logging.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logging.Err(err))
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "taskdock-api",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, deps *dependencies) error {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	userService, err := users.NewService(deps.users, cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		return err
	}
	authManager := auth.NewManager(userService, tokens, deps.denylist, deps.audit, auth.Options{
		Secure:       cfg.IsRelease(),
		StoreTimeout: cfg.StoreTimeout,
	})

	api := router.Group("/api")
	api.Use(deps.rateLimiter)
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", authManager.Signup)
			authRoutes.POST("/signin", authManager.Signin)
			authRoutes.POST("/signout", authManager.Signout)
			authRoutes.GET("/me", authManager.RequireSession(), authManager.Me)
		}

		// ユーザーIDは検証済みトークンからのみ取得する
		taskRoutes := api.Group("/tasks")
		taskRoutes.Use(authManager.RequireSession())
		tasks.NewHandler(deps.tasks, cfg.StoreTimeout).Register(taskRoutes)
	}

	// API 以外は画面として扱い、クッキーの有無でリダイレクトしてから配信する
	router.NoRoute(auth.RouteGate(), pageHandler(cfg.StaticDir))
	return nil
}
