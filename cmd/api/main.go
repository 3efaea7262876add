package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-book-reservation/internal/api"
	"github.com/sanosuguru/go-book-reservation/internal/api/handler"
	custommw "github.com/sanosuguru/go-book-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-book-reservation/internal/application"
	"github.com/sanosuguru/go-book-reservation/internal/config"
	"github.com/sanosuguru/go-book-reservation/internal/infrastructure/auth"
	"github.com/sanosuguru/go-book-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-book-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-book-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-book-reservation/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(os.Getenv("APP_ENV"))
	logger.Set(log)
	defer logger.Sync()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis（分散ロックと在庫キャッシュ。無効化されていれば行ロックのみで動く）
	var (
		lockManager *redisinfra.LockManager
		unitsCache  *redisinfra.UnitsCache
	)
	redisClient := redisinfra.NewClient(&cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisinfra.Ping(ctx, redisClient); err != nil {
		logger.Warn("Redis接続に失敗（ロックなしで継続）", zap.Error(err))
	} else {
		lockManager = redisinfra.NewLockManager(redisClient)
		unitsCache = redisinfra.NewUnitsCache(redisClient)
	}
	cancel()

	// メトリクス
	m := metrics.Init()

	// リポジトリ
	txManager := postgres.NewTxManager(db)
	bookRepo := postgres.NewBookRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	queueRepo := postgres.NewQueueRepository(db)
	revocations := auth.NewRevocationStore(db)

	// サービス
	eligibility := application.NewEligibilityChecker(customerRepo, reservationRepo)
	reservationService := application.NewReservationService(
		txManager, bookRepo, customerRepo, reservationRepo, queueRepo,
		eligibility, lockManager, unitsCache, m,
	)
	subscriptionService := application.NewSubscriptionService(txManager, customerRepo)
	bookService := application.NewBookService(bookRepo, unitsCache)
	adminService := application.NewAdminService(bookRepo, customerRepo, reservationRepo, queueRepo, revocations)

	// 認証
	verifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommw.SetupMiddleware(e, m)

	// ハンドラー
	reservationHandler := handler.NewReservationHandler(reservationService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	bookHandler := handler.NewBookHandler(bookService)
	adminHandler := handler.NewAdminHandler(adminService, reservationService)
	healthHandler := handler.NewHealthHandler(
		func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) },
	)

	// ルーティング
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")
	v1.GET("/health", healthHandler.Check)

	authed := v1.Group("", custommw.Authenticate(verifier, revocations))
	authed.GET("/books", bookHandler.List)
	authed.GET("/books/:id", bookHandler.GetByID)
	authed.GET("/books/:id/availability", bookHandler.Availability)
	authed.GET("/books/:book_id/queue-position", reservationHandler.QueuePosition)
	authed.POST("/reservations", reservationHandler.Create)
	authed.GET("/reservations/:id", reservationHandler.GetByID)
	authed.POST("/subscription/upgrade", subscriptionHandler.Upgrade)
	authed.GET("/subscription", subscriptionHandler.Info)
	authed.POST("/wallet/topup", subscriptionHandler.TopUp)
	authed.GET("/wallet", subscriptionHandler.Balance)

	admin := authed.Group("/admin", custommw.RequireAdmin())
	admin.POST("/books", bookHandler.Create)
	admin.POST("/reservations/:id/end", adminHandler.EndReservation)
	admin.GET("/books/:id/status", adminHandler.BookStatus)
	admin.POST("/revoke-token/:customer_id", adminHandler.RevokeToken)

	// 満了予約スイーパー
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	sweeper := worker.NewExpiredReservationSweeper(reservationService, cfg.Worker.SweepInterval)
	go sweeper.Start(sweeperCtx)

	// サーバー起動
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	sweeperCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
