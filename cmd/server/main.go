package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CeoSolace/stealth-bte/internal/api"
	"github.com/CeoSolace/stealth-bte/internal/bot"
	"github.com/CeoSolace/stealth-bte/internal/config"
	"github.com/CeoSolace/stealth-bte/internal/handler"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/kafka"
	"github.com/CeoSolace/stealth-bte/internal/infrastructure/redis"
	"github.com/CeoSolace/stealth-bte/internal/observability"
	core "github.com/CeoSolace/stealth-bte/internal/repository/postgres"
	service "github.com/CeoSolace/stealth-bte/internal/services"
	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	shutdown, metricsHandler := observability.Setup("arena-service")
	defer shutdown(context.Background())

	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer db.Close()
	if err := core.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	userRepo := core.NewPostgresUserRepository(db)
	ledgerRepo := core.NewPostgresLedgerRepository(db)
	matchRepo := core.NewPostgresMatchRepository(db)
	reportRepo := core.NewPostgresReportRepository(db)
	banRepo := core.NewPostgresBanRepository(db)
	codeRepo := core.NewPostgresCreatorCodeRepository(db)

	redisClient, err := redis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	producer := kafka.NewProducer(cfg.KafkaBrokers)
	defer producer.Close()

	ledgerSvc := service.NewLedgerService(ledgerRepo, userRepo, redisClient, producer)
	userSvc := service.NewUserService(userRepo, banRepo, matchRepo)
	matchSvc := service.NewMatchService(matchRepo, userRepo, reportRepo, ledgerSvc, userSvc, producer)
	reportSvc := service.NewReportService(reportRepo, banRepo, userRepo, matchRepo)
	withdrawSvc := service.NewWithdrawService(ledgerSvc)
	paymentSvc := service.NewPaymentService(userRepo, codeRepo, ledgerSvc, redisClient)

	// Consumers watch this context; cancelling it stops their loops
	// before the deferred Close calls tear the readers down.
	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	paymentConsumer := kafka.NewPaymentConsumer(cfg.KafkaBrokers, "arena-service-payments", paymentSvc)
	botConsumer := bot.NewConsumer(cfg.KafkaBrokers, "arena-service-bot",
		producer, bot.NewExecutor(userSvc, ledgerSvc))
	go paymentConsumer.Consume(consumerCtx)
	go botConsumer.Consume(consumerCtx)
	defer paymentConsumer.Close()
	defer botConsumer.Close()

	h := handler.New(userSvc, matchSvc, reportSvc, withdrawSvc, paymentSvc, ledgerSvc, redisClient, cfg)
	router := api.SetupRouter(h, redisClient, cfg.JWTSecret, metricsHandler)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		log.Printf("Starting server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	stopConsumers()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}
	log.Println("Server stopped")
}
