package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/A-Yamak/transportation-mvp-sub000/internal/config"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/handler"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/infrastructure/cache"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/infrastructure/database"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/infrastructure/mq"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/job"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/repository"
	"github.com/A-Yamak/transportation-mvp-sub000/internal/service"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/idgen"
	"github.com/A-Yamak/transportation-mvp-sub000/pkg/logger"
)

func main() {
	cfg := config.LoadConfig("config/config.yaml")
	logger.SetLevel(cfg.Log.Level)
	log := logger.Get()

	idgen.Init(1)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)

	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	collectionSvc, err := service.NewCollectionService(db, cfg)
	if err != nil {
		log.Fatalf("failed to build collection service: %v", err)
	}
	reconciliationSvc, err := service.NewReconciliationService(db, redisClient, cfg, collectionSvc)
	if err != nil {
		log.Fatalf("failed to build reconciliation service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, cfg)
	go outboxSender.Start(ctx)

	loc, err := time.LoadLocation(cfg.Business.ReportingTimezone)
	if err != nil {
		log.Fatalf("invalid reporting timezone: %v", err)
	}
	eodReconciler := job.NewEodReconciler(
		repository.NewPaymentRecordRepository(db),
		reconciliationSvc,
		collectionSvc,
		cfg,
		loc,
	)
	go eodReconciler.Start(ctx)

	router := handler.SetupRouter(collectionSvc, reconciliationSvc)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Infof("server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}

	log.Info("server stopped")
}
