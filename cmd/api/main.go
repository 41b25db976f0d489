package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/config"
	"github.com/tathang/foodcourt/internal/httpx"
	"github.com/tathang/foodcourt/internal/kafka"
	"github.com/tathang/foodcourt/internal/logging"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/payos"
	"github.com/tathang/foodcourt/internal/postgres"
	"github.com/tathang/foodcourt/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.ServiceName)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers outlive the signal context: handlers keep publishing while
	// srv.Shutdown drains requests, so intake must stay open until after
	// Shutdown returns and only Close stops it.
	prodCtx, stopProducers := context.WithCancel(context.Background())
	defer stopProducers()
	createdProducer := kafka.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 256)
	paidProducer := kafka.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 256)
	cancelledProducer := kafka.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 256)
	createdProducer.Start(prodCtx)
	paidProducer.Start(prodCtx)
	cancelledProducer.Start(prodCtx)

	orderRepo := &postgres.OrderRepo{DB: db}
	billRepo := &postgres.BillRepo{DB: db}
	catalogRepo := &postgres.CatalogRepo{DB: db}
	userRepo := &postgres.UserRepo{DB: db}

	orderSvc := orders.NewService(orderRepo, logger, orders.Options{
		Created:              createdProducer,
		Cancelled:            cancelledProducer,
		Cache:                rdb,
		ServiceName:          cfg.ServiceName,
		RestoreStockOnCancel: cfg.RestoreStockOnCancel,
	})
	billSvc := billing.NewService(billRepo, logger, billing.Options{
		Paid:        paidProducer,
		Cache:       rdb,
		ServiceName: cfg.ServiceName,
	})
	gateway := payos.NewClient(cfg.PayOS, cfg.BaseURL, billSvc, orderRepo, logger)
	authSvc := auth.NewService(userRepo, auth.NewRedisTokenStore(rdb), auth.NewSMTPSender(cfg.SMTP), logger, auth.Options{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		OTPTTL:    cfg.OTPTTL,
	})

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewRouter(httpx.Deps{
			Catalog:   catalogRepo,
			Orders:    orderSvc,
			Billing:   billSvc,
			Gateway:   gateway,
			Auth:      authSvc,
			JWTSecret: cfg.JWTSecret,
			Log:       logger,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}

	// handlers are drained, now stop intake and flush buffered events
	createdProducer.Close()
	paidProducer.Close()
	cancelledProducer.Close()
	createdProducer.WaitClosed()
	paidProducer.WaitClosed()
	cancelledProducer.WaitClosed()
	logger.Info("bye")
}
