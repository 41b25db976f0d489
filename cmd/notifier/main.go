package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/config"
	"github.com/tathang/foodcourt/internal/kafka"
	"github.com/tathang/foodcourt/internal/logging"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/postgres"
	"github.com/tathang/foodcourt/internal/redisx"
)

// notifier consumes order settlement events and mails a receipt to the
// customer. Offsets are committed only after the mail is handed off, so a
// crash replays the event; redis dedup keeps the replay from double-sending.
// The replay guarantee assumes NOTIFIER_WORKERS (default 1) stays at one
// worker per partition.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.New(cfg.ServiceName + "-notifier")
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

	users := &postgres.UserRepo{DB: db}
	mail := auth.NewSMTPSender(cfg.SMTP)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, orders.TopicOrderPaid, cfg.NotifierWorkers)

	handler := func(ctx context.Context, m kafkago.Message) error {
		var env orders.Envelope
		if err := json.Unmarshal(m.Value, &env); err != nil {
			logger.Error("malformed envelope, skipping", zap.Error(err))
			return nil // commit, a retry cannot fix a bad payload
		}
		if env.EventType != orders.EventOrderPaid {
			return nil
		}

		dedupKey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
		seen, err := redisx.Exists(ctx, rdb, dedupKey)
		if err != nil {
			return err
		}
		if seen {
			logger.Info("event already handled", zap.String("event_id", env.EventID))
			return nil
		}

		p, err := kafka.UnwrapPayload[orders.OrderPaidPayload](env.Payload)
		if err != nil {
			logger.Error("undecodable payload, skipping", zap.Error(err))
			return nil
		}

		u, err := users.ByID(ctx, p.UserID)
		if err != nil {
			logger.Error("user lookup failed", zap.String("user_id", p.UserID), zap.Error(err))
			return err
		}

		subject := fmt.Sprintf("Receipt for order %s", p.OrderID)
		body := fmt.Sprintf(
			"Hi %s,\r\n\r\nWe received your payment of %d.%02d via %s for order %s.\r\n\r\nThank you!\r\n",
			u.Username, p.AmountCents/100, p.AmountCents%100, p.PaymentMethod, p.OrderID,
		)
		if err := mail.Send(u.Email, subject, body); err != nil {
			logger.Error("receipt mail failed", zap.String("order_id", p.OrderID), zap.Error(err))
			return err
		}

		if err := rdb.Set(ctx, dedupKey, "1", redisx.TTLDedup).Err(); err != nil {
			logger.Warn("dedup mark failed", zap.Error(err))
		}
		logger.Info("receipt sent",
			zap.String("order_id", p.OrderID),
			zap.String("to", u.Email),
			zap.Int64("amount_cents", p.AmountCents))
		return nil
	}

	logger.Info("notifier consuming",
		zap.String("topic", orders.TopicOrderPaid),
		zap.String("group", cfg.NotifierGroup),
		zap.Int("workers", cfg.NotifierWorkers))

	if err := consumer.Start(ctx, handler); err != nil {
		log.Fatalf("consumer: %v", err)
	}
	logger.Info("bye")
}
