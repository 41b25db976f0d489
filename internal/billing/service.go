package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/tathang/foodcourt/internal/kafka"
	"github.com/tathang/foodcourt/internal/orders"
	"github.com/tathang/foodcourt/internal/redisx"
)

type Options struct {
	Paid        orders.EventSink // order.paid sink, may be nil
	Cache       *redis.Client    // may be nil
	ServiceName string
}

type Service struct {
	repo Repository
	log  *zap.Logger
	opts Options
}

func NewService(repo Repository, log *zap.Logger, opts Options) *Service {
	return &Service{repo: repo, log: log, opts: opts}
}

// CreateBill settles CASH/MOMO orders on the spot; the caller routes PAYOS
// through the gateway adapter instead.
func (s *Service) CreateBill(ctx context.Context, orderID string, method PaymentMethod) (*Bill, error) {
	bill, o, err := s.repo.CreateBill(ctx, orderID, method)
	if err != nil {
		return nil, err
	}
	if bill.Status == StatusCompleted {
		s.afterSettle(ctx, bill, o)
	}
	s.log.Info("bill created",
		zap.String("bill_id", bill.ID),
		zap.String("order_id", orderID),
		zap.String("method", string(method)),
		zap.String("status", string(bill.Status)))
	return bill, nil
}

// CreateGatewayBill records the PENDING PAYOS bill once the gateway has
// accepted a payment-link request.
func (s *Service) CreateGatewayBill(ctx context.Context, orderID string, orderCode, amountCents int64, checkoutURL string) (*Bill, error) {
	bill, err := s.repo.CreateGatewayBill(ctx, orderID, orderCode, amountCents, checkoutURL)
	if err != nil {
		return nil, err
	}
	s.log.Info("gateway bill created",
		zap.String("bill_id", bill.ID),
		zap.String("order_id", orderID),
		zap.Int64("order_code", orderCode))
	return bill, nil
}

func (s *Service) BillByOrder(ctx context.Context, orderID string) (*Bill, error) {
	return s.repo.ByOrder(ctx, orderID)
}

func (s *Service) PendingGatewayBill(ctx context.Context, orderID string) (*Bill, error) {
	return s.repo.PendingGatewayBill(ctx, orderID)
}

// Settle is the webhook path: idempotent, PENDING -> COMPLETED only.
func (s *Service) Settle(ctx context.Context, orderCode int64) (*Bill, bool, error) {
	bill, o, changed, err := s.repo.SettleByOrderCode(ctx, orderCode)
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.afterSettle(ctx, bill, o)
		s.log.Info("bill settled",
			zap.String("bill_id", bill.ID),
			zap.String("order_id", bill.OrderID),
			zap.Int64("order_code", orderCode))
	} else {
		s.log.Info("settle replay ignored",
			zap.String("bill_id", bill.ID),
			zap.Int64("order_code", orderCode))
	}
	return bill, changed, nil
}

func (s *Service) FailPendingGatewayBill(ctx context.Context, orderID string) (*Bill, error) {
	bill, err := s.repo.FailPendingGatewayBill(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.log.Info("gateway bill failed", zap.String("bill_id", bill.ID), zap.String("order_id", orderID))
	return bill, nil
}

func (s *Service) afterSettle(ctx context.Context, bill *Bill, o *orders.Order) {
	if s.opts.Cache != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		b, _ := json.Marshal(map[string]any{"status": o.Status})
		_ = s.opts.Cache.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	if s.opts.Paid == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderPaid,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.opts.ServiceName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderPaidPayload{
			OrderID:       o.ID,
			UserID:        o.UserID,
			BillID:        bill.ID,
			PaymentMethod: string(bill.Method),
			AmountCents:   bill.AmountCents,
		}),
	}
	s.opts.Paid.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPaid)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
