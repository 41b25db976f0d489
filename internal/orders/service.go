package orders

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
	"github.com/tathang/foodcourt/internal/redisx"
)

// EventSink is the slice of the kafka producer the service needs; nil sinks
// are skipped so tests and the notifier can run without brokers.
type EventSink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Options struct {
	Created              EventSink
	Cancelled            EventSink
	Cache                *redis.Client
	ServiceName          string
	RestoreStockOnCancel bool
}

type Service struct {
	repo Repository
	log  *zap.Logger
	opts Options
}

func NewService(repo Repository, log *zap.Logger, opts Options) *Service {
	return &Service{repo: repo, log: log, opts: opts}
}

// Create opens an empty PENDING order with a zero total.
func (s *Service) Create(ctx context.Context, userID string) (*Order, error) {
	now := time.Now().UTC()
	o := &Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	s.publish(ctx, s.opts.Created, EventOrderCreated, o.ID, OrderCreatedPayload{OrderID: o.ID, UserID: userID})
	s.log.Info("order created", zap.String("order_id", o.ID), zap.String("user_id", userID))
	return o, nil
}

func (s *Service) Get(ctx context.Context, userID, orderID string) (*Order, []OrderItem, error) {
	o, err := s.authorize(ctx, userID, orderID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ByUser(ctx, userID)
}

func (s *Service) AddItem(ctx context.Context, userID, orderID, productID string, qty int) (*Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.authorize(ctx, userID, orderID); err != nil {
		return nil, err
	}
	o, err := s.repo.AddItem(ctx, orderID, productID, qty)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

func (s *Service) UpdateItemQty(ctx context.Context, userID, orderID, productID string, qty int) (*Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.authorize(ctx, userID, orderID); err != nil {
		return nil, err
	}
	o, err := s.repo.UpdateItemQty(ctx, orderID, productID, qty)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, orderID, productID string) (*Order, error) {
	if _, err := s.authorize(ctx, userID, orderID); err != nil {
		return nil, err
	}
	o, err := s.repo.RemoveItem(ctx, orderID, productID)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

// Confirm validates the order is non-empty. The status enum has no CONFIRMED
// member; the order stays PENDING and settlement is what moves it forward.
func (s *Service) Confirm(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.authorize(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, userID, orderID string) (*Order, error) {
	if _, err := s.authorize(ctx, userID, orderID); err != nil {
		return nil, err
	}
	o, restocked, err := s.repo.Cancel(ctx, orderID, s.opts.RestoreStockOnCancel)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)

	payload := OrderCancelledPayload{OrderID: o.ID, UserID: o.UserID}
	if s.opts.RestoreStockOnCancel {
		for _, it := range restocked {
			payload.Restocked = append(payload.Restocked, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
		}
	}
	s.publish(ctx, s.opts.Cancelled, EventOrderCancelled, o.ID, payload)
	s.log.Info("order cancelled",
		zap.String("order_id", o.ID),
		zap.Bool("stock_restored", s.opts.RestoreStockOnCancel))
	return o, nil
}

// UpdateStatus is the admin path for PAID -> DELIVERING -> COMPLETED.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	o, err := s.repo.UpdateStatus(ctx, orderID, to)
	if err != nil {
		return nil, err
	}
	s.cacheStatus(ctx, o)
	return o, nil
}

type Breakdown struct {
	OrderID       string `json:"order_id"`
	SubtotalCents int64  `json:"subtotal_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
	ItemCount     int    `json:"item_count"`
}

// Calculate prices the order read-only: subtotal, promotion discount, total.
// Nothing is persisted.
func (s *Service) Calculate(ctx context.Context, userID, orderID string) (*Breakdown, error) {
	o, err := s.authorize(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sub := RecomputeTotal(items)
	var discount int64
	if o.PromotionID != "" {
		promo, err := s.repo.PromotionByID(ctx, o.PromotionID)
		if err == nil && promo != nil {
			discount = promo.Discount(sub)
		}
	}
	return &Breakdown{
		OrderID:       o.ID,
		SubtotalCents: sub,
		DiscountCents: discount,
		TotalCents:    sub - discount,
		ItemCount:     len(items),
	}, nil
}

func (s *Service) authorize(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.repo.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrAccessDenied
	}
	return o, nil
}

func (s *Service) cacheStatus(ctx context.Context, o *Order) {
	if s.opts.Cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(map[string]any{"status": o.Status})
	_ = s.opts.Cache.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (s *Service) publish(ctx context.Context, sink EventSink, evType, orderID string, payload any) {
	if sink == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     evType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.opts.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	sink.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(evType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
