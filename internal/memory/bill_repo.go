package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/orders"
)

// billing.Repository

func (s *Store) CreateBill(ctx context.Context, orderID string, method billing.PaymentMethod) (*billing.Bill, *orders.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil, orders.ErrNotFound
	}
	if o.Status != orders.StatusPending {
		return nil, nil, orders.ErrInvalidTransition
	}
	if _, exists := s.bills[orderID]; exists {
		return nil, nil, billing.ErrDuplicate
	}
	if len(s.items[orderID]) == 0 {
		return nil, nil, orders.ErrEmpty
	}

	bill := &billing.Bill{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Method:      method,
		Status:      billing.StatusPending,
		AmountCents: o.TotalCents,
		IssuedAt:    time.Now().UTC(),
	}
	if method.Synchronous() {
		bill.Status = billing.StatusCompleted
		o.Status = orders.StatusPaid
		o.UpdatedAt = time.Now().UTC()
	}
	s.bills[orderID] = bill

	bc, oc := *bill, *o
	return &bc, &oc, nil
}

func (s *Store) CreateGatewayBill(ctx context.Context, orderID string, orderCode, amountCents int64, checkoutURL string) (*billing.Bill, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[orderID]; !ok {
		return nil, orders.ErrNotFound
	}
	if _, exists := s.bills[orderID]; exists {
		return nil, billing.ErrDuplicate
	}
	bill := &billing.Bill{
		ID:               uuid.NewString(),
		OrderID:          orderID,
		Method:           billing.MethodPayOS,
		Status:           billing.StatusPending,
		AmountCents:      amountCents,
		GatewayOrderCode: orderCode,
		CheckoutURL:      checkoutURL,
		IssuedAt:         time.Now().UTC(),
	}
	s.bills[orderID] = bill
	s.billsByCode[orderCode] = orderID

	cp := *bill
	return &cp, nil
}

func (s *Store) ByOrder(ctx context.Context, orderID string) (*billing.Bill, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[orderID]
	if !ok {
		return nil, billing.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) PendingGatewayBill(ctx context.Context, orderID string) (*billing.Bill, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[orderID]
	if !ok || b.Method != billing.MethodPayOS || b.Status != billing.StatusPending {
		return nil, billing.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) SettleByOrderCode(ctx context.Context, orderCode int64) (*billing.Bill, *orders.Order, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	orderID, ok := s.billsByCode[orderCode]
	if !ok {
		return nil, nil, false, billing.ErrNotFound
	}
	b := s.bills[orderID]
	o := s.orders[orderID]

	if b.Status != billing.StatusPending {
		bc, oc := *b, *o
		return &bc, &oc, false, nil
	}

	b.Status = billing.StatusCompleted
	if o.Status == orders.StatusPending {
		o.Status = orders.StatusPaid
		o.UpdatedAt = time.Now().UTC()
	}
	bc, oc := *b, *o
	return &bc, &oc, true, nil
}

func (s *Store) FailPendingGatewayBill(ctx context.Context, orderID string) (*billing.Bill, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[orderID]
	if !ok || b.Method != billing.MethodPayOS || b.Status != billing.StatusPending {
		return nil, billing.ErrNotFound
	}
	b.Status = billing.StatusFailed
	cp := *b
	return &cp, nil
}
