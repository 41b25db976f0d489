package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/orders"
)

// orders.Repository

func (s *Store) Create(ctx context.Context, o *orders.Order) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.orders[o.ID] = &cp
	s.items[o.ID] = make(map[string]*orders.OrderItem)
	return nil
}

func (s *Store) ByID(ctx context.Context, id string) (*orders.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderLocked(id)
}

func (s *Store) orderLocked(id string) (*orders.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *Store) ByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *Store) Items(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return nil, orders.ErrNotFound
	}
	return s.itemsLocked(orderID), nil
}

func (s *Store) itemsLocked(orderID string) []orders.OrderItem {
	var out []orders.OrderItem
	for _, pid := range s.itemOrder[orderID] {
		if it, ok := s.items[orderID][pid]; ok {
			out = append(out, *it)
		}
	}
	return out
}

func (s *Store) recomputeLocked(orderID string) *orders.Order {
	o := s.orders[orderID]
	o.TotalCents = orders.RecomputeTotal(s.itemsLocked(orderID))
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp
}

func (s *Store) AddItem(ctx context.Context, orderID, productID string, qty int) (*orders.Order, error) {
	_ = ctx
	if qty <= 0 {
		return nil, orders.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}
	p, ok := s.products[productID]
	if !ok || p.Archived {
		return nil, catalog.ErrNotFound
	}
	if p.Stock < qty {
		return nil, orders.ErrInsufficientStock
	}

	if it, ok := s.items[orderID][productID]; ok {
		it.Qty += qty
		it.PriceCents = p.PriceCents
	} else {
		s.items[orderID][productID] = &orders.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   productID,
			ProductName: p.Name,
			Qty:         qty,
			PriceCents:  p.PriceCents,
		}
		s.itemOrder[orderID] = append(s.itemOrder[orderID], productID)
	}
	p.Stock -= qty
	return s.recomputeLocked(orderID), nil
}

func (s *Store) UpdateItemQty(ctx context.Context, orderID, productID string, qty int) (*orders.Order, error) {
	_ = ctx
	if qty <= 0 {
		return nil, orders.ErrInvalidQuantity
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}
	it, ok := s.items[orderID][productID]
	if !ok {
		return nil, orders.ErrItemNotFound
	}
	p := s.products[productID]

	delta := qty - it.Qty
	if p.Stock < delta {
		return nil, orders.ErrInsufficientStock
	}
	it.Qty = qty
	p.Stock -= delta
	return s.recomputeLocked(orderID), nil
}

func (s *Store) RemoveItem(ctx context.Context, orderID, productID string) (*orders.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !o.Status.Editable() {
		return nil, orders.ErrNotEditable
	}
	it, ok := s.items[orderID][productID]
	if !ok {
		return nil, orders.ErrItemNotFound
	}
	s.products[productID].Stock += it.Qty
	delete(s.items[orderID], productID)
	return s.recomputeLocked(orderID), nil
}

func (s *Store) UpdateStatus(ctx context.Context, orderID string, to orders.Status) (*orders.Order, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.CanTransition(o.Status, to) {
		return nil, orders.ErrInvalidTransition
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (s *Store) Cancel(ctx context.Context, orderID string, restoreStock bool) (*orders.Order, []orders.OrderItem, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, nil, orders.ErrNotFound
	}
	if o.Status.Terminal() {
		return nil, nil, orders.ErrInvalidTransition
	}
	items := s.itemsLocked(orderID)
	if restoreStock {
		for _, it := range items {
			if p, ok := s.products[it.ProductID]; ok {
				p.Stock += it.Qty
			}
		}
	}
	o.Status = orders.StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, items, nil
}

func (s *Store) PromotionByID(ctx context.Context, id string) (*orders.Promotion, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.promotions[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &p, nil
}
