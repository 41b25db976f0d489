// Package memory holds mutex-guarded in-memory implementations of the
// repository interfaces. They back the service tests and the local dev mode;
// each mutating call takes the store lock for its whole read-validate-write
// sequence, mirroring the transactional guarantees of the postgres repos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tathang/foodcourt/internal/auth"
	"github.com/tathang/foodcourt/internal/billing"
	"github.com/tathang/foodcourt/internal/catalog"
	"github.com/tathang/foodcourt/internal/orders"
)

type otpEntry struct {
	code    string
	expires time.Time
}

type Store struct {
	mu          sync.Mutex
	products    map[string]*catalog.Product
	categories  map[string]catalog.Category
	orders      map[string]*orders.Order
	items       map[string]map[string]*orders.OrderItem // orderID -> productID -> item
	itemOrder   map[string][]string                     // orderID -> productIDs in insertion order
	bills       map[string]*billing.Bill                // by orderID
	billsByCode map[int64]string                        // gateway order code -> orderID
	promotions  map[string]orders.Promotion
	users       map[string]*auth.User
	otps        map[string]otpEntry
}

func NewStore() *Store {
	return &Store{
		products:    make(map[string]*catalog.Product),
		categories:  make(map[string]catalog.Category),
		orders:      make(map[string]*orders.Order),
		items:       make(map[string]map[string]*orders.OrderItem),
		itemOrder:   make(map[string][]string),
		bills:       make(map[string]*billing.Bill),
		billsByCode: make(map[int64]string),
		promotions:  make(map[string]orders.Promotion),
		users:       make(map[string]*auth.User),
		otps:        make(map[string]otpEntry),
	}
}

// SeedProduct registers a catalog product; used by tests and dev fixtures.
func (s *Store) SeedProduct(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
	if p.CategoryID != "" {
		if _, ok := s.categories[p.CategoryID]; !ok {
			s.categories[p.CategoryID] = catalog.Category{ID: p.CategoryID, Name: p.CategoryID}
		}
	}
}

func (s *Store) SeedPromotion(p orders.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promotions[p.ID] = p
}

// ProductStock reads current stock; test helper.
func (s *Store) ProductStock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return 0
}

// catalog.Store

func (s *Store) Menu(ctx context.Context) ([]catalog.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Product
	for _, p := range s.products {
		if !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *Store) Categories(ctx context.Context) ([]catalog.Category, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Category
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) ProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ProductsByCategory(ctx context.Context, categoryID string) ([]catalog.Product, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []catalog.Product
	for _, p := range s.products {
		if p.CategoryID == categoryID && !p.Archived {
			out = append(out, *p)
		}
	}
	return out, nil
}
