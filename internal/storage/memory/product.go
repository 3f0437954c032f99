package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/vireon/internal/domain/product"
)

var _ product.Repository = (*Products)(nil)

type productEntry struct {
	p     product.Product
	stock atomic.Int64
}

// Products is an in-memory catalog. Stock is kept in an atomic counter per
// product so decrements on different products never contend.
type Products struct {
	mu    sync.RWMutex
	items map[string]*productEntry
	now   func() time.Time
}

// NewProducts returns an empty catalog.
func NewProducts() *Products {
	return &Products{
		items: make(map[string]*productEntry),
		now:   time.Now,
	}
}

func (r *Products) entry(id string) (*productEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	return e, ok
}

// Get returns a copy of the product with its current stock.
func (r *Products) Get(_ context.Context, id string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.items[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	p := e.p
	p.Stock = int(e.stock.Load())
	return &p, nil
}

// ConditionalDecrement lowers stock by amount if at least amount is left.
func (r *Products) ConditionalDecrement(_ context.Context, id string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("invalid decrement %d", amount)
	}
	e, ok := r.entry(id)
	if !ok {
		return product.ErrNotFound
	}

	want := int64(amount)
	for {
		cur := e.stock.Load()
		if cur < want {
			return product.ErrInsufficientStock
		}
		if e.stock.CompareAndSwap(cur, cur-want) {
			return nil
		}
	}
}

// Increment raises stock by amount.
func (r *Products) Increment(_ context.Context, id string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("invalid increment %d", amount)
	}
	e, ok := r.entry(id)
	if !ok {
		return product.ErrNotFound
	}
	e.stock.Add(int64(amount))
	return nil
}

// List returns products ordered by ID, optionally filtered by category.
func (r *Products) List(_ context.Context, category string) ([]product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.items))
	for _, e := range r.items {
		if category != "" && e.p.Category != category {
			continue
		}
		p := e.p
		p.Stock = int(e.stock.Load())
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Upsert inserts p or replaces the stored product with the same ID,
// including its stock.
func (r *Products) Upsert(_ context.Context, p *product.Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.Stock < 0 {
		return errors.Errorf("negative stock %d for product %s", p.Stock, p.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[p.ID]
	if !ok {
		e = &productEntry{}
		r.items[p.ID] = e
		if p.CreatedAt.IsZero() {
			p.CreatedAt = r.now().UTC()
		}
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = e.p.CreatedAt
	}
	e.p = *p
	e.stock.Store(int64(p.Stock))
	return nil
}
