package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/vireon/internal/domain/product"
)

// InvalidQuantityError indicates a non-positive quantity for a product.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Service implements cart reads and add-to-cart.
type Service struct {
	carts    Repository
	products product.Catalog
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Catalog) *Service {
	return &Service{
		carts:    carts,
		products: products,
		now:      time.Now,
	}
}

// maxSaveAttempts bounds AddItem retries when concurrent writers keep
// changing the cart.
const maxSaveAttempts = 3

// Get returns the user's cart, empty when none exists yet. The total is
// recomputed from current prices; lines whose product was removed count as
// zero.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	total, err := s.recompute(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	c.Total = total
	return c, nil
}

// AddItem adds quantity of productID to the user's cart, merging with an
// existing line. The merged quantity is checked against current stock; the
// check is advisory since stock may change before checkout. A write that
// races another change to the same cart is retried on a fresh read.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %s", productID)
	}

	for attempt := 1; ; attempt++ {
		c, err := s.addOnce(ctx, userID, p, quantity)
		if errors.Is(err, ErrConcurrentUpdate) && attempt < maxSaveAttempts {
			continue
		}
		return c, err
	}
}

func (s *Service) addOnce(ctx context.Context, userID string, p *product.Product, quantity int) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	c.UserID = userID

	merged := quantity
	idx := -1
	for i, item := range c.Items {
		if item.ProductID == p.ID {
			idx = i
			merged += item.Quantity
			break
		}
	}
	if p.Stock < merged {
		return nil, &product.InsufficientStockError{
			ProductID: p.ID,
			Available: p.Stock,
			Requested: merged,
		}
	}

	if idx >= 0 {
		c.Items[idx].Quantity = merged
	} else {
		c.Items = append(c.Items, Item{ProductID: p.ID, Quantity: quantity})
	}

	total, err := s.recompute(ctx, c.Items)
	if err != nil {
		return nil, err
	}
	c.Total = total
	c.UpdatedAt = s.now().UTC()

	if err := s.carts.Save(ctx, c); err != nil {
		if errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		return nil, errors.Wrap(err, "save cart")
	}
	return c, nil
}

// recompute sums current price times quantity for every line. Lines whose
// product no longer exists are skipped; checkout rejects them.
func (s *Service) recompute(ctx context.Context, items []Item) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range items {
		p, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			return decimal.Zero, errors.Wrapf(err, "price product %s", item.ProductID)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2), nil
}
