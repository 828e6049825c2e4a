package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gusesba/renova-web/internal/store"
)

var (
	ErrEmptyProductID   = errors.New("product id is required")
	ErrDuplicateProduct = errors.New("product already in cart")
	ErrEmptyCart        = errors.New("sale must have at least one product")
	ErrClientRequired   = errors.New("sale must have a client")
	ErrInvalidSellType  = errors.New("invalid sell type")
	ErrInvalidDiscount  = errors.New("discount must not be negative")
)

// OwnershipError is returned when a return includes a product consigned by
// someone other than the client receiving it back.
type OwnershipError struct {
	ProductID string
	ClientID  string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("product %s does not belong to client %s", e.ProductID, e.ClientID)
}

// Cart is the list of products of a sale being assembled.
type Cart struct {
	mu       sync.Mutex
	items    []store.Product
	discount float64
}

func (c *Cart) Items() []store.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Add appends p, refusing a product that is already in the cart.
func (c *Cart) Add(p store.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.ContainsFunc(c.items, func(it store.Product) bool { return it.ID == p.ID }) {
		return fmt.Errorf("%w: %s", ErrDuplicateProduct, p.ID)
	}
	c.items = append(c.items, p)
	return nil
}

func (c *Cart) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	c.items = slices.DeleteFunc(c.items, func(it store.Product) bool { return it.ID == id })
	return len(c.items) != n
}

func (c *Cart) SetDiscount(d float64) error {
	if d < 0 {
		return ErrInvalidDiscount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discount = d
	return nil
}

func (c *Cart) Discount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

// Total is the sum of the product prices.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total()
}

func (c *Cart) total() float64 {
	var sum float64
	for _, it := range c.items {
		sum += it.Price
	}
	return sum
}

// Final is the total minus the discount.
func (c *Cart) Final() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total() - c.discount
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.discount = 0
}

type CheckoutRequest struct {
	ClientID string
	Type     store.SellType
}

type SaleService struct {
	productStore store.ProductStore
	sellStore    store.SellStore
	logger       *slog.Logger
}

func NewSaleService(productStore store.ProductStore, sellStore store.SellStore, logger *slog.Logger) *SaleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaleService{productStore: productStore, sellStore: sellStore, logger: logger}
}

// AddProduct looks the product up as available for sale and adds it to cart.
func (s *SaleService) AddProduct(ctx context.Context, cart *Cart, id string) (*store.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyProductID
	}
	p, err := s.productStore.GetProductForSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %s not found", id)
	}
	if err := cart.Add(*p); err != nil {
		return nil, err
	}
	return p, nil
}

// Checkout validates the cart against req, creates the sell and empties the
// cart. On any error the cart is left untouched.
func (s *SaleService) Checkout(ctx context.Context, cart *Cart, req CheckoutRequest) (*store.Sell, error) {
	items := cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Type == "" {
		req.Type = store.SellTypeSell
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSellType, req.Type)
	}
	if req.ClientID == "" {
		return nil, ErrClientRequired
	}
	if req.Type == store.SellTypeReturn {
		for _, it := range items {
			if it.ProviderID != req.ClientID {
				return nil, &OwnershipError{ProductID: it.ID, ClientID: req.ClientID}
			}
		}
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	sell, err := s.sellStore.CreateSell(ctx, &store.NewSell{
		ClientID:   req.ClientID,
		Type:       req.Type,
		ProductIDs: ids,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sell created", "type", req.Type, "client_id", req.ClientID, "products", len(ids))
	cart.Clear()
	return sell, nil
}
