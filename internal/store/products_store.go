package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gusesba/renova-web/internal/remote"
)

type Product struct {
	ID           string  `json:"id"`
	Price        float64 `json:"price"`
	Type         string  `json:"type"`
	Brand        string  `json:"brand"`
	Size         string  `json:"size"`
	Color        string  `json:"color"`
	ProviderID   string  `json:"providerId,omitempty"`
	ProviderName string  `json:"providerName,omitempty"`
	Description  string  `json:"description"`
	EntryDate    string  `json:"entryDate,omitempty"`
}

func ProductID(p Product) string { return p.ID }

// ProductColumns are the columns of the in-stock grid.
var ProductColumns = []string{"id", "price", "type", "brand", "size", "color", "providerId", "description", "entryDate"}

// SoldProductColumns are the columns of the out-of-stock grid, which shows
// the provider by name.
var SoldProductColumns = []string{"id", "price", "type", "brand", "size", "color", "providerName", "description", "entryDate"}

// SaleProductColumns are the columns of the checkout cart.
var SaleProductColumns = []string{"id", "price", "type", "brand", "size", "color", "description", "entryDate"}

var ProductLabels = map[string]string{
	"id":           "Id",
	"price":        "Preço",
	"type":         "Produto",
	"brand":        "Marca",
	"size":         "Tamanho",
	"color":        "Cor",
	"providerId":   "Fornecedor",
	"providerName": "Fornecedor",
	"description":  "Descrição",
	"entryDate":    "Entrada",
}

var ProductAccessors = map[string]func(Product) any{
	"id":           func(p Product) any { return p.ID },
	"price":        func(p Product) any { return p.Price },
	"type":         func(p Product) any { return p.Type },
	"brand":        func(p Product) any { return p.Brand },
	"size":         func(p Product) any { return p.Size },
	"color":        func(p Product) any { return p.Color },
	"providerId":   func(p Product) any { return p.ProviderID },
	"providerName": func(p Product) any { return p.ProviderName },
	"description":  func(p Product) any { return p.Description },
	"entryDate":    func(p Product) any { return p.EntryDate },
}

var ErrInvalidPrice = errors.New("price must be positive")

// NewProduct is the body of a product registration. The lookup fields hold
// config item ids.
type NewProduct struct {
	Price       float64 `json:"price"`
	TypeID      string  `json:"typeId"`
	BrandID     string  `json:"brandId"`
	SizeID      string  `json:"sizeId"`
	ColorID     string  `json:"colorId"`
	ProviderID  string  `json:"providerId"`
	Description string  `json:"description"`
	EntryDate   string  `json:"entryDate,omitempty"`
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p *NewProduct) error
	// GetProductForSale returns the product if it can be sold now. The API
	// refuses products that are out of stock with a message for the user.
	GetProductForSale(ctx context.Context, id string) (*Product, error)
}

type RemoteProductStore struct {
	client *remote.Client
}

func NewRemoteProductStore(c *remote.Client) *RemoteProductStore {
	return &RemoteProductStore{client: c}
}

// NewProductsResource is the in-stock collection.
func NewProductsResource(c *remote.Client) *remote.Resource[Product] {
	return remote.NewResource[Product](c, "products")
}

// NewSoldProductsResource is the out-of-stock collection.
func NewSoldProductsResource(c *remote.Client) *remote.Resource[Product] {
	return remote.NewResource[Product](c, "products/sold")
}

func (s *RemoteProductStore) GetProductForSale(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.client.Get(ctx, "products/sell/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RemoteProductStore) CreateProduct(ctx context.Context, np *NewProduct) error {
	if np.Price <= 0 {
		return ErrInvalidPrice
	}
	if err := s.client.Create(ctx, "products", np, nil); err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}
