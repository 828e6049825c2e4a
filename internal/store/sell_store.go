package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gusesba/renova-web/internal/remote"
)

type SellType string

const (
	SellTypeSell     SellType = "sell"
	SellTypeDonation SellType = "donation"
	SellTypeReturn   SellType = "return"
)

// Label is how the type is shown to the shop staff.
func (t SellType) Label() string {
	switch t {
	case SellTypeSell:
		return "Venda"
	case SellTypeDonation:
		return "Doação"
	case SellTypeReturn:
		return "Devolução"
	}
	return string(t)
}

func (t SellType) Valid() bool {
	return t == SellTypeSell || t == SellTypeDonation || t == SellTypeReturn
}

var SellTypes = []SellType{SellTypeSell, SellTypeDonation, SellTypeReturn}

type Sell struct {
	ID            string    `json:"id"`
	Type          SellType  `json:"type"`
	ClientName    string    `json:"clientName"`
	TotalProducts int       `json:"totalProducts"`
	Date          string    `json:"date"`
	Products      []Product `json:"products,omitempty"`
}

func SellID(s Sell) string { return s.ID }

var SellColumns = []string{"id", "type", "clientName", "totalProducts", "date"}

var SellLabels = map[string]string{
	"id":            "Id",
	"type":          "Tipo",
	"clientName":    "Cliente",
	"totalProducts": "QTD Produtos",
	"date":          "Data",
}

var SellAccessors = map[string]func(Sell) any{
	"id":            func(s Sell) any { return s.ID },
	"type":          func(s Sell) any { return s.Type.Label() },
	"clientName":    func(s Sell) any { return s.ClientName },
	"totalProducts": func(s Sell) any { return s.TotalProducts },
	"date":          func(s Sell) any { return s.Date },
}

// NewSell is the body of a checkout.
type NewSell struct {
	ClientID   string   `json:"clientId"`
	Type       SellType `json:"type"`
	ProductIDs []string `json:"productIds"`
}

type SellStore interface {
	CreateSell(ctx context.Context, s *NewSell) (*Sell, error)
	// GetSell returns nil, nil when the sell does not exist.
	GetSell(ctx context.Context, id string) (*Sell, error)
}

type RemoteSellStore struct {
	client *remote.Client
}

func NewRemoteSellStore(c *remote.Client) *RemoteSellStore {
	return &RemoteSellStore{client: c}
}

func NewSellsResource(c *remote.Client) *remote.Resource[Sell] {
	return remote.NewResource[Sell](c, "sells")
}

func (s *RemoteSellStore) CreateSell(ctx context.Context, ns *NewSell) (*Sell, error) {
	var out Sell
	if err := s.client.Create(ctx, "sells", ns, &out); err != nil {
		return nil, fmt.Errorf("creating sell: %w", err)
	}
	return &out, nil
}

func (s *RemoteSellStore) GetSell(ctx context.Context, id string) (*Sell, error) {
	var out Sell
	err := s.client.Get(ctx, "sells/"+url.PathEscape(id), &out)
	if remote.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
