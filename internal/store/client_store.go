package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gusesba/renova-web/internal/remote"
)

// Client is a customer of the shop. The same records are the providers of
// consigned products.
type Client struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

func ClientID(c Client) string { return c.ID }

var ClientColumns = []string{"id", "name", "phone"}

var ClientLabels = map[string]string{
	"id":    "Id",
	"name":  "Nome",
	"phone": "Telefone",
}

// ClientAccessors reads each grid column from a client.
var ClientAccessors = map[string]func(Client) any{
	"id":    func(c Client) any { return c.ID },
	"name":  func(c Client) any { return c.Name },
	"phone": func(c Client) any { return c.Phone },
}

var ErrClientNameRequired = errors.New("client name is required")

type NewClient struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type ClientStore interface {
	// ListClients returns every client, sorted by name, for pickers.
	ListClients(ctx context.Context) ([]Client, error)
	CreateClient(ctx context.Context, c *NewClient) (*Client, error)
}

const pickerSize = 500

type RemoteClientStore struct {
	client  *remote.Client
	clients *remote.Resource[Client]
}

func NewRemoteClientStore(c *remote.Client) *RemoteClientStore {
	return &RemoteClientStore{client: c, clients: NewClientsResource(c)}
}

func NewClientsResource(c *remote.Client) *remote.Resource[Client] {
	return remote.NewResource[Client](c, "clients")
}

func (s *RemoteClientStore) ListClients(ctx context.Context) ([]Client, error) {
	page, err := s.clients.Fetch(ctx, remote.PageRequest{
		Page:     1,
		PageSize: pickerSize,
		Sort:     &remote.Sort{Field: "name", Direction: remote.Asc},
	})
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return page.Items, nil
}

func (s *RemoteClientStore) CreateClient(ctx context.Context, nc *NewClient) (*Client, error) {
	nc.Name = strings.TrimSpace(nc.Name)
	nc.Phone = strings.TrimSpace(nc.Phone)
	if nc.Name == "" {
		return nil, ErrClientNameRequired
	}
	out := Client{Name: nc.Name, Phone: nc.Phone}
	if err := s.client.Create(ctx, "clients", nc, &out); err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}
	return &out, nil
}
