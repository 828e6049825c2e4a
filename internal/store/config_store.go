package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gusesba/renova-web/internal/remote"
)

// ConfigKind is one of the lookup tables products are described with.
type ConfigKind string

const (
	ConfigColor ConfigKind = "color"
	ConfigSize  ConfigKind = "size"
	ConfigBrand ConfigKind = "brand"
	ConfigType  ConfigKind = "type"
)

var ConfigKinds = []ConfigKind{ConfigColor, ConfigSize, ConfigBrand, ConfigType}

func (k ConfigKind) Valid() bool {
	for _, v := range ConfigKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Path is the API collection of the table.
func (k ConfigKind) Path() string { return "config/" + string(k) }

func (k ConfigKind) Label() string {
	switch k {
	case ConfigColor:
		return "Cor"
	case ConfigSize:
		return "Tamanho"
	case ConfigBrand:
		return "Marca"
	case ConfigType:
		return "Produto"
	}
	return string(k)
}

type ConfigItem struct {
	ID    string `json:"id,omitempty"`
	Value string `json:"value"`
}

func ConfigItemID(c ConfigItem) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Value
}

var ConfigColumns = []string{"value"}

var ConfigAccessors = map[string]func(ConfigItem) any{
	"value": func(c ConfigItem) any { return c.Value },
}

var ErrEmptyConfigValue = errors.New("config value is required")

type ConfigStore interface {
	// ListConfigItems returns the whole table, sorted by value, for pickers.
	ListConfigItems(ctx context.Context, kind ConfigKind) ([]ConfigItem, error)
	CreateConfigItem(ctx context.Context, kind ConfigKind, value string) (*ConfigItem, error)
}

type RemoteConfigStore struct {
	client *remote.Client
}

func NewRemoteConfigStore(c *remote.Client) *RemoteConfigStore {
	return &RemoteConfigStore{client: c}
}

func NewConfigResource(c *remote.Client, kind ConfigKind) *remote.Resource[ConfigItem] {
	return remote.NewResource[ConfigItem](c, kind.Path())
}

func (s *RemoteConfigStore) CreateConfigItem(ctx context.Context, kind ConfigKind, value string) (*ConfigItem, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyConfigValue
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown config table %q", kind)
	}
	out := ConfigItem{Value: value}
	if err := s.client.Create(ctx, kind.Path(), ConfigItem{Value: value}, &out); err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	return &out, nil
}

func (s *RemoteConfigStore) ListConfigItems(ctx context.Context, kind ConfigKind) ([]ConfigItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown config table %q", kind)
	}
	page, err := NewConfigResource(s.client, kind).Fetch(ctx, remote.PageRequest{
		Page:     1,
		PageSize: pickerSize,
		Sort:     &remote.Sort{Field: "value", Direction: remote.Asc},
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	return page.Items, nil
}
