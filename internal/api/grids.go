package api

import (
	"context"
	"log/slog"

	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
)

const configPageSize = 100

var pageSizes = []int{10, 20, 50, 100}

// gridDef describes one table the pages can show. Slug is the URL segment,
// Name the key of the grid in the session registry.
type gridDef struct {
	Slug   string
	Name   string
	Title  string
	Active string
	// QuickAdd is set for config tables, whose empty search offers to
	// create the searched value.
	QuickAdd store.ConfigKind
	build    func(s *session.Session, o GridOptions, logger *slog.Logger) (grid.Controller, error)
}

func newGrid[T any](s *session.Session, o GridOptions, logger *slog.Logger, cfg grid.Config[T]) (grid.Controller, error) {
	if cfg.PageSize == 0 {
		cfg.PageSize = o.PageSize
	}
	cfg.Debounce = o.Debounce
	cfg.DeleteConcurrency = o.DeleteConcurrency
	cfg.Logger = logger.With("session_id", s.ID)
	g, err := grid.New(s.Context(), cfg)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func sellDetail(s *session.Session) func(ctx context.Context, id string) (any, error) {
	return func(ctx context.Context, id string) (any, error) {
		sell, err := s.Stores().Sells.GetSell(ctx, id)
		if err != nil || sell == nil {
			return nil, err
		}
		return sell, nil
	}
}

func sellsGrid(name string, fixed []remote.Filter) func(*session.Session, GridOptions, *slog.Logger) (grid.Controller, error) {
	return func(s *session.Session, o GridOptions, logger *slog.Logger) (grid.Controller, error) {
		features := grid.DefaultFeatures()
		features.CanExpand = true
		return newGrid(s, o, logger, grid.Config[store.Sell]{
			Name:          name,
			Source:        store.NewSellsResource(s.API),
			Columns:       store.SellColumns,
			Labels:        store.SellLabels,
			Accessors:     store.SellAccessors,
			RowID:         store.SellID,
			FixedFilters:  fixed,
			Features:      features,
			ExpandedTitle: "Produtos",
			Expand:        sellDetail(s),
		})
	}
}

func productsGrid(source func(*remote.Client) *remote.Resource[store.Product], columns []string) func(*session.Session, GridOptions, *slog.Logger) (grid.Controller, error) {
	return func(s *session.Session, o GridOptions, logger *slog.Logger) (grid.Controller, error) {
		return newGrid(s, o, logger, grid.Config[store.Product]{
			Source:    source(s.API),
			Columns:   columns,
			Labels:    store.ProductLabels,
			Accessors: store.ProductAccessors,
			RowID:     store.ProductID,
			Features:  grid.DefaultFeatures(),
		})
	}
}

func configGrid(kind store.ConfigKind) func(*session.Session, GridOptions, *slog.Logger) (grid.Controller, error) {
	return func(s *session.Session, o GridOptions, logger *slog.Logger) (grid.Controller, error) {
		return newGrid(s, o, logger, grid.Config[store.ConfigItem]{
			Source:    store.NewConfigResource(s.API, kind),
			Columns:   store.ConfigColumns,
			Labels:    map[string]string{"value": kind.Label()},
			Accessors: store.ConfigAccessors,
			RowID:     store.ConfigItemID,
			PageSize:  configPageSize,
			Features:  grid.Features{CanFilter: true},
		})
	}
}

func gridCatalog() map[string]gridDef {
	defs := []gridDef{
		{
			Slug: "clients", Name: "clients", Title: "Clientes", Active: "clientes",
			build: func(s *session.Session, o GridOptions, logger *slog.Logger) (grid.Controller, error) {
				return newGrid(s, o, logger, grid.Config[store.Client]{
					Source:    store.NewClientsResource(s.API),
					Columns:   store.ClientColumns,
					Labels:    store.ClientLabels,
					Accessors: store.ClientAccessors,
					RowID:     store.ClientID,
					Features:  grid.DefaultFeatures(),
				})
			},
		},
		{
			Slug: "products", Name: "products", Title: "Produtos", Active: "produtos",
			build: productsGrid(store.NewProductsResource, store.ProductColumns),
		},
		{
			Slug: "products-sold", Name: "products/sold", Title: "Fora de estoque", Active: "fora",
			build: productsGrid(store.NewSoldProductsResource, store.SoldProductColumns),
		},
		{
			Slug: "sells", Name: "sells", Title: "Vendas", Active: "vendas",
			build: sellsGrid("sells", nil),
		},
		{
			Slug: "donations", Name: "sells/donation", Title: "Doações", Active: "doacoes",
			build: sellsGrid("sells/donation", []remote.Filter{{ID: "type", Value: string(store.SellTypeDonation)}}),
		},
		{
			Slug: "returns", Name: "sells/return", Title: "Devoluções", Active: "devolucoes",
			build: sellsGrid("sells/return", []remote.Filter{{ID: "type", Value: string(store.SellTypeReturn)}}),
		},
	}
	for _, kind := range store.ConfigKinds {
		defs = append(defs, gridDef{
			Slug:     configSlug(kind),
			Name:     kind.Path(),
			Title:    kind.Label(),
			Active:   "config",
			QuickAdd: kind,
			build:    configGrid(kind),
		})
	}

	catalog := make(map[string]gridDef, len(defs))
	for _, d := range defs {
		catalog[d.Slug] = d
	}
	return catalog
}
