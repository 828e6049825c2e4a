package grid

import (
	"fmt"
	"slices"

	"github.com/gusesba/renova-web/internal/remote"
)

// ColumnInfo names a column for menus and headers.
type ColumnInfo struct {
	Key   string
	Label string
}

func (g *Grid[T]) label(key string) string {
	if l, ok := g.cfg.Labels[key]; ok && l != "" {
		return l
	}
	return key
}

func (g *Grid[T]) resolveColumns() {
	cols := make([]Column[T], 0, len(g.order))
	for _, key := range g.order {
		cols = append(cols, Column[T]{Key: key, Label: g.label(key), Value: g.cfg.Accessors[key]})
	}
	g.columns = cols
}

// ColumnOrder returns the visible column keys, left to right.
func (g *Grid[T]) ColumnOrder() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.order)
}

// MissingColumns lists the configured columns that are currently hidden, in
// configuration order.
func (g *Grid[T]) MissingColumns() []ColumnInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.missing()
}

func (g *Grid[T]) missing() []ColumnInfo {
	var out []ColumnInfo
	for _, key := range g.keys {
		if !slices.Contains(g.order, key) {
			out = append(out, ColumnInfo{Key: key, Label: g.label(key)})
		}
	}
	return out
}

// MoveColumn drops the column active onto the position of over.
func (g *Grid[T]) MoveColumn(active, over string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanEditColumns {
		return ErrFeatureDisabled
	}
	from, to := slices.Index(g.order, active), slices.Index(g.order, over)
	if from < 0 || to < 0 {
		return fmt.Errorf("%w: %s -> %s", ErrUnknownColumn, active, over)
	}
	if from == to {
		return nil
	}
	g.order = moveKey(g.order, from, to)
	g.resolveColumns()
	return nil
}

// moveKey removes the element at from and reinserts it at to, shifting the
// elements in between by one.
func moveKey(order []string, from, to int) []string {
	out := slices.Clone(order)
	key := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, key)
}

// RemoveColumn hides key. Its filter and sort go with it, since a hidden
// column has no header to show them in.
func (g *Grid[T]) RemoveColumn(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanEditColumns {
		return ErrFeatureDisabled
	}
	i := slices.Index(g.order, key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if len(g.order) == 1 {
		return ErrLastColumn
	}
	g.order = slices.Delete(slices.Clone(g.order), i, i+1)
	g.resolveColumns()
	if g.dropColumnState(key) {
		g.pageIndex = 0
		g.commit(false)
	}
	g.notifyIdle()
	return nil
}

// AddColumn shows a hidden column again, as the first column.
func (g *Grid[T]) AddColumn(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanEditColumns {
		return ErrFeatureDisabled
	}
	if !slices.Contains(g.keys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if slices.Contains(g.order, key) {
		return nil
	}
	g.order = append([]string{key}, g.order...)
	g.resolveColumns()
	return nil
}

// SetColumnKeys replaces the configured columns. Keys without an accessor
// are ignored; columns that stay configured keep their current position.
func (g *Grid[T]) SetColumnKeys(keys []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	known := g.knownKeys(keys)
	if len(known) == 0 {
		return ErrNoColumns
	}

	order := make([]string, 0, len(known))
	for _, key := range g.order {
		if slices.Contains(known, key) {
			order = append(order, key)
		}
	}
	if len(order) == 0 {
		order = slices.Clone(known)
	}

	changed := false
	for _, key := range g.order {
		if !slices.Contains(order, key) && g.dropColumnState(key) {
			changed = true
		}
	}
	g.keys = known
	g.order = order
	g.resolveColumns()
	if changed {
		g.pageIndex = 0
		g.commit(false)
	}
	g.notifyIdle()
	return nil
}

// dropColumnState clears the sort, filter and pending input of key and
// reports whether the fetch key was affected.
func (g *Grid[T]) dropColumnState(key string) bool {
	changed := false
	if g.sort != nil && g.sort.Field == key {
		g.sort = nil
		changed = true
	}
	if i := slices.IndexFunc(g.filters, func(f remote.Filter) bool { return f.ID == key }); i >= 0 {
		g.filters = slices.Delete(g.filters, i, i+1)
		changed = true
	}
	if _, ok := g.dates[key]; ok {
		delete(g.dates, key)
		changed = true
	}
	if in, ok := g.inputs[key]; ok {
		in.timer.Stop()
		delete(g.inputs, key)
	}
	return changed
}
