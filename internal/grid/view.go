package grid

import (
	"context"

	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/remote"
)

// View is everything a template needs to render a grid. It holds no
// references into the grid and can be used after the lock is released.
type View struct {
	Resource      string
	Features      Features
	ExpandedTitle string

	Headers []HeaderCell
	Missing []ColumnInfo
	Rows    []DataRow

	// Placeholders is the number of skeleton rows to draw while loading.
	Placeholders int
	Loading      bool
	Err          error

	PageIndex  int
	PageSize   int
	TotalPages int
	CanPrev    bool
	CanNext    bool

	AllSelected bool
	Selected    int

	Detail    any
	DetailErr error
}

type HeaderCell struct {
	Key    string
	Label  string
	Sort   remote.Direction
	IsDate bool
	// Pinned columns carry a fixed filter and offer no filter input.
	Pinned bool
	Filter string
	Dates  DateRange
}

type DataRow struct {
	ID       string
	Cells    []DataCell
	Selected bool
	Expanded bool
}

type DataCell struct {
	Key   string
	Value string
}

// Colspan is the width of a full-row cell: the data columns plus the
// selection and expansion controls that are switched on.
func (v View) Colspan() int {
	n := len(v.Headers)
	if v.Features.CanSelect {
		n++
	}
	if v.Features.CanExpand {
		n++
	}
	return n
}

// Page is the one-based page number shown to the user.
func (v View) Page() int { return v.PageIndex + 1 }

// View waits for pending filter input and the current fetch to settle, then
// renders the grid. When ctx ends first, the loading state is rendered.
func (g *Grid[T]) View(ctx context.Context) View {
	g.mu.Lock()
	if !g.idle() && !g.closed {
		ch := make(chan struct{})
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		g.mu.Lock()
	}
	v := g.view()
	expand := g.cfg.Expand
	id := g.expanded.ID()
	load := expand != nil && g.cfg.Features.CanExpand && id != "" && g.detailID != id && rowVisible(v.Rows, id)
	g.mu.Unlock()

	if !load {
		return v
	}
	detail, err := expand(ctx, id)
	if err != nil {
		g.logger.Error("loading row detail", "id", id, "error", err)
	}

	g.mu.Lock()
	if g.expanded.ID() == id {
		g.detailID, g.detail, g.detailErr = id, detail, err
	}
	g.mu.Unlock()
	v.Detail, v.DetailErr = detail, err
	return v
}

// Snapshot renders the current state without waiting.
func (g *Grid[T]) Snapshot() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view()
}

func rowVisible(rows []DataRow, id string) bool {
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (g *Grid[T]) view() View {
	v := View{
		Resource:      g.cfg.Name,
		Features:      g.cfg.Features,
		ExpandedTitle: g.cfg.ExpandedTitle,
		Missing:       g.missing(),
		Loading:       g.loading,
		Err:           g.err,
		PageIndex:     g.pageIndex,
		PageSize:      g.pageSize,
		TotalPages:    g.totalPages(),
		Selected:      len(g.selected),
	}
	v.CanPrev = !g.loading && g.pageIndex > 0
	v.CanNext = !g.loading && g.pageIndex+1 < v.TotalPages

	v.Headers = make([]HeaderCell, 0, len(g.columns))
	for _, col := range g.columns {
		h := HeaderCell{Key: col.Key, Label: col.Label, IsDate: IsDateColumn(col.Key), Pinned: g.pinned(col.Key)}
		if g.sort != nil && g.sort.Field == col.Key {
			h.Sort = g.sort.Direction
		}
		if in, ok := g.inputs[col.Key]; ok {
			h.Filter = in.value
		} else {
			for _, f := range g.filters {
				if f.ID == col.Key {
					h.Filter = f.Value
				}
			}
		}
		h.Dates = g.dates[col.Key]
		v.Headers = append(v.Headers, h)
	}

	if g.loading {
		v.Placeholders = g.pageSize
		return v
	}
	if g.err != nil || g.page == nil {
		return v
	}

	expanded := g.expanded.ID()
	v.Rows = make([]DataRow, 0, len(g.page.Items))
	for _, item := range g.page.Items {
		id := g.cfg.RowID(item)
		row := DataRow{
			ID:       id,
			Cells:    make([]DataCell, 0, len(g.columns)),
			Selected: g.selected[id],
			Expanded: id == expanded,
		}
		for _, col := range g.columns {
			row.Cells = append(row.Cells, DataCell{Key: col.Key, Value: format.Cell(col.Key, col.Value(item))})
		}
		v.Rows = append(v.Rows, row)
	}
	v.AllSelected = g.allSelected()
	if expanded != "" && g.detailID == expanded {
		v.Detail, v.DetailErr = g.detail, g.detailErr
	}
	return v
}
