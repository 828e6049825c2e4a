package grid

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gusesba/renova-web/internal/format"
	"golang.org/x/sync/errgroup"
)

// Controller is the handle a page keeps on one of its grids. Every grid
// operation the page can trigger goes through it.
type Controller interface {
	Resource() string
	View(ctx context.Context) View
	Snapshot() View

	ToggleSort(key string) error
	InputFilter(key, value string) error
	SetFilter(key, value string) error
	SetDateFilter(key string, bound Bound, value string) error

	NextPage() error
	PrevPage() error
	SetPageSize(n int) error

	MoveColumn(active, over string) error
	RemoveColumn(key string) error
	AddColumn(key string) error
	ColumnOrder() []string
	MissingColumns() []ColumnInfo

	ToggleSelected(id string) error
	ToggleAllSelected() error
	Selected() []string
	ToggleExpanded(id string) error

	DeleteSelectedItems(ctx context.Context) (*DeleteReport, error)
	Refetch()
	Collect(ctx context.Context) (*Table, error)
	Close()
}

var _ Controller = (*Grid[struct{}])(nil)

// RowError is the failure to delete one row.
type RowError struct {
	ID  string
	Err error
}

// DeleteReport is the outcome of a bulk delete, one entry per selected id.
type DeleteReport struct {
	Resource string
	Deleted  []string
	Failed   []RowError
}

// BatchError is returned when some rows of a bulk delete failed. The rows
// that were deleted stay deleted.
type BatchError struct {
	Resource string
	Failures []RowError
}

func (e *BatchError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ID)
	}
	return fmt.Sprintf("deleting from %s: %d failed (%s)", e.Resource, len(e.Failures), strings.Join(ids, ", "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// DeleteSelectedItems deletes every selected row, at most
// DeleteConcurrency at a time. Whatever the outcome the selection is
// cleared and the current page refetched. Cancelling ctx does not stop a
// batch that has started: each row still gets its own outcome.
func (g *Grid[T]) DeleteSelectedItems(ctx context.Context) (*DeleteReport, error) {
	ctx = context.WithoutCancel(ctx)
	ids := g.Selected()
	report := &DeleteReport{Resource: g.cfg.Name}
	if len(ids) == 0 {
		return report, nil
	}

	var (
		mu sync.Mutex
		eg errgroup.Group
	)
	eg.SetLimit(g.cfg.DeleteConcurrency)
	for _, id := range ids {
		eg.Go(func() error {
			err := g.src.Delete(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				g.logger.Warn("deleting row", "id", id, "error", err)
				report.Failed = append(report.Failed, RowError{ID: id, Err: err})
				return nil
			}
			report.Deleted = append(report.Deleted, id)
			return nil
		})
	}
	eg.Wait()

	slices.Sort(report.Deleted)
	slices.SortFunc(report.Failed, func(a, b RowError) int { return strings.Compare(a.ID, b.ID) })

	g.mu.Lock()
	g.selected = map[string]bool{}
	if slices.Contains(report.Deleted, g.expanded.ID()) {
		g.expanded = Expansion{}
		g.detailID, g.detail, g.detailErr = "", nil, nil
	}
	g.commit(true)
	g.mu.Unlock()

	g.logger.Info("bulk delete", "deleted", len(report.Deleted), "failed", len(report.Failed))
	if len(report.Failed) > 0 {
		return report, &BatchError{Resource: g.cfg.Name, Failures: report.Failed}
	}
	return report, nil
}

// Table is a grid flattened to text, every page of it, in column order.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

const (
	collectPageSize = 100
	collectMaxPages = 500
)

var ErrTooManyPages = errors.New("too many pages to collect")

// Collect fetches every page matching the current filters and sort and
// renders the visible columns as text.
func (g *Grid[T]) Collect(ctx context.Context) (*Table, error) {
	g.mu.Lock()
	req := g.request()
	cols := slices.Clone(g.columns)
	g.mu.Unlock()

	req.PageSize = collectPageSize
	t := &Table{Name: g.cfg.Name}
	for _, c := range cols {
		t.Headers = append(t.Headers, c.Label)
	}

	for page := 1; ; page++ {
		if page > collectMaxPages {
			return nil, ErrTooManyPages
		}
		req.Page = page
		p, err := g.src.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("collecting %s page %d: %w", g.cfg.Name, page, err)
		}
		p = normalize(p, collectPageSize)
		for _, item := range p.Items {
			row := make([]string, 0, len(cols))
			for _, c := range cols {
				row = append(row, format.Cell(c.Key, c.Value(item)))
			}
			t.Rows = append(t.Rows, row)
		}
		if page >= p.TotalPages || len(p.Items) == 0 {
			return t, nil
		}
	}
}

// Registry holds the grids of one session, keyed by resource, so that
// parents can reach a grid to refetch it or act on its selection.
type Registry struct {
	mu    sync.RWMutex
	grids map[string]Controller
}

func NewRegistry() *Registry {
	return &Registry{grids: map[string]Controller{}}
}

// Register adds c, closing any grid previously registered for the same
// resource.
func (r *Registry) Register(c Controller) {
	r.mu.Lock()
	old := r.grids[c.Resource()]
	r.grids[c.Resource()] = c
	r.mu.Unlock()
	if old != nil && old != c {
		old.Close()
	}
}

func (r *Registry) Get(resource string) (Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.grids[resource]
	return c, ok
}

// GetOrCreate returns the grid registered for resource, building and
// registering it with build when there is none.
func (r *Registry) GetOrCreate(resource string, build func() (Controller, error)) (Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.grids[resource]; ok {
		return c, nil
	}
	c, err := build()
	if err != nil {
		return nil, err
	}
	r.grids[resource] = c
	return c, nil
}

// Refetch reloads the grid of resource, if one is registered.
func (r *Registry) Refetch(resource string) bool {
	c, ok := r.Get(resource)
	if ok {
		c.Refetch()
	}
	return ok
}

// RefetchPrefix reloads every grid whose resource starts with prefix.
func (r *Registry) RefetchPrefix(prefix string) int {
	r.mu.RLock()
	var hit []Controller
	for name, c := range r.grids {
		if strings.HasPrefix(name, prefix) {
			hit = append(hit, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range hit {
		c.Refetch()
	}
	return len(hit)
}

func (r *Registry) Remove(resource string) {
	r.mu.Lock()
	c, ok := r.grids[resource]
	delete(r.grids, resource)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	grids := r.grids
	r.grids = map[string]Controller{}
	r.mu.Unlock()
	for _, c := range grids {
		c.Close()
	}
}

// Len reports the number of registered grids.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.grids)
}
