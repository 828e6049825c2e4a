// Package grid implements the remote data grid shared by every table page:
// server-side pagination, sorting and filtering, client-side column order,
// selection and row expansion, and the bulk actions parents trigger through
// a Controller.
package grid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gusesba/renova-web/internal/remote"
)

const (
	DefaultPageSize = 10
	DefaultDebounce = 500 * time.Millisecond

	defaultDeleteConcurrency = 4
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrNotDateColumn   = errors.New("column is not a date column")
	ErrInvalidDate     = errors.New("invalid date")
	ErrPageUnavailable = errors.New("page unavailable")
	ErrInvalidPageSize = errors.New("page size must be positive")
	ErrLastColumn      = errors.New("cannot remove the last column")
	ErrFeatureDisabled = errors.New("feature disabled for this grid")
	ErrNoColumns       = errors.New("grid has no usable columns")
	ErrMissingRowID    = errors.New("grid requires a row id accessor")
	ErrMissingSource   = errors.New("grid requires a source")
)

// Source is where a grid reads pages from and deletes rows through.
// remote.Resource satisfies it.
type Source[T any] interface {
	Path() string
	Fetch(ctx context.Context, req remote.PageRequest) (*remote.Page[T], error)
	Delete(ctx context.Context, id string) error
}

// Accessors maps a column key to the function reading that field from a row.
type Accessors[T any] map[string]func(T) any

type Features struct {
	CanSelect      bool
	CanFilter      bool
	CanPaginate    bool
	CanExpand      bool
	CanEditColumns bool
}

// DefaultFeatures is what a table page gets unless it opts out.
func DefaultFeatures() Features {
	return Features{
		CanSelect:      true,
		CanFilter:      true,
		CanPaginate:    true,
		CanEditColumns: true,
	}
}

type Config[T any] struct {
	// Name identifies the grid in a Registry. Defaults to the source path.
	Name      string
	Source    Source[T]
	Columns   []string
	Labels    map[string]string
	Accessors Accessors[T]
	RowID     func(T) string

	// FixedFilters are sent with every request and never shown as inputs.
	FixedFilters []remote.Filter

	PageSize          int
	Debounce          time.Duration
	DeleteConcurrency int
	Features          Features

	ExpandedTitle string
	// Expand renders the detail panel of an expanded row.
	Expand func(ctx context.Context, id string) (any, error)

	Logger *slog.Logger
}

type Bound string

const (
	BoundStart Bound = "start"
	BoundEnd   Bound = "end"
)

type DateRange struct {
	Start string
	End   string
}

// Column is a resolved column: its accessor is looked up once, when the
// column order changes, and reused for every row.
type Column[T any] struct {
	Key   string
	Label string
	Value func(T) any
}

type pendingInput struct {
	value string
	seq   uint64
	timer *time.Timer
}

// Grid holds the state of one table. Every method is safe for concurrent
// use; fetches run in the background and only the response for the
// current fetch key is ever applied.
type Grid[T any] struct {
	cfg    Config[T]
	src    Source[T]
	logger *slog.Logger

	ctx  context.Context
	stop context.CancelFunc

	mu        sync.Mutex
	keys      []string
	order     []string
	columns   []Column[T]
	pageIndex int
	pageSize  int
	sort      *remote.Sort
	filters   []remote.Filter
	dates     map[string]DateRange
	selected  map[string]bool
	expanded  Expansion

	key     string
	gen     uint64
	cancel  context.CancelFunc
	loading bool
	page    *remote.Page[T]
	err     error

	inputs   map[string]*pendingInput
	inputSeq uint64
	waiters  []chan struct{}

	detailID  string
	detail    any
	detailErr error

	closed bool
}

// New builds a grid and starts fetching its first page. ctx bounds the
// lifetime of every background fetch the grid makes; it should outlive any
// single HTTP request.
func New[T any](ctx context.Context, cfg Config[T]) (*Grid[T], error) {
	if cfg.Source == nil {
		return nil, ErrMissingSource
	}
	if cfg.RowID == nil {
		return nil, ErrMissingRowID
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.DeleteConcurrency < 1 {
		cfg.DeleteConcurrency = defaultDeleteConcurrency
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Source.Path()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("grid", cfg.Name)

	g := &Grid[T]{
		cfg:      cfg,
		src:      cfg.Source,
		logger:   logger,
		pageSize: cfg.PageSize,
		dates:    map[string]DateRange{},
		selected: map[string]bool{},
		expanded: Expansion{},
		inputs:   map[string]*pendingInput{},
	}

	keys := g.knownKeys(cfg.Columns)
	if len(keys) == 0 {
		return nil, ErrNoColumns
	}
	g.keys = keys
	g.order = slices.Clone(keys)
	g.ctx, g.stop = context.WithCancel(ctx)

	g.mu.Lock()
	g.resolveColumns()
	g.commit(false)
	g.mu.Unlock()
	return g, nil
}

func (g *Grid[T]) knownKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := g.cfg.Accessors[k]; !ok {
			g.logger.Warn("dropping column without accessor", "column", k)
			continue
		}
		if slices.Contains(out, k) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Resource is the identity the grid is registered under.
func (g *Grid[T]) Resource() string { return g.cfg.Name }

// IsDateColumn reports whether key follows the date naming convention and
// therefore gets a start/end pair of date inputs instead of a text filter.
func IsDateColumn(key string) bool {
	return strings.Contains(strings.ToLower(key), "date")
}

func (g *Grid[T]) request() remote.PageRequest {
	filters := make([]remote.Filter, 0, len(g.cfg.FixedFilters)+len(g.filters)+2*len(g.dates))
	filters = append(filters, g.cfg.FixedFilters...)
	filters = append(filters, g.filters...)

	fields := make([]string, 0, len(g.dates))
	for f := range g.dates {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	for _, f := range fields {
		r := g.dates[f]
		if r.Start != "" {
			filters = append(filters, remote.Filter{ID: f + "Start", Value: r.Start})
		}
		if r.End != "" {
			filters = append(filters, remote.Filter{ID: f + "End", Value: r.End})
		}
	}

	var sort *remote.Sort
	if g.sort != nil {
		s := *g.sort
		sort = &s
	}
	return remote.PageRequest{
		Resource: g.src.Path(),
		Page:     g.pageIndex + 1,
		PageSize: g.pageSize,
		Sort:     sort,
		Filters:  filters,
	}
}

// commit starts a fetch when the fetch key changed, or unconditionally when
// force is set. The superseded fetch, if any, is cancelled. Callers hold mu.
func (g *Grid[T]) commit(force bool) {
	if g.closed {
		return
	}
	req := g.request()
	key := req.Key()
	if key == g.key && !force {
		return
	}
	g.key = key
	g.gen++
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithCancel(g.ctx)
	g.cancel = cancel
	g.loading = true

	go g.load(ctx, cancel, g.gen, req)
}

func (g *Grid[T]) load(ctx context.Context, cancel context.CancelFunc, gen uint64, req remote.PageRequest) {
	defer cancel()
	page, err := g.src.Fetch(ctx, req)

	g.mu.Lock()
	defer g.mu.Unlock()

	if gen != g.gen || g.closed {
		g.logger.Debug("discarding stale page", "page", req.Page, "error", err)
		return
	}
	g.loading = false
	g.cancel = nil

	if err != nil {
		g.page = nil
		g.err = fmt.Errorf("loading %s: %w", g.cfg.Name, err)
		g.logger.Error("fetching grid page", "page", req.Page, "error", err)
		g.notifyIdle()
		return
	}

	g.page = normalize(page, g.pageSize)
	g.err = nil
	if last := g.page.TotalPages - 1; g.pageIndex > last && len(g.page.Items) == 0 {
		// the page we were on no longer exists, usually after a delete
		g.pageIndex = last
		g.commit(false)
	}
	g.notifyIdle()
}

func normalize[T any](p *remote.Page[T], pageSize int) *remote.Page[T] {
	if p == nil {
		p = &remote.Page[T]{}
	}
	if p.TotalPages < 1 {
		p.TotalPages = 1
	}
	if len(p.Items) > pageSize {
		p.Items = p.Items[:pageSize]
	}
	return p
}

func (g *Grid[T]) idle() bool {
	return !g.loading && len(g.inputs) == 0
}

func (g *Grid[T]) notifyIdle() {
	if !g.idle() && !g.closed {
		return
	}
	for _, ch := range g.waiters {
		close(ch)
	}
	g.waiters = nil
}

// Refetch reloads the current page even though the fetch key is unchanged,
// for parents that changed the underlying data.
func (g *Grid[T]) Refetch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commit(true)
}

// Close stops pending fetches and debounce timers and releases waiters.
func (g *Grid[T]) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.closed = true
	for key, in := range g.inputs {
		in.timer.Stop()
		delete(g.inputs, key)
	}
	g.stop()
	g.notifyIdle()
}

func (g *Grid[T]) totalPages() int {
	if g.page == nil {
		return 1
	}
	return g.page.TotalPages
}

// NextPage moves forward one page. It is refused on the last page and while
// a fetch is in flight.
func (g *Grid[T]) NextPage() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanPaginate {
		return ErrFeatureDisabled
	}
	if g.loading || g.pageIndex+1 >= g.totalPages() {
		return ErrPageUnavailable
	}
	g.pageIndex++
	g.commit(false)
	return nil
}

func (g *Grid[T]) PrevPage() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanPaginate {
		return ErrFeatureDisabled
	}
	if g.loading || g.pageIndex == 0 {
		return ErrPageUnavailable
	}
	g.pageIndex--
	g.commit(false)
	return nil
}

func (g *Grid[T]) SetPageSize(n int) error {
	if n < 1 {
		return ErrInvalidPageSize
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n == g.pageSize {
		return nil
	}
	g.pageSize = n
	g.pageIndex = 0
	g.commit(false)
	return nil
}

// ToggleSort cycles key through unsorted, ascending and descending. Sorting
// a different column replaces the previous sort.
func (g *Grid[T]) ToggleSort(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.order, key) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	g.sort = nextSort(g.sort, key)
	g.pageIndex = 0
	g.commit(false)
	return nil
}

func (g *Grid[T]) filterable(key string) error {
	if !g.cfg.Features.CanFilter {
		return ErrFeatureDisabled
	}
	if !slices.Contains(g.order, key) {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
	if g.pinned(key) {
		return fmt.Errorf("%w: %s is pinned", ErrFeatureDisabled, key)
	}
	return nil
}

// pinned reports whether key is one of the grid's fixed filters.
func (g *Grid[T]) pinned(key string) bool {
	return slices.ContainsFunc(g.cfg.FixedFilters, func(f remote.Filter) bool { return f.ID == key })
}

func (g *Grid[T]) textFilterable(key string) error {
	if err := g.filterable(key); err != nil {
		return err
	}
	if IsDateColumn(key) {
		return fmt.Errorf("%w: %s is filtered by date range", ErrUnknownColumn, key)
	}
	return nil
}

// InputFilter records a keystroke in the filter box of key. The filter is
// applied once the input has been quiet for the debounce interval, so a
// burst of keystrokes costs a single fetch.
func (g *Grid[T]) InputFilter(key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.textFilterable(key); err != nil {
		return err
	}
	if g.closed {
		return nil
	}

	if in, ok := g.inputs[key]; ok {
		in.timer.Stop()
	}
	g.inputSeq++
	seq := g.inputSeq
	in := &pendingInput{value: value, seq: seq}
	in.timer = time.AfterFunc(g.cfg.Debounce, func() { g.flushInput(key, seq) })
	g.inputs[key] = in
	return nil
}

func (g *Grid[T]) flushInput(key string, seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.inputs[key]
	if !ok || in.seq != seq {
		return
	}
	delete(g.inputs, key)
	g.setFilter(key, in.value)
	g.notifyIdle()
}

// SetFilter applies a text filter immediately, dropping any pending input
// for the same column.
func (g *Grid[T]) SetFilter(key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.textFilterable(key); err != nil {
		return err
	}
	if in, ok := g.inputs[key]; ok {
		in.timer.Stop()
		delete(g.inputs, key)
	}
	g.setFilter(key, value)
	g.notifyIdle()
	return nil
}

func (g *Grid[T]) setFilter(key, value string) {
	i := slices.IndexFunc(g.filters, func(f remote.Filter) bool { return f.ID == key })
	switch {
	case i >= 0 && g.filters[i].Value == value:
		return
	case i < 0 && value == "":
		return
	case value == "":
		g.filters = slices.Delete(g.filters, i, i+1)
	case i >= 0:
		g.filters[i].Value = value
	default:
		g.filters = append(g.filters, remote.Filter{ID: key, Value: value})
	}
	g.pageIndex = 0
	g.commit(false)
}

// SetDateFilter sets one bound of a date column's range. An empty value
// clears the bound, leaving that side unbounded.
func (g *Grid[T]) SetDateFilter(key string, bound Bound, value string) error {
	value = strings.TrimSpace(value)
	if value != "" {
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, value)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.filterable(key); err != nil {
		return err
	}
	if !IsDateColumn(key) {
		return fmt.Errorf("%w: %s", ErrNotDateColumn, key)
	}

	r := g.dates[key]
	switch bound {
	case BoundStart:
		if r.Start == value {
			return nil
		}
		r.Start = value
	case BoundEnd:
		if r.End == value {
			return nil
		}
		r.End = value
	default:
		return fmt.Errorf("unknown date bound %q", bound)
	}

	if r == (DateRange{}) {
		delete(g.dates, key)
	} else {
		g.dates[key] = r
	}
	g.pageIndex = 0
	g.commit(false)
	return nil
}

func (g *Grid[T]) ToggleSelected(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanSelect {
		return ErrFeatureDisabled
	}
	if g.selected[id] {
		delete(g.selected, id)
	} else {
		g.selected[id] = true
	}
	return nil
}

// ToggleAllSelected selects every row of the current page, or clears them
// when they are all selected already.
func (g *Grid[T]) ToggleAllSelected() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanSelect {
		return ErrFeatureDisabled
	}
	if g.page == nil || len(g.page.Items) == 0 {
		return nil
	}
	all := g.allSelected()
	for _, item := range g.page.Items {
		id := g.cfg.RowID(item)
		if all {
			delete(g.selected, id)
		} else {
			g.selected[id] = true
		}
	}
	return nil
}

func (g *Grid[T]) allSelected() bool {
	if g.page == nil || len(g.page.Items) == 0 {
		return false
	}
	for _, item := range g.page.Items {
		if !g.selected[g.cfg.RowID(item)] {
			return false
		}
	}
	return true
}

// Selected returns the selected row ids in a stable order.
func (g *Grid[T]) Selected() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.selected))
	for id := range g.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ToggleExpanded opens the detail panel of id, closing any other one, or
// closes it when it is already open.
func (g *Grid[T]) ToggleExpanded(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.cfg.Features.CanExpand {
		return ErrFeatureDisabled
	}
	g.expanded = g.expanded.Toggle(id)
	g.detailID = ""
	g.detail = nil
	g.detailErr = nil
	return nil
}
