// Package session keeps the server-side state of each signed-in browser:
// its grids, its checkout cart and the API token its requests carry.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gusesba/renova-web/internal/export"
	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/services"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const CookieName = "renova_session"

type Session struct {
	ID    string
	Grids *grid.Registry
	Cart  *services.Cart
	// API is the remote client authenticated as this session.
	API *remote.Client

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	token   string
	receipt *export.Receipt
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Receipt is the last checkout finished in this session, if any.
func (s *Session) Receipt() *export.Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.receipt
}

func (s *Session) SetReceipt(r *export.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipt = r
}

// Context lives as long as the session. Grid fetches run under it so they
// survive the request that triggered them.
func (s *Session) Context() context.Context { return s.ctx }

func (s *Session) Stores() store.Stores { return store.NewRemoteStores(s.API) }

func (s *Session) close() {
	s.cancel()
	s.Grids.Close()
}

type Options struct {
	MaxSessions int
	TTL         time.Duration
	Transport   string
}

// Manager owns every live session. Sessions idle for longer than the TTL,
// or pushed out when the cache is full, are closed.
type Manager struct {
	cache     *expirable.LRU[string, *Session]
	api       *remote.Client
	transport string
	logger    *slog.Logger
}

func NewManager(api *remote.Client, opts Options, logger *slog.Logger) *Manager {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = 1024
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{api: api, transport: opts.Transport, logger: logger}
	m.cache = expirable.NewLRU[string, *Session](opts.MaxSessions, m.evicted, opts.TTL)
	return m
}

func (m *Manager) evicted(id string, s *Session) {
	m.logger.Debug("session closed", "session_id", id)
	s.close()
}

// Create starts a session for token.
func (m *Manager) Create(token string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:     uuid.NewString(),
		Grids:  grid.NewRegistry(),
		Cart:   &services.Cart{},
		ctx:    ctx,
		cancel: cancel,
		token:  token,
	}
	s.API = m.api.WithCredentials(remote.CredentialsFor(m.transport, s.Token))
	m.cache.Add(s.ID, s)
	m.logger.Debug("session created", "session_id", s.ID)
	return s
}

// Get returns the session and extends its lifetime.
func (m *Manager) Get(id string) (*Session, bool) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, false
	}
	m.cache.Add(id, s)
	return s, true
}

// Delete closes the session.
func (m *Manager) Delete(id string) {
	m.cache.Remove(id)
}

func (m *Manager) Len() int { return m.cache.Len() }

// Close ends every session.
func (m *Manager) Close() {
	m.cache.Purge()
}
