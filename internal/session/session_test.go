package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, h http.HandlerFunc, opts Options) *Manager {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	api, err := remote.NewClient(srv.URL, srv.Client(), nil, logger)
	require.NoError(t, err)
	m := NewManager(api, opts, logger)
	t.Cleanup(m.Close)
	return m
}

func TestSessionSendsItsToken(t *testing.T) {
	var auth atomic.Value
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"items":[],"totalPages":1}`))
	}, Options{Transport: remote.TransportBearer})

	s := m.Create("first")
	_, err := s.Stores().Clients.ListClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", auth.Load())

	s.SetToken("second")
	_, err = s.Stores().Clients.ListClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", auth.Load())
}

func TestGetAndDelete(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[],"totalPages":1}`))
	}, Options{})

	s := m.Create("tok")
	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	g, err := grid.New(s.Context(), grid.Config[store.Client]{
		Source:    store.NewClientsResource(s.API),
		Columns:   store.ClientColumns,
		Accessors: store.ClientAccessors,
		RowID:     store.ClientID,
	})
	require.NoError(t, err)
	s.Grids.Register(g)

	m.Delete(s.ID)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
	assert.Error(t, s.Context().Err(), "closing a session cancels its context")
	assert.Zero(t, s.Grids.Len())
}

func TestSessionsExpire(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {}, Options{TTL: 30 * time.Millisecond})

	s := m.Create("tok")
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)

	_, ok := m.Get(s.ID)
	assert.False(t, ok)
	assert.Error(t, s.Context().Err(), "an expired session is closed")
}

func TestGetExtendsSessionLifetime(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {}, Options{TTL: 300 * time.Millisecond})

	s := m.Create("tok")
	for range 4 {
		time.Sleep(100 * time.Millisecond)
		_, ok := m.Get(s.ID)
		require.True(t, ok, "a session in use does not expire")
	}
	assert.NoError(t, s.Context().Err())
}

func TestOldestSessionIsEvictedWhenFull(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {}, Options{MaxSessions: 2})

	a := m.Create("a")
	m.Create("b")
	m.Create("c")

	_, ok := m.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
	assert.Error(t, a.Context().Err())
}
