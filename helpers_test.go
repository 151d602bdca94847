package goSession

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/testbackend"
	"github.com/MrEthical07/goSession/jwt"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "Secr3t"
)

type harness struct {
	srv    *testbackend.Server
	ts     *httptest.Server
	store  *faultyStore
	clock  *clock.Fake
	c      *Controller
	userID int64
}

type harnessOption func(*Config, *Builder)

func withAudit(sink AuditSink) harnessOption {
	return func(cfg *Config, b *Builder) {
		cfg.Audit.Enabled = true
		cfg.Audit.BufferSize = 64
		cfg.Audit.DropIfFull = false
		b.WithAuditSink(sink)
	}
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	srv, err := testbackend.New([]byte("controller-test-key"), time.Hour)
	if err != nil {
		t.Fatalf("testbackend.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	h := &harness{
		srv:    srv,
		ts:     ts,
		store:  newFaultyStore(credstore.NewMemoryStore()),
		clock:  clock.NewFake(time.Now()),
		userID: srv.AddUser("Ada", "Lovelace", testEmail, testPassword),
	}

	cfg := defaultConfig()
	cfg.Backend.BaseURL = ts.URL
	cfg.Metrics.EnableLatencyHistograms = true

	b := New()
	for _, opt := range opts {
		opt(&cfg, b)
	}
	c, err := b.WithConfig(cfg).
		WithStore(h.store).
		WithHTTPClient(ts.Client()).
		WithClock(h.clock).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(c.Close)
	h.c = c
	return h
}

// seed stores a fresh pair for the test user without touching the controller.
func (h *harness) seed(t *testing.T) (access, refresh string) {
	t.Helper()
	access, refresh, err := h.srv.IssuePair(h.userID)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if err := h.store.Save(context.Background(), access, refresh); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return access, refresh
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	if err := h.c.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func (h *harness) stored(t *testing.T, key credstore.Key) (string, bool) {
	t.Helper()
	v, ok, err := h.store.inner.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	return v, ok
}

func (h *harness) url(path string) string {
	return h.ts.URL + path
}

func expectStoreEmpty(t *testing.T, h *harness) {
	t.Helper()
	for _, key := range credstore.Keys {
		if _, ok := h.stored(t, key); ok {
			t.Fatalf("expected %s to be cleared", key)
		}
	}
}

// faultyStore wraps a store with injectable failures and call counters.
type faultyStore struct {
	inner credstore.Store

	mu        sync.Mutex
	getErr    error
	saveErr   error
	removeErr error

	gets       atomic.Int64
	removeAlls atomic.Int64
}

func newFaultyStore(inner credstore.Store) *faultyStore {
	return &faultyStore{inner: inner}
}

func (s *faultyStore) fail(get, save, remove error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr, s.saveErr, s.removeErr = get, save, remove
}

func (s *faultyStore) errs() (error, error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getErr, s.saveErr, s.removeErr
}

func (s *faultyStore) Save(ctx context.Context, access, refresh string) error {
	if _, err, _ := s.errs(); err != nil {
		return err
	}
	return s.inner.Save(ctx, access, refresh)
}

func (s *faultyStore) Get(ctx context.Context, key credstore.Key) (string, bool, error) {
	s.gets.Add(1)
	if err, _, _ := s.errs(); err != nil {
		return "", false, err
	}
	return s.inner.Get(ctx, key)
}

func (s *faultyStore) Remove(ctx context.Context, key credstore.Key) error {
	if _, _, err := s.errs(); err != nil {
		return err
	}
	return s.inner.Remove(ctx, key)
}

func (s *faultyStore) RemoveAll(ctx context.Context) error {
	s.removeAlls.Add(1)
	if _, _, err := s.errs(); err != nil {
		return err
	}
	return s.inner.RemoveAll(ctx)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func mustDecode(t *testing.T, token string) *jwt.Claims {
	t.Helper()
	claims, err := jwt.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return claims
}

func recvStatus(t *testing.T, ch <-chan Status) Status {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			t.Fatal("subscription closed")
		}
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status")
	}
	return StatusUnknown
}
