package goSession

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/internal/clock"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/timer"
	"github.com/MrEthical07/goSession/jwt"
)

// Clock is the time source used for expiry checks and the background timer.
type Clock = clock.Clock

// Timer is a pending Clock callback.
type Timer = clock.Timer

// Controller owns the session of one client process.
//
// Mutating operations (Login, Register, LoginWithProvider, Logout, Refresh,
// SetAppState and background expiry) are serialized: at most one runs at a time and
// each persists to the credential store before the new status is published. Reads
// (Status, Session, Claims, Subscribe) never wait for an in-flight operation.
type Controller struct {
	config  Config
	store   credstore.Store
	backend *backend.Client
	flows   flows.Service
	clock   clock.Clock
	timer   *timer.BackgroundTimer
	logger  *slog.Logger
	audit   *audit.Dispatcher
	metrics *Metrics

	httpClient *http.Client
	tracer     trace.Tracer

	// opLock is a context-aware mutex for mutating operations.
	opLock  chan struct{}
	refresh singleflight.Group

	mu       sync.RWMutex
	session  Session
	claims   *jwt.Claims
	appState AppState
	subs     map[uint64]chan Status
	nextSub  uint64
	closed   bool
}

func (c *Controller) acquire(ctx context.Context) error {
	select {
	case c.opLock <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.isClosed() {
		<-c.opLock
		return ErrControllerClosed
	}
	return nil
}

func (c *Controller) release() {
	<-c.opLock
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Status returns the current authentication status.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.Status
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Claims returns a copy of the decoded claims of the current access token. ok is false
// when unauthenticated or when the token was accepted without being decodable.
func (c *Controller) Claims() (*jwt.Claims, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.claims == nil || c.session.Status != StatusAuthenticated {
		return nil, false
	}
	cp := *c.claims
	return &cp, true
}

// AppState returns the last state passed to SetAppState.
func (c *Controller) AppState() AppState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appState
}

// BackgroundDeadline reports when the armed background timer will end the session.
func (c *Controller) BackgroundDeadline() (deadline time.Time, armed bool) {
	return c.timer.Deadline()
}

// AccessToken reads the stored access token.
//
// It returns ErrSessionNotReady before the status is resolved and ErrUnauthenticated
// unless the session is Authenticated with a stored token. A token left behind by a
// store that could not be cleared is never handed out.
func (c *Controller) AccessToken(ctx context.Context) (string, error) {
	switch c.Status() {
	case StatusUnknown:
		return "", ErrSessionNotReady
	case StatusUnauthenticated:
		return "", ErrUnauthenticated
	}
	token, ok, err := c.store.Get(ctx, credstore.KeyAccessToken)
	if err != nil {
		c.metrics.Inc(MetricStorageFailure)
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !ok || token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// Subscribe returns a channel carrying status transitions and a cancel function.
//
// The channel holds at most one value: a reader that falls behind sees only the latest
// status. The current status is delivered immediately. cancel is idempotent; Close
// closes every subscriber channel.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.session.Status

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// adopt publishes tokens as the authenticated session. Callers hold the op lock and
// have already persisted tokens.
func (c *Controller) adopt(tokens flows.Tokens) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.AccessToken = tokens.AccessToken
	c.session.RefreshToken = tokens.RefreshToken
	c.session.ExpiresAt = 0
	c.session.UserID = 0
	c.claims = tokens.Claims
	if tokens.Claims != nil {
		c.session.ExpiresAt = tokens.Claims.ExpiresAt
		c.session.UserID = tokens.Claims.UserID
	}
	c.setStatusLocked(StatusAuthenticated)
}

// reset publishes the unauthenticated state and disarms the background timer.
func (c *Controller) reset() {
	c.timer.Disarm()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = Session{}
	c.claims = nil
	c.setStatusLocked(StatusUnauthenticated)
}

func (c *Controller) setStatusLocked(status Status) {
	prev := c.session.Status
	c.session.Status = status
	if prev == status || c.closed {
		return
	}
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		ch <- status
	}
}

func (c *Controller) userID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session.UserID
}

// Close disarms the background timer, flushes audit events and closes subscriber
// channels. Operations started afterwards return ErrControllerClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.timer.Disarm()
	c.audit.Close()
}

// MetricsSnapshot returns a point-in-time copy of the controller counters.
func (c *Controller) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}
