package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/internal/flows"
)

// Bootstrap resolves the initial status from the credential store.
//
// A stored access token that decodes and is not expired restores the session; any
// other outcome, including a storage error, clears the store and resolves to
// Unauthenticated. Once the status is resolved, by Bootstrap or any other operation,
// further calls return it without I/O. If ctx ends while waiting for another
// operation the current status is returned unchanged.
func (c *Controller) Bootstrap(ctx context.Context) Status {
	if status := c.Status(); status != StatusUnknown {
		return status
	}
	if err := c.acquire(ctx); err != nil {
		return c.Status()
	}
	defer c.release()

	if status := c.Status(); status != StatusUnknown {
		return status
	}

	res := c.flows.Bootstrap(ctx)
	if res.ClearErr != nil {
		c.metrics.Inc(MetricStorageFailure)
		c.logger.WarnContext(ctx, "goSession: clearing credential store after failed bootstrap", "error", res.ClearErr)
	}
	if !res.Restored() {
		if res.Failure == flows.BootstrapFailureStorage {
			c.metrics.Inc(MetricStorageFailure)
			c.logger.WarnContext(ctx, "goSession: reading credential store during bootstrap", "error", res.Err)
		}
		c.reset()
		c.metrics.Inc(MetricBootstrapCleared)
		c.emitAudit(ctx, AuditEventBootstrap, false, 0, res.Err, map[string]string{"failure": res.Failure.String()})
		return StatusUnauthenticated
	}

	c.startSession(res.Tokens)
	c.metrics.Inc(MetricBootstrapRestored)
	c.emitAudit(ctx, AuditEventBootstrap, true, c.userID(), nil, nil)
	return StatusAuthenticated
}

// Logout ends the session. It always leaves the controller Unauthenticated and is
// idempotent; a store that cannot be cleared is logged and audited, not returned.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	userID := c.userID()
	err := c.flows.Logout(ctx)
	if err != nil {
		c.metrics.Inc(MetricStorageFailure)
		c.logger.WarnContext(ctx, "goSession: clearing credential store on logout", "error", err)
	}
	c.reset()
	c.metrics.Inc(MetricLogout)
	c.emitAudit(ctx, AuditEventLogout, err == nil, userID, err, nil)
	return nil
}

// SetAppState reports a host lifecycle transition.
//
// Moving to the background while Authenticated arms the background timer for
// Config.Lifecycle.BackgroundGrace; re-entering the background restarts the window.
// Returning to active disarms it. Inactive leaves the timer as it is. The state is
// kept, so a session that starts later while in the background gets its own window.
func (c *Controller) SetAppState(ctx context.Context, state AppState) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	c.mu.Lock()
	c.appState = state
	c.mu.Unlock()

	switch state {
	case AppStateBackground:
		if c.Status() == StatusAuthenticated {
			c.timer.Arm(c.config.Lifecycle.BackgroundGrace, c.onBackgroundDeadline)
		}
	case AppStateActive:
		c.timer.Disarm()
	}
	return nil
}

// startSession publishes a new session. A background window armed for an earlier
// session is dropped, and a fresh one starts if the host is already in the background.
// Callers hold the op lock.
func (c *Controller) startSession(tokens flows.Tokens) {
	c.timer.Disarm()
	c.adopt(tokens)
	if c.AppState() == AppStateBackground {
		c.timer.Arm(c.config.Lifecycle.BackgroundGrace, c.onBackgroundDeadline)
	}
}

// onBackgroundDeadline runs on the clock's goroutine. Claiming under the op lock makes
// a concurrent SetAppState(active) or re-arm win over a stale fire.
func (c *Controller) onBackgroundDeadline(gen uint64) {
	ctx := context.Background()
	if err := c.acquire(ctx); err != nil {
		return
	}
	defer c.release()

	if !c.timer.Claim(gen) || c.Status() != StatusAuthenticated {
		return
	}

	userID := c.userID()
	err := c.flows.Logout(ctx)
	if err != nil {
		c.metrics.Inc(MetricStorageFailure)
		c.logger.WarnContext(ctx, "goSession: clearing credential store after background expiry", "error", err)
	}
	c.reset()
	c.metrics.Inc(MetricBackgroundExpired)
	c.emitAudit(ctx, AuditEventBackgroundExpiry, err == nil, userID, err,
		durationMetadata("grace_ms", c.config.Lifecycle.BackgroundGrace))
}
