package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/internal/flows"
)

const refreshFlightKey = "refresh"

// Refresh exchanges the stored refresh token for a rotated pair.
//
// A missing or rejected refresh token ends the session: the store is cleared, the
// status becomes Unauthenticated and the error wraps ErrSessionExpired. A transport
// failure wraps ErrNetwork and leaves the session unchanged. Concurrent callers share
// one backend call; once started it is not cancelled by ctx.
func (c *Controller) Refresh(ctx context.Context) error {
	_, err := c.refreshShared(ctx, "")
	return err
}

// refreshShared joins or starts the single in-flight refresh and returns the access
// token to use afterwards. When stale is non-empty and the session already moved on
// from it, the current token is returned without a backend call.
func (c *Controller) refreshShared(ctx context.Context, stale string) (string, error) {
	v, err, shared := c.refresh.Do(refreshFlightKey, func() (any, error) {
		return c.runRefresh(context.WithoutCancel(ctx), stale)
	})
	if shared {
		c.metrics.Inc(MetricRefreshShared)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Controller) runRefresh(ctx context.Context, stale string) (string, error) {
	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	if stale != "" {
		current := c.Session()
		if current.Status == StatusAuthenticated && current.AccessToken != "" && current.AccessToken != stale {
			return current.AccessToken, nil
		}
	}

	userID := c.userID()
	start := c.clock.Now()
	res := c.flows.Refresh(ctx)
	elapsed := c.clock.Now().Sub(start)
	c.metrics.Observe(MetricRefreshLatency, elapsed)

	if res.ClearErr != nil {
		c.metrics.Inc(MetricStorageFailure)
		c.logger.WarnContext(ctx, "goSession: clearing credential store after failed refresh", "error", res.ClearErr)
	}

	switch {
	case res.Failure == flows.RefreshFailureNone:
		c.adopt(res.Tokens)
		c.metrics.Inc(MetricRefreshSuccess)
		c.emitAudit(ctx, AuditEventRefresh, true, c.userID(), nil, durationMetadata("latency_ms", elapsed))
		return res.Tokens.AccessToken, nil

	case res.Failure == flows.RefreshFailureNetwork:
		err := fmt.Errorf("%w: %w", ErrNetwork, res.Err)
		c.metrics.Inc(MetricRefreshNetworkError)
		c.emitAudit(ctx, AuditEventRefresh, false, userID, err, map[string]string{"failure": res.Failure.String()})
		return "", err

	default:
		if res.Failure == flows.RefreshFailureStorage {
			c.metrics.Inc(MetricStorageFailure)
		}
		c.reset()
		err := ErrSessionExpired
		if res.Err != nil {
			err = fmt.Errorf("%w: %w", ErrSessionExpired, res.Err)
		}
		c.metrics.Inc(MetricRefreshFailure)
		c.emitAudit(ctx, AuditEventRefresh, false, userID, err, map[string]string{"failure": res.Failure.String()})
		return "", err
	}
}

// expireSession tears the session down after the backend rejected a freshly refreshed
// token. It is a no-op if a different session has been adopted in the meantime.
func (c *Controller) expireSession(ctx context.Context, token string) {
	ctx = context.WithoutCancel(ctx)
	if err := c.acquire(ctx); err != nil {
		return
	}
	defer c.release()

	current := c.Session()
	if current.Status != StatusAuthenticated || current.AccessToken != token {
		return
	}

	err := c.flows.Logout(ctx)
	if err != nil {
		c.metrics.Inc(MetricStorageFailure)
		c.logger.WarnContext(ctx, "goSession: clearing credential store after rejected retry", "error", err)
	}
	c.reset()
	c.metrics.Inc(MetricGatewayForcedLogout)
	c.emitAudit(ctx, AuditEventGatewayForcedLogout, err == nil, current.UserID, err, nil)
}
