package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	// RefreshFailureNoToken: no refresh token is stored.
	RefreshFailureNoToken
	// RefreshFailureRejected: the backend answered with a non-2xx status or an
	// unusable payload.
	RefreshFailureRejected
	// RefreshFailureNetwork: no response was received. The session is left as is.
	RefreshFailureNetwork
	RefreshFailureStorage
)

func (k RefreshFailureKind) String() string {
	switch k {
	case RefreshFailureNone:
		return "none"
	case RefreshFailureNoToken:
		return "no_token"
	case RefreshFailureRejected:
		return "rejected"
	case RefreshFailureNetwork:
		return "network"
	case RefreshFailureStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Terminal reports whether the failure ends the session.
func (k RefreshFailureKind) Terminal() bool {
	switch k {
	case RefreshFailureNoToken, RefreshFailureRejected, RefreshFailureStorage:
		return true
	default:
		return false
	}
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Store   TokenStore
	Refresh func(ctx context.Context, refreshToken string) (backend.Tokens, error)
	Decode  func(string) (*jwt.Claims, error)
	Now     func() time.Time
}

// RefreshResult carries either the rotated tokens or failure metadata. ClearErr is set
// when a terminal failure could not wipe the store.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	ClearErr error
	Tokens   Tokens
}

// RunRefresh exchanges the stored refresh token for a rotated pair and persists it.
// Terminal failures clear the store before returning.
func RunRefresh(ctx context.Context, deps RefreshDeps) RefreshResult {
	refreshToken, ok, err := deps.Store.Get(ctx, credstore.KeyRefreshToken)
	if err != nil {
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureStorage, Err: err})
	}
	if !ok || refreshToken == "" {
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureNoToken})
	}

	pair, err := deps.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, backend.ErrTransport) {
			return RefreshResult{Failure: RefreshFailureNetwork, Err: err}
		}
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureRejected, Err: err})
	}

	claims, err := deps.Decode(pair.AccessToken)
	if err != nil {
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureRejected, Err: err})
	}
	if jwt.IsExpired(claims, nowOrDefault(deps.Now)) {
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureRejected, Err: ErrExpiredIssue})
	}

	if err := deps.Store.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return clearAfterRefresh(ctx, deps, RefreshResult{Failure: RefreshFailureStorage, Err: err})
	}

	return RefreshResult{
		Tokens: Tokens{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			Claims:       claims,
		},
	}
}

func clearAfterRefresh(ctx context.Context, deps RefreshDeps, res RefreshResult) RefreshResult {
	res.ClearErr = deps.Store.RemoveAll(ctx)
	return res
}
