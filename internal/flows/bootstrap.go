package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/jwt"
)

// BootstrapFailureKind classifies why a stored session was not restored.
type BootstrapFailureKind int

const (
	BootstrapFailureNone BootstrapFailureKind = iota
	BootstrapFailureNoToken
	BootstrapFailureStorage
	BootstrapFailureDecode
	BootstrapFailureExpired
)

func (k BootstrapFailureKind) String() string {
	switch k {
	case BootstrapFailureNone:
		return "none"
	case BootstrapFailureNoToken:
		return "no_token"
	case BootstrapFailureStorage:
		return "storage"
	case BootstrapFailureDecode:
		return "decode"
	case BootstrapFailureExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// BootstrapDeps captures bootstrap flow dependencies.
type BootstrapDeps struct {
	Store  TokenStore
	Decode func(string) (*jwt.Claims, error)
	Now    func() time.Time
}

// BootstrapResult carries the restored tokens or failure metadata. ClearErr is set
// when the store could not be wiped after a failed restore.
type BootstrapResult struct {
	Failure  BootstrapFailureKind
	Err      error
	ClearErr error
	Tokens   Tokens
}

// Restored reports whether the stored session may be used.
func (r BootstrapResult) Restored() bool {
	return r.Failure == BootstrapFailureNone
}

// RunBootstrap restores the stored session. Every outcome other than a present,
// decodable, unexpired access token leaves the store empty.
func RunBootstrap(ctx context.Context, deps BootstrapDeps) BootstrapResult {
	access, ok, err := deps.Store.Get(ctx, credstore.KeyAccessToken)
	if err != nil {
		return clearAfterBootstrap(ctx, deps, BootstrapResult{Failure: BootstrapFailureStorage, Err: err})
	}
	if !ok || access == "" {
		return clearAfterBootstrap(ctx, deps, BootstrapResult{Failure: BootstrapFailureNoToken})
	}

	claims, err := deps.Decode(access)
	if err != nil {
		return clearAfterBootstrap(ctx, deps, BootstrapResult{Failure: BootstrapFailureDecode, Err: err})
	}
	if jwt.IsExpired(claims, nowOrDefault(deps.Now)) {
		return clearAfterBootstrap(ctx, deps, BootstrapResult{Failure: BootstrapFailureExpired})
	}

	refresh, _, err := deps.Store.Get(ctx, credstore.KeyRefreshToken)
	if err != nil {
		return clearAfterBootstrap(ctx, deps, BootstrapResult{Failure: BootstrapFailureStorage, Err: err})
	}

	return BootstrapResult{
		Tokens: Tokens{
			AccessToken:  access,
			RefreshToken: refresh,
			Claims:       claims,
		},
	}
}

func clearAfterBootstrap(ctx context.Context, deps BootstrapDeps, res BootstrapResult) BootstrapResult {
	res.ClearErr = deps.Store.RemoveAll(ctx)
	return res
}
