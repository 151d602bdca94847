package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/jwt"
)

// LoginFailureKind classifies login, registration and provider-login failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureExchange
	LoginFailureExpired
	LoginFailurePersist
)

func (k LoginFailureKind) String() string {
	switch k {
	case LoginFailureNone:
		return "none"
	case LoginFailureExchange:
		return "exchange"
	case LoginFailureExpired:
		return "expired"
	case LoginFailurePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	Store  TokenStore
	Decode func(string) (*jwt.Claims, error)
	Now    func() time.Time
}

// LoginResult carries either the persisted tokens or failure metadata. On failure the
// store has not been written.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Tokens  Tokens
}

// Exchange performs the backend call that yields a token pair.
type Exchange func(ctx context.Context) (backend.Tokens, error)

// RunLogin performs exchange and persists the returned pair. Used for both password
// login and registration.
func RunLogin(ctx context.Context, exchange Exchange, deps LoginDeps) LoginResult {
	pair, err := exchange(ctx)
	if err != nil {
		return LoginResult{Failure: LoginFailureExchange, Err: err}
	}
	return accept(ctx, Tokens{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, deps)
}

// RunProviderLogin persists provider-issued tokens as delivered.
func RunProviderLogin(ctx context.Context, accessToken, refreshToken string, deps LoginDeps) LoginResult {
	return accept(ctx, Tokens{AccessToken: accessToken, RefreshToken: refreshToken}, deps)
}

// accept stores tokens without requiring a decodable access token. An opaque token is
// kept without claims; one that decodes must not already be expired.
func accept(ctx context.Context, tokens Tokens, deps LoginDeps) LoginResult {
	if claims, err := deps.Decode(tokens.AccessToken); err == nil {
		if jwt.IsExpired(claims, nowOrDefault(deps.Now)) {
			return LoginResult{Failure: LoginFailureExpired, Err: ErrExpiredIssue}
		}
		tokens.Claims = claims
	}
	return persist(ctx, deps.Store, tokens)
}

func persist(ctx context.Context, store TokenStore, tokens Tokens) LoginResult {
	if err := store.Save(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		return LoginResult{Failure: LoginFailurePersist, Err: err}
	}
	return LoginResult{Tokens: tokens}
}
