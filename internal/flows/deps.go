package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/jwt"
)

// ErrExpiredIssue reports a backend-issued access token that was already expired.
var ErrExpiredIssue = errors.New("issued access token already expired")

// TokenStore is the subset of [credstore.Store] used by flows.
type TokenStore interface {
	Save(ctx context.Context, accessToken, refreshToken string) error
	Get(ctx context.Context, key credstore.Key) (string, bool, error)
	RemoveAll(ctx context.Context) error
}

// Deps groups flow dependency sets. The Controller builds this once and delegates
// operations to the matching flow implementation.
type Deps struct {
	Bootstrap BootstrapDeps
	Login     LoginDeps
	Refresh   RefreshDeps
	Logout    LogoutDeps
}

// Tokens is the token state a successful flow leaves in the store.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	Claims       *jwt.Claims
}

func nowOrDefault(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
