package credstore

import (
	"context"
	"errors"
)

// Key names one persisted credential.
type Key string

const (
	// KeyAccessToken holds the bearer token attached to authenticated requests.
	KeyAccessToken Key = "access_token"
	// KeyRefreshToken holds the token exchanged at the refresh endpoint. Optional.
	KeyRefreshToken Key = "refresh_token"
)

// Keys lists every key a Store may hold, in write order.
var Keys = []Key{KeyAccessToken, KeyRefreshToken}

// ErrUnknownKey is returned for keys outside [Keys].
var ErrUnknownKey = errors.New("unknown credential key")

// ErrUnavailable wraps backend failures (I/O, Redis, encoding).
var ErrUnavailable = errors.New("credential store unavailable")

// Store is durable key-value storage for session credentials.
//
// Writes are sequential per key; no cross-key transaction is required from
// implementations, but each call must complete before it returns.
type Store interface {
	// Save writes the access token, then the refresh token. An empty refreshToken
	// removes any previously stored refresh token so stale pairs never survive.
	Save(ctx context.Context, accessToken, refreshToken string) error
	// Get returns the stored value. A missing key yields ok=false and a nil error.
	Get(ctx context.Context, key Key) (value string, ok bool, err error)
	// Remove deletes one key. Removing an absent key is not an error.
	Remove(ctx context.Context, key Key) error
	// RemoveAll deletes every credential. Idempotent.
	RemoveAll(ctx context.Context) error
}

func validKey(key Key) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}
