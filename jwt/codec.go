package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned by [Decode] when a bearer token cannot be read.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the subset of access-token claims the client reads.
//
// ExpiresAt and IssuedAt are seconds since the Unix epoch. Zero means the claim is absent.
type Claims struct {
	UserID    int64
	Subject   string
	IssuedAt  int64
	ExpiresAt int64
}

// wireClaims mirrors the payload segment. Registered time claims go through
// NumericDate so mistyped values are rejected the same way the server rejects them.
type wireClaims struct {
	UserID int64 `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

// Decode reads the claims segment of token without verifying its signature.
//
// The client is not the trust boundary for token authenticity: the server re-checks every
// request. Decode only extracts exp and user_id for expiry and UX decisions. Any structural
// problem (segment count, encoding, non-JSON payload, mistyped claims) yields an error
// wrapping [ErrMalformedToken].
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	var wc wireClaims
	if _, _, err := parser.ParseUnverified(token, &wc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	out := &Claims{
		UserID:  wc.UserID,
		Subject: wc.Subject,
	}
	if wc.ExpiresAt != nil {
		out.ExpiresAt = wc.ExpiresAt.Unix()
	}
	if wc.IssuedAt != nil {
		out.IssuedAt = wc.IssuedAt.Unix()
	}
	return out, nil
}

// IsExpired reports whether claims expired strictly before now.
//
// exp is stored in seconds and compared in milliseconds: expired iff exp*1000 < now(ms).
// Nil claims or a missing exp mean the expiry is unknown and report false.
func IsExpired(claims *Claims, now time.Time) bool {
	if claims == nil || claims.ExpiresAt == 0 {
		return false
	}
	return claims.ExpiresAt*1000 < now.UnixMilli()
}

// ExpiresAtTime returns exp as a time.Time, or the zero time when unknown.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}
