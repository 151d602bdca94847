package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer mints HS256 access tokens. The client never signs tokens in production; Issuer
// backs the mock backend and test fixtures so decoded claims match real server output.
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an HS256 [Issuer]. ttl is the default lifetime used by [Issuer.Access].
func NewIssuer(key []byte, ttl time.Duration) (*Issuer, error) {
	if len(key) == 0 {
		return nil, errors.New("hs256 requires key")
	}
	if ttl <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Issuer{key: k, ttl: ttl, now: time.Now}, nil
}

// Access issues a token for userID that expires after the configured TTL.
func (i *Issuer) Access(userID int64) (string, error) {
	now := i.now()
	return i.Sign(Claims{
		UserID:    userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(i.ttl).Unix(),
	})
}

// TTL returns the lifetime used by [Issuer.Access].
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign encodes claims verbatim, including an exp in the past.
func (i *Issuer) Sign(c Claims) (string, error) {
	wc := wireClaims{UserID: c.UserID}
	wc.Subject = c.Subject
	if c.ExpiresAt != 0 {
		wc.ExpiresAt = jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0))
	}
	if c.IssuedAt != 0 {
		wc.IssuedAt = jwt.NewNumericDate(time.Unix(c.IssuedAt, 0))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString(i.key)
}

// Verify parses token and checks its HS256 signature and expiry. Used by the mock
// backend to emulate server-side rejection with 401.
func (i *Issuer) Verify(token string) (*Claims, error) {
	var wc wireClaims
	_, err := jwt.ParseWithClaims(token, &wc, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	out := &Claims{UserID: wc.UserID, Subject: wc.Subject}
	if wc.ExpiresAt != nil {
		out.ExpiresAt = wc.ExpiresAt.Unix()
	}
	if wc.IssuedAt != nil {
		out.IssuedAt = wc.IssuedAt.Unix()
	}
	return out, nil
}
