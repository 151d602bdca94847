package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credstore"
	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/jwt"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type failingStore struct {
	*credstore.MemoryStore
	getErr    error
	saveErr   error
	removeErr error
	removed   int
}

func (s *failingStore) Get(ctx context.Context, key credstore.Key) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *failingStore) Save(ctx context.Context, access, refresh string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStore.Save(ctx, access, refresh)
}

func (s *failingStore) RemoveAll(ctx context.Context) error {
	s.removed++
	if s.removeErr != nil {
		return s.removeErr
	}
	return s.MemoryStore.RemoveAll(ctx)
}

func newStore() *failingStore {
	return &failingStore{MemoryStore: credstore.NewMemoryStore()}
}

func signToken(t *testing.T, userID int64, exp time.Time) string {
	t.Helper()
	iss, err := jwt.NewIssuer([]byte("flows-test-key"), time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	tok, err := iss.Sign(jwt.Claims{UserID: userID, ExpiresAt: exp.Unix()})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return tok
}

func mustGet(t *testing.T, store TokenStore, key credstore.Key) (string, bool) {
	t.Helper()
	v, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	return v, ok
}

func fixedNow() time.Time { return testNow }

func TestRunBootstrapRestoresValidToken(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	access := signToken(t, 7, testNow.Add(time.Hour))
	if err := store.Save(ctx, access, "r1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res := RunBootstrap(ctx, BootstrapDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if !res.Restored() {
		t.Fatalf("expected restore, got %v (%v)", res.Failure, res.Err)
	}
	if res.Tokens.AccessToken != access || res.Tokens.RefreshToken != "r1" {
		t.Fatalf("unexpected tokens: %+v", res.Tokens)
	}
	if res.Tokens.Claims.UserID != 7 {
		t.Fatalf("expected user 7, got %d", res.Tokens.Claims.UserID)
	}
	if store.removed != 0 {
		t.Fatal("restore must not clear the store")
	}
}

func TestRunBootstrapClearsExpiredToken(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	if err := store.Save(ctx, signToken(t, 7, testNow.Add(-time.Second)), "r1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res := RunBootstrap(ctx, BootstrapDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != BootstrapFailureExpired {
		t.Fatalf("expected expired, got %v", res.Failure)
	}
	if _, ok := mustGet(t, store, credstore.KeyAccessToken); ok {
		t.Fatal("expired access token should be cleared")
	}
	if _, ok := mustGet(t, store, credstore.KeyRefreshToken); ok {
		t.Fatal("refresh token should be cleared")
	}
}

func TestRunBootstrapClassifiesFailures(t *testing.T) {
	ctx := context.Background()

	empty := newStore()
	if res := RunBootstrap(ctx, BootstrapDeps{Store: empty, Decode: jwt.Decode, Now: fixedNow}); res.Failure != BootstrapFailureNoToken {
		t.Fatalf("expected no_token, got %v", res.Failure)
	}

	garbage := newStore()
	_ = garbage.Save(ctx, "not-a-jwt", "")
	res := RunBootstrap(ctx, BootstrapDeps{Store: garbage, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != BootstrapFailureDecode || !errors.Is(res.Err, jwt.ErrMalformedToken) {
		t.Fatalf("expected decode failure, got %v (%v)", res.Failure, res.Err)
	}

	broken := newStore()
	broken.getErr = credstore.ErrUnavailable
	broken.removeErr = credstore.ErrUnavailable
	res = RunBootstrap(ctx, BootstrapDeps{Store: broken, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != BootstrapFailureStorage {
		t.Fatalf("expected storage failure, got %v", res.Failure)
	}
	if !errors.Is(res.ClearErr, credstore.ErrUnavailable) {
		t.Fatalf("expected clear error to be reported, got %v", res.ClearErr)
	}
}

func TestRunLoginPersistsBeforeReturning(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	access := signToken(t, 3, testNow.Add(time.Hour))

	res := RunLogin(ctx, func(context.Context) (backend.Tokens, error) {
		return backend.Tokens{AccessToken: access}, nil
	}, LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != LoginFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if got, _ := mustGet(t, store, credstore.KeyAccessToken); got != access {
		t.Fatalf("stored access mismatch")
	}
	if _, ok := mustGet(t, store, credstore.KeyRefreshToken); ok {
		t.Fatal("no refresh token was issued")
	}
}

func TestRunLoginFailuresLeaveStoreUntouched(t *testing.T) {
	ctx := context.Background()
	exchangeErr := fmt.Errorf("%w: status 401", backend.ErrRejected)

	cases := map[string]struct {
		exchange Exchange
		want     LoginFailureKind
	}{
		"exchange": {
			exchange: func(context.Context) (backend.Tokens, error) { return backend.Tokens{}, exchangeErr },
			want:     LoginFailureExchange,
		},
		"expired": {
			exchange: func(context.Context) (backend.Tokens, error) {
				return backend.Tokens{AccessToken: signToken(t, 1, testNow.Add(-time.Minute))}, nil
			},
			want: LoginFailureExpired,
		},
	}

	for name, tc := range cases {
		store := newStore()
		_ = store.Save(ctx, "previous", "previous-refresh")
		res := RunLogin(ctx, tc.exchange, LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
		if res.Failure != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, res.Failure)
		}
		if got, _ := mustGet(t, store, credstore.KeyAccessToken); got != "previous" {
			t.Fatalf("%s: store modified on failure", name)
		}
	}
}

func TestRunLoginStoresOpaqueTokenAsIs(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	res := RunLogin(ctx, func(context.Context) (backend.Tokens, error) {
		return backend.Tokens{AccessToken: "X"}, nil
	}, LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != LoginFailureNone {
		t.Fatalf("expected success, got %v (%v)", res.Failure, res.Err)
	}
	if res.Tokens.Claims != nil {
		t.Fatalf("expected no claims for an opaque token, got %+v", res.Tokens.Claims)
	}
	if got, _ := mustGet(t, store, credstore.KeyAccessToken); got != "X" {
		t.Fatalf("expected stored token X, got %q", got)
	}
}

func TestRunLoginPersistFailure(t *testing.T) {
	store := newStore()
	store.saveErr = credstore.ErrUnavailable
	access := signToken(t, 3, testNow.Add(time.Hour))

	res := RunLogin(context.Background(), func(context.Context) (backend.Tokens, error) {
		return backend.Tokens{AccessToken: access, RefreshToken: "r"}, nil
	}, LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != LoginFailurePersist || !errors.Is(res.Err, credstore.ErrUnavailable) {
		t.Fatalf("expected persist failure, got %v (%v)", res.Failure, res.Err)
	}
}

func TestRunProviderLoginAcceptsOpaqueTokens(t *testing.T) {
	ctx := context.Background()
	store := newStore()

	res := RunProviderLogin(ctx, "opaque-access", "opaque-refresh", LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != LoginFailureNone {
		t.Fatalf("unexpected failure %v", res.Failure)
	}
	if res.Tokens.Claims != nil {
		t.Fatal("opaque token should carry no claims")
	}
	if got, _ := mustGet(t, store, credstore.KeyRefreshToken); got != "opaque-refresh" {
		t.Fatalf("refresh token not persisted as-is: %q", got)
	}

	expired := signToken(t, 2, testNow.Add(-time.Hour))
	res = RunProviderLogin(ctx, expired, "r", LoginDeps{Store: store, Decode: jwt.Decode, Now: fixedNow})
	if res.Failure != LoginFailureExpired {
		t.Fatalf("expected expired failure, got %v", res.Failure)
	}
}

func TestRunRefreshRotatesPair(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_ = store.Save(ctx, "old-access", "old-refresh")
	next := signToken(t, 9, testNow.Add(time.Hour))

	var sent string
	res := RunRefresh(ctx, RefreshDeps{
		Store: store,
		Refresh: func(_ context.Context, rt string) (backend.Tokens, error) {
			sent = rt
			return backend.Tokens{AccessToken: next, RefreshToken: "new-refresh"}, nil
		},
		Decode: jwt.Decode,
		Now:    fixedNow,
	})
	if res.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %v: %v", res.Failure, res.Err)
	}
	if sent != "old-refresh" {
		t.Fatalf("expected stored refresh token to be sent, got %q", sent)
	}
	if got, _ := mustGet(t, store, credstore.KeyRefreshToken); got != "new-refresh" {
		t.Fatalf("refresh token not rotated: %q", got)
	}
}

func TestRunRefreshTerminalFailuresClearStore(t *testing.T) {
	ctx := context.Background()

	store := newStore()
	_ = store.Save(ctx, "access", "")
	res := RunRefresh(ctx, RefreshDeps{Store: store, Decode: jwt.Decode, Now: fixedNow,
		Refresh: func(context.Context, string) (backend.Tokens, error) {
			t.Fatal("backend must not be called without a refresh token")
			return backend.Tokens{}, nil
		}})
	if res.Failure != RefreshFailureNoToken || !res.Failure.Terminal() {
		t.Fatalf("expected terminal no_token, got %v", res.Failure)
	}
	if _, ok := mustGet(t, store, credstore.KeyAccessToken); ok {
		t.Fatal("store should be cleared")
	}

	store = newStore()
	_ = store.Save(ctx, "access", "refresh")
	res = RunRefresh(ctx, RefreshDeps{Store: store, Decode: jwt.Decode, Now: fixedNow,
		Refresh: func(context.Context, string) (backend.Tokens, error) {
			return backend.Tokens{}, &backend.StatusError{Kind: backend.ErrRejected, StatusCode: 500}
		}})
	if res.Failure != RefreshFailureRejected {
		t.Fatalf("expected rejected, got %v", res.Failure)
	}
	if _, ok := mustGet(t, store, credstore.KeyRefreshToken); ok {
		t.Fatal("store should be cleared after rejection")
	}
}

func TestRunRefreshNetworkFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_ = store.Save(ctx, "access", "refresh")

	res := RunRefresh(ctx, RefreshDeps{Store: store, Decode: jwt.Decode, Now: fixedNow,
		Refresh: func(context.Context, string) (backend.Tokens, error) {
			return backend.Tokens{}, fmt.Errorf("%w: connection refused", backend.ErrTransport)
		}})
	if res.Failure != RefreshFailureNetwork || res.Failure.Terminal() {
		t.Fatalf("expected non-terminal network failure, got %v", res.Failure)
	}
	if store.removed != 0 {
		t.Fatal("network failure must not clear the store")
	}
	if got, _ := mustGet(t, store, credstore.KeyAccessToken); got != "access" {
		t.Fatalf("access token changed: %q", got)
	}
}

func TestRunLogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	_ = store.Save(ctx, "a", "r")
	deps := LogoutDeps{Store: store}
	if err := RunLogout(ctx, deps); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if err := RunLogout(ctx, deps); err != nil {
		t.Fatalf("second logout: %v", err)
	}
}

func TestValidateCredentials(t *testing.T) {
	cases := []struct {
		email, password string
		field           string
	}{
		{"user@example.com", "Secr3t", ""},
		{"user@example", "Secr3t", "email"},
		{"user example@x.io", "Secr3t", "email"},
		{"@example.com", "Secr3t", "email"},
		{"user@example.com", "Ab1", "password"},
		{"user@example.com", "secret1", "password"},
		{"user@example.com", "Secrets", "password"},
	}
	for _, tc := range cases {
		issue := ValidateCredentials(tc.email, tc.password)
		switch {
		case tc.field == "" && issue != nil:
			t.Fatalf("%q/%q: unexpected issue %+v", tc.email, tc.password, issue)
		case tc.field != "" && (issue == nil || issue.Field != tc.field):
			t.Fatalf("%q/%q: expected %s issue, got %+v", tc.email, tc.password, tc.field, issue)
		}
	}
}

func TestValidateProfile(t *testing.T) {
	if issue := ValidateProfile("Ada", "Lovelace"); issue != nil {
		t.Fatalf("unexpected issue %+v", issue)
	}
	if issue := ValidateProfile("  ", "Lovelace"); issue == nil || issue.Field != "name" {
		t.Fatalf("expected name issue, got %+v", issue)
	}
	if issue := ValidateProfile("Ada", ""); issue == nil || issue.Field != "surname" {
		t.Fatalf("expected surname issue, got %+v", issue)
	}
}
