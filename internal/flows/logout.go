package flows

import "context"

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store TokenStore
}

// RunLogout clears every stored token. It is idempotent; the error is reported to the
// caller for logging only.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	return deps.Store.RemoveAll(ctx)
}
