package flows

import "context"

// Service is the centralized flow runner built once by the Controller.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

func (s Service) Bootstrap(ctx context.Context) BootstrapResult {
	return RunBootstrap(ctx, s.deps.Bootstrap)
}

func (s Service) Login(ctx context.Context, exchange Exchange) LoginResult {
	return RunLogin(ctx, exchange, s.deps.Login)
}

func (s Service) ProviderLogin(ctx context.Context, accessToken, refreshToken string) LoginResult {
	return RunProviderLogin(ctx, accessToken, refreshToken, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context) RefreshResult {
	return RunRefresh(ctx, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}
