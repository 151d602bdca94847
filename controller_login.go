package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/internal/flows"
)

// Login exchanges email and password for a token pair and publishes Authenticated.
//
// Failures leave the session unchanged and wrap ErrValidation, ErrInvalidCredentials,
// ErrNetwork, ErrBackend, ErrInvalidResponse or ErrStorage.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	if c.config.Validation.Enabled {
		if issue := flows.ValidateCredentials(email, password); issue != nil {
			c.metrics.Inc(MetricValidationRejected)
			return &FieldError{Field: issue.Field, Message: issue.Message}
		}
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	res := c.flows.Login(ctx, func(ctx context.Context) (backend.Tokens, error) {
		return c.backend.Login(ctx, email, password)
	})
	if res.Failure != flows.LoginFailureNone {
		err := c.loginError(res, false)
		c.metrics.Inc(MetricLoginFailure)
		c.emitAudit(ctx, AuditEventLogin, false, 0, err, map[string]string{"failure": res.Failure.String()})
		return err
	}

	c.startSession(res.Tokens)
	c.metrics.Inc(MetricLoginSuccess)
	c.emitAudit(ctx, AuditEventLogin, true, c.userID(), nil, nil)
	return nil
}

// Register creates an account and signs in with the tokens it returns. A 409 from the
// backend yields ErrAccountExists.
func (c *Controller) Register(ctx context.Context, profile Profile, password string) error {
	if c.config.Validation.Enabled {
		issue := flows.ValidateProfile(profile.Name, profile.Surname)
		if issue == nil {
			issue = flows.ValidateCredentials(profile.Email, password)
		}
		if issue != nil {
			c.metrics.Inc(MetricValidationRejected)
			return &FieldError{Field: issue.Field, Message: issue.Message}
		}
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	res := c.flows.Login(ctx, func(ctx context.Context) (backend.Tokens, error) {
		return c.backend.Register(ctx, backend.RegisterRequest{
			Name:     profile.Name,
			Surname:  profile.Surname,
			Email:    profile.Email,
			Password: password,
		})
	})
	if res.Failure != flows.LoginFailureNone {
		err := c.loginError(res, true)
		if errors.Is(err, ErrAccountExists) {
			c.metrics.Inc(MetricRegisterDuplicate)
		} else {
			c.metrics.Inc(MetricRegisterFailure)
		}
		c.emitAudit(ctx, AuditEventRegister, false, 0, err, map[string]string{"failure": res.Failure.String()})
		return err
	}

	c.startSession(res.Tokens)
	c.metrics.Inc(MetricRegisterSuccess)
	c.emitAudit(ctx, AuditEventRegister, true, c.userID(), nil, nil)
	return nil
}

// LoginWithProvider adopts tokens delivered by an external identity provider.
//
// Tokens are stored as delivered and need not be decodable. A decodable access token
// that is already expired is rejected with ErrMalformedCallback.
func (c *Controller) LoginWithProvider(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" || refreshToken == "" {
		c.metrics.Inc(MetricProviderLoginFailure)
		return fmt.Errorf("%w: access_token and refresh_token are required", ErrMalformedCallback)
	}

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	res := c.flows.ProviderLogin(ctx, accessToken, refreshToken)
	if res.Failure != flows.LoginFailureNone {
		var err error
		switch res.Failure {
		case flows.LoginFailurePersist:
			c.metrics.Inc(MetricStorageFailure)
			err = fmt.Errorf("%w: %w", ErrStorage, res.Err)
		default:
			err = fmt.Errorf("%w: %w", ErrMalformedCallback, res.Err)
		}
		c.metrics.Inc(MetricProviderLoginFailure)
		c.emitAudit(ctx, AuditEventProviderLogin, false, 0, err, map[string]string{"failure": res.Failure.String()})
		return err
	}

	c.startSession(res.Tokens)
	c.metrics.Inc(MetricProviderLoginSuccess)
	c.emitAudit(ctx, AuditEventProviderLogin, true, c.userID(), nil, nil)
	return nil
}

// HandleProviderCallback parses a provider deep-link callback URL and signs in with
// the tokens it carries.
func (c *Controller) HandleProviderCallback(ctx context.Context, rawURL string) error {
	access, refresh, err := ParseProviderCallback(rawURL)
	if err != nil {
		c.metrics.Inc(MetricProviderLoginFailure)
		c.emitAudit(ctx, AuditEventProviderLogin, false, 0, err, map[string]string{"failure": "callback"})
		return err
	}
	return c.LoginWithProvider(ctx, access, refresh)
}

func (c *Controller) loginError(res flows.LoginResult, register bool) error {
	switch res.Failure {
	case flows.LoginFailureExchange:
		return mapBackendError(res.Err, register)
	case flows.LoginFailureExpired:
		return fmt.Errorf("%w: %w", ErrInvalidResponse, res.Err)
	case flows.LoginFailurePersist:
		c.metrics.Inc(MetricStorageFailure)
		return fmt.Errorf("%w: %w", ErrStorage, res.Err)
	default:
		return fmt.Errorf("%w: %v", ErrBackend, res.Err)
	}
}

func mapBackendError(err error, register bool) error {
	switch {
	case errors.Is(err, backend.ErrTransport):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	case errors.Is(err, backend.ErrConflict) && register:
		return fmt.Errorf("%w: %w", ErrAccountExists, err)
	case errors.Is(err, backend.ErrConflict), errors.Is(err, backend.ErrRejected):
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	case errors.Is(err, backend.ErrBadResponse):
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	default:
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
}
