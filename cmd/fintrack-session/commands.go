package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	goSession "github.com/MrEthical07/goSession"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				if err := c.Login(ctx, email, password); err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	var (
		profile  goSession.Profile
		password string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				if err := c.Register(ctx, profile, password); err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "first name")
	cmd.Flags().StringVar(&profile.Surname, "surname", "", "last name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	for _, name := range []string{"name", "surname", "email", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func callbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "callback URL",
		Short: "Complete an identity provider sign-in from its redirect URL",
		Long: `Complete an identity provider sign-in. URL is the deep link the provider
redirected to, carrying access_token and refresh_token query parameters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				if err := c.HandleProviderCallback(ctx, args[0]); err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				if err := c.Logout(ctx); err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Rotate the stored token pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				if c.Status() != goSession.StatusAuthenticated {
					return goSession.ErrUnauthenticated
				}
				if err := c.Refresh(ctx); err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), c)
			})
		},
	}
}

func requestCmd(a *app) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authenticated request to the backend",
		Long: `Send an authenticated request. PATH is resolved against the base URL unless
it is absolute. A 401 response triggers one refresh and one retry.`,
		Example: `  fintrack-session request GET /accounts/user
  fintrack-session request POST /transactions --data '{"amount":12.5}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd, func(ctx context.Context, c *goSession.Controller) error {
				target := args[1]
				if !strings.Contains(target, "://") {
					target = strings.TrimSuffix(a.settings.BaseURL, "/") + "/" + strings.TrimPrefix(target, "/")
				}

				var body io.Reader
				if data != "" {
					body = strings.NewReader(data)
				}
				resp, err := c.Gateway(nil).Request(ctx, strings.ToUpper(args[0]), target, body)
				if err != nil {
					return err
				}
				defer resp.Body.Close()

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, resp.Status)
				if _, err := io.Copy(out, resp.Body); err != nil {
					return err
				}
				if resp.StatusCode >= http.StatusBadRequest {
					return fmt.Errorf("request failed: %s", resp.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	return cmd
}

func printSession(w io.Writer, c *goSession.Controller) error {
	s := c.Session()
	if s.Status != goSession.StatusAuthenticated {
		_, err := fmt.Fprintf(w, "status: %s\n", s.Status)
		return err
	}

	fmt.Fprintf(w, "status: %s\n", s.Status)
	if s.UserID != 0 {
		fmt.Fprintf(w, "user:   %d\n", s.UserID)
	}
	if exp := s.ExpiresAtTime(); !exp.IsZero() {
		fmt.Fprintf(w, "expires: %s\n", exp.UTC().Format(time.RFC3339))
	}
	return nil
}
