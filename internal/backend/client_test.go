package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/backend"
	"github.com/MrEthical07/goSession/internal/testbackend"
	"github.com/MrEthical07/goSession/jwt"
)

func newBackend(t *testing.T) (*testbackend.Server, *backend.Client) {
	t.Helper()
	srv, err := testbackend.New([]byte("backend-client-test"), time.Hour)
	if err != nil {
		t.Fatalf("testbackend.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, backend.New(ts.Client(), ts.URL+"/", backend.DefaultEndpoints())
}

func TestLoginReturnsDecodableTokens(t *testing.T) {
	srv, client := newBackend(t)
	id := srv.AddUser("Ada", "Lovelace", "ada@example.com", "Secr3t")

	tokens, err := client.Login(context.Background(), "ada@example.com", "Secr3t")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if tokens.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}
	claims, err := jwt.Decode(tokens.AccessToken)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.UserID != id {
		t.Fatalf("expected user %d, got %d", id, claims.UserID)
	}
}

func TestLoginRejectedCarriesStatus(t *testing.T) {
	srv, client := newBackend(t)
	srv.AddUser("Ada", "Lovelace", "ada@example.com", "Secr3t")

	_, err := client.Login(context.Background(), "ada@example.com", "Wr0ng")
	if !errors.Is(err, backend.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	var se *backend.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %T", err)
	}
	if se.StatusCode != http.StatusUnauthorized || se.Message != "Incorrect email or password" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestRegisterConflict(t *testing.T) {
	srv, client := newBackend(t)
	srv.AddUser("Ada", "Lovelace", "ada@example.com", "Secr3t")

	_, err := client.Register(context.Background(), backend.RegisterRequest{
		Name: "Ada", Surname: "L", Email: "ada@example.com", Password: "Secr3t",
	})
	if !errors.Is(err, backend.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterCreatesAccount(t *testing.T) {
	_, client := newBackend(t)
	tokens, err := client.Register(context.Background(), backend.RegisterRequest{
		Name: "Grace", Surname: "Hopper", Email: "grace@example.com", Password: "C0bol",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := client.Login(context.Background(), "grace@example.com", "C0bol"); err != nil {
		t.Fatalf("login after register: %v", err)
	}
	if tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}
}

func TestRefreshRotatesAndIsSingleUse(t *testing.T) {
	srv, client := newBackend(t)
	id := srv.AddUser("Ada", "Lovelace", "ada@example.com", "Secr3t")
	_, refresh, err := srv.IssuePair(id)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	next, err := client.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == "" || next.RefreshToken == refresh {
		t.Fatalf("expected rotated refresh token, got %q", next.RefreshToken)
	}
	if _, err := client.Refresh(context.Background(), refresh); !errors.Is(err, backend.ErrRejected) {
		t.Fatalf("expected reuse to be rejected, got %v", err)
	}
}

func TestRefreshServerErrorIsRejection(t *testing.T) {
	srv, client := newBackend(t)
	srv.SetRefreshStatus(http.StatusBadGateway)

	_, err := client.Refresh(context.Background(), "anything")
	if !errors.Is(err, backend.ErrRejected) {
		t.Fatalf("refresh 5xx should be a rejection, got %v", err)
	}
}

func TestLoginServerErrorIsUnexpected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := backend.New(ts.Client(), ts.URL, backend.DefaultEndpoints())
	_, err := client.Login(context.Background(), "a@b.io", "Secr3t")
	if !errors.Is(err, backend.ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestBadPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer ts.Close()

	client := backend.New(ts.Client(), ts.URL, backend.DefaultEndpoints())
	if _, err := client.Login(context.Background(), "a@b.io", "Secr3t"); !errors.Is(err, backend.ErrBadResponse) {
		t.Fatalf("expected ErrBadResponse, got %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := backend.New(nil, url, backend.DefaultEndpoints())
	if _, err := client.Refresh(context.Background(), "r"); !errors.Is(err, backend.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
