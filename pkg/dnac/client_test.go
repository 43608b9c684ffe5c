package dnac

import (
	"errors"
	"net/http"
	"testing"

	"github.com/ezdnac/ezdnac/internal/testutil"
	"github.com/ezdnac/ezdnac/pkg/util"
)

func TestSplitHost(t *testing.T) {
	tests := []struct {
		raw, host, port string
	}{
		{"10.0.0.1", "10.0.0.1", ""},
		{"dnac.example.com:8443", "dnac.example.com", "8443"},
		{"https://dnac.example.com/", "dnac.example.com", ""},
		{"http://10.0.0.1:443", "10.0.0.1", "443"},
		{"  10.0.0.2 ", "10.0.0.2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			host, port, err := splitHost(tt.raw)
			if err != nil {
				t.Fatalf("splitHost: %v", err)
			}
			if host != tt.host || port != tt.port {
				t.Errorf("splitHost(%q) = %q, %q; want %q, %q", tt.raw, host, port, tt.host, tt.port)
			}
		})
	}

	if _, _, err := splitHost(""); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("empty host: err = %v, want ErrInvalidConfig", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{Host: "10.0.0.1"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Port() != DefaultPort {
		t.Errorf("Port = %q, want %q", c.Port(), DefaultPort)
	}
	if c.http.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.http.Timeout, DefaultTimeout)
	}
	if c.baseURL() != "https://10.0.0.1:443" {
		t.Errorf("baseURL = %q", c.baseURL())
	}

	c, _ = NewClient(Config{Host: "10.0.0.1:8443", Port: "9443"})
	if c.Port() != "9443" {
		t.Errorf("explicit Port should win, got %q", c.Port())
	}
}

func TestAuthenticate(t *testing.T) {
	ctrl := testutil.NewController(t)
	c, err := NewClient(Config{
		Host:       ctrl.Addr(),
		Username:   testutil.Username,
		Password:   testutil.Password,
		HTTPClient: ctrl.Client(),
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := testutil.Context(t)

	tok, err := c.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if tok != testutil.Token || c.Token() != testutil.Token {
		t.Errorf("token = %q", tok)
	}

	// A second call reuses the token.
	if _, err := c.Authenticate(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(ctrl.Calls(http.MethodPost, "auth/token")); n != 1 {
		t.Errorf("auth calls = %d, want 1", n)
	}

	if _, err := c.Reauthenticate(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(ctrl.Calls(http.MethodPost, "auth/token")); n != 2 {
		t.Errorf("auth calls after Reauthenticate = %d, want 2", n)
	}
}

func TestAuthenticate_BadCredentials(t *testing.T) {
	ctrl := testutil.NewController(t)
	c, _ := NewClient(Config{
		Host:       ctrl.Addr(),
		Username:   testutil.Username,
		Password:   "wrong",
		HTTPClient: ctrl.Client(),
	})
	_, err := c.Authenticate(testutil.Context(t))
	if !errors.Is(err, util.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if c.Token() != "" {
		t.Error("token must stay empty after a failed login")
	}
}

func TestAuthenticate_NoCredentials(t *testing.T) {
	c, _ := NewClient(Config{Host: "10.0.0.1"})
	if _, err := c.Authenticate(testutil.Context(t)); !errors.Is(err, util.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestDo_Headers(t *testing.T) {
	c, ctrl := newTestClient(t)
	if _, err := c.Do(testutil.Context(t), http.MethodGet, "", "network-device/", nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	reqs := ctrl.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d", len(reqs))
	}
	r := reqs[0]
	if r.Path != "/api/v1/network-device/" {
		t.Errorf("path = %q, default base should be %s", r.Path, BaseAPI)
	}
	if r.Header.Get("x-auth-token") != testutil.Token {
		t.Errorf("x-auth-token = %q", r.Header.Get("x-auth-token"))
	}
	if r.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
	}
}

func TestDo_InvalidMethod(t *testing.T) {
	c, ctrl := newTestClient(t)
	if _, err := c.Do(testutil.Context(t), http.MethodPatch, "", "network-device/", nil); err == nil {
		t.Fatal("PATCH should be rejected")
	}
	if len(ctrl.Requests()) != 0 {
		t.Error("rejected method must not reach the controller")
	}
}

func TestDo_Unauthorized(t *testing.T) {
	ctrl := testutil.NewController(t)
	c, _ := NewClient(Config{Host: ctrl.Addr(), AuthToken: "stale", HTTPClient: ctrl.Client()})

	_, err := c.GetAllDevices(testutil.Context(t))
	if !errors.Is(err, util.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	var apiErr *util.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected a 401 APIError, got %v", err)
	}
}
