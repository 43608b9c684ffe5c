// Package dnac is a client for the Cisco DNA Center REST API.
//
// A Client holds one controller session. It covers authentication, device
// inventory and the PnP (plug-and-play) queue, physical topology, sites,
// and the template programmer, including the pull/push synchronization of
// templates with a local directory.
package dnac

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ezdnac/ezdnac/pkg/util"
	"github.com/ezdnac/ezdnac/pkg/version"
)

// Base paths of the controller's API families
const (
	BaseAPI      = "/api/v1/"
	BaseAuth     = "/api/system/v1/"
	BaseIntent   = "/dna/intent/api/v1/"
	BaseSystem   = "/dna/system/api/v1/"
	BaseBusiness = "/dna/platform/management/business-api/v1/"
)

const (
	DefaultPort    = "443"
	DefaultTimeout = 5 * time.Second

	defaultTaskPollInterval = time.Second
	defaultTaskPollAttempts = 30
)

// Config describes how to reach a controller
type Config struct {
	Host      string // IP or hostname, optionally with scheme and port
	Port      string // defaults to 443
	Username  string
	Password  string
	AuthToken string // reused instead of logging in when set
	VerifySSL bool
	Timeout   time.Duration

	// TaskPollInterval and TaskPollAttempts bound WaitForTask.
	TaskPollInterval time.Duration
	TaskPollAttempts int

	// HTTPClient overrides the client built from VerifySSL and Timeout.
	HTTPClient *http.Client
}

// Client is a session with one controller. It is safe for concurrent use.
type Client struct {
	host     string
	port     string
	username string
	password string

	pollInterval time.Duration
	pollAttempts int

	http *http.Client

	mu         sync.RWMutex
	token      string
	lastTaskID string
}

// NewClient creates a client. No request is made until the first call.
func NewClient(cfg Config) (*Client, error) {
	host, port, err := splitHost(cfg.Host)
	if err != nil {
		return nil, err
	}
	if cfg.Port != "" {
		port = cfg.Port
	}
	if port == "" {
		port = DefaultPort
	}

	c := &Client{
		host:         host,
		port:         port,
		username:     cfg.Username,
		password:     cfg.Password,
		token:        cfg.AuthToken,
		pollInterval: cfg.TaskPollInterval,
		pollAttempts: cfg.TaskPollAttempts,
		http:         cfg.HTTPClient,
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultTaskPollInterval
	}
	if c.pollAttempts <= 0 {
		c.pollAttempts = defaultTaskPollAttempts
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL},
			},
		}
	}
	return c, nil
}

// splitHost accepts "10.0.0.1", "dnac.example.com:8443" or
// "https://dnac.example.com".
func splitHost(raw string) (host, port string, err error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", "", fmt.Errorf("%w: controller host is required", util.ErrInvalidConfig)
	}
	if h, p, err := net.SplitHostPort(s); err == nil {
		return h, p, nil
	}
	return s, "", nil
}

// Host returns the controller address.
func (c *Client) Host() string {
	return c.host
}

// Port returns the controller port.
func (c *Client) Port() string {
	return c.port
}

// Username returns the user the session belongs to.
func (c *Client) Username() string {
	return c.username
}

// Token returns the current auth token, empty before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// LastTaskID returns the id of the most recent task started by this client.
func (c *Client) LastTaskID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastTaskID
}

func (c *Client) rememberTask(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.lastTaskID = id
	c.mu.Unlock()
}

func (c *Client) baseURL() string {
	return "https://" + net.JoinHostPort(c.host, c.port)
}

// Authenticate returns the existing token, or logs in with the configured
// credentials when there is none.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if tok := c.Token(); tok != "" {
		util.WithController(c.host).Debug("Reusing existing token")
		return tok, nil
	}
	return c.Reauthenticate(ctx)
}

// Reauthenticate always requests a fresh token with the configured
// credentials.
func (c *Client) Reauthenticate(ctx context.Context) (string, error) {
	if c.username == "" || c.password == "" {
		return "", fmt.Errorf("%w: username and password required", util.ErrNotAuthenticated)
	}

	url := c.baseURL() + BaseAuth + "auth/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("User-Agent", version.UserAgent())

	log := util.WithController(c.host)
	log.Debug("Authenticating")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w (most likely a network reachability issue)", c.host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading auth response: %w", err)
	}

	r := gjson.ParseBytes(body)
	if e := r.Get("error"); e.Exists() {
		return "", fmt.Errorf("%w: %s", util.ErrNotAuthenticated, e.String())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &util.APIError{Method: http.MethodPost, URL: url, StatusCode: resp.StatusCode, Body: string(body)}
	}
	tok := r.Get("Token").String()
	if tok == "" {
		return "", fmt.Errorf("%w: no token in auth response", util.ErrNotAuthenticated)
	}

	c.setToken(tok)
	log.Info("Login success")
	return tok, nil
}
