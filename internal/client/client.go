package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shopfront/shopctl/internal/logging"
	"github.com/shopfront/shopctl/internal/session"
)

const (
	DefaultServerURL = "http://localhost:8092"
	DefaultTimeout   = 30 * time.Second

	defaultUserAgent = "shopctl"
)

// Client sends requests to the storefront backend with the stored access
// token attached, refreshing and replaying once when the backend answers 401.
type Client struct {
	serverURL        string
	store            session.Store
	httpClient       *http.Client
	logger           zerolog.Logger
	userAgent        string
	onSessionExpired func()
	refresher        *refresher
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (transport, TLS, timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithSessionExpiredHandler registers the callback fired when a refresh
// fails and the session has been cleared. It runs once per failure, on the
// goroutine that ran the refresh.
func WithSessionExpiredHandler(fn func()) ClientOption {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

// New creates a client for serverURL that reads its token from store.
func New(serverURL string, store session.Store, opts ...ClientOption) *Client {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}

	c := &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		store:      store,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.Nop(),
		userAgent:  defaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.refresher = newRefresher(c)
	return c
}

// ServerURL returns the server URL this client is configured for
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Store returns the credential store the client reads from.
func (c *Client) Store() session.Store {
	return c.store
}

// State reports where the refresh state machine currently is.
func (c *Client) State() State {
	return c.refresher.State()
}

// Request describes one logical call. It is never mutated by the client, so
// the same value can be dispatched again after a refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string

	// NoRefresh makes a 401 terminal: used by the login, registration and
	// logout endpoints where a 401 says nothing about the stored session.
	NoRefresh bool
}

// NewJSONRequest encodes v as the request body.
func NewJSONRequest(method, path string, v interface{}) (Request, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Request{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return Request{
		Method:      method,
		Path:        path,
		Body:        body,
		ContentType: "application/json",
	}, nil
}

// Do sends r with the current access token. A 401 on the first attempt runs
// the refresh and sends r once more with the new token. Every 401 that is not
// replayed comes back as an error; any other status is returned as is and
// the caller must close the body.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		sess, _, err := c.store.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}

		resp, err := c.send(ctx, r, sess.AccessToken, attempt)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		apiErr := decodeError(resp, http.StatusText(http.StatusUnauthorized))
		resp.Body.Close()

		if r.NoRefresh || attempt > 1 {
			return nil, apiErr
		}

		if err := c.refresher.refresh(ctx, sess.AccessToken); err != nil {
			if errors.Is(err, errSessionClosed) {
				return nil, apiErr
			}
			return nil, err
		}
	}
}

func (c *Client) send(ctx context.Context, r Request, token string, attempt int) (*http.Response, error) {
	req, err := c.newHTTPRequest(ctx, r, token)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str(logging.FieldMethod, r.Method).
			Str(logging.FieldPath, r.Path).
			Int(logging.FieldAttempt, attempt).
			Msg("request failed")
		return nil, &NetworkError{Method: r.Method, URL: req.URL.Redacted(), Err: err}
	}

	c.logger.Debug().
		Str(logging.FieldMethod, r.Method).
		Str(logging.FieldPath, r.Path).
		Int(logging.FieldStatus, resp.StatusCode).
		Int(logging.FieldAttempt, attempt).
		Str(logging.FieldRequestID, req.Header.Get("X-Request-ID")).
		Int64(logging.FieldDuration, time.Since(start).Milliseconds()).
		Msg("request completed")

	return resp, nil
}

// newHTTPRequest builds a fresh *http.Request for one attempt.
func (c *Client) newHTTPRequest(ctx context.Context, r Request, token string) (*http.Request, error) {
	u := c.serverURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// call sends r and decodes a 2xx JSON body into out. A nil out discards the
// body. fallback is the message used when a failed response carries none.
func (c *Client) call(ctx context.Context, r Request, fallback string, out interface{}) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, fallback)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return decodeJSON(resp, out)
}

// decodeJSON decodes the body into out. An empty body leaves out untouched.
func decodeJSON(resp *http.Response, out interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// callRaw sends r and returns the 2xx body with its content type.
func (c *Client) callRaw(ctx context.Context, r Request, fallback string) ([]byte, string, error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", decodeError(resp, fallback)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
