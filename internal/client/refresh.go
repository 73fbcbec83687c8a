package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/shopfront/shopctl/internal/logging"
)

const refreshPath = "/auth/api/Refresh"

// State is the refresh state machine's position.
type State int32

const (
	StateIdle State = iota
	StateRefreshing
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRefreshing:
		return "REFRESHING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TokenPair is the refresh endpoint's response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresher runs at most one refresh exchange at a time. Callers that hit a
// 401 while an exchange is in flight wait for it and share its result.
type refresher struct {
	client *Client
	group  singleflight.Group

	mu    sync.Mutex
	state State
}

func newRefresher(c *Client) *refresher {
	return &refresher{client: c, state: StateIdle}
}

func (r *refresher) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *refresher) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()

	if prev != s {
		r.client.logger.Debug().
			Str(logging.FieldState, s.String()).
			Str("from", prev.String()).
			Msg("session state changed")
	}
}

// reset returns to IDLE after a new session has been established.
func (r *refresher) reset() {
	r.setState(StateIdle)
}

// refresh makes sure the stored access token is newer than staleToken, the
// token the rejected request was sent with. It returns errSessionClosed while
// FAILED and a *RefreshError when this call's exchange fails.
func (r *refresher) refresh(ctx context.Context, staleToken string) error {
	if r.State() == StateFailed {
		return errSessionClosed
	}

	// The exchange outlives any single caller; the HTTP client timeout bounds it.
	flightCtx := context.WithoutCancel(ctx)
	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return nil, r.exchange(flightCtx, staleToken)
	})
	return err
}

func (r *refresher) exchange(ctx context.Context, staleToken string) error {
	if r.State() == StateFailed {
		return errSessionClosed
	}

	store := r.client.store
	sess, ok, err := store.Load()
	if err != nil {
		return r.fail(fmt.Errorf("failed to load session: %w", err))
	}

	// Another exchange already replaced the token this request was sent with.
	if ok && sess.AccessToken != "" && sess.AccessToken != staleToken {
		return nil
	}

	r.setState(StateRefreshing)

	if !ok || sess.RefreshToken == "" {
		return r.fail(ErrNoRefreshToken)
	}

	pair, err := r.client.exchangeRefreshToken(ctx, sess.RefreshToken)
	if err != nil {
		return r.fail(err)
	}

	sess.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		sess.RefreshToken = pair.RefreshToken
	}
	if err := store.Save(sess); err != nil {
		return r.fail(err)
	}

	r.setState(StateIdle)
	r.client.logger.Info().
		Str(logging.FieldUsername, sess.User.Username).
		Msg("session refreshed")
	return nil
}

// fail clears the session, enters FAILED and fires the expiry signal.
func (r *refresher) fail(cause error) error {
	if err := r.client.store.Clear(); err != nil {
		r.client.logger.Error().Err(err).Msg("failed to clear session after refresh failure")
	}

	r.setState(StateFailed)
	r.client.logger.Warn().Err(cause).Msg("session refresh failed, session cleared")

	if r.client.onSessionExpired != nil {
		r.client.onSessionExpired()
	}

	return &RefreshError{Err: cause}
}

// exchangeRefreshToken posts the refresh token without a bearer header and
// outside Do, so a rejected refresh can never recurse into another refresh.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	req, err := NewJSONRequest(http.MethodPost, refreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	req.NoRefresh = true

	resp, err := c.send(ctx, req, "", 1)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp, "token refresh rejected")
	}

	var pair TokenPair
	if err := decodeJSON(resp, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, errors.New("refresh response carried no access token")
	}
	return &pair, nil
}
