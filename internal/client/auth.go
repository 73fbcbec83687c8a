package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopfront/shopctl/internal/session"
)

const (
	registerPath      = "/auth/api/register"
	adminRegisterPath = "/auth/api/Admin_Register"
	loginPath         = "/auth/api/login"
	logoutPath        = "/auth/api/Logout"
)

// MsgPasswordMismatch is shown when a password and its confirmation differ.
const MsgPasswordMismatch = "Passwords do not match"

type AuthClient struct {
	c *Client
}

// Credentials are what the login form collects.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationForm is the sign-up form. ConfirmPassword is checked locally
// and never sent.
type RegistrationForm struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Validate runs the checks the form does before anything is sent.
func (f RegistrationForm) Validate() error {
	if strings.TrimSpace(f.Username) == "" {
		return &ValidationError{Field: "username", Message: "Username is required"}
	}
	if strings.TrimSpace(f.Email) == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if f.Password == "" {
		return &ValidationError{Field: "password", Message: "Password is required"}
	}
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Message: MsgPasswordMismatch}
	}
	return nil
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
	Roles        []struct {
		Name string `json:"name"`
	} `json:"roles"`
}

func NewAuthClient(c *Client) *AuthClient {
	return &AuthClient{c: c}
}

// Register creates a regular user.
func (a *AuthClient) Register(ctx context.Context, form RegistrationForm) error {
	return a.register(ctx, registerPath, form, "Registration failed. Please try again.")
}

// RegisterAdmin creates an admin user. The backend requires an admin session.
func (a *AuthClient) RegisterAdmin(ctx context.Context, form RegistrationForm) error {
	return a.register(ctx, adminRegisterPath, form, "Admin registration failed. Please try again.")
}

func (a *AuthClient) register(ctx context.Context, path string, form RegistrationForm, fallback string) error {
	if err := form.Validate(); err != nil {
		return err
	}

	req, err := NewJSONRequest(http.MethodPost, path, form)
	if err != nil {
		return err
	}
	// Admin registration is an authorized call; plain sign-up is not.
	req.NoRefresh = path == registerPath

	return a.c.call(ctx, req, fallback, nil)
}

// Login exchanges credentials for a session and stores it.
func (a *AuthClient) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	req, err := NewJSONRequest(http.MethodPost, loginPath, creds)
	if err != nil {
		return session.Session{}, err
	}
	req.NoRefresh = true

	var resp loginResponse
	if err := a.c.call(ctx, req, "Login failed. Please check your credentials.", &resp); err != nil {
		return session.Session{}, err
	}
	if resp.Token == "" {
		return session.Session{}, errors.New("login response carried no token")
	}

	sess := session.Session{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         session.User{Username: resp.Username},
	}
	if len(resp.Roles) > 0 {
		sess.User.Role = session.Role(resp.Roles[0].Name)
	}

	if err := a.c.store.Save(sess); err != nil {
		return session.Session{}, err
	}
	a.c.refresher.reset()

	return sess, nil
}

// Logout tells the backend the session is over and then clears it locally.
// The server call is best effort: its failure is logged, never returned.
func (a *AuthClient) Logout(ctx context.Context) error {
	req := Request{Method: http.MethodPost, Path: logoutPath, NoRefresh: true}
	if err := a.c.call(ctx, req, "Logout failed", nil); err != nil {
		a.c.logger.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
	}

	if err := a.c.store.Clear(); err != nil {
		return err
	}
	a.c.refresher.reset()
	return nil
}

// Refresh exchanges the stored refresh token for a new pair without waiting
// for a 401.
func (a *AuthClient) Refresh(ctx context.Context) error {
	sess, ok, err := a.c.store.Load()
	if err != nil {
		return err
	}
	if !ok {
		return &APIError{StatusCode: http.StatusUnauthorized, Message: "not logged in"}
	}

	if err := a.c.refresher.refresh(ctx, sess.AccessToken); err != nil {
		if errors.Is(err, errSessionClosed) {
			return &APIError{StatusCode: http.StatusUnauthorized, Message: "session expired, please log in again"}
		}
		return err
	}
	return nil
}

// Session returns the stored session, if any.
func (a *AuthClient) Session() (session.Session, bool, error) {
	return a.c.store.Load()
}
