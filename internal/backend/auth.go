package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/meridian-hq/meridian-portal/internal/authz"
	"github.com/meridian-hq/meridian-portal/internal/shared"
)

// LoginCredentials carries an email/password pair.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterCredentials carries the fields for account creation.
type RegisterCredentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

// VerifyOTPData identifies the account and the code being verified.
type VerifyOTPData struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code"`
}

// ResendOTPData identifies the destination for a fresh code.
type ResendOTPData struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// GoogleLoginData wraps the Google ID token.
type GoogleLoginData struct {
	IDToken string `json:"idToken"`
}

// AuthResult is the data section of a successful auth response.
type AuthResult struct {
	User        authz.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// RegisterResult is the data section of a successful registration.
type RegisterResult struct {
	User   authz.User `json:"user"`
	SentTo string     `json:"sentTo"`
}

// Login exchanges credentials for a user record and access token. A 401
// here means bad credentials rather than a stale session, so the error is
// remapped accordingly.
func (c *Client) Login(ctx context.Context, creds LoginCredentials) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			apiErr.Err = shared.ErrInvalidCredentials
		}
		return nil, err
	}
	return &out, nil
}

// Register creates an account; verification happens out of band.
func (c *Client) Register(ctx context.Context, creds RegisterCredentials) (*RegisterResult, error) {
	var out RegisterResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP confirms a one-time code and signs the account in.
func (c *Client) VerifyOTP(ctx context.Context, data VerifyOTPData) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/verify-otp", "", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendOTP requests a fresh one-time code.
func (c *Client) ResendOTP(ctx context.Context, data ResendOTPData) error {
	return c.do(ctx, http.MethodPost, "/auth/resend-otp", "", data, nil)
}

// GoogleLogin exchanges a Google ID token for a portal session.
func (c *Client) GoogleLogin(ctx context.Context, data GoogleLoginData) (*AuthResult, error) {
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/google-login", "", data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken trades a still-valid token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", token, struct{}{}, &out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// CurrentUser fetches the account behind the token. Used to restore a
// persisted session; callers treat any failure as logged out.
func (c *Client) CurrentUser(ctx context.Context, token string) (*authz.User, error) {
	var out struct {
		User authz.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
