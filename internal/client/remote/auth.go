package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/packsync/packsync/internal/domain"
)

// Credentials are returned by sign-up and login.
type Credentials struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// SignUp creates an account.
func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password, "displayName": displayName}
	var creds Credentials
	if err := c.doNoAuth(ctx, http.MethodPost, "/v1/auth/signup", body, &creds); err != nil {
		return Credentials{}, fmt.Errorf("remote.Client.SignUp: %w", err)
	}
	return creds, nil
}

// Login exchanges an email and password for a token.
func (c *Client) Login(ctx context.Context, email, password string) (Credentials, error) {
	body := map[string]string{"email": email, "password": password}
	var creds Credentials
	if err := c.doNoAuth(ctx, http.MethodPost, "/v1/auth/login", body, &creds); err != nil {
		return Credentials{}, fmt.Errorf("remote.Client.Login: %w", err)
	}
	return creds, nil
}

// Me returns the account that token belongs to.
func (c *Client) Me(ctx context.Context, token string) (domain.User, error) {
	var user domain.User
	if err := c.doRequest(ctx, http.MethodGet, "/v1/auth/me", nil, &user, token); err != nil {
		return domain.User{}, fmt.Errorf("remote.Client.Me: %w", err)
	}
	return user, nil
}
