package api

import (
	"context"
	"errors"
	"net/http"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp loginResponse
	body := AuthRequest{Username: username, Password: password}
	if err := c.sendJSON(ctx, "login", http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.New("login: no token received")
	}
	return resp.Token, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	var resp registerResponse
	body := AuthRequest{Username: username, Email: email, Password: password}
	if err := c.sendJSON(ctx, "register", http.MethodPost, "/api/auth/register", body, &resp); err != nil {
		return err
	}
	if resp.Message == "" {
		return errors.New("register: empty response")
	}
	return nil
}
