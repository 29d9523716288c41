package authapi

import (
	"context"
	"net/http"
)

// Register creates an account. The service logs the new user in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var res AuthResponse
	err := c.do(ctx, http.MethodPost, pathRegister, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var res AuthResponse
	err := c.do(ctx, http.MethodPost, pathLogin, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout ends the session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil)
}

// CurrentUser asks who is logged in. A 401 is returned as an *APIError and
// never triggers navigation.
func (c *Client) CurrentUser(ctx context.Context) (*AuthResponse, error) {
	var res AuthResponse
	if err := c.do(ctx, http.MethodGet, pathMe, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
