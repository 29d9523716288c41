package authapi

import (
	"context"
	"net/http"
)

// AdminClient exposes the admin-only user management endpoints.
type AdminClient struct {
	c *Client
}

// Admin returns the admin sub-client.
func (c *Client) Admin() *AdminClient {
	return &AdminClient{c: c}
}

// ListUsers returns every user account.
func (a *AdminClient) ListUsers(ctx context.Context) ([]User, error) {
	var res struct {
		Success bool   `json:"success"`
		Users   []User `json:"users"`
		Data    []User `json:"data"`
	}
	if err := a.c.do(ctx, http.MethodGet, pathAdmin, nil, &res); err != nil {
		return nil, err
	}
	if res.Users != nil {
		return res.Users, nil
	}
	return res.Data, nil
}

// UpdateUserType changes a user's role.
func (a *AdminClient) UpdateUserType(ctx context.Context, id UserID, userType UserType) error {
	if id == "" {
		return ErrMissingUserID
	}
	return a.c.do(ctx, http.MethodPut, pathAdmin+"/"+id.String(),
		map[string]UserType{"userType": userType}, nil)
}

// DeleteUser deletes a user account.
func (a *AdminClient) DeleteUser(ctx context.Context, id UserID) error {
	if id == "" {
		return ErrMissingUserID
	}
	return a.c.do(ctx, http.MethodDelete, pathAdmin+"/"+id.String(), nil, nil)
}
