package authapi

import (
	"context"
	"fmt"
	"net/http"
)

// Provider is an OAuth identity provider supported by the service.
type Provider string

// Supported providers.
const (
	ProviderGoogle Provider = "google"
	ProviderNaver  Provider = "naver"
)

// Providers lists the supported providers.
var Providers = []Provider{ProviderGoogle, ProviderNaver}

// ParseProvider validates a provider name.
func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
}

// AuthURL returns the provider's authorization URL the user must visit.
func (c *Client) AuthURL(ctx context.Context, provider Provider) (string, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return "", err
	}
	var res struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
		AuthURL string `json:"authUrl"`
	}
	if err := c.do(ctx, http.MethodGet, "/"+string(provider)+"/url", nil, &res); err != nil {
		return "", err
	}
	if res.URL != "" {
		return res.URL, nil
	}
	if res.AuthURL != "" {
		return res.AuthURL, nil
	}
	return "", fmt.Errorf("authapi: %s/url: empty authorization url", provider)
}

// HandleOAuthCallback exchanges the provider's authorization code for a
// session.
func (c *Client) HandleOAuthCallback(ctx context.Context, provider Provider, code string) (*AuthResponse, error) {
	if _, err := ParseProvider(string(provider)); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, ErrMissingCode
	}
	var res AuthResponse
	err := c.do(ctx, http.MethodPost, "/"+string(provider)+"/callback", map[string]string{"code": code}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
