package authsdk

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to a campus deployment, either the gateway or the auth
// service directly. It covers the unauthenticated calls and hands out
// Sessions for everything else.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for baseURL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials and a requested role for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password, role string) (*SessionResponse, error) {
	resp, err := c.postJSON(ctx, "/auth/login", LoginRequest{
		Username: username,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}
	return c.session(resp)
}

// Refresh rotates refreshToken. The old token is dead once this returns
// successfully.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*SessionResponse, error) {
	resp, err := c.postJSON(ctx, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	return c.session(resp)
}

// Logout deletes refreshToken, or every refresh token of its owner when
// allDevices is set.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string, allDevices bool) error {
	resp, err := c.postJSON(ctx, "/auth/logout", LogoutRequest{
		RefreshToken: refreshToken,
		AllDevices:   allDevices,
	})
	if err != nil {
		return err
	}
	return expect(resp, http.StatusNoContent, nil)
}

func (c *SDKClient) session(resp *http.Response) (*SessionResponse, error) {
	var out SessionResponse
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errors.New("session response without tokens")
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the result in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, username, password, role string) (*Session, error) {
	tokens, err := c.Login(ctx, username, password, role)
	if err != nil {
		return nil, err
	}
	return newSession(c, tokens), nil
}
