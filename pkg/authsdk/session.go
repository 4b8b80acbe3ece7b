package authsdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Session is a logged-in client. Requests carry the access token; a 401
// triggers one refresh and one retry.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	username     string
	roles        []string
}

func newSession(client *SDKClient, tokens *SessionResponse) *Session {
	return &Session{
		client:       client,
		accessToken:  tokens.AccessToken,
		refreshToken: tokens.RefreshToken,
		username:     tokens.Username,
		roles:        tokens.Roles,
	}
}

// NewSessionFromTokens resumes a session from stored tokens.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{client: c, accessToken: accessToken, refreshToken: refreshToken}
}

// Username returns the subject the session was issued for.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Roles returns the roles granted at login.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roles
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Refresh rotates the refresh token and replaces both tokens.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return errors.New("no refresh token")
	}

	tokens, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return err
	}

	s.accessToken = tokens.AccessToken
	s.refreshToken = tokens.RefreshToken
	s.username = tokens.Username
	s.roles = tokens.Roles
	return nil
}

// Logout ends this session, or every session of the user with allDevices.
func (s *Session) Logout(ctx context.Context, allDevices bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshToken == "" {
		return errors.New("no refresh token")
	}
	if err := s.client.Logout(ctx, s.refreshToken, allDevices); err != nil {
		return err
	}
	s.accessToken, s.refreshToken = "", ""
	return nil
}

// Do sends an authenticated request. body is read at most twice, so pass nil
// or a fresh function result per call.
func (s *Session) Do(ctx context.Context, method, path string, body func() io.Reader) (*http.Response, error) {
	resp, err := s.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	_ = resp.Body.Close()

	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh after 401: %w", err)
	}
	return s.send(ctx, method, path, body)
}

// GetJSON performs an authenticated GET and decodes a 200 response.
func (s *Session) GetJSON(ctx context.Context, path string, target any) error {
	resp, err := s.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return expect(resp, http.StatusOK, target)
}

func (s *Session) send(ctx context.Context, method, path string, body func() io.Reader) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = body()
	}
	return s.client.doRequest(ctx, method, path, r, map[string]string{
		"Authorization": "Bearer " + s.AccessToken(),
		"Content-Type":  "application/json",
	})
}
