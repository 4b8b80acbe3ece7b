// Package credentials is the auth service's client for the remote credential
// verifier. The verifier owns users and passwords; the auth service only asks
// it whether a username/password pair is good and which roles it carries.
package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/campus/internal/auth/domain"
	"github.com/aussiebroadwan/campus/pkg/authsdk"
	"github.com/aussiebroadwan/campus/pkg/relayx"
)

var (
	// ErrNotFound means the verifier answered and did not vouch for the
	// credentials. Unknown user and wrong password are not told apart.
	ErrNotFound = errors.New("credentials: not found")

	// ErrUnavailable covers every failure to get an answer: timeouts,
	// connection errors, unexpected statuses, undecodable bodies.
	ErrUnavailable = errors.New("credentials: verifier unavailable")
)

// VerifyPath is where the verifier listens.
const VerifyPath = "/verify"

// DefaultTimeout bounds one verify call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

type Options struct {
	BaseURL    string
	Secrets    relayx.SecretSource
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
}

// Client calls POST {BaseURL}/verify. Safe for concurrent use.
type Client struct {
	baseURL string
	secrets relayx.SecretSource
	http    *http.Client
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("credentials: base url is required")
	}
	if opts.Secrets == nil {
		return nil, errors.New("credentials: secret source is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		secrets: opts.Secrets,
		http:    hc,
	}, nil
}

// Verify asks the verifier about username and password. It returns the
// identity, ErrNotFound, or an error wrapping ErrUnavailable.
func (c *Client) Verify(ctx context.Context, username, password string) (domain.Identity, error) {
	body, err := json.Marshal(authsdk.VerifyRequest{Username: username, Password: password})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+VerifyPath, bytes.NewReader(body))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	relayx.SetSecret(req.Header, c.secrets)

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound, http.StatusUnauthorized:
		return domain.Identity{}, ErrNotFound
	default:
		return domain.Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Identity{}, ErrNotFound
	}

	var out authsdk.VerifyResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if out.ID == 0 || out.Username == "" {
		return domain.Identity{}, ErrNotFound
	}

	return domain.Identity{ID: out.ID, Username: out.Username, Roles: out.Roles}, nil
}

// Ping reports whether the verifier is reachable, for readiness checks. Any
// HTTP answer counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/livez", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	_ = resp.Body.Close()
	return nil
}
