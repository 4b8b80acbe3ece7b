package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotReady is returned by GetReadiness alongside the failing checks.
var ErrNotReady = errors.New("authsdk: service not ready")

// GetLiveness reports whether the process answers at all.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}

	var out HealthResponse
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReadiness reports whether the service can take traffic. When it cannot,
// the response still carries the per-check detail and the error wraps
// ErrNotReady.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}

	want := http.StatusOK
	if resp.StatusCode == http.StatusServiceUnavailable {
		want = http.StatusServiceUnavailable
	}

	var out HealthResponse
	if err := expect(resp, want, &out); err != nil {
		return nil, err
	}
	if want != http.StatusOK {
		return &out, fmt.Errorf("%w: %s", ErrNotReady, out.Status)
	}
	return &out, nil
}
