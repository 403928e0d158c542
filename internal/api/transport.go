// ABOUTME: Authenticated HTTP transport with single refresh-and-retry on 401.
// ABOUTME: Centralizes credential handling so call sites never repeat it.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// TokenSource supplies the opaque credential attached to every request.
// Refresh is invoked at most once per request, after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// authTransport attaches credentials and performs exactly one
// refresh-and-retry cycle on a 401 response. A second 401 is passed
// through for the client layer to surface as a fatal auth error.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("fetch token: %w", err)
	}

	resp, err := t.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// One refresh-and-retry cycle, then give up.
	drain(resp)
	token, err = t.tokens.Refresh(req.Context())
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", ErrAuthExpired)
	}
	return t.send(req, token)
}

// send clones the request so the original body can be replayed on retry.
func (t *authTransport) send(req *http.Request, token string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		clone.Body = body
	}
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}

// drain discards a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
