package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Peer is the companion device.
type Peer interface {
	IsReachable(ctx context.Context) bool
	Send(ctx context.Context, msg Message) error
	UpdateContext(ctx context.Context, payload []byte) error
}

// HTTPPeer talks to a companion listening on BaseURL:
//
//	GET  /ping      reachability
//	POST /messages  tagged messages
//	PUT  /context   application context
type HTTPPeer struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPPeer returns a peer with a short request timeout.
func NewHTTPPeer(baseURL string) *HTTPPeer {
	return &HTTPPeer{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// IsReachable implements Peer.
func (p *HTTPPeer) IsReachable(ctx context.Context) bool {
	if p.BaseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.do(ctx, http.MethodGet, "/ping", nil) == nil
}

// Send implements Peer.
func (p *HTTPPeer) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return p.do(ctx, http.MethodPost, "/messages", body)
}

// UpdateContext implements Peer.
func (p *HTTPPeer) UpdateContext(ctx context.Context, payload []byte) error {
	return p.do(ctx, http.MethodPut, "/context", payload)
}

func (p *HTTPPeer) do(ctx context.Context, method, path string, body []byte) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, r)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	return nil
}
