package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/fitsync/internal/prefs"
)

// Outbox keys for the pending context payload.
const (
	contextPayloadKey   = "BridgeContextPayload"
	contextHashKey      = "BridgeContextHash"
	contextDeliveredKey = "BridgeContextDelivered"
)

// Relay delivers outbound traffic to the peer.
type Relay struct {
	peer   Peer
	outbox prefs.Store
	logger *slog.Logger

	mu sync.Mutex
}

// NewRelay returns a relay persisting context payloads in outbox. A nil
// logger means slog.Default().
func NewRelay(peer Peer, outbox prefs.Store, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{peer: peer, outbox: outbox, logger: logger}
}

// Publish sends msg if the peer is reachable. It reports whether the
// message was delivered; undelivered messages are dropped.
func (r *Relay) Publish(ctx context.Context, msg Message) bool {
	if !r.peer.IsReachable(ctx) {
		r.logger.Debug("peer unreachable, dropping message", "type", msg.Type)
		return false
	}
	if err := r.peer.Send(ctx, msg); err != nil {
		r.logger.Warn("send to peer failed", "type", msg.Type, "error", err)
		return false
	}
	return true
}

// PublishContext persists payload as the pending application context and
// tries to deliver it. A payload identical to the last delivered one is
// not resent. Only persistence failures are returned.
func (r *Relay) PublishContext(ctx context.Context, payload map[string]any) error {
	data, err := marshalCanonical(payload)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	hash := hashWithDomain(DomainContext, data)

	r.mu.Lock()
	prev, err := r.get(contextHashKey)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	delivered, err := r.get(contextDeliveredKey)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if prev == hash && delivered == "true" {
		r.mu.Unlock()
		return nil
	}
	for _, kv := range [][2]string{
		{contextPayloadKey, string(data)},
		{contextHashKey, hash},
		{contextDeliveredKey, "false"},
	} {
		if err := r.outbox.Set(kv[0], kv[1]); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("persist context: %w", err)
		}
	}
	r.mu.Unlock()

	if _, err := r.Flush(ctx); err != nil {
		r.logger.Warn("context delivery deferred", "error", err)
	}
	return nil
}

// Flush delivers the pending context payload, if any. It reports whether
// a payload was delivered by this call.
func (r *Relay) Flush(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered, err := r.get(contextDeliveredKey)
	if err != nil {
		return false, err
	}
	if delivered != "false" {
		return false, nil
	}
	payload, err := r.get(contextPayloadKey)
	if err != nil || payload == "" {
		return false, err
	}
	if !r.peer.IsReachable(ctx) {
		r.logger.Debug("peer unreachable, context stays pending")
		return false, nil
	}
	if err := r.peer.UpdateContext(ctx, []byte(payload)); err != nil {
		return false, fmt.Errorf("update context: %w", err)
	}
	if err := r.outbox.Set(contextDeliveredKey, "true"); err != nil {
		return false, fmt.Errorf("mark context delivered: %w", err)
	}
	return true, nil
}

// Pending returns the undelivered context payload, if any.
func (r *Relay) Pending() ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delivered, err := r.get(contextDeliveredKey)
	if err != nil || delivered != "false" {
		return nil, false, err
	}
	payload, err := r.get(contextPayloadKey)
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// get returns "" for missing keys.
func (r *Relay) get(key string) (string, error) {
	v, err := r.outbox.Get(key)
	if errors.Is(err, prefs.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
