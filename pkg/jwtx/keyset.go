package jwtx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the auth provider's public verification keys in memory.
// It's safe for concurrent use by request handlers and the refresher.
type KeySet struct {
	mu  sync.RWMutex
	pub map[string]any // kid: *rsa.PublicKey | ed25519.PublicKey | *ecdsa.PublicKey
}

// NewKeySet returns an empty KeySet.
func NewKeySet() *KeySet {
	return &KeySet{pub: make(map[string]any)}
}

// Get returns the public key for the given kid.
func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pk, ok := k.pub[kid]; ok {
		return pk, nil
	}
	return nil, ErrNoKey
}

// IsReady returns true if the KeySet has at least one key loaded.
func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.pub) > 0
}

// ResetFromJWKS replaces all keys from a JWKS. A single bad key rejects the
// whole set so a half-parsed rotation never goes live.
func (k *KeySet) ResetFromJWKS(jwks JWKS) error {
	next := make(map[string]any, len(jwks.Keys))
	for _, j := range jwks.Keys {
		key, err := parseJWKToKey(j)
		if err != nil {
			return fmt.Errorf("jwtx: kid %q: %w", j.Kid, err)
		}
		next[j.Kid] = key
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.pub = next
	return nil
}

// FetchFunc retrieves the current JWKS from the auth provider.
type FetchFunc func(ctx context.Context) (JWKS, error)

// Refresher keeps a KeySet in sync with the auth provider's JWKS endpoint.
type Refresher struct {
	Keys     *KeySet
	Fetch    FetchFunc
	Interval time.Duration
	Logger   *slog.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRefresher builds a refresher. Interval defaults to 15 minutes.
func NewRefresher(keys *KeySet, fetch FetchFunc, interval time.Duration, logger *slog.Logger) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Refresher{
		Keys:     keys,
		Fetch:    fetch,
		Interval: interval,
		Logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Refresh fetches the JWKS once and swaps it into the KeySet.
func (r *Refresher) Refresh(ctx context.Context) error {
	jwks, err := r.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	return r.Keys.ResetFromJWKS(jwks)
}

// Start runs the periodic refresh loop in the background.
func (r *Refresher) Start() {
	go r.run()
}

// Stop halts the refresh loop and waits for it to exit.
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Refresher) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := r.Refresh(ctx); err != nil {
				r.Logger.Error("jwks refresh failed", "error", err)
			} else {
				r.Logger.Debug("jwks refreshed")
			}
			cancel()
		case <-r.stopCh:
			return
		}
	}
}
