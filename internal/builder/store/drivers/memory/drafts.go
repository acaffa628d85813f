// Package memory is an in-process DraftCache for single instance
// deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/store"
)

type entry struct {
	rec       store.DraftRecord
	expiresAt time.Time
}

// lease is a value that lapses on its own: a submission claim or a bound
// parent id.
type lease struct {
	value     string
	expiresAt time.Time
}

// DraftCache keeps records in a map and expires them lazily on read.
type DraftCache struct {
	mu      sync.Mutex
	entries map[string]entry
	claims  map[string]lease
	parents map[string]lease
	now     func() time.Time
}

func New() *DraftCache {
	return &DraftCache{
		entries: make(map[string]entry),
		claims:  make(map[string]lease),
		parents: make(map[string]lease),
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *DraftCache) WithClock(now func() time.Time) *DraftCache {
	c.now = now
	return c
}

func (c *DraftCache) SaveDraft(_ context.Context, rec store.DraftRecord, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	expiresAt := c.now().Add(ttl)
	c.entries[rec.ID] = entry{rec: rec, expiresAt: expiresAt}
	if p, ok := c.live(c.parents, rec.ID); ok {
		c.parents[rec.ID] = lease{value: p, expiresAt: expiresAt}
	}
	return nil
}

func (c *DraftCache) LoadDraft(_ context.Context, id string) (store.DraftRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return store.DraftRecord{}, store.ErrNotFound
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, id)
		return store.DraftRecord{}, store.ErrNotFound
	}
	return e.rec, nil
}

func (c *DraftCache) DeleteDraft(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.entries, id)
	delete(c.claims, id)
	delete(c.parents, id)
	return nil
}

func (c *DraftCache) ListDraftIDs(_ context.Context, userID string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	ids := []string{}
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
			continue
		}
		if e.rec.UserID == userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *DraftCache) ClaimSubmit(_ context.Context, draftID, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, held := c.live(c.claims, draftID); held {
		return false, nil
	}
	c.claims[draftID] = lease{value: owner, expiresAt: c.now().Add(ttl)}
	return true, nil
}

func (c *DraftCache) ReleaseSubmit(_ context.Context, draftID, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if holder, ok := c.live(c.claims, draftID); ok && holder == owner {
		delete(c.claims, draftID)
	}
	return nil
}

func (c *DraftCache) BindParent(_ context.Context, draftID, portfolioID string, ttl time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bound, ok := c.live(c.parents, draftID); ok {
		return bound, nil
	}
	c.parents[draftID] = lease{value: portfolioID, expiresAt: c.now().Add(ttl)}
	return portfolioID, nil
}

func (c *DraftCache) Parent(_ context.Context, draftID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, _ := c.live(c.parents, draftID)
	return p, nil
}

// live reads key from m, dropping it if it has lapsed. Callers hold mu.
func (c *DraftCache) live(m map[string]lease, key string) (string, bool) {
	l, ok := m[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(l.expiresAt) {
		delete(m, key)
		return "", false
	}
	return l.value, true
}

func (c *DraftCache) Ping(context.Context) error { return nil }

func (c *DraftCache) Close() error { return nil }
