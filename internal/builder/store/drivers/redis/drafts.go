// Package redis caches wizard drafts in Redis so a session survives a
// restart and can be served by any replica.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/folio/internal/builder/store"
)

const (
	draftKeyPrefix   = "folio:draft:" // folio:draft:{draft_id} -> JSON record
	userDraftsPrefix = "folio:user:"  // folio:user:{user_id}:drafts -> set of draft ids

	// folio:draft:{draft_id}:submit -> owner token of the running submission
	// folio:draft:{draft_id}:parent -> portfolio id, set once
)

// releaseScript deletes the claim only while it still holds the caller's
// token, so a claim that lapsed and was retaken is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DraftCache stores one JSON record per draft with a TTL and keeps a per
// user index set alongside it.
type DraftCache struct {
	client goredis.UniversalClient
}

// New connects to addr and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*DraftCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &DraftCache{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client goredis.UniversalClient) *DraftCache {
	return &DraftCache{client: client}
}

func (c *DraftCache) SaveDraft(ctx context.Context, rec store.DraftRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	userKey := userDraftsKey(rec.UserID)

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, draftKey(rec.ID), data, ttl)
	pipe.SAdd(ctx, userKey, rec.ID)
	pipe.Expire(ctx, userKey, ttl)
	pipe.Expire(ctx, parentKey(rec.ID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (c *DraftCache) LoadDraft(ctx context.Context, id string) (store.DraftRecord, error) {
	data, err := c.client.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return store.DraftRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.DraftRecord{}, fmt.Errorf("failed to get draft: %w", err)
	}

	var rec store.DraftRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return store.DraftRecord{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return rec, nil
}

func (c *DraftCache) DeleteDraft(ctx context.Context, id string) error {
	rec, err := c.LoadDraft(ctx, id)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, draftKey(id))
	pipe.SRem(ctx, userDraftsKey(rec.UserID), id)
	pipe.Del(ctx, submitKey(id), parentKey(id))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// ListDraftIDs returns the user's draft ids, pruning index entries whose
// record has already expired.
func (c *DraftCache) ListDraftIDs(ctx context.Context, userID string) ([]string, error) {
	userKey := userDraftsKey(userID)

	ids, err := c.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = draftKey(id)
	}
	exists, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check drafts: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for i, v := range exists {
		if v == nil {
			stale = append(stale, ids[i])
			continue
		}
		live = append(live, ids[i])
	}
	if len(stale) > 0 {
		_ = c.client.SRem(ctx, userKey, stale...).Err()
	}
	return live, nil
}

func (c *DraftCache) ClaimSubmit(ctx context.Context, draftID, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, submitKey(draftID), owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim submission: %w", err)
	}
	return ok, nil
}

func (c *DraftCache) ReleaseSubmit(ctx context.Context, draftID, owner string) error {
	if err := releaseScript.Run(ctx, c.client, []string{submitKey(draftID)}, owner).Err(); err != nil {
		return fmt.Errorf("failed to release submission: %w", err)
	}
	return nil
}

func (c *DraftCache) BindParent(ctx context.Context, draftID, portfolioID string, ttl time.Duration) (string, error) {
	key := parentKey(draftID)

	set, err := c.client.SetNX(ctx, key, portfolioID, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to bind parent: %w", err)
	}
	if set {
		return portfolioID, nil
	}

	bound, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		// lapsed between the two calls
		return c.BindParent(ctx, draftID, portfolioID, ttl)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parent: %w", err)
	}
	return bound, nil
}

func (c *DraftCache) Parent(ctx context.Context, draftID string) (string, error) {
	p, err := c.client.Get(ctx, parentKey(draftID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read parent: %w", err)
	}
	return p, nil
}

func (c *DraftCache) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *DraftCache) Close() error { return c.client.Close() }

func draftKey(id string) string { return draftKeyPrefix + id }

func submitKey(id string) string { return draftKeyPrefix + id + ":submit" }

func parentKey(id string) string { return draftKeyPrefix + id + ":parent" }

func userDraftsKey(userID string) string { return userDraftsPrefix + userID + ":drafts" }
