package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/draft"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the durable data access interface, backed by a SQL driver. It
// exposes sub-repositories so transactions cannot be nested by accident.
type Store interface {
	Media() Media

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the same repositories.
type Tx interface {
	Media() Media
}

// Media is the per-user image library. Items are newest first.
type Media interface {
	CreateMedia(ctx context.Context, m domain.MediaItem) error

	// GetMedia returns an item owned by userID.
	GetMedia(ctx context.Context, userID, id string) (domain.MediaItem, error)

	ListMedia(ctx context.Context, userID string) ([]domain.MediaItem, error)

	// ReplaceMedia swaps the hosted file behind an item, keeping its id.
	ReplaceMedia(ctx context.Context, m domain.MediaItem) error

	DeleteMedia(ctx context.Context, userID, id string) error
}

// DraftRecord is everything needed to rebuild a wizard session after a
// restart or on another replica.
type DraftRecord struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Saved       bool           `json:"saved"`
	PortfolioID string         `json:"portfolioId,omitempty"`
	Step        int            `json:"step"`
	Published   bool           `json:"published"`
	Slug        string         `json:"slug,omitempty"`
	Snapshot    draft.Snapshot `json:"snapshot"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// DraftCache keeps draft records for a bounded time. Every Save refreshes
// the expiry. It is shared by every replica, so it also holds what must be
// agreed on across them: who is submitting a draft's profile, and the
// portfolio the draft is bound to.
type DraftCache interface {
	SaveDraft(ctx context.Context, rec DraftRecord, ttl time.Duration) error
	LoadDraft(ctx context.Context, id string) (DraftRecord, error)
	DeleteDraft(ctx context.Context, id string) error

	// ListDraftIDs returns the ids of a user's cached drafts.
	ListDraftIDs(ctx context.Context, userID string) ([]string, error)

	// ClaimSubmit takes the draft's profile submission slot for owner, for
	// at most ttl. It reports false while someone else holds it.
	ClaimSubmit(ctx context.Context, draftID, owner string, ttl time.Duration) (bool, error)

	// ReleaseSubmit frees the slot if owner still holds it.
	ReleaseSubmit(ctx context.Context, draftID, owner string) error

	// BindParent records the draft's portfolio id. The first bind wins and
	// the bound id is returned. SaveDraft refreshes its expiry.
	BindParent(ctx context.Context, draftID, portfolioID string, ttl time.Duration) (string, error)

	// Parent returns the bound portfolio id, or "" when none is bound.
	Parent(ctx context.Context, draftID string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}
