package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/store"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	// second run is a no-op
	require.NoError(t, s.ApplyMigrations())
	return s
}

func item(id, user string, at time.Time) domain.MediaItem {
	return domain.MediaItem{
		ID:        id,
		UserID:    user,
		URL:       "https://cdn.example.com/" + id + ".png",
		PublicID:  id,
		Name:      id + ".png",
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestMediaLifecycle(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Media().CreateMedia(ctx, item("m1", "u1", base)))
	require.NoError(t, s.Media().CreateMedia(ctx, item("m2", "u1", base.Add(time.Minute))))
	require.NoError(t, s.Media().CreateMedia(ctx, item("m3", "u2", base)))

	err := s.Media().CreateMedia(ctx, item("m1", "u1", base))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	list, err := s.Media().ListMedia(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "m2", list[0].ID, "newest first")

	got, err := s.Media().GetMedia(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, "m1.png", got.Name)
	require.True(t, base.Equal(got.CreatedAt))

	_, err = s.Media().GetMedia(ctx, "u2", "m1")
	require.ErrorIs(t, err, store.ErrNotFound, "other users cannot see the item")

	repl := got
	repl.URL = "https://cdn.example.com/new.png"
	repl.PublicID = ""
	repl.UpdatedAt = base.Add(time.Hour)
	require.NoError(t, s.Media().ReplaceMedia(ctx, repl))

	got, err = s.Media().GetMedia(ctx, "u1", "m1")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/new.png", got.URL)
	require.Empty(t, got.PublicID)

	require.NoError(t, s.Media().DeleteMedia(ctx, "u1", "m1"))
	require.ErrorIs(t, s.Media().DeleteMedia(ctx, "u1", "m1"), store.ErrNotFound)
	require.ErrorIs(t, s.Media().ReplaceMedia(ctx, repl), store.ErrNotFound)

	list, err = s.Media().ListMedia(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestWithTxRollsBack(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Media().CreateMedia(ctx, item("m1", "u1", time.Now().UTC())))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Media().GetMedia(ctx, "u1", "m1")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Media().CreateMedia(ctx, item("m1", "u1", time.Now().UTC()))
	})
	require.NoError(t, err)

	_, err = s.Media().GetMedia(ctx, "u1", "m1")
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))
}
