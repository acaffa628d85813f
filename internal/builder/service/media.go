package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/store"
	"github.com/aussiebroadwan/folio/pkg/idx"
	"github.com/aussiebroadwan/folio/pkg/media"
	"github.com/aussiebroadwan/folio/pkg/slogx"
)

var ErrMediaNotFound = fmt.Errorf("media item %w", domain.ErrNotFound)

// MediaService is the user's image library. Files live with the hosting
// provider; the store keeps the URL and provider id.
type MediaService struct {
	Store    store.Store
	Uploader media.Uploader
	Now      func() time.Time
}

func (s *MediaService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Upload hosts the file and records it in the library.
func (s *MediaService) Upload(ctx context.Context, userID string, f media.File) (domain.MediaItem, error) {
	log := slogx.FromContext(ctx)

	res, err := s.upload(ctx, f)
	if err != nil {
		log.Error("media upload failed", slog.Any("error", err))
		return domain.MediaItem{}, err
	}

	now := s.now()
	item := domain.MediaItem{
		ID:        idx.New().String(),
		UserID:    userID,
		URL:       res.URL,
		PublicID:  res.PublicID,
		Name:      displayName(f.Name, res),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Media().CreateMedia(ctx, item); err != nil {
		log.Error("failed to record media", slog.Any("error", err))
		return domain.MediaItem{}, err
	}

	log.Info("media uploaded", slog.String("media_id", item.ID))
	return item, nil
}

// List returns the caller's library, newest first.
func (s *MediaService) List(ctx context.Context, userID string) ([]domain.MediaItem, error) {
	return s.Store.Media().ListMedia(ctx, userID)
}

// Replace uploads a new file and points an existing item at it. The item
// keeps its id and position.
func (s *MediaService) Replace(ctx context.Context, userID, id string, f media.File) (domain.MediaItem, error) {
	if _, err := s.Store.Media().GetMedia(ctx, userID, id); err != nil {
		return domain.MediaItem{}, mapMediaErr(err)
	}

	res, err := s.upload(ctx, f)
	if err != nil {
		slogx.FromContext(ctx).Error("media replace upload failed", slog.Any("error", err))
		return domain.MediaItem{}, err
	}

	var out domain.MediaItem
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		item, err := tx.Media().GetMedia(ctx, userID, id)
		if err != nil {
			return err
		}
		item.URL = res.URL
		item.PublicID = res.PublicID
		item.Name = displayName(f.Name, res)
		item.UpdatedAt = s.now()
		if err := tx.Media().ReplaceMedia(ctx, item); err != nil {
			return err
		}
		out = item
		return nil
	})
	if err != nil {
		return domain.MediaItem{}, mapMediaErr(err)
	}
	return out, nil
}

// Delete removes an item from the library. The hosted file is left alone;
// unsigned uploads cannot be deleted by the client.
func (s *MediaService) Delete(ctx context.Context, userID, id string) error {
	return mapMediaErr(s.Store.Media().DeleteMedia(ctx, userID, id))
}

func (s *MediaService) upload(ctx context.Context, f media.File) (media.Result, error) {
	if s.Uploader == nil {
		return media.Result{}, media.ErrNotConfigured
	}
	return s.Uploader.Upload(ctx, f)
}

func displayName(name string, res media.Result) string {
	switch {
	case name != "":
		return name
	case res.PublicID != "":
		return res.PublicID
	}
	return media.ExtractPublicID(res.URL)
}

func mapMediaErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrMediaNotFound
	}
	return err
}
