package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/aussiebroadwan/folio/internal/builder/domain"
	"github.com/aussiebroadwan/folio/internal/builder/store"
)

type mediaRepo struct {
	q querier
}

const mediaColumns = `id, user_id, url, public_id, name, created_at, updated_at`

func (r *mediaRepo) CreateMedia(ctx context.Context, m domain.MediaItem) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.URL, mapStringNull(m.PublicID), mapStringNull(m.Name), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *mediaRepo) GetMedia(ctx context.Context, userID, id string) (domain.MediaItem, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ? AND user_id = ?`, id, userID)

	m, err := scanMedia(row)
	if err != nil {
		return domain.MediaItem{}, mapNotFound(err)
	}
	return m, nil
}

func (r *mediaRepo) ListMedia(ctx context.Context, userID string) ([]domain.MediaItem, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MediaItem{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *mediaRepo) ReplaceMedia(ctx context.Context, m domain.MediaItem) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE media SET url = ?, public_id = ?, name = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		m.URL, mapStringNull(m.PublicID), mapStringNull(m.Name), m.UpdatedAt, m.ID, m.UserID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *mediaRepo) DeleteMedia(ctx context.Context, userID, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM media WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (domain.MediaItem, error) {
	var (
		m        domain.MediaItem
		publicID sql.NullString
		name     sql.NullString
	)
	if err := s.Scan(&m.ID, &m.UserID, &m.URL, &publicID, &name, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return domain.MediaItem{}, err
	}
	m.PublicID = mapNullString(publicID)
	m.Name = mapNullString(name)
	return m, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
