package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// DB pgxpool.Pool / pgx.Conn 均满足
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	selectSQL = `SELECT data FROM indexer_entity WHERE kind = $1 AND id = $2`
	upsertSQL = `INSERT INTO indexer_entity (kind, id, data, updated_at) VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
ON CONFLICT (kind, id) DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP`
	removeSQL = `WITH removed AS (DELETE FROM indexer_entity WHERE kind = $1 AND id = ANY($2) RETURNING data)
SELECT COALESCE(jsonb_agg(data), '[]'::jsonb) FROM removed`
)

// Store 所有实体共用一张表，按 kind 区分，data 为实体 JSON
type Store[ID ~string, T interface{ EntityID() ID }] struct {
	db   DB
	kind string
}

func New[ID ~string, T interface{ EntityID() ID }](db DB, kind string) *Store[ID, T] {
	return &Store[ID, T]{db: db, kind: kind}
}

func (s *Store[ID, T]) Get(ctx context.Context, id ID) (T, bool, error) {
	var entity T
	var raw []byte
	err := s.db.QueryRow(ctx, selectSQL, s.kind, string(id)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity, false, nil
	}
	if err != nil {
		return entity, false, fmt.Errorf("select %s %s: %w", s.kind, id, err)
	}
	if err := jsonx.Unmarshal(raw, &entity); err != nil {
		return entity, false, fmt.Errorf("decode %s %s: %w", s.kind, id, err)
	}
	return entity, true, nil
}

func (s *Store[ID, T]) Save(ctx context.Context, entity T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	id := entity.EntityID()
	data, err := jsonx.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("encode %s %s: %w", s.kind, id, err)
	}
	if _, err := s.db.Exec(ctx, upsertSQL, s.kind, string(id), data); err != nil {
		return zero, fmt.Errorf("upsert %s %s: %w", s.kind, id, err)
	}
	return entity, nil
}

func (s *Store[ID, T]) RemoveAll(ctx context.Context, ids []ID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = string(id)
	}

	var raw []byte
	if err := s.db.QueryRow(ctx, removeSQL, s.kind, keys).Scan(&raw); err != nil {
		return nil, fmt.Errorf("delete %d %s: %w", len(keys), s.kind, err)
	}
	var removed []T
	if err := jsonx.Unmarshal(raw, &removed); err != nil {
		return nil, fmt.Errorf("decode removed %s: %w", s.kind, err)
	}
	return removed, nil
}
