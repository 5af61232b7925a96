package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// Store 以 JSON 字符串保存实体，key = <prefix>:<id>，不设过期
type Store[ID ~string, T interface{ EntityID() ID }] struct {
	rdb    *redis.Client
	prefix string
}

func New[ID ~string, T interface{ EntityID() ID }](rdb *redis.Client, prefix string) *Store[ID, T] {
	return &Store[ID, T]{rdb: rdb, prefix: prefix}
}

func (s *Store[ID, T]) key(id ID) string {
	return s.prefix + ":" + string(id)
}

func (s *Store[ID, T]) Get(ctx context.Context, id ID) (T, bool, error) {
	var entity T
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return entity, false, nil
	}
	if err != nil {
		return entity, false, fmt.Errorf("redis get %s: %w", s.key(id), err)
	}
	if err := jsonx.Unmarshal(raw, &entity); err != nil {
		return entity, false, fmt.Errorf("decode %s: %w", s.key(id), err)
	}
	return entity, true, nil
}

func (s *Store[ID, T]) Save(ctx context.Context, entity T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	data, err := jsonx.Marshal(entity)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("encode %s: %w", s.key(entity.EntityID()), err)
	}
	if err := s.rdb.Set(ctx, s.key(entity.EntityID()), data, 0).Err(); err != nil {
		var zero T
		return zero, fmt.Errorf("redis set %s: %w", s.key(entity.EntityID()), err)
	}
	return entity, nil
}

// RemoveAll 删除并返回存在的实体，缺失的 id 被忽略
func (s *Store[ID, T]) RemoveAll(ctx context.Context, ids []ID) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}

	var gets []*redis.StringCmd
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		gets = make([]*redis.StringCmd, len(keys))
		for i, k := range keys {
			gets[i] = p.Get(ctx, k)
		}
		p.Del(ctx, keys...)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis remove %d keys: %w", len(keys), err)
	}

	removed := make([]T, 0, len(ids))
	for i, cmd := range gets {
		raw, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("redis get %s: %w", keys[i], err)
		}
		var entity T
		if err := jsonx.Unmarshal(raw, &entity); err != nil {
			return removed, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		removed = append(removed, entity)
	}
	return removed, nil
}
