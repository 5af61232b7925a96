package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeromicro/go-zero/core/jsonx"
)

// Redis key 前缀
const (
	slotIndexKey  = "journal:slots" // ZSET，score = slot
	slotInfoKey   = "journal:slot"
	slotEntryKey  = "journal:entries"
	defaultTTL    = 3 * 24 * time.Hour
	pruneBatchMax = 1000
)

// RedisJournal 管理 Redis 中的 slot journal
type RedisJournal struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisJournal ttl <= 0 时使用默认 3 天
func NewRedisJournal(rdb *redis.Client, ttl time.Duration) *RedisJournal {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisJournal{rdb: rdb, ttl: ttl}
}

func infoKey(slot uint64) string {
	return fmt.Sprintf("%s:%d", slotInfoKey, slot)
}

func entriesKey(slot uint64) string {
	return fmt.Sprintf("%s:%d", slotEntryKey, slot)
}

// Record 覆盖写入某 slot 的摘要与条目（同一 slot 重复处理时以最后一次为准）
func (r *RedisJournal) Record(ctx context.Context, info SlotInfo, entries []Entry) error {
	infoData, err := jsonx.Marshal(info)
	if err != nil {
		return err
	}
	values := make([]any, 0, len(entries))
	for _, e := range entries {
		data, err := jsonx.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, infoKey(info.Slot), infoData, r.ttl)
		p.Del(ctx, entriesKey(info.Slot))
		if len(values) > 0 {
			p.RPush(ctx, entriesKey(info.Slot), values...)
			p.Expire(ctx, entriesKey(info.Slot), r.ttl)
		}
		p.ZAdd(ctx, slotIndexKey, redis.Z{Score: float64(info.Slot), Member: strconv.FormatUint(info.Slot, 10)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis journal record slot %d: %w", info.Slot, err)
	}
	return nil
}

func (r *RedisJournal) Entries(ctx context.Context, slot uint64) ([]Entry, error) {
	raw, err := r.rdb.LRange(ctx, entriesKey(slot), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis journal entries slot %d: %w", slot, err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, s := range raw {
		var e Entry
		if err := jsonx.UnmarshalFromString(s, &e); err != nil {
			return nil, fmt.Errorf("decode journal entry slot %d: %w", slot, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *RedisJournal) Slot(ctx context.Context, slot uint64) (SlotInfo, bool, error) {
	data, err := r.rdb.Get(ctx, infoKey(slot)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return SlotInfo{}, false, nil
	case err != nil:
		return SlotInfo{}, false, fmt.Errorf("redis get error: %w", err)
	}
	var info SlotInfo
	if err := jsonx.Unmarshal(data, &info); err != nil {
		return SlotInfo{}, false, fmt.Errorf("decode slot info %d: %w", slot, err)
	}
	return info, true, nil
}

func (r *RedisJournal) SlotsAfter(ctx context.Context, after uint64) ([]SlotInfo, error) {
	members, err := r.rdb.ZRangeByScore(ctx, slotIndexKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatUint(after, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis journal slots after %d: %w", after, err)
	}
	return r.loadInfos(ctx, members)
}

func (r *RedisJournal) Latest(ctx context.Context) (SlotInfo, bool, error) {
	members, err := r.rdb.ZRevRange(ctx, slotIndexKey, 0, 0).Result()
	if err != nil {
		return SlotInfo{}, false, fmt.Errorf("redis journal latest: %w", err)
	}
	if len(members) == 0 {
		return SlotInfo{}, false, nil
	}
	slot, err := strconv.ParseUint(members[0], 10, 64)
	if err != nil {
		return SlotInfo{}, false, err
	}
	return r.Slot(ctx, slot)
}

func (r *RedisJournal) Forget(ctx context.Context, slot uint64) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, infoKey(slot), entriesKey(slot))
		p.ZRem(ctx, slotIndexKey, strconv.FormatUint(slot, 10))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis journal forget slot %d: %w", slot, err)
	}
	return nil
}

// Prune 分批删除，避免单次命令过大
func (r *RedisJournal) Prune(ctx context.Context, below uint64) (int, error) {
	total := 0
	for {
		members, err := r.rdb.ZRangeByScore(ctx, slotIndexKey, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   "(" + strconv.FormatUint(below, 10),
			Count: pruneBatchMax,
		}).Result()
		if err != nil {
			return total, fmt.Errorf("redis journal prune: %w", err)
		}
		if len(members) == 0 {
			return total, nil
		}

		_, err = r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			for _, m := range members {
				p.Del(ctx, slotInfoKey+":"+m, slotEntryKey+":"+m)
			}
			args := make([]any, len(members))
			for i, m := range members {
				args[i] = m
			}
			p.ZRem(ctx, slotIndexKey, args...)
			return nil
		})
		if err != nil {
			return total, fmt.Errorf("redis journal prune: %w", err)
		}
		total += len(members)
	}
}

func (r *RedisJournal) loadInfos(ctx context.Context, members []string) ([]SlotInfo, error) {
	if len(members) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.StringCmd, len(members))
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, m := range members {
			cmds[i] = p.Get(ctx, slotInfoKey+":"+m)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis journal load infos: %w", err)
	}

	infos := make([]SlotInfo, 0, len(members))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			// 摘要已过期但索引仍在，只保留 slot 号
			slot, _ := strconv.ParseUint(members[i], 10, 64)
			infos = append(infos, SlotInfo{Slot: slot})
			continue
		}
		if err != nil {
			return nil, err
		}
		var info SlotInfo
		if err := jsonx.Unmarshal(data, &info); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
