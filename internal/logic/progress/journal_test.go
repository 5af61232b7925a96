package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/core"
)

func entries(slot uint64) []Entry {
	return []Entry{
		{Kind: KindBalance, ID: "acc-a", Log: core.LogRef{Slot: slot, BlockHash: "h", TxIndex: 0}},
		{Kind: KindToken, ID: "mint", Log: core.LogRef{Slot: slot, BlockHash: "h", TxIndex: 1}},
	}
}

// 两种实现共享同一套行为用例
func exerciseJournal(t *testing.T, j Journal) {
	ctx := context.Background()

	_, found, err := j.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	for _, slot := range []uint64{10, 12, 11} {
		require.NoError(t, j.Record(ctx, SlotInfo{Slot: slot, ParentSlot: slot - 1, BlockHash: "h"}, entries(slot)))
	}
	// 空区块也要记录，用于分叉检测
	require.NoError(t, j.Record(ctx, SlotInfo{Slot: 13, ParentSlot: 12, BlockHash: "h13"}, nil))

	got, err := j.Entries(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, entries(11), got)

	empty, err := j.Entries(ctx, 13)
	require.NoError(t, err)
	assert.Empty(t, empty)

	info, found, err := j.Slot(ctx, 13)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "h13", info.BlockHash)

	after, err := j.SlotsAfter(ctx, 10)
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, []uint64{11, 12, 13}, []uint64{after[0].Slot, after[1].Slot, after[2].Slot})

	latest, found, err := j.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(13), latest.Slot)

	require.NoError(t, j.Forget(ctx, 13))
	_, found, err = j.Slot(ctx, 13)
	require.NoError(t, err)
	assert.False(t, found)

	n, err := j.Prune(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	after, err = j.SlotsAfter(ctx, 0)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(12), after[0].Slot)

	// 重复记录同一 slot 覆盖旧条目
	require.NoError(t, j.Record(ctx, SlotInfo{Slot: 12, BlockHash: "h2"}, entries(12)[:1]))
	got, err = j.Entries(ctx, 12)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMemoryJournal(t *testing.T) {
	exerciseJournal(t, NewMemoryJournal())
}

func TestRedisJournal(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	j := NewRedisJournal(rdb, time.Hour)
	exerciseJournal(t, j)

	ttl := mr.TTL(infoKey(12))
	assert.Equal(t, time.Hour, ttl)
}
