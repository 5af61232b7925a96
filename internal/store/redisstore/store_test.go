package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-indexer-sol/internal/logic/core"
	"token-indexer-sol/internal/logic/domain"
)

func newBalanceStore(t *testing.T) (*Store[domain.BalanceID, domain.Balance], *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New[domain.BalanceID, domain.Balance](rdb, "balance"), mr
}

func TestStore_SaveGet(t *testing.T) {
	ctx := context.Background()
	s, mr := newBalanceStore(t)

	_, found, err := s.Get(ctx, "acc")
	require.NoError(t, err)
	assert.False(t, found)

	log := core.LogRef{Slot: 7, BlockHash: "h", TxSignature: "sig"}
	b := domain.Balance{
		Account: "acc", Mint: "mint", Owner: "owner", Value: 90,
		RevertableEvents: []domain.BalanceEvent{
			domain.BalanceIncomeEvent{Account: "acc", Amount: 100, LogRef: log},
			domain.BalanceOutcomeEvent{Account: "acc", Amount: 10, LogRef: log},
			domain.BalanceIncomeEvent{Account: "acc", Amount: 5, Reversed: true, LogRef: log},
		},
	}
	_, err = s.Save(ctx, b)
	require.NoError(t, err)
	assert.True(t, mr.Exists("balance:acc"))

	got, found, err := s.Get(ctx, "acc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, b, got)
}

func TestStore_RemoveAll(t *testing.T) {
	ctx := context.Background()
	s, mr := newBalanceStore(t)

	for _, id := range []domain.BalanceID{"a", "b"} {
		_, err := s.Save(ctx, domain.EmptyBalance(id))
		require.NoError(t, err)
	}

	removed, err := s.RemoveAll(ctx, []domain.BalanceID{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.False(t, mr.Exists("balance:a"))
	assert.False(t, mr.Exists("balance:b"))

	removed, err = s.RemoveAll(ctx, []domain.BalanceID{"a"})
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s, mr := newBalanceStore(t)

	require.NoError(t, mr.Set("balance:bad", "{not json"))
	_, _, err := s.Get(ctx, "bad")
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Save(canceled, domain.EmptyBalance("x"))
	assert.ErrorIs(t, err, context.Canceled)

	mr.Close()
	_, err = s.Save(ctx, domain.EmptyBalance("x"))
	assert.Error(t, err)
}
